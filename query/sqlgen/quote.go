package sqlgen

import (
	"strings"
)

// quoteIdent quotes a possibly dotted identifier segment by segment. Only the
// wildcard is returned unchanged; expressions must be passed as statement.Raw.
func quoteIdent(q byte, name string) string {
	if name == "*" {
		return name
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if p == "*" {
			continue
		}
		parts[i] = quoteSegment(q, p)
	}
	return strings.Join(parts, ".")
}

func quoteSegment(q byte, s string) string {
	qs := string(q)
	return qs + strings.ReplaceAll(s, qs, qs+qs) + qs
}

// Unquote reverses the quoting of a single identifier segment. Strings that
// are not quoted with q are returned unchanged.
func Unquote(q byte, s string) string {
	if len(s) < 2 || s[0] != q || s[len(s)-1] != q {
		return s
	}
	qs := string(q)
	return strings.ReplaceAll(s[1:len(s)-1], qs+qs, qs)
}

// quoteString renders a string literal for DDL, where parameters cannot be
// bound.
func quoteString(s string, backslash bool) string {
	if backslash {
		s = strings.ReplaceAll(s, `\`, `\\`)
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
