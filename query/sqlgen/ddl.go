package sqlgen

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dbkit-go/dbkit/query/statement"
)

// literal renders a default value inline. DDL cannot carry parameters, so
// only values with an unambiguous literal form are accepted.
func (w *writer) literal(v statement.Value, backslash bool) error {
	switch v := v.(type) {
	case statement.Null:
		w.WriteString("NULL")
	case statement.Raw:
		w.WriteString(string(v))
	case statement.Literal:
		switch x := v.V.(type) {
		case nil:
			w.WriteString("NULL")
		case string:
			w.WriteString(quoteString(x, backslash))
		case []byte:
			w.WriteString(quoteString(string(x), backslash))
		case bool:
			if x {
				w.WriteString("1")
			} else {
				w.WriteString("0")
			}
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			w.WriteString(fmt.Sprintf("%d", x))
		case float32:
			w.WriteString(strconv.FormatFloat(float64(x), 'f', -1, 32))
		case float64:
			w.WriteString(strconv.FormatFloat(x, 'f', -1, 64))
		case time.Time:
			w.WriteString(quoteString(x.Format("2006-01-02 15:04:05"), false))
		case fmt.Stringer:
			w.WriteString(quoteString(x.String(), backslash))
		default:
			return w.fail(ErrInvalidOperand, "cannot render default value of type %T", x)
		}
	default:
		return w.fail(ErrInvalidOperand, "cannot render %T as a default value", v)
	}
	return nil
}

// keyMode limits the key clauses a column definition renders inline.
type keyMode int

const (
	// inlineKeys renders PRIMARY KEY and UNIQUE as declared on the column.
	inlineKeys keyMode = iota
	// tableKey leaves the primary key to a table level constraint.
	tableKey
	// noKeys renders neither; MODIFY COLUMN keeps the existing keys.
	noKeys
)

// primaryConstraint returns the table level PRIMARY KEY, if any.
func primaryConstraint(cs []statement.Constraint) *statement.Constraint {
	for i := range cs {
		if cs[i].Kind == statement.PrimaryConstraint {
			return &cs[i]
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (w *writer) indexColumns(cols []statement.IndexColumn) {
	w.WriteString("(")
	for i, c := range cols {
		if i > 0 {
			w.WriteString(", ")
		}
		w.ident(c.Name)
		if c.Direction != statement.NoDirection {
			w.WriteString(" " + string(c.Direction))
		}
	}
	w.WriteString(")")
}

func (w *writer) columnList(cols []string) {
	w.WriteString("(")
	w.idents(cols)
	w.WriteString(")")
}

func (w *writer) foreignKey(fk *statement.ForeignKey) error {
	if fk == nil || len(fk.Columns) == 0 {
		return w.fail(ErrNoColumns, "foreign key without columns")
	}
	if fk.On == "" || len(fk.References) == 0 {
		return w.fail(ErrNoTable, "foreign key %q does not reference a table", fk.Name)
	}
	if fk.Name != "" {
		w.WriteString("CONSTRAINT ")
		w.ident(fk.Name)
		w.WriteString(" ")
	}
	w.WriteString("FOREIGN KEY ")
	w.columnList(fk.Columns)
	w.WriteString(" REFERENCES ")
	w.ident(fk.On)
	w.WriteString(" ")
	w.columnList(fk.References)
	if fk.OnDelete != "" {
		w.WriteString(" ON DELETE " + string(fk.OnDelete))
	}
	if fk.OnUpdate != "" {
		w.WriteString(" ON UPDATE " + string(fk.OnUpdate))
	}
	return nil
}

// viewSelect renders the SELECT of a view definition, which must not contain
// bound values.
func (w *writer) viewSelect(s *statement.Select) error {
	if s == nil {
		return w.fail(ErrInvalidOperand, "view without a SELECT")
	}
	inner := newWriter(w.d, w.kind)
	if err := inner.selectStmt(s); err != nil {
		return err
	}
	if len(inner.args) > 0 {
		return w.fail(ErrBoundValues, "view definitions cannot contain %d bound values", len(inner.args))
	}
	w.WriteString(inner.sb.String())
	return nil
}

func (w *writer) enumValues(values []string, backslash bool) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = quoteString(v, backslash)
	}
	return strings.Join(quoted, ",")
}
