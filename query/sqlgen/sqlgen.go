// Package sqlgen compiles statement models into dialect specific SQL.
package sqlgen

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/dbkit-go/dbkit/query/statement"
)

// Dialect names.
const (
	MySQLDialect  = "mysql"
	SQLiteDialect = "sqlite"
)

// Query represents a SQL query with arguments
type Query struct {
	SQL  string
	Args []interface{}
	// Kind is the compiled statement kind, zero for hand written SQL.
	Kind statement.Kind
}

// String returns the SQL text.
func (q *Query) String() string { return q.SQL }

// Compiler renders statements for one dialect. Compile never mutates its
// input, so the same statement can be compiled any number of times.
type Compiler interface {
	Dialect() string
	Quote(ident string) string
	Compile(stmt statement.Statement) (*Query, error)
}

// NewCompiler creates a compiler for the given dialect name.
func NewCompiler(name string) (Compiler, error) {
	switch NormalizeDialect(name) {
	case MySQLDialect:
		return &MySQL{}, nil
	case SQLiteDialect:
		return &SQLite{}, nil
	default:
		return nil, fmt.Errorf("sqlgen: unsupported dialect %q", name)
	}
}

// NormalizeDialect maps driver names and aliases to a dialect name. Unknown
// names are returned lower-cased.
func NormalizeDialect(name string) string {
	switch n := strings.ToLower(strings.TrimSpace(name)); n {
	case "mysql", "mariadb":
		return MySQLDialect
	case "sqlite", "sqlite3":
		return SQLiteDialect
	default:
		return n
	}
}

// dialect holds the hooks the shared DML rendering needs.
type dialect interface {
	Compiler
	quoteChar() byte
	writeLimit(w *writer, limit, offset *int64)
	insertKeyword(ignore bool) string
	orderedMutations() bool
}

// writer accumulates SQL text and bindings together so that every placeholder
// is paired with its binding in traversal order.
type writer struct {
	d    dialect
	kind statement.Kind
	sb   strings.Builder
	args []interface{}
}

func newWriter(d dialect, kind statement.Kind) *writer {
	return &writer{d: d, kind: kind}
}

func (w *writer) WriteString(s string) {
	w.sb.WriteString(s)
}

func (w *writer) ident(name string) {
	w.sb.WriteString(quoteIdent(w.d.quoteChar(), name))
}

func (w *writer) idents(names []string) {
	for i, n := range names {
		if i > 0 {
			w.sb.WriteString(", ")
		}
		w.ident(n)
	}
}

func (w *writer) bind(v interface{}) {
	w.sb.WriteByte('?')
	w.args = append(w.args, v)
}

func (w *writer) bindNamed(name string, v interface{}) {
	w.sb.WriteByte(':')
	w.sb.WriteString(name)
	w.args = append(w.args, sql.Named(name, v))
}

func (w *writer) fail(err error, format string, args ...interface{}) error {
	return &StructuralError{
		Dialect:   w.d.Dialect(),
		Statement: w.kind,
		Detail:    fmt.Sprintf(format, args...),
		Err:       err,
	}
}

func (w *writer) query() *Query {
	return &Query{SQL: w.sb.String(), Args: w.args, Kind: w.kind}
}

// compileDML dispatches the statements whose rendering is shared by all
// dialects. ok is false for DDL statements.
func compileDML(d dialect, stmt statement.Statement) (q *Query, ok bool, err error) {
	w := newWriter(d, stmt.Kind())
	switch s := stmt.(type) {
	case *statement.Select:
		err = w.selectStmt(s)
	case *statement.Insert:
		err = w.insertStmt(s)
	case *statement.Update:
		err = w.updateStmt(s)
	case *statement.Delete:
		err = w.deleteStmt(s)
	default:
		return nil, false, nil
	}
	if err != nil {
		return nil, true, err
	}
	return w.query(), true, nil
}
