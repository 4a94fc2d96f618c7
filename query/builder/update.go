package builder

import (
	"context"

	"github.com/dbkit-go/dbkit/query/executor"
	"github.com/dbkit-go/dbkit/query/sqlgen"
	"github.com/dbkit-go/dbkit/query/statement"
)

// Update builds UPDATE statements.
type Update struct {
	base
	where[*Update]

	table   statement.TableRef
	set     []statement.Assignment
	orderBy []statement.Order
	limit   *int64
}

func newUpdate(b base) *Update {
	u := &Update{base: b}
	u.where.init(u, &u.base)
	return u
}

// Table sets the table to update.
func (u *Update) Table(name string, alias ...string) *Update {
	u.table = tableRef(name, alias)
	return u
}

// Set assigns a value to a column. value may be a Subquery.
func (u *Update) Set(col string, v interface{}) *Update {
	val, err := value(&u.base, v)
	if err != nil {
		u.addErr(err)
		return u
	}
	u.set = append(u.set, statement.Assignment{Column: col, Value: val})
	return u
}

// SetRaw assigns an unbound SQL fragment to a column.
func (u *Update) SetRaw(col, raw string) *Update {
	u.set = append(u.set, statement.Assignment{Column: col, Value: statement.Raw(raw)})
	return u
}

// OrderBy replaces the ordering.
func (u *Update) OrderBy(col string, dir ...statement.Direction) *Update {
	u.orderBy = []statement.Order{order(col, dir)}
	return u
}

// Limit caps the number of updated rows.
func (u *Update) Limit(n int64) *Update {
	u.limit = &n
	return u
}

// Statement returns a snapshot of the statement built so far.
func (u *Update) Statement() *statement.Update {
	st := &statement.Update{
		Table:   u.table,
		Set:     append([]statement.Assignment(nil), u.set...),
		Where:   append([]statement.Predicate(nil), u.where.preds...),
		OrderBy: append([]statement.Order(nil), u.orderBy...),
	}
	if u.limit != nil {
		n := *u.limit
		st.Limit = &n
	}
	return st
}

// ToSQL compiles the statement.
func (u *Update) ToSQL() (string, []interface{}, error) { return u.toSQL(u.Statement()) }

// Compile compiles the statement into a query.
func (u *Update) Compile() (*sqlgen.Query, error) { return u.compile(u.Statement()) }

// Execute runs the UPDATE, then clears the SET list.
func (u *Update) Execute(ctx context.Context) (executor.Result, error) {
	defer func() { u.set = nil }()
	return u.exec(ctx, u.Statement())
}
