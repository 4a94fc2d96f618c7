package builder

import (
	"context"

	"github.com/dbkit-go/dbkit/query/executor"
	"github.com/dbkit-go/dbkit/query/sqlgen"
	"github.com/dbkit-go/dbkit/query/statement"
)

// Delete builds DELETE statements.
type Delete struct {
	base
	where[*Delete]

	from    statement.TableRef
	orderBy []statement.Order
	limit   *int64
}

func newDelete(b base) *Delete {
	d := &Delete{base: b}
	d.where.init(d, &d.base)
	return d
}

// From sets the table to delete from.
func (d *Delete) From(table string) *Delete {
	d.from = statement.TableRef{Table: table}
	return d
}

// OrderBy replaces the ordering.
func (d *Delete) OrderBy(col string, dir ...statement.Direction) *Delete {
	d.orderBy = []statement.Order{order(col, dir)}
	return d
}

// Limit caps the number of deleted rows.
func (d *Delete) Limit(n int64) *Delete {
	d.limit = &n
	return d
}

// Statement returns a snapshot of the statement built so far.
func (d *Delete) Statement() *statement.Delete {
	st := &statement.Delete{
		From:    d.from,
		Where:   append([]statement.Predicate(nil), d.where.preds...),
		OrderBy: append([]statement.Order(nil), d.orderBy...),
	}
	if d.limit != nil {
		n := *d.limit
		st.Limit = &n
	}
	return st
}

// ToSQL compiles the statement.
func (d *Delete) ToSQL() (string, []interface{}, error) { return d.toSQL(d.Statement()) }

// Compile compiles the statement into a query.
func (d *Delete) Compile() (*sqlgen.Query, error) { return d.compile(d.Statement()) }

// Execute runs the DELETE.
func (d *Delete) Execute(ctx context.Context) (executor.Result, error) {
	return d.exec(ctx, d.Statement())
}
