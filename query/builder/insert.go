package builder

import (
	"context"
	"fmt"
	"sort"

	"github.com/dbkit-go/dbkit/query/executor"
	"github.com/dbkit-go/dbkit/query/sqlgen"
	"github.com/dbkit-go/dbkit/query/statement"
)

// Insert builds INSERT statements.
type Insert struct {
	base

	ignore  bool
	into    string
	columns []string
	values  []statement.Value
	sel     *statement.Select
}

// Into sets the target table.
func (i *Insert) Into(table string) *Insert {
	i.into = table
	return i
}

// Ignore skips rows that violate a unique constraint.
func (i *Insert) Ignore() *Insert {
	i.ignore = true
	return i
}

// Columns sets the column list.
func (i *Insert) Columns(columns ...string) *Insert {
	i.columns = columns
	return i
}

// Values appends values. They are grouped into rows of len(columns) when the
// statement is compiled.
func (i *Insert) Values(values ...interface{}) *Insert {
	for _, v := range values {
		val, err := value(&i.base, v)
		if err != nil {
			i.addErr(err)
			continue
		}
		i.values = append(i.values, val)
	}
	return i
}

// Row appends one row given as a column map. The first row fixes the column
// list in sorted order; later rows must use the same columns.
func (i *Insert) Row(row map[string]interface{}) *Insert {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if len(i.columns) == 0 {
		i.columns = keys
	} else if !sameColumns(i.columns, keys) {
		i.addErr(fmt.Errorf("builder: row columns %v do not match %v", keys, i.columns))
		return i
	}
	for _, c := range i.columns {
		i.Values(row[c])
	}
	return i
}

func sameColumns(cols, sorted []string) bool {
	if len(cols) != len(sorted) {
		return false
	}
	cp := append([]string(nil), cols...)
	sort.Strings(cp)
	for n := range cp {
		if cp[n] != sorted[n] {
			return false
		}
	}
	return true
}

// FromSelect inserts the rows produced by sub.
func (i *Insert) FromSelect(sub Subquery) *Insert {
	sel, err := subSelect(&i.base, sub)
	if err != nil {
		i.addErr(err)
		return i
	}
	i.sel = sel
	return i
}

// Statement returns a snapshot of the statement built so far.
func (i *Insert) Statement() *statement.Insert {
	return &statement.Insert{
		Ignore:  i.ignore,
		Into:    i.into,
		Columns: append([]string(nil), i.columns...),
		Values:  append([]statement.Value(nil), i.values...),
		Select:  i.sel,
	}
}

// ToSQL compiles the statement.
func (i *Insert) ToSQL() (string, []interface{}, error) { return i.toSQL(i.Statement()) }

// Compile compiles the statement into a query.
func (i *Insert) Compile() (*sqlgen.Query, error) { return i.compile(i.Statement()) }

// Execute runs the INSERT, then clears the values and source select so the
// builder can be reused for the next batch.
func (i *Insert) Execute(ctx context.Context) (executor.Result, error) {
	defer func() {
		i.values = nil
		i.sel = nil
	}()
	return i.exec(ctx, i.Statement())
}
