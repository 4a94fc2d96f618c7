package builder

import (
	"context"

	"github.com/dbkit-go/dbkit/query/executor"
	"github.com/dbkit-go/dbkit/query/sqlgen"
	"github.com/dbkit-go/dbkit/query/statement"
)

// CreateIndex builds CREATE INDEX statements.
type CreateIndex struct {
	base
	stmt statement.CreateIndex
}

// On sets the indexed table and columns.
func (i *CreateIndex) On(table string, columns ...string) *CreateIndex {
	i.stmt.Table = table
	for _, c := range columns {
		i.stmt.Columns = append(i.stmt.Columns, statement.IndexColumn{Name: c})
	}
	return i
}

// Column adds a column with an explicit direction.
func (i *CreateIndex) Column(name string, dir statement.Direction) *CreateIndex {
	i.stmt.Columns = append(i.stmt.Columns, statement.IndexColumn{Name: name, Direction: dir})
	return i
}

func (i *CreateIndex) Unique() *CreateIndex {
	i.stmt.Unique = true
	return i
}

func (i *CreateIndex) IfNotExists() *CreateIndex {
	i.stmt.IfNotExists = true
	return i
}

// Statement returns a snapshot of the statement built so far.
func (i *CreateIndex) Statement() *statement.CreateIndex {
	st := i.stmt
	st.Columns = append([]statement.IndexColumn(nil), i.stmt.Columns...)
	if st.Name == "" {
		names := make([]string, len(st.Columns))
		for n, c := range st.Columns {
			names[n] = c.Name
		}
		suffix := "index"
		if st.Unique {
			suffix = "unique"
		}
		st.Name = sqlgen.DefaultIndexName(st.Table, names, suffix)
	}
	return &st
}

func (i *CreateIndex) ToSQL() (string, []interface{}, error) { return i.toSQL(i.Statement()) }

func (i *CreateIndex) Compile() (*sqlgen.Query, error) { return i.compile(i.Statement()) }

func (i *CreateIndex) Execute(ctx context.Context) (executor.Result, error) {
	return i.exec(ctx, i.Statement())
}

// DropIndex builds DROP INDEX statements.
type DropIndex struct {
	base
	stmt statement.DropIndex
}

// On sets the table, which MySQL requires.
func (i *DropIndex) On(table string) *DropIndex {
	i.stmt.Table = table
	return i
}

func (i *DropIndex) IfExists() *DropIndex {
	i.stmt.IfExists = true
	return i
}

func (i *DropIndex) Statement() *statement.DropIndex {
	st := i.stmt
	return &st
}

func (i *DropIndex) ToSQL() (string, []interface{}, error) { return i.toSQL(i.Statement()) }

func (i *DropIndex) Compile() (*sqlgen.Query, error) { return i.compile(i.Statement()) }

func (i *DropIndex) Execute(ctx context.Context) (executor.Result, error) {
	return i.exec(ctx, i.Statement())
}

// CreateView builds CREATE VIEW statements. The defining SELECT cannot
// carry bound values.
type CreateView struct {
	base
	name      string
	orReplace bool
	columns   []string
	sel       *statement.Select
}

func (v *CreateView) OrReplace() *CreateView {
	v.orReplace = true
	return v
}

// Columns names the view columns.
func (v *CreateView) Columns(columns ...string) *CreateView {
	v.columns = columns
	return v
}

// As sets the defining query.
func (v *CreateView) As(sub Subquery) *CreateView {
	sel, err := subSelect(&v.base, sub)
	if err != nil {
		v.addErr(err)
		return v
	}
	v.sel = sel
	return v
}

func (v *CreateView) Statement() *statement.CreateView {
	return &statement.CreateView{
		Name:      v.name,
		OrReplace: v.orReplace,
		Columns:   append([]string(nil), v.columns...),
		Select:    v.sel,
	}
}

func (v *CreateView) ToSQL() (string, []interface{}, error) { return v.toSQL(v.Statement()) }

func (v *CreateView) Compile() (*sqlgen.Query, error) { return v.compile(v.Statement()) }

func (v *CreateView) Execute(ctx context.Context) (executor.Result, error) {
	return v.exec(ctx, v.Statement())
}

// DropView builds DROP VIEW statements.
type DropView struct {
	base
	stmt statement.DropView
}

func (v *DropView) IfExists() *DropView {
	v.stmt.IfExists = true
	return v
}

func (v *DropView) Statement() *statement.DropView {
	st := v.stmt
	st.Names = append([]string(nil), v.stmt.Names...)
	return &st
}

func (v *DropView) ToSQL() (string, []interface{}, error) { return v.toSQL(v.Statement()) }

func (v *DropView) Compile() (*sqlgen.Query, error) { return v.compile(v.Statement()) }

func (v *DropView) Execute(ctx context.Context) (executor.Result, error) {
	return v.exec(ctx, v.Statement())
}

// CreateDatabase builds CREATE DATABASE statements.
type CreateDatabase struct {
	base
	stmt statement.CreateDatabase
}

func (d *CreateDatabase) IfNotExists() *CreateDatabase {
	d.stmt.IfNotExists = true
	return d
}

func (d *CreateDatabase) Charset(charset string) *CreateDatabase {
	d.stmt.Charset = charset
	return d
}

func (d *CreateDatabase) Collation(collation string) *CreateDatabase {
	d.stmt.Collation = collation
	return d
}

func (d *CreateDatabase) Statement() *statement.CreateDatabase {
	st := d.stmt
	return &st
}

func (d *CreateDatabase) ToSQL() (string, []interface{}, error) { return d.toSQL(d.Statement()) }

func (d *CreateDatabase) Compile() (*sqlgen.Query, error) { return d.compile(d.Statement()) }

func (d *CreateDatabase) Execute(ctx context.Context) (executor.Result, error) {
	return d.exec(ctx, d.Statement())
}

// DropDatabase builds DROP DATABASE statements.
type DropDatabase struct {
	base
	stmt statement.DropDatabase
}

func (d *DropDatabase) IfExists() *DropDatabase {
	d.stmt.IfExists = true
	return d
}

func (d *DropDatabase) Statement() *statement.DropDatabase {
	st := d.stmt
	return &st
}

func (d *DropDatabase) ToSQL() (string, []interface{}, error) { return d.toSQL(d.Statement()) }

func (d *DropDatabase) Compile() (*sqlgen.Query, error) { return d.compile(d.Statement()) }

func (d *DropDatabase) Execute(ctx context.Context) (executor.Result, error) {
	return d.exec(ctx, d.Statement())
}
