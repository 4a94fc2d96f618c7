package builder

import (
	"context"

	"github.com/dbkit-go/dbkit/query/executor"
	"github.com/dbkit-go/dbkit/query/sqlgen"
	"github.com/dbkit-go/dbkit/query/statement"
)

// CreateTable builds CREATE TABLE statements.
type CreateTable struct {
	base
	Blueprint

	stmt     statement.CreateTable
	foreigns []*statement.ForeignKey
}

func newCreateTable(b base, name string) *CreateTable {
	t := &CreateTable{base: b, stmt: statement.CreateTable{Table: name}}
	t.Blueprint.add = func(def *statement.ColumnDef) {
		t.stmt.Columns = append(t.stmt.Columns, def)
	}
	return t
}

func (t *CreateTable) IfNotExists() *CreateTable {
	t.stmt.IfNotExists = true
	return t
}

func (t *CreateTable) Temporary() *CreateTable {
	t.stmt.Temporary = true
	return t
}

// Engine sets the storage engine (MySQL).
func (t *CreateTable) Engine(engine string) *CreateTable {
	t.stmt.Engine = engine
	return t
}

// Charset sets the default character set (MySQL).
func (t *CreateTable) Charset(charset string) *CreateTable {
	t.stmt.Charset = charset
	return t
}

// Collation sets the default collation (MySQL).
func (t *CreateTable) Collation(collation string) *CreateTable {
	t.stmt.Collation = collation
	return t
}

// Comment sets the table comment (MySQL).
func (t *CreateTable) Comment(text string) *CreateTable {
	t.stmt.Comment = text
	return t
}

// Primary adds a composite primary key.
func (t *CreateTable) Primary(columns ...string) *CreateTable {
	t.stmt.Constraints = append(t.stmt.Constraints, statement.Constraint{
		Kind: statement.PrimaryConstraint, Columns: columns,
	})
	return t
}

// Unique adds a unique key named table_columns_unique.
func (t *CreateTable) Unique(columns ...string) *CreateTable {
	t.stmt.Constraints = append(t.stmt.Constraints, statement.Constraint{
		Kind:    statement.UniqueConstraint,
		Name:    sqlgen.DefaultIndexName(t.stmt.Table, columns, "unique"),
		Columns: columns,
	})
	return t
}

// Index adds an index named table_columns_index.
func (t *CreateTable) Index(columns ...string) *CreateTable {
	t.stmt.Constraints = append(t.stmt.Constraints, statement.Constraint{
		Kind:    statement.IndexConstraint,
		Name:    sqlgen.DefaultIndexName(t.stmt.Table, columns, "index"),
		Columns: columns,
	})
	return t
}

// Foreign adds a foreign key on columns, refined through the returned builder.
func (t *CreateTable) Foreign(columns ...string) *ForeignBuilder {
	fk := &statement.ForeignKey{Columns: columns}
	t.stmt.Constraints = append(t.stmt.Constraints, statement.Constraint{Kind: statement.ForeignConstraint})
	t.foreigns = append(t.foreigns, fk)
	return &ForeignBuilder{fk: fk}
}

// Statement returns a snapshot of the statement built so far.
func (t *CreateTable) Statement() *statement.CreateTable {
	st := t.stmt
	st.Columns = make([]*statement.ColumnDef, len(t.stmt.Columns))
	for i, c := range t.stmt.Columns {
		cp := *c
		st.Columns[i] = &cp
	}
	st.Constraints = append([]statement.Constraint(nil), t.stmt.Constraints...)
	n := 0
	for i := range st.Constraints {
		if st.Constraints[i].Kind == statement.ForeignConstraint {
			st.Constraints[i].Foreign = foreignCopy(st.Table, t.foreigns[n])
			n++
		}
	}
	return &st
}

// ToSQL compiles the statement.
func (t *CreateTable) ToSQL() (string, []interface{}, error) { return t.toSQL(t.Statement()) }

// Compile compiles the statement into a query.
func (t *CreateTable) Compile() (*sqlgen.Query, error) { return t.compile(t.Statement()) }

// Execute runs the statement.
func (t *CreateTable) Execute(ctx context.Context) (executor.Result, error) {
	return t.exec(ctx, t.Statement())
}

// AlterTable builds ALTER TABLE statements. Operations keep call order;
// columns declared through the embedded Blueprint are added.
type AlterTable struct {
	base
	Blueprint

	table       string
	alterations []statement.Alteration
}

func newAlterTable(b base, name string) *AlterTable {
	t := &AlterTable{base: b, table: name}
	t.Blueprint.add = func(def *statement.ColumnDef) {
		t.alterations = append(t.alterations, statement.Alteration{Kind: statement.AddColumn, Column: def})
	}
	return t
}

func (t *AlterTable) push(a statement.Alteration) *AlterTable {
	t.alterations = append(t.alterations, a)
	return t
}

// DropColumn drops columns.
func (t *AlterTable) DropColumn(names ...string) *AlterTable {
	for _, n := range names {
		t.push(statement.Alteration{Kind: statement.DropColumn, Name: n})
	}
	return t
}

// ModifyColumn redefines the columns declared by fn.
func (t *AlterTable) ModifyColumn(fn func(*Blueprint)) *AlterTable {
	fn(&Blueprint{add: func(def *statement.ColumnDef) {
		t.push(statement.Alteration{Kind: statement.ModifyColumn, Column: def})
	}})
	return t
}

func (t *AlterTable) RenameColumn(from, to string) *AlterTable {
	return t.push(statement.Alteration{Kind: statement.RenameColumn, Name: from, To: to})
}

// Rename renames the table.
func (t *AlterTable) Rename(to string) *AlterTable {
	return t.push(statement.Alteration{Kind: statement.RenameTable, To: to})
}

// AddForeign adds a foreign key refined through the returned builder.
func (t *AlterTable) AddForeign(columns ...string) *ForeignBuilder {
	fk := &statement.ForeignKey{Columns: columns}
	t.push(statement.Alteration{Kind: statement.AddForeign, Foreign: fk})
	return &ForeignBuilder{fk: fk}
}

func (t *AlterTable) DropForeign(name string) *AlterTable {
	return t.push(statement.Alteration{Kind: statement.DropForeign, Name: name})
}

func (t *AlterTable) AddUnique(columns ...string) *AlterTable {
	return t.push(statement.Alteration{Kind: statement.AddUnique, Columns: columns})
}

func (t *AlterTable) DropUnique(name string) *AlterTable {
	return t.push(statement.Alteration{Kind: statement.DropUnique, Name: name})
}

func (t *AlterTable) AddIndex(columns ...string) *AlterTable {
	return t.push(statement.Alteration{Kind: statement.AddIndex, Columns: columns})
}

func (t *AlterTable) DropIndex(name string) *AlterTable {
	return t.push(statement.Alteration{Kind: statement.DropIndexAlteration, Name: name})
}

func (t *AlterTable) AddPrimary(columns ...string) *AlterTable {
	return t.push(statement.Alteration{Kind: statement.AddPrimary, Columns: columns})
}

func (t *AlterTable) DropPrimary() *AlterTable {
	return t.push(statement.Alteration{Kind: statement.DropPrimary})
}

// Statement returns a snapshot of the statement built so far.
func (t *AlterTable) Statement() *statement.AlterTable {
	st := &statement.AlterTable{Table: t.table, Alterations: make([]statement.Alteration, len(t.alterations))}
	for i, a := range t.alterations {
		if a.Column != nil {
			cp := *a.Column
			a.Column = &cp
		}
		if a.Foreign != nil {
			a.Foreign = foreignCopy(t.table, a.Foreign)
		}
		st.Alterations[i] = a
	}
	return st
}

// ToSQL compiles the statement.
func (t *AlterTable) ToSQL() (string, []interface{}, error) { return t.toSQL(t.Statement()) }

// Compile compiles the statement into a query.
func (t *AlterTable) Compile() (*sqlgen.Query, error) { return t.compile(t.Statement()) }

// Execute runs the statement.
func (t *AlterTable) Execute(ctx context.Context) (executor.Result, error) {
	return t.exec(ctx, t.Statement())
}

// DropTable builds DROP TABLE statements.
type DropTable struct {
	base
	stmt statement.DropTable
}

func (t *DropTable) IfExists() *DropTable {
	t.stmt.IfExists = true
	return t
}

func (t *DropTable) Temporary() *DropTable {
	t.stmt.Temporary = true
	return t
}

// Statement returns a snapshot of the statement built so far.
func (t *DropTable) Statement() *statement.DropTable {
	st := t.stmt
	st.Tables = append([]string(nil), t.stmt.Tables...)
	return &st
}

func (t *DropTable) ToSQL() (string, []interface{}, error) { return t.toSQL(t.Statement()) }

func (t *DropTable) Compile() (*sqlgen.Query, error) { return t.compile(t.Statement()) }

func (t *DropTable) Execute(ctx context.Context) (executor.Result, error) {
	return t.exec(ctx, t.Statement())
}

// TruncateTable empties a table.
type TruncateTable struct {
	base
	stmt statement.TruncateTable
}

// Statement returns the statement.
func (t *TruncateTable) Statement() *statement.TruncateTable {
	st := t.stmt
	return &st
}

func (t *TruncateTable) ToSQL() (string, []interface{}, error) { return t.toSQL(t.Statement()) }

func (t *TruncateTable) Compile() (*sqlgen.Query, error) { return t.compile(t.Statement()) }

func (t *TruncateTable) Execute(ctx context.Context) (executor.Result, error) {
	return t.exec(ctx, t.Statement())
}
