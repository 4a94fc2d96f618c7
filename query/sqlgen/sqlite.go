package sqlgen

import (
	"fmt"

	"github.com/hashicorp/go-version"

	"github.com/dbkit-go/dbkit/query/statement"
)

var (
	sqliteDropColumn   = version.Must(version.NewVersion("3.35.0"))
	sqliteRenameColumn = version.Must(version.NewVersion("3.25.0"))
)

// SQLite compiles statements for SQLite. A database is a file, so CREATE and
// DROP DATABASE are not expressible.
type SQLite struct {
	// Version is the library version when known. It gates ALTER TABLE forms.
	Version *version.Version
}

// Dialect implements Compiler.
func (*SQLite) Dialect() string { return SQLiteDialect }

// Quote implements Compiler.
func (*SQLite) Quote(ident string) string { return quoteIdent('"', ident) }

func (*SQLite) quoteChar() byte { return '"' }

func (*SQLite) orderedMutations() bool { return false }

func (*SQLite) insertKeyword(ignore bool) string {
	if ignore {
		return "INSERT OR IGNORE INTO"
	}
	return "INSERT INTO"
}

func (*SQLite) writeLimit(w *writer, limit, offset *int64) {
	switch {
	case limit != nil:
		w.WriteString(fmt.Sprintf(" LIMIT %d", *limit))
	case offset != nil:
		w.WriteString(" LIMIT -1")
	}
	if offset != nil {
		w.WriteString(fmt.Sprintf(" OFFSET %d", *offset))
	}
}

// Compile implements Compiler.
func (d *SQLite) Compile(stmt statement.Statement) (*Query, error) {
	if q, ok, err := compileDML(d, stmt); ok {
		return q, err
	}
	w := newWriter(d, stmt.Kind())
	var err error
	switch s := stmt.(type) {
	case *statement.CreateDatabase:
		err = w.fail(ErrUnsupported, "database %q is a file", s.Name)
	case *statement.DropDatabase:
		err = w.fail(ErrUnsupported, "database %q is a file", s.Name)
	case *statement.CreateTable:
		err = d.createTable(w, s)
	case *statement.AlterTable:
		err = d.alterTable(w, s)
	case *statement.DropTable:
		err = d.dropTable(w, s)
	case *statement.TruncateTable:
		err = d.truncate(w, s)
	case *statement.CreateIndex:
		err = d.createIndex(w, s)
	case *statement.DropIndex:
		err = d.dropIndex(w, s)
	case *statement.CreateView:
		err = d.createView(w, s)
	case *statement.DropView:
		err = d.dropView(w, s)
	default:
		return nil, fmt.Errorf("sqlgen: sqlite: unknown statement %T", stmt)
	}
	if err != nil {
		return nil, err
	}
	return w.query(), nil
}

func (d *SQLite) columnType(w *writer, c *statement.ColumnDef) (string, error) {
	switch c.Type {
	case statement.TypeInteger, statement.TypeBigInteger, statement.TypeSmallInteger,
		statement.TypeTinyInteger, statement.TypeBoolean:
		return "INTEGER", nil
	case statement.TypeString:
		return fmt.Sprintf("VARCHAR(%d)", lengthOr(c.Length, 255)), nil
	case statement.TypeChar:
		return fmt.Sprintf("CHAR(%d)", lengthOr(c.Length, 255)), nil
	case statement.TypeText, statement.TypeMediumText, statement.TypeLongText, statement.TypeJSON:
		return "TEXT", nil
	case statement.TypeFloat, statement.TypeDouble:
		return "REAL", nil
	case statement.TypeDecimal:
		return "NUMERIC", nil
	case statement.TypeDate:
		return "DATE", nil
	case statement.TypeDateTime, statement.TypeTimestamp:
		return "DATETIME", nil
	case statement.TypeTime:
		return "TIME", nil
	case statement.TypeBinary:
		return "BLOB", nil
	case statement.TypeUUID:
		return "VARCHAR(36)", nil
	case statement.TypeEnum:
		if len(c.Values) == 0 {
			return "", w.fail(ErrInvalidOperand, "enum column %q has no values", c.Name)
		}
		return fmt.Sprintf("VARCHAR(255) CHECK (%s IN (%s))",
			quoteIdent('"', c.Name), w.enumValues(c.Values, false)), nil
	default:
		return "", w.fail(ErrUnsupported, "column %q has unknown type %d", c.Name, c.Type)
	}
}

func (d *SQLite) column(w *writer, c *statement.ColumnDef, keys keyMode) error {
	if c == nil || c.Name == "" {
		return w.fail(ErrNoColumns, "column without a name")
	}
	w.ident(c.Name)
	if c.AutoIncrement {
		if !c.Type.IsInteger() {
			return w.fail(ErrUnsupported, "AUTOINCREMENT column %q must be an integer", c.Name)
		}
		w.WriteString(" INTEGER PRIMARY KEY AUTOINCREMENT")
		return nil
	}
	t, err := d.columnType(w, c)
	if err != nil {
		return err
	}
	w.WriteString(" " + t)
	if !c.Nullable || c.Primary {
		w.WriteString(" NOT NULL")
	}
	if c.Default != nil {
		w.WriteString(" DEFAULT ")
		if err := w.literal(c.Default, false); err != nil {
			return err
		}
	}
	switch {
	case keys == inlineKeys && c.Primary:
		w.WriteString(" PRIMARY KEY")
	case keys != noKeys && c.Unique:
		w.WriteString(" UNIQUE")
	}
	return nil
}

func (d *SQLite) constraint(w *writer, c statement.Constraint) error {
	switch c.Kind {
	case statement.PrimaryConstraint:
		w.WriteString("PRIMARY KEY ")
	case statement.UniqueConstraint:
		if c.Name != "" {
			w.WriteString("CONSTRAINT ")
			w.ident(c.Name)
			w.WriteString(" ")
		}
		w.WriteString("UNIQUE ")
	case statement.ForeignConstraint:
		return w.foreignKey(c.Foreign)
	case statement.IndexConstraint:
		return w.fail(ErrUnsupported, "inline INDEX %q, use CREATE INDEX", c.Name)
	default:
		return w.fail(ErrUnsupported, "unknown constraint kind %d", c.Kind)
	}
	if len(c.Columns) == 0 {
		return w.fail(ErrNoColumns, "constraint %q has no columns", c.Name)
	}
	w.columnList(c.Columns)
	return nil
}

func (d *SQLite) createTable(w *writer, s *statement.CreateTable) error {
	if s.Table == "" {
		return w.fail(ErrNoTable, "CREATE TABLE without a name")
	}
	if len(s.Columns) == 0 {
		return w.fail(ErrNoColumns, "table %q has no columns", s.Table)
	}
	w.WriteString("CREATE ")
	if s.Temporary {
		w.WriteString("TEMPORARY ")
	}
	w.WriteString("TABLE ")
	if s.IfNotExists {
		w.WriteString("IF NOT EXISTS ")
	}
	keys := inlineKeys
	constraints := s.Constraints
	if pk := primaryConstraint(constraints); pk != nil {
		keys = tableKey
		for _, c := range s.Columns {
			if c == nil || !c.AutoIncrement {
				continue
			}
			// AUTOINCREMENT only exists on an INTEGER PRIMARY KEY column,
			// so a table key naming just that column is rendered inline.
			if len(pk.Columns) != 1 || pk.Columns[0] != c.Name {
				return w.fail(ErrUnsupported, "AUTOINCREMENT column %q cannot be part of a composite primary key", c.Name)
			}
			keys = inlineKeys
			constraints = withoutPrimary(constraints)
		}
	}
	w.ident(s.Table)
	w.WriteString(" (")
	for i, c := range s.Columns {
		if i > 0 {
			w.WriteString(", ")
		}
		if err := d.column(w, c, keys); err != nil {
			return err
		}
	}
	for _, c := range constraints {
		w.WriteString(", ")
		if err := d.constraint(w, c); err != nil {
			return err
		}
	}
	w.WriteString(")")
	return nil
}

func withoutPrimary(cs []statement.Constraint) []statement.Constraint {
	out := make([]statement.Constraint, 0, len(cs))
	for _, c := range cs {
		if c.Kind != statement.PrimaryConstraint {
			out = append(out, c)
		}
	}
	return out
}

// alterTable renders one statement per alteration since SQLite accepts a
// single operation per ALTER TABLE.
func (d *SQLite) alterTable(w *writer, s *statement.AlterTable) error {
	if s.Table == "" {
		return w.fail(ErrNoTable, "ALTER TABLE without a name")
	}
	if len(s.Alterations) == 0 {
		return w.fail(ErrNoValues, "ALTER TABLE %q has no operations", s.Table)
	}
	table := s.Table
	for i, a := range s.Alterations {
		if i > 0 {
			w.WriteString("; ")
		}
		if err := d.alteration(w, table, a); err != nil {
			return err
		}
		if a.Kind == statement.RenameTable {
			table = a.To
		}
	}
	return nil
}

func (d *SQLite) alterPrefix(w *writer, table string) {
	w.WriteString("ALTER TABLE ")
	w.ident(table)
	w.WriteString(" ")
}

func (d *SQLite) alteration(w *writer, table string, a statement.Alteration) error {
	switch a.Kind {
	case statement.AddColumn:
		c := a.Column
		if c == nil {
			return w.fail(ErrNoColumns, "ADD COLUMN without a column")
		}
		if c.Primary || c.Unique || c.AutoIncrement {
			return w.fail(ErrUnsupported, "added column %q cannot be PRIMARY KEY or UNIQUE", c.Name)
		}
		if !c.Nullable && c.Default == nil {
			return w.fail(ErrUnsupported, "added column %q must be nullable or have a default", c.Name)
		}
		d.alterPrefix(w, table)
		w.WriteString("ADD COLUMN ")
		return d.column(w, c, inlineKeys)
	case statement.DropColumn:
		if d.Version != nil && d.Version.LessThan(sqliteDropColumn) {
			return w.fail(ErrUnsupported, "DROP COLUMN requires SQLite %s, library is %s", sqliteDropColumn, d.Version)
		}
		d.alterPrefix(w, table)
		w.WriteString("DROP COLUMN ")
		w.ident(a.Name)
	case statement.RenameColumn:
		if d.Version != nil && d.Version.LessThan(sqliteRenameColumn) {
			return w.fail(ErrUnsupported, "RENAME COLUMN requires SQLite %s, library is %s", sqliteRenameColumn, d.Version)
		}
		d.alterPrefix(w, table)
		w.WriteString("RENAME COLUMN ")
		w.ident(a.Name)
		w.WriteString(" TO ")
		w.ident(a.To)
	case statement.RenameTable:
		d.alterPrefix(w, table)
		w.WriteString("RENAME TO ")
		w.ident(a.To)
	case statement.AddUnique, statement.AddIndex:
		if len(a.Columns) == 0 {
			return w.fail(ErrNoColumns, "index on %q has no columns", table)
		}
		w.WriteString("CREATE ")
		if a.Kind == statement.AddUnique {
			w.WriteString("UNIQUE ")
		}
		w.WriteString("INDEX ")
		w.ident(indexName(table, a))
		w.WriteString(" ON ")
		w.ident(table)
		w.WriteString(" ")
		w.columnList(a.Columns)
	case statement.DropUnique, statement.DropIndexAlteration:
		w.WriteString("DROP INDEX ")
		w.ident(a.Name)
	case statement.ModifyColumn:
		return w.fail(ErrUnsupported, "MODIFY COLUMN")
	case statement.AddForeign, statement.DropForeign:
		return w.fail(ErrUnsupported, "altering foreign keys")
	case statement.AddPrimary, statement.DropPrimary:
		return w.fail(ErrUnsupported, "altering the primary key")
	default:
		return w.fail(ErrUnsupported, "unknown alteration %d", a.Kind)
	}
	return nil
}

func (d *SQLite) dropTable(w *writer, s *statement.DropTable) error {
	if len(s.Tables) == 0 {
		return w.fail(ErrNoTable, "DROP TABLE without tables")
	}
	for i, t := range s.Tables {
		if i > 0 {
			w.WriteString("; ")
		}
		w.WriteString("DROP TABLE ")
		if s.IfExists {
			w.WriteString("IF EXISTS ")
		}
		w.ident(t)
	}
	return nil
}

func (d *SQLite) truncate(w *writer, s *statement.TruncateTable) error {
	if s.Table == "" {
		return w.fail(ErrNoTable, "TRUNCATE without a table")
	}
	w.WriteString("DELETE FROM ")
	w.ident(s.Table)
	return nil
}

func (d *SQLite) createIndex(w *writer, s *statement.CreateIndex) error {
	if s.Table == "" {
		return w.fail(ErrNoTable, "CREATE INDEX without a table")
	}
	if len(s.Columns) == 0 {
		return w.fail(ErrNoColumns, "index %q has no columns", s.Name)
	}
	w.WriteString("CREATE ")
	if s.Unique {
		w.WriteString("UNIQUE ")
	}
	w.WriteString("INDEX ")
	if s.IfNotExists {
		w.WriteString("IF NOT EXISTS ")
	}
	w.ident(s.Name)
	w.WriteString(" ON ")
	w.ident(s.Table)
	w.WriteString(" ")
	w.indexColumns(s.Columns)
	return nil
}

func (d *SQLite) dropIndex(w *writer, s *statement.DropIndex) error {
	if s.Name == "" {
		return w.fail(ErrNoTable, "DROP INDEX without a name")
	}
	w.WriteString("DROP INDEX ")
	if s.IfExists {
		w.WriteString("IF EXISTS ")
	}
	w.ident(s.Name)
	return nil
}

func (d *SQLite) createView(w *writer, s *statement.CreateView) error {
	if s.Name == "" {
		return w.fail(ErrNoTable, "CREATE VIEW without a name")
	}
	if s.OrReplace {
		w.WriteString("DROP VIEW IF EXISTS ")
		w.ident(s.Name)
		w.WriteString("; ")
	}
	w.WriteString("CREATE VIEW ")
	w.ident(s.Name)
	if len(s.Columns) > 0 {
		w.WriteString(" ")
		w.columnList(s.Columns)
	}
	w.WriteString(" AS ")
	return w.viewSelect(s.Select)
}

func (d *SQLite) dropView(w *writer, s *statement.DropView) error {
	if len(s.Names) == 0 {
		return w.fail(ErrNoTable, "DROP VIEW without views")
	}
	for i, n := range s.Names {
		if i > 0 {
			w.WriteString("; ")
		}
		w.WriteString("DROP VIEW ")
		if s.IfExists {
			w.WriteString("IF EXISTS ")
		}
		w.ident(n)
	}
	return nil
}
