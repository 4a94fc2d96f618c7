package sqlgen

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-version"

	"github.com/dbkit-go/dbkit/query/statement"
)

// mysqlMaxRows is the documented way to express an OFFSET without a LIMIT.
const mysqlMaxRows = "18446744073709551615"

var mysqlRenameColumn = version.Must(version.NewVersion("8.0.0"))

// MySQL compiles statements for MySQL and MariaDB.
type MySQL struct {
	// Version is the server version when known. It gates syntax that older
	// servers do not accept.
	Version *version.Version
}

// Dialect implements Compiler.
func (*MySQL) Dialect() string { return MySQLDialect }

// Quote implements Compiler.
func (*MySQL) Quote(ident string) string { return quoteIdent('`', ident) }

func (*MySQL) quoteChar() byte { return '`' }

func (*MySQL) orderedMutations() bool { return true }

func (*MySQL) insertKeyword(ignore bool) string {
	if ignore {
		return "INSERT IGNORE INTO"
	}
	return "INSERT INTO"
}

func (*MySQL) writeLimit(w *writer, limit, offset *int64) {
	switch {
	case limit != nil && offset != nil:
		w.WriteString(fmt.Sprintf(" LIMIT %d, %d", *offset, *limit))
	case limit != nil:
		w.WriteString(fmt.Sprintf(" LIMIT %d", *limit))
	case offset != nil:
		w.WriteString(fmt.Sprintf(" LIMIT %d, %s", *offset, mysqlMaxRows))
	}
}

// Compile implements Compiler.
func (d *MySQL) Compile(stmt statement.Statement) (*Query, error) {
	if q, ok, err := compileDML(d, stmt); ok {
		return q, err
	}
	w := newWriter(d, stmt.Kind())
	var err error
	switch s := stmt.(type) {
	case *statement.CreateDatabase:
		err = d.createDatabase(w, s)
	case *statement.DropDatabase:
		err = d.dropDatabase(w, s)
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
		return nil, fmt.Errorf("sqlgen: mysql: unknown statement %T", stmt)
	}
	if err != nil {
		return nil, err
	}
	return w.query(), nil
}

func (d *MySQL) createDatabase(w *writer, s *statement.CreateDatabase) error {
	if s.Name == "" {
		return w.fail(ErrNoTable, "database name is empty")
	}
	w.WriteString("CREATE DATABASE ")
	if s.IfNotExists {
		w.WriteString("IF NOT EXISTS ")
	}
	w.ident(s.Name)
	if s.Charset != "" {
		w.WriteString(" CHARACTER SET " + s.Charset)
	}
	if s.Collation != "" {
		w.WriteString(" COLLATE " + s.Collation)
	}
	return nil
}

func (d *MySQL) dropDatabase(w *writer, s *statement.DropDatabase) error {
	if s.Name == "" {
		return w.fail(ErrNoTable, "database name is empty")
	}
	w.WriteString("DROP DATABASE ")
	if s.IfExists {
		w.WriteString("IF EXISTS ")
	}
	w.ident(s.Name)
	return nil
}

func (d *MySQL) columnType(w *writer, c *statement.ColumnDef) (string, error) {
	var t string
	switch c.Type {
	case statement.TypeInteger:
		t = "INT"
	case statement.TypeBigInteger:
		t = "BIGINT"
	case statement.TypeSmallInteger:
		t = "SMALLINT"
	case statement.TypeTinyInteger:
		t = "TINYINT"
	case statement.TypeBoolean:
		t = "TINYINT(1)"
	case statement.TypeString:
		t = fmt.Sprintf("VARCHAR(%d)", lengthOr(c.Length, 255))
	case statement.TypeChar:
		t = fmt.Sprintf("CHAR(%d)", lengthOr(c.Length, 255))
	case statement.TypeText:
		t = "TEXT"
	case statement.TypeMediumText:
		t = "MEDIUMTEXT"
	case statement.TypeLongText:
		t = "LONGTEXT"
	case statement.TypeFloat:
		t = "FLOAT"
	case statement.TypeDouble:
		t = "DOUBLE"
	case statement.TypeDecimal:
		p, sc := c.Precision, c.Scale
		if p == 0 {
			p, sc = 8, 2
		}
		t = fmt.Sprintf("DECIMAL(%d,%d)", p, sc)
	case statement.TypeDate:
		t = "DATE"
	case statement.TypeDateTime:
		t = "DATETIME"
	case statement.TypeTime:
		t = "TIME"
	case statement.TypeTimestamp:
		t = "TIMESTAMP"
	case statement.TypeJSON:
		t = "JSON"
	case statement.TypeBinary:
		t = "BLOB"
	case statement.TypeUUID:
		t = "CHAR(36)"
	case statement.TypeEnum:
		if len(c.Values) == 0 {
			return "", w.fail(ErrInvalidOperand, "enum column %q has no values", c.Name)
		}
		t = "ENUM(" + w.enumValues(c.Values, true) + ")"
	default:
		return "", w.fail(ErrUnsupported, "column %q has unknown type %d", c.Name, c.Type)
	}
	if c.Unsigned && (c.Type.IsInteger() || c.Type == statement.TypeDecimal ||
		c.Type == statement.TypeFloat || c.Type == statement.TypeDouble) {
		t += " UNSIGNED"
	}
	return t, nil
}

func (d *MySQL) column(w *writer, c *statement.ColumnDef, keys keyMode) error {
	if c == nil || c.Name == "" {
		return w.fail(ErrNoColumns, "column without a name")
	}
	t, err := d.columnType(w, c)
	if err != nil {
		return err
	}
	w.ident(c.Name)
	w.WriteString(" " + t)
	if c.Nullable && !c.Primary && !c.AutoIncrement {
		w.WriteString(" NULL")
	} else {
		w.WriteString(" NOT NULL")
	}
	if c.Default != nil {
		w.WriteString(" DEFAULT ")
		if err := w.literal(c.Default, true); err != nil {
			return err
		}
	}
	if c.AutoIncrement {
		w.WriteString(" AUTO_INCREMENT")
	}
	switch {
	case keys == inlineKeys && (c.Primary || c.AutoIncrement):
		w.WriteString(" PRIMARY KEY")
	case keys != noKeys && c.Unique:
		w.WriteString(" UNIQUE")
	}
	if c.Comment != "" {
		w.WriteString(" COMMENT " + quoteString(c.Comment, true))
	}
	if c.After != "" {
		w.WriteString(" AFTER ")
		w.ident(c.After)
	}
	return nil
}

func (d *MySQL) constraint(w *writer, c statement.Constraint) error {
	switch c.Kind {
	case statement.PrimaryConstraint:
		w.WriteString("PRIMARY KEY ")
	case statement.UniqueConstraint:
		w.WriteString("UNIQUE KEY ")
		if c.Name != "" {
			w.ident(c.Name)
			w.WriteString(" ")
		}
	case statement.IndexConstraint:
		w.WriteString("INDEX ")
		if c.Name != "" {
			w.ident(c.Name)
			w.WriteString(" ")
		}
	case statement.ForeignConstraint:
		return w.foreignKey(c.Foreign)
	default:
		return w.fail(ErrUnsupported, "unknown constraint kind %d", c.Kind)
	}
	if len(c.Columns) == 0 {
		return w.fail(ErrNoColumns, "constraint %q has no columns", c.Name)
	}
	w.columnList(c.Columns)
	return nil
}

func (d *MySQL) createTable(w *writer, s *statement.CreateTable) error {
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
	if pk := primaryConstraint(s.Constraints); pk != nil {
		keys = tableKey
		for _, c := range s.Columns {
			// An AUTO_INCREMENT column must be part of a key.
			if c != nil && c.AutoIncrement && !c.Unique && !contains(pk.Columns, c.Name) {
				return w.fail(ErrInvalidOperand, "AUTO_INCREMENT column %q is not part of the primary key", c.Name)
			}
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
	for _, c := range s.Constraints {
		w.WriteString(", ")
		if err := d.constraint(w, c); err != nil {
			return err
		}
	}
	w.WriteString(")")
	if s.Engine != "" {
		w.WriteString(" ENGINE=" + s.Engine)
	}
	if s.Charset != "" {
		w.WriteString(" DEFAULT CHARSET=" + s.Charset)
	}
	if s.Collation != "" {
		w.WriteString(" COLLATE=" + s.Collation)
	}
	if s.Comment != "" {
		w.WriteString(" COMMENT=" + quoteString(s.Comment, true))
	}
	return nil
}

func (d *MySQL) alterTable(w *writer, s *statement.AlterTable) error {
	if s.Table == "" {
		return w.fail(ErrNoTable, "ALTER TABLE without a name")
	}
	if len(s.Alterations) == 0 {
		return w.fail(ErrNoValues, "ALTER TABLE %q has no operations", s.Table)
	}
	w.WriteString("ALTER TABLE ")
	w.ident(s.Table)
	w.WriteString(" ")
	for i, a := range s.Alterations {
		if i > 0 {
			w.WriteString(", ")
		}
		if err := d.alteration(w, s.Table, a); err != nil {
			return err
		}
	}
	return nil
}

func (d *MySQL) alteration(w *writer, table string, a statement.Alteration) error {
	switch a.Kind {
	case statement.AddColumn:
		w.WriteString("ADD COLUMN ")
		return d.column(w, a.Column, inlineKeys)
	case statement.ModifyColumn:
		w.WriteString("MODIFY COLUMN ")
		return d.column(w, a.Column, noKeys)
	case statement.DropColumn:
		w.WriteString("DROP COLUMN ")
		w.ident(a.Name)
	case statement.RenameColumn:
		if d.Version != nil && d.Version.LessThan(mysqlRenameColumn) {
			return w.fail(ErrUnsupported, "RENAME COLUMN requires MySQL %s, server is %s", mysqlRenameColumn, d.Version)
		}
		w.WriteString("RENAME COLUMN ")
		w.ident(a.Name)
		w.WriteString(" TO ")
		w.ident(a.To)
	case statement.RenameTable:
		w.WriteString("RENAME TO ")
		w.ident(a.To)
	case statement.AddForeign:
		w.WriteString("ADD ")
		return w.foreignKey(a.Foreign)
	case statement.DropForeign:
		w.WriteString("DROP FOREIGN KEY ")
		w.ident(a.Name)
	case statement.AddUnique:
		w.WriteString("ADD UNIQUE KEY ")
		w.ident(indexName(table, a))
		w.WriteString(" ")
		w.columnList(a.Columns)
	case statement.AddIndex:
		w.WriteString("ADD INDEX ")
		w.ident(indexName(table, a))
		w.WriteString(" ")
		w.columnList(a.Columns)
	case statement.DropUnique, statement.DropIndexAlteration:
		w.WriteString("DROP INDEX ")
		w.ident(a.Name)
	case statement.AddPrimary:
		w.WriteString("ADD PRIMARY KEY ")
		w.columnList(a.Columns)
	case statement.DropPrimary:
		w.WriteString("DROP PRIMARY KEY")
	default:
		return w.fail(ErrUnsupported, "unknown alteration %d", a.Kind)
	}
	return nil
}

func (d *MySQL) dropTable(w *writer, s *statement.DropTable) error {
	if len(s.Tables) == 0 {
		return w.fail(ErrNoTable, "DROP TABLE without tables")
	}
	w.WriteString("DROP ")
	if s.Temporary {
		w.WriteString("TEMPORARY ")
	}
	w.WriteString("TABLE ")
	if s.IfExists {
		w.WriteString("IF EXISTS ")
	}
	w.idents(s.Tables)
	return nil
}

func (d *MySQL) truncate(w *writer, s *statement.TruncateTable) error {
	if s.Table == "" {
		return w.fail(ErrNoTable, "TRUNCATE without a table")
	}
	w.WriteString("TRUNCATE TABLE ")
	w.ident(s.Table)
	return nil
}

func (d *MySQL) createIndex(w *writer, s *statement.CreateIndex) error {
	if s.Table == "" {
		return w.fail(ErrNoTable, "CREATE INDEX without a table")
	}
	if len(s.Columns) == 0 {
		return w.fail(ErrNoColumns, "index %q has no columns", s.Name)
	}
	if s.IfNotExists {
		return w.fail(ErrUnsupported, "CREATE INDEX IF NOT EXISTS")
	}
	w.WriteString("CREATE ")
	if s.Unique {
		w.WriteString("UNIQUE ")
	}
	w.WriteString("INDEX ")
	w.ident(s.Name)
	w.WriteString(" ON ")
	w.ident(s.Table)
	w.WriteString(" ")
	w.indexColumns(s.Columns)
	return nil
}

func (d *MySQL) dropIndex(w *writer, s *statement.DropIndex) error {
	if s.Table == "" {
		return w.fail(ErrNoTable, "DROP INDEX %q requires a table", s.Name)
	}
	w.WriteString("DROP INDEX ")
	w.ident(s.Name)
	w.WriteString(" ON ")
	w.ident(s.Table)
	return nil
}

func (d *MySQL) createView(w *writer, s *statement.CreateView) error {
	if s.Name == "" {
		return w.fail(ErrNoTable, "CREATE VIEW without a name")
	}
	w.WriteString("CREATE ")
	if s.OrReplace {
		w.WriteString("OR REPLACE ")
	}
	w.WriteString("VIEW ")
	w.ident(s.Name)
	if len(s.Columns) > 0 {
		w.WriteString(" ")
		w.columnList(s.Columns)
	}
	w.WriteString(" AS ")
	return w.viewSelect(s.Select)
}

func (d *MySQL) dropView(w *writer, s *statement.DropView) error {
	if len(s.Names) == 0 {
		return w.fail(ErrNoTable, "DROP VIEW without views")
	}
	w.WriteString("DROP VIEW ")
	if s.IfExists {
		w.WriteString("IF EXISTS ")
	}
	w.idents(s.Names)
	return nil
}

func lengthOr(n, def int) int {
	if n > 0 {
		return n
	}
	return def
}

// indexName returns the alteration's explicit name or the conventional
// table_columns_suffix name.
func indexName(table string, a statement.Alteration) string {
	if a.Name != "" {
		return a.Name
	}
	suffix := "index"
	if a.Kind == statement.AddUnique {
		suffix = "unique"
	}
	return DefaultIndexName(table, a.Columns, suffix)
}

// DefaultIndexName builds the conventional name for an index, unique key or
// foreign key: table_col1_col2_suffix, lower-cased with dots replaced.
func DefaultIndexName(table string, columns []string, suffix string) string {
	parts := append([]string{table}, columns...)
	parts = append(parts, suffix)
	name := strings.ToLower(strings.Join(parts, "_"))
	return strings.NewReplacer(".", "_", "-", "_").Replace(name)
}
