package builder

import (
	"github.com/dbkit-go/dbkit/query/sqlgen"
	"github.com/dbkit-go/dbkit/query/statement"
)

// Blueprint declares columns. CREATE TABLE collects them as the column list
// and ALTER TABLE turns each into an ADD or MODIFY COLUMN operation.
type Blueprint struct {
	add func(*statement.ColumnDef)
}

// ColumnBuilder refines one column definition.
type ColumnBuilder struct {
	def *statement.ColumnDef
}

// Column declares a column of any type.
func (b *Blueprint) Column(name string, typ statement.ColumnType) *ColumnBuilder {
	def := &statement.ColumnDef{Name: name, Type: typ}
	b.add(def)
	return &ColumnBuilder{def: def}
}

// Increments declares an unsigned auto-increment INT primary key.
func (b *Blueprint) Increments(name string) *ColumnBuilder {
	return b.Column(name, statement.TypeInteger).Unsigned().AutoIncrement()
}

// BigIncrements declares an unsigned auto-increment BIGINT primary key.
func (b *Blueprint) BigIncrements(name string) *ColumnBuilder {
	return b.Column(name, statement.TypeBigInteger).Unsigned().AutoIncrement()
}

func (b *Blueprint) Integer(name string) *ColumnBuilder {
	return b.Column(name, statement.TypeInteger)
}

func (b *Blueprint) BigInteger(name string) *ColumnBuilder {
	return b.Column(name, statement.TypeBigInteger)
}

func (b *Blueprint) SmallInteger(name string) *ColumnBuilder {
	return b.Column(name, statement.TypeSmallInteger)
}

func (b *Blueprint) TinyInteger(name string) *ColumnBuilder {
	return b.Column(name, statement.TypeTinyInteger)
}

func (b *Blueprint) Boolean(name string) *ColumnBuilder {
	return b.Column(name, statement.TypeBoolean)
}

// String declares a VARCHAR column, 255 long unless a length is given.
func (b *Blueprint) String(name string, length ...int) *ColumnBuilder {
	c := b.Column(name, statement.TypeString)
	if len(length) > 0 {
		c.def.Length = length[0]
	}
	return c
}

// Char declares a fixed length column.
func (b *Blueprint) Char(name string, length ...int) *ColumnBuilder {
	c := b.Column(name, statement.TypeChar)
	if len(length) > 0 {
		c.def.Length = length[0]
	}
	return c
}

func (b *Blueprint) Text(name string) *ColumnBuilder {
	return b.Column(name, statement.TypeText)
}

func (b *Blueprint) MediumText(name string) *ColumnBuilder {
	return b.Column(name, statement.TypeMediumText)
}

func (b *Blueprint) LongText(name string) *ColumnBuilder {
	return b.Column(name, statement.TypeLongText)
}

func (b *Blueprint) Float(name string) *ColumnBuilder {
	return b.Column(name, statement.TypeFloat)
}

func (b *Blueprint) Double(name string) *ColumnBuilder {
	return b.Column(name, statement.TypeDouble)
}

// Decimal declares a fixed point column. Zero precision means 8,2.
func (b *Blueprint) Decimal(name string, precision, scale int) *ColumnBuilder {
	c := b.Column(name, statement.TypeDecimal)
	c.def.Precision = precision
	c.def.Scale = scale
	return c
}

func (b *Blueprint) Date(name string) *ColumnBuilder {
	return b.Column(name, statement.TypeDate)
}

func (b *Blueprint) DateTime(name string) *ColumnBuilder {
	return b.Column(name, statement.TypeDateTime)
}

func (b *Blueprint) Time(name string) *ColumnBuilder {
	return b.Column(name, statement.TypeTime)
}

func (b *Blueprint) Timestamp(name string) *ColumnBuilder {
	return b.Column(name, statement.TypeTimestamp)
}

// Timestamps declares nullable created_at and updated_at columns.
func (b *Blueprint) Timestamps() {
	b.Timestamp("created_at").Nullable()
	b.Timestamp("updated_at").Nullable()
}

func (b *Blueprint) JSON(name string) *ColumnBuilder {
	return b.Column(name, statement.TypeJSON)
}

func (b *Blueprint) Binary(name string) *ColumnBuilder {
	return b.Column(name, statement.TypeBinary)
}

func (b *Blueprint) UUID(name string) *ColumnBuilder {
	return b.Column(name, statement.TypeUUID)
}

// Enum declares a column restricted to values.
func (b *Blueprint) Enum(name string, values ...string) *ColumnBuilder {
	c := b.Column(name, statement.TypeEnum)
	c.def.Values = values
	return c
}

// Length overrides the length of string columns.
func (c *ColumnBuilder) Length(n int) *ColumnBuilder {
	c.def.Length = n
	return c
}

// Nullable allows NULL.
func (c *ColumnBuilder) Nullable() *ColumnBuilder {
	c.def.Nullable = true
	return c
}

// Default sets a literal default value.
func (c *ColumnBuilder) Default(v interface{}) *ColumnBuilder {
	c.def.Default = statement.ValueOf(v)
	return c
}

// DefaultRaw sets a default written verbatim, such as CURRENT_TIMESTAMP.
func (c *ColumnBuilder) DefaultRaw(sql string) *ColumnBuilder {
	c.def.Default = statement.Raw(sql)
	return c
}

func (c *ColumnBuilder) Unsigned() *ColumnBuilder {
	c.def.Unsigned = true
	return c
}

func (c *ColumnBuilder) AutoIncrement() *ColumnBuilder {
	c.def.AutoIncrement = true
	return c
}

func (c *ColumnBuilder) Primary() *ColumnBuilder {
	c.def.Primary = true
	return c
}

func (c *ColumnBuilder) Unique() *ColumnBuilder {
	c.def.Unique = true
	return c
}

func (c *ColumnBuilder) Comment(text string) *ColumnBuilder {
	c.def.Comment = text
	return c
}

// After places the column after another one (MySQL).
func (c *ColumnBuilder) After(col string) *ColumnBuilder {
	c.def.After = col
	return c
}

// Definition returns the column definition being built.
func (c *ColumnBuilder) Definition() *statement.ColumnDef { return c.def }

// ForeignBuilder refines a foreign key.
type ForeignBuilder struct {
	fk *statement.ForeignKey
}

// Name overrides the table_columns_foreign default name.
func (f *ForeignBuilder) Name(name string) *ForeignBuilder {
	f.fk.Name = name
	return f
}

// References sets the referenced columns.
func (f *ForeignBuilder) References(columns ...string) *ForeignBuilder {
	f.fk.References = columns
	return f
}

// On sets the referenced table.
func (f *ForeignBuilder) On(table string) *ForeignBuilder {
	f.fk.On = table
	return f
}

func (f *ForeignBuilder) OnDelete(action statement.ReferenceAction) *ForeignBuilder {
	f.fk.OnDelete = action
	return f
}

func (f *ForeignBuilder) OnUpdate(action statement.ReferenceAction) *ForeignBuilder {
	f.fk.OnUpdate = action
	return f
}

// foreignCopy snapshots fk, filling in the default name.
func foreignCopy(table string, fk *statement.ForeignKey) *statement.ForeignKey {
	cp := *fk
	cp.Columns = append([]string(nil), fk.Columns...)
	cp.References = append([]string(nil), fk.References...)
	if cp.Name == "" {
		cp.Name = sqlgen.DefaultIndexName(table, cp.Columns, "foreign")
	}
	return &cp
}
