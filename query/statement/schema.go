package statement

// ColumnType is an abstract column type mapped by each dialect.
type ColumnType int

const (
	TypeInteger ColumnType = iota + 1
	TypeBigInteger
	TypeSmallInteger
	TypeTinyInteger
	TypeBoolean
	TypeString
	TypeChar
	TypeText
	TypeMediumText
	TypeLongText
	TypeFloat
	TypeDouble
	TypeDecimal
	TypeDate
	TypeDateTime
	TypeTime
	TypeTimestamp
	TypeJSON
	TypeBinary
	TypeUUID
	TypeEnum
)

// IsInteger reports whether t belongs to the integer family.
func (t ColumnType) IsInteger() bool {
	switch t {
	case TypeInteger, TypeBigInteger, TypeSmallInteger, TypeTinyInteger:
		return true
	}
	return false
}

// ColumnDef describes a column in CREATE TABLE or ALTER TABLE.
type ColumnDef struct {
	Name          string
	Type          ColumnType
	Length        int
	Precision     int
	Scale         int
	Values        []string
	Unsigned      bool
	Nullable      bool
	Default       Value
	AutoIncrement bool
	Primary       bool
	Unique        bool
	Comment       string
	After         string
}

// ReferenceAction is an ON DELETE / ON UPDATE action.
type ReferenceAction string

const (
	Cascade    ReferenceAction = "CASCADE"
	SetNull    ReferenceAction = "SET NULL"
	Restrict   ReferenceAction = "RESTRICT"
	NoAction   ReferenceAction = "NO ACTION"
	SetDefault ReferenceAction = "SET DEFAULT"
)

// ForeignKey describes a FOREIGN KEY constraint.
type ForeignKey struct {
	Name       string
	Columns    []string
	References []string
	On         string
	OnDelete   ReferenceAction
	OnUpdate   ReferenceAction
}

// ConstraintKind identifies a table constraint.
type ConstraintKind int

const (
	PrimaryConstraint ConstraintKind = iota + 1
	UniqueConstraint
	IndexConstraint
	ForeignConstraint
)

// Constraint is a table level constraint of CREATE TABLE.
type Constraint struct {
	Kind    ConstraintKind
	Name    string
	Columns []string
	Foreign *ForeignKey
}

// AlterKind identifies one ALTER TABLE operation.
type AlterKind int

const (
	AddColumn AlterKind = iota + 1
	DropColumn
	ModifyColumn
	RenameColumn
	RenameTable
	AddForeign
	DropForeign
	AddUnique
	DropUnique
	AddIndex
	DropIndexAlteration
	AddPrimary
	DropPrimary
)

// Alteration is one ALTER TABLE operation. Which fields are set depends on Kind.
type Alteration struct {
	Kind    AlterKind
	Column  *ColumnDef
	Name    string
	To      string
	Columns []string
	Foreign *ForeignKey
}

// CreateDatabase is a CREATE DATABASE statement.
type CreateDatabase struct {
	Name        string
	IfNotExists bool
	Charset     string
	Collation   string
}

// DropDatabase is a DROP DATABASE statement.
type DropDatabase struct {
	Name     string
	IfExists bool
}

// CreateTable is a CREATE TABLE statement.
type CreateTable struct {
	Table       string
	IfNotExists bool
	Temporary   bool
	Columns     []*ColumnDef
	Constraints []Constraint
	Engine      string
	Charset     string
	Collation   string
	Comment     string
}

// AlterTable is an ALTER TABLE statement holding its operations in call order.
type AlterTable struct {
	Table       string
	Alterations []Alteration
}

// DropTable is a DROP TABLE statement.
type DropTable struct {
	Tables    []string
	IfExists  bool
	Temporary bool
}

// TruncateTable empties a table.
type TruncateTable struct {
	Table string
}

// IndexColumn is one column of an index.
type IndexColumn struct {
	Name      string
	Direction Direction
}

// CreateIndex is a CREATE INDEX statement.
type CreateIndex struct {
	Name        string
	Table       string
	Columns     []IndexColumn
	Unique      bool
	IfNotExists bool
}

// DropIndex is a DROP INDEX statement. Table is required by MySQL.
type DropIndex struct {
	Name     string
	Table    string
	IfExists bool
}

// CreateView is a CREATE VIEW statement.
type CreateView struct {
	Name      string
	OrReplace bool
	Columns   []string
	Select    *Select
}

// DropView is a DROP VIEW statement.
type DropView struct {
	Names    []string
	IfExists bool
}

func (*CreateDatabase) Kind() Kind { return KindCreateDatabase }
func (*DropDatabase) Kind() Kind   { return KindDropDatabase }
func (*CreateTable) Kind() Kind    { return KindCreateTable }
func (*AlterTable) Kind() Kind     { return KindAlterTable }
func (*DropTable) Kind() Kind      { return KindDropTable }
func (*TruncateTable) Kind() Kind  { return KindTruncateTable }
func (*CreateIndex) Kind() Kind    { return KindCreateIndex }
func (*DropIndex) Kind() Kind      { return KindDropIndex }
func (*CreateView) Kind() Kind     { return KindCreateView }
func (*DropView) Kind() Kind       { return KindDropView }
