package statement

// Kind identifies the statement type.
type Kind int

const (
	KindSelect Kind = iota + 1
	KindInsert
	KindUpdate
	KindDelete
	KindCreateDatabase
	KindDropDatabase
	KindCreateTable
	KindAlterTable
	KindDropTable
	KindTruncateTable
	KindCreateIndex
	KindDropIndex
	KindCreateView
	KindDropView
)

var kindNames = map[Kind]string{
	KindSelect:         "SELECT",
	KindInsert:         "INSERT",
	KindUpdate:         "UPDATE",
	KindDelete:         "DELETE",
	KindCreateDatabase: "CREATE DATABASE",
	KindDropDatabase:   "DROP DATABASE",
	KindCreateTable:    "CREATE TABLE",
	KindAlterTable:     "ALTER TABLE",
	KindDropTable:      "DROP TABLE",
	KindTruncateTable:  "TRUNCATE TABLE",
	KindCreateIndex:    "CREATE INDEX",
	KindDropIndex:      "DROP INDEX",
	KindCreateView:     "CREATE VIEW",
	KindDropView:       "DROP VIEW",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "UNKNOWN"
}

// IsDDL reports whether statements of this kind change the schema.
func (k Kind) IsDDL() bool {
	return k >= KindCreateDatabase
}

// Statement is one SQL operation before compilation.
type Statement interface {
	Kind() Kind
}

// Selectable is one entry of the column list.
type Selectable struct {
	Expr  Value
	Alias string
}

// TableRef references a table or a derived table.
type TableRef struct {
	Table string
	Sub   *Select
	Alias string
}

// IsZero reports whether the reference is empty.
func (t TableRef) IsZero() bool {
	return t.Table == "" && t.Sub == nil
}

// JoinType is the join keyword.
type JoinType string

const (
	InnerJoin JoinType = "INNER JOIN"
	LeftJoin  JoinType = "LEFT JOIN"
	RightJoin JoinType = "RIGHT JOIN"
	CrossJoin JoinType = "CROSS JOIN"
)

// Join is one JOIN clause.
type Join struct {
	Type  JoinType
	Table TableRef
	On    []Predicate
}

// Direction is an ORDER BY direction. NoDirection omits the keyword.
type Direction string

const (
	Asc         Direction = "ASC"
	Desc        Direction = "DESC"
	NoDirection Direction = ""
)

// Order is one ORDER BY entry.
type Order struct {
	Expr      Value
	Direction Direction
}

// Select is a SELECT statement.
type Select struct {
	Distinct bool
	Columns  []Selectable
	From     []TableRef
	Joins    []Join
	Where    []Predicate
	GroupBy  []Value
	Having   []Predicate
	OrderBy  []Order
	Limit    *int64
	Offset   *int64
}

// Insert is an INSERT statement. Values is flat and grouped into rows by the
// number of columns.
type Insert struct {
	Ignore  bool
	Into    string
	Columns []string
	Values  []Value
	Select  *Select
}

// Assignment is one SET entry.
type Assignment struct {
	Column string
	Value  Value
}

// Update is an UPDATE statement.
type Update struct {
	Table   TableRef
	Set     []Assignment
	Where   []Predicate
	OrderBy []Order
	Limit   *int64
}

// Delete is a DELETE statement.
type Delete struct {
	From    TableRef
	Where   []Predicate
	OrderBy []Order
	Limit   *int64
}

func (*Select) Kind() Kind { return KindSelect }
func (*Insert) Kind() Kind { return KindInsert }
func (*Update) Kind() Kind { return KindUpdate }
func (*Delete) Kind() Kind { return KindDelete }
