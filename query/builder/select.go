package builder

import (
	"context"
	"fmt"
	"strings"

	"github.com/dbkit-go/dbkit/query/executor"
	"github.com/dbkit-go/dbkit/query/sqlgen"
	"github.com/dbkit-go/dbkit/query/statement"
)

// Select builds SELECT statements.
type Select struct {
	base
	where[*Select]
	having[*Select]

	distinct bool
	columns  []statement.Selectable
	from     []statement.TableRef
	joins    []statement.Join
	groupBy  []statement.Value
	orderBy  []statement.Order
	limit    *int64
	offset   *int64
}

func newSelect(b base) *Select {
	s := &Select{base: b}
	s.where.init(s, &s.base)
	s.having.init(s, &s.base)
	return s
}

// splitAlias splits "name AS alias" (any case) and "name alias".
func splitAlias(expr string) (string, string) {
	fields := strings.Fields(expr)
	switch {
	case len(fields) == 3 && strings.EqualFold(fields[1], "as"):
		return fields[0], fields[2]
	case len(fields) == 2 && !strings.ContainsRune(expr, '('):
		return fields[0], fields[1]
	}
	return strings.TrimSpace(expr), ""
}

func selectable(expr string) statement.Selectable {
	name, alias := splitAlias(expr)
	return statement.Selectable{Expr: statement.Column(name), Alias: alias}
}

func tableRef(expr string, alias []string) statement.TableRef {
	name, as := splitAlias(expr)
	if len(alias) > 0 {
		as = alias[0]
	}
	return statement.TableRef{Table: name, Alias: as}
}

// Distinct makes the SELECT DISTINCT.
func (s *Select) Distinct() *Select {
	s.distinct = true
	return s
}

// Columns replaces the column list. "col AS alias" is understood.
func (s *Select) Columns(columns ...string) *Select {
	s.columns = s.columns[:0]
	return s.AddColumns(columns...)
}

// AddColumns appends to the column list.
func (s *Select) AddColumns(columns ...string) *Select {
	for _, c := range columns {
		s.columns = append(s.columns, selectable(c))
	}
	return s
}

// AddColumn appends an expression with an alias. expr may be a column name,
// a statement.Value or a Subquery.
func (s *Select) AddColumn(expr interface{}, alias string) *Select {
	var v statement.Value
	switch e := expr.(type) {
	case string:
		v = statement.Column(e)
	default:
		var err error
		if v, err = value(&s.base, expr); err != nil {
			s.addErr(err)
			return s
		}
	}
	s.columns = append(s.columns, statement.Selectable{Expr: v, Alias: alias})
	return s
}

// From sets the table, discarding any table set before.
func (s *Select) From(table string, alias ...string) *Select {
	s.from = []statement.TableRef{tableRef(table, alias)}
	return s
}

// AddFrom adds another table to the FROM list.
func (s *Select) AddFrom(table string, alias ...string) *Select {
	s.from = append(s.from, tableRef(table, alias))
	return s
}

// FromSub selects from a derived table.
func (s *Select) FromSub(sub Subquery, alias string) *Select {
	sel, err := subSelect(&s.base, sub)
	if err != nil {
		s.addErr(err)
		return s
	}
	s.from = []statement.TableRef{{Sub: sel, Alias: alias}}
	return s
}

func (s *Select) join(typ statement.JoinType, table string, on func(*Clause)) *Select {
	j := statement.Join{Type: typ, Table: tableRef(table, nil)}
	if on != nil {
		c := newClause(&s.base)
		on(c)
		if err := c.Err(); err != nil {
			s.addErr(err)
			return s
		}
		j.On = c.Predicates()
	}
	s.joins = append(s.joins, j)
	return s
}

// Join adds an INNER JOIN. on builds the ON condition.
func (s *Select) Join(table string, on func(*Clause)) *Select {
	return s.join(statement.InnerJoin, table, on)
}

// InnerJoin is Join.
func (s *Select) InnerJoin(table string, on func(*Clause)) *Select {
	return s.join(statement.InnerJoin, table, on)
}

// LeftJoin adds a LEFT JOIN.
func (s *Select) LeftJoin(table string, on func(*Clause)) *Select {
	return s.join(statement.LeftJoin, table, on)
}

// RightJoin adds a RIGHT JOIN.
func (s *Select) RightJoin(table string, on func(*Clause)) *Select {
	return s.join(statement.RightJoin, table, on)
}

// CrossJoin adds a CROSS JOIN.
func (s *Select) CrossJoin(table string) *Select {
	return s.join(statement.CrossJoin, table, nil)
}

// GroupBy replaces the GROUP BY list.
func (s *Select) GroupBy(columns ...string) *Select {
	s.groupBy = s.groupBy[:0]
	return s.AddGroupBy(columns...)
}

// AddGroupBy appends to the GROUP BY list.
func (s *Select) AddGroupBy(columns ...string) *Select {
	for _, c := range columns {
		s.groupBy = append(s.groupBy, statement.Column(c))
	}
	return s
}

func order(col string, dir []statement.Direction) statement.Order {
	o := statement.Order{Expr: statement.Column(col), Direction: statement.Asc}
	if len(dir) > 0 {
		o.Direction = dir[0]
	}
	return o
}

// OrderBy replaces the ordering. The direction defaults to ASC; pass
// statement.NoDirection to omit it.
func (s *Select) OrderBy(col string, dir ...statement.Direction) *Select {
	s.orderBy = []statement.Order{order(col, dir)}
	return s
}

// AddOrderBy appends to the ordering.
func (s *Select) AddOrderBy(col string, dir ...statement.Direction) *Select {
	s.orderBy = append(s.orderBy, order(col, dir))
	return s
}

// Limit sets the maximum number of rows.
func (s *Select) Limit(n int64) *Select {
	s.limit = &n
	return s
}

// Offset sets the number of rows to skip.
func (s *Select) Offset(n int64) *Select {
	s.offset = &n
	return s
}

// Statement returns a snapshot of the statement built so far.
func (s *Select) Statement() *statement.Select {
	st := &statement.Select{
		Distinct: s.distinct,
		Columns:  append([]statement.Selectable(nil), s.columns...),
		From:     append([]statement.TableRef(nil), s.from...),
		Joins:    append([]statement.Join(nil), s.joins...),
		Where:    append([]statement.Predicate(nil), s.where.preds...),
		GroupBy:  append([]statement.Value(nil), s.groupBy...),
		Having:   append([]statement.Predicate(nil), s.having.preds...),
		OrderBy:  append([]statement.Order(nil), s.orderBy...),
	}
	if s.limit != nil {
		n := *s.limit
		st.Limit = &n
	}
	if s.offset != nil {
		n := *s.offset
		st.Offset = &n
	}
	return st
}

func (s *Select) buildSelect(_ *base) (*statement.Select, error) {
	if s == nil {
		return nil, fmt.Errorf("builder: nil sub-query")
	}
	return s.Statement(), s.Err()
}

// ToSQL compiles the statement.
func (s *Select) ToSQL() (string, []interface{}, error) { return s.toSQL(s.Statement()) }

// Compile compiles the statement into a query.
func (s *Select) Compile() (*sqlgen.Query, error) { return s.compile(s.Statement()) }

// Execute runs the SELECT. The caller must close the rows.
func (s *Select) Execute(ctx context.Context) (*executor.Rows, error) {
	return s.fetch(ctx, s.Statement())
}

// FetchAll runs the SELECT and reads every row.
func (s *Select) FetchAll(ctx context.Context) ([]map[string]interface{}, error) {
	rows, err := s.Execute(ctx)
	if err != nil {
		return nil, err
	}
	return rows.FetchAll()
}

// FetchOne runs the SELECT and reads the first row, or nil when there is
// none.
func (s *Select) FetchOne(ctx context.Context) (map[string]interface{}, error) {
	rows, err := s.Execute(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return rows.FetchOne()
}
