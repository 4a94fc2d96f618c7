package builder

import (
	"fmt"
	"strings"

	"github.com/dbkit-go/dbkit/query/statement"
)

// Subquery is a nested SELECT: a *Select, or a SelectFunc that fills a fresh
// builder.
type Subquery interface {
	buildSelect(parent *base) (*statement.Select, error)
}

// SelectFunc builds a sub-query on the nested builder it receives.
type SelectFunc func(*Select)

func (f SelectFunc) buildSelect(parent *base) (*statement.Select, error) {
	s := newSelect(base{compiler: parent.compiler})
	f(s)
	return s.Statement(), s.Err()
}

func subSelect(parent *base, sub Subquery) (*statement.Select, error) {
	if sub == nil {
		return nil, fmt.Errorf("builder: nil sub-query")
	}
	return sub.buildSelect(parent)
}

// value wraps a plain Go value, turning sub-query builders into SubQuery.
func value(parent *base, v interface{}) (statement.Value, error) {
	if sub, ok := v.(Subquery); ok {
		sel, err := subSelect(parent, sub)
		if err != nil {
			return nil, err
		}
		return statement.SubQuery{Select: sel}, nil
	}
	return statement.ValueOf(v), nil
}

// operand is value for the right side of a comparison, where slices expand
// into lists for IN and BETWEEN.
func operand(parent *base, v interface{}) (statement.Value, error) {
	if _, ok := v.(Subquery); ok {
		return value(parent, v)
	}
	return statement.ListOf(v), nil
}

func compare(parent *base, col, op string, v interface{}) (statement.Predicate, error) {
	val, err := operand(parent, v)
	if err != nil {
		return nil, err
	}
	return comparison(col, op, val)
}

func compareExpr(parent *base, expr, op string, v interface{}) (statement.Predicate, error) {
	p, err := compare(parent, expr, op, v)
	if err != nil {
		return nil, err
	}
	c := p.(statement.Comparison)
	c.Expr = true
	return c, nil
}

func comparison(col, op string, val statement.Value) (statement.Predicate, error) {
	norm, err := statement.NormalizeOperator(op, val)
	if err != nil {
		return nil, fmt.Errorf("builder: %q: %w", col, err)
	}
	return statement.Comparison{Column: col, Operator: norm, Value: val}, nil
}

func group(parent *base, fn func(*Clause)) (statement.Predicate, error) {
	c := newClause(parent)
	fn(c)
	return statement.Group{Predicates: c.where.preds}, c.Err()
}

func exists(parent *base, sub Subquery, negated bool) (statement.Predicate, error) {
	sel, err := subSelect(parent, sub)
	if err != nil {
		return nil, err
	}
	return statement.Exists{Select: sel, Negated: negated}, nil
}

func nested(parent *base, sub Subquery) (statement.Predicate, error) {
	sel, err := subSelect(parent, sub)
	if err != nil {
		return nil, err
	}
	return statement.Nested{Select: sel}, nil
}

// conditions is a predicate list that records build errors on its owner.
type conditions struct {
	b     *base
	preds []statement.Predicate
}

// push adds p joined by boolean. A zero boolean resets the list to p alone.
func (c *conditions) push(boolean statement.Boolean, p statement.Predicate, err error) {
	if err != nil {
		c.b.addErr(err)
		return
	}
	if boolean == "" {
		c.preds = []statement.Predicate{p}
		return
	}
	c.preds = append(c.preds, statement.WithBoolean(p, boolean))
}

// where is the WHERE method set shared by every builder with a WHERE clause.
// Bare Where* calls replace the clause, And*/Or* calls extend it.
type where[B any] struct {
	self B
	conditions
}

func (w *where[B]) init(self B, b *base) {
	w.self = self
	w.b = b
}

// Where sets the clause to col op value.
func (w *where[B]) Where(col, op string, value interface{}) B {
	p, err := compare(w.b, col, op, value)
	w.push("", p, err)
	return w.self
}

// AndWhere adds col op value joined with AND.
func (w *where[B]) AndWhere(col, op string, value interface{}) B {
	p, err := compare(w.b, col, op, value)
	w.push(statement.And, p, err)
	return w.self
}

// OrWhere adds col op value joined with OR.
func (w *where[B]) OrWhere(col, op string, value interface{}) B {
	p, err := compare(w.b, col, op, value)
	w.push(statement.Or, p, err)
	return w.self
}

// WhereRaw compares col with an unbound SQL fragment.
func (w *where[B]) WhereRaw(col, op, raw string) B {
	p, err := comparison(col, op, statement.Raw(raw))
	w.push("", p, err)
	return w.self
}

func (w *where[B]) AndWhereRaw(col, op, raw string) B {
	p, err := comparison(col, op, statement.Raw(raw))
	w.push(statement.And, p, err)
	return w.self
}

func (w *where[B]) OrWhereRaw(col, op, raw string) B {
	p, err := comparison(col, op, statement.Raw(raw))
	w.push(statement.Or, p, err)
	return w.self
}

// WhereColumn compares two columns.
func (w *where[B]) WhereColumn(col, op, other string) B {
	p, err := comparison(col, op, statement.Column(other))
	w.push("", p, err)
	return w.self
}

func (w *where[B]) AndWhereColumn(col, op, other string) B {
	p, err := comparison(col, op, statement.Column(other))
	w.push(statement.And, p, err)
	return w.self
}

func (w *where[B]) OrWhereColumn(col, op, other string) B {
	p, err := comparison(col, op, statement.Column(other))
	w.push(statement.Or, p, err)
	return w.self
}

// WhereFunc groups the conditions built by fn in parentheses.
func (w *where[B]) WhereFunc(fn func(*Clause)) B {
	p, err := group(w.b, fn)
	w.push("", p, err)
	return w.self
}

func (w *where[B]) AndWhereFunc(fn func(*Clause)) B {
	p, err := group(w.b, fn)
	w.push(statement.And, p, err)
	return w.self
}

func (w *where[B]) OrWhereFunc(fn func(*Clause)) B {
	p, err := group(w.b, fn)
	w.push(statement.Or, p, err)
	return w.self
}

// WhereExpr inserts a literal condition.
func (w *where[B]) WhereExpr(sql string) B {
	w.push("", statement.Expression{SQL: sql}, nil)
	return w.self
}

func (w *where[B]) AndWhereExpr(sql string) B {
	w.push(statement.And, statement.Expression{SQL: sql}, nil)
	return w.self
}

func (w *where[B]) OrWhereExpr(sql string) B {
	w.push(statement.Or, statement.Expression{SQL: sql}, nil)
	return w.self
}

// WhereExists adds EXISTS (sub).
func (w *where[B]) WhereExists(sub Subquery) B {
	p, err := exists(w.b, sub, false)
	w.push("", p, err)
	return w.self
}

func (w *where[B]) AndWhereExists(sub Subquery) B {
	p, err := exists(w.b, sub, false)
	w.push(statement.And, p, err)
	return w.self
}

func (w *where[B]) OrWhereExists(sub Subquery) B {
	p, err := exists(w.b, sub, false)
	w.push(statement.Or, p, err)
	return w.self
}

// WhereNotExists adds NOT EXISTS (sub).
func (w *where[B]) WhereNotExists(sub Subquery) B {
	p, err := exists(w.b, sub, true)
	w.push("", p, err)
	return w.self
}

func (w *where[B]) AndWhereNotExists(sub Subquery) B {
	p, err := exists(w.b, sub, true)
	w.push(statement.And, p, err)
	return w.self
}

func (w *where[B]) OrWhereNotExists(sub Subquery) B {
	p, err := exists(w.b, sub, true)
	w.push(statement.Or, p, err)
	return w.self
}

// WhereSub uses a parenthesized sub-query as the whole condition.
func (w *where[B]) WhereSub(sub Subquery) B {
	p, err := nested(w.b, sub)
	w.push("", p, err)
	return w.self
}

func (w *where[B]) AndWhereSub(sub Subquery) B {
	p, err := nested(w.b, sub)
	w.push(statement.And, p, err)
	return w.self
}

func (w *where[B]) OrWhereSub(sub Subquery) B {
	p, err := nested(w.b, sub)
	w.push(statement.Or, p, err)
	return w.self
}

// having mirrors where for the HAVING clause.
type having[B any] struct {
	self B
	conditions
}

func (h *having[B]) init(self B, b *base) {
	h.self = self
	h.b = b
}

// Having sets the clause to col op value.
func (h *having[B]) Having(col, op string, value interface{}) B {
	p, err := compare(h.b, col, op, value)
	h.push("", p, err)
	return h.self
}

func (h *having[B]) AndHaving(col, op string, value interface{}) B {
	p, err := compare(h.b, col, op, value)
	h.push(statement.And, p, err)
	return h.self
}

func (h *having[B]) OrHaving(col, op string, value interface{}) B {
	p, err := compare(h.b, col, op, value)
	h.push(statement.Or, p, err)
	return h.self
}

// HavingAggregate sets the clause to expr op value, where expr is an SQL
// expression such as COUNT(*) written without quoting.
func (h *having[B]) HavingAggregate(expr, op string, value interface{}) B {
	p, err := compareExpr(h.b, expr, op, value)
	h.push("", p, err)
	return h.self
}

func (h *having[B]) AndHavingAggregate(expr, op string, value interface{}) B {
	p, err := compareExpr(h.b, expr, op, value)
	h.push(statement.And, p, err)
	return h.self
}

func (h *having[B]) OrHavingAggregate(expr, op string, value interface{}) B {
	p, err := compareExpr(h.b, expr, op, value)
	h.push(statement.Or, p, err)
	return h.self
}

func (h *having[B]) HavingRaw(col, op, raw string) B {
	p, err := comparison(col, op, statement.Raw(raw))
	h.push("", p, err)
	return h.self
}

func (h *having[B]) AndHavingRaw(col, op, raw string) B {
	p, err := comparison(col, op, statement.Raw(raw))
	h.push(statement.And, p, err)
	return h.self
}

func (h *having[B]) OrHavingRaw(col, op, raw string) B {
	p, err := comparison(col, op, statement.Raw(raw))
	h.push(statement.Or, p, err)
	return h.self
}

func (h *having[B]) HavingColumn(col, op, other string) B {
	p, err := comparison(col, op, statement.Column(other))
	h.push("", p, err)
	return h.self
}

func (h *having[B]) AndHavingColumn(col, op, other string) B {
	p, err := comparison(col, op, statement.Column(other))
	h.push(statement.And, p, err)
	return h.self
}

func (h *having[B]) OrHavingColumn(col, op, other string) B {
	p, err := comparison(col, op, statement.Column(other))
	h.push(statement.Or, p, err)
	return h.self
}

func (h *having[B]) HavingFunc(fn func(*Clause)) B {
	p, err := group(h.b, fn)
	h.push("", p, err)
	return h.self
}

func (h *having[B]) AndHavingFunc(fn func(*Clause)) B {
	p, err := group(h.b, fn)
	h.push(statement.And, p, err)
	return h.self
}

func (h *having[B]) OrHavingFunc(fn func(*Clause)) B {
	p, err := group(h.b, fn)
	h.push(statement.Or, p, err)
	return h.self
}

func (h *having[B]) HavingExpr(sql string) B {
	h.push("", statement.Expression{SQL: sql}, nil)
	return h.self
}

func (h *having[B]) AndHavingExpr(sql string) B {
	h.push(statement.And, statement.Expression{SQL: sql}, nil)
	return h.self
}

func (h *having[B]) OrHavingExpr(sql string) B {
	h.push(statement.Or, statement.Expression{SQL: sql}, nil)
	return h.self
}

func (h *having[B]) HavingExists(sub Subquery) B {
	p, err := exists(h.b, sub, false)
	h.push("", p, err)
	return h.self
}

func (h *having[B]) AndHavingExists(sub Subquery) B {
	p, err := exists(h.b, sub, false)
	h.push(statement.And, p, err)
	return h.self
}

func (h *having[B]) OrHavingExists(sub Subquery) B {
	p, err := exists(h.b, sub, false)
	h.push(statement.Or, p, err)
	return h.self
}

func (h *having[B]) HavingNotExists(sub Subquery) B {
	p, err := exists(h.b, sub, true)
	h.push("", p, err)
	return h.self
}

func (h *having[B]) AndHavingNotExists(sub Subquery) B {
	p, err := exists(h.b, sub, true)
	h.push(statement.And, p, err)
	return h.self
}

func (h *having[B]) OrHavingNotExists(sub Subquery) B {
	p, err := exists(h.b, sub, true)
	h.push(statement.Or, p, err)
	return h.self
}

func (h *having[B]) HavingSub(sub Subquery) B {
	p, err := nested(h.b, sub)
	h.push("", p, err)
	return h.self
}

func (h *having[B]) AndHavingSub(sub Subquery) B {
	p, err := nested(h.b, sub)
	h.push(statement.And, p, err)
	return h.self
}

func (h *having[B]) OrHavingSub(sub Subquery) B {
	p, err := nested(h.b, sub)
	h.push(statement.Or, p, err)
	return h.self
}

// Clause is the nested builder handed to WhereFunc callbacks and JOIN
// conditions.
type Clause struct {
	base
	where[*Clause]
}

func newClause(parent *base) *Clause {
	c := &Clause{base: base{compiler: parent.compiler}}
	c.where.init(c, &c.base)
	return c
}

// On adds a column comparison joined with AND. Unlike Where it never resets
// the list.
func (c *Clause) On(col, op, other string) *Clause {
	return c.AndOn(col, op, other)
}

// AndOn adds a column comparison joined with AND.
func (c *Clause) AndOn(col, op, other string) *Clause {
	p, err := comparison(col, op, statement.Column(other))
	c.where.push(statement.And, p, err)
	return c
}

// OrOn adds a column comparison joined with OR.
func (c *Clause) OrOn(col, op, other string) *Clause {
	p, err := comparison(col, op, statement.Column(other))
	c.where.push(statement.Or, p, err)
	return c
}

// Predicates returns the conditions built so far.
func (c *Clause) Predicates() []statement.Predicate {
	return c.where.preds
}

// String renders the clause without quoting.
func (c *Clause) String() string {
	return Flatten(c.where.preds)
}

// Flatten renders a predicate list with plain clause strings: identifiers are
// not quoted and bound values show as ?. Empty groups are skipped and the
// first rendered predicate loses its boolean.
func Flatten(preds []statement.Predicate) string {
	var sb strings.Builder
	for _, p := range preds {
		s := flattenPredicate(p)
		if s == "" {
			continue
		}
		if sb.Len() > 0 {
			b := p.Conjunction()
			if b == "" {
				b = statement.And
			}
			sb.WriteString(" " + string(b) + " ")
		}
		sb.WriteString(s)
	}
	return sb.String()
}

func flattenPredicate(p statement.Predicate) string {
	switch p := p.(type) {
	case statement.Comparison:
		switch p.Operator {
		case statement.OpIsNull, statement.OpIsNotNull:
			return p.Column + " " + p.Operator
		case statement.OpBetween, statement.OpNotBetween:
			if l, ok := p.Value.(statement.List); ok && len(l) == 2 {
				return p.Column + " " + p.Operator + " " + flattenValue(l[0]) + " AND " + flattenValue(l[1])
			}
		}
		return p.Column + " " + p.Operator + " " + flattenValue(p.Value)
	case statement.Group:
		inner := Flatten(p.Predicates)
		if inner == "" {
			return ""
		}
		return "(" + inner + ")"
	case statement.Exists:
		if p.Negated {
			return "NOT EXISTS (subquery)"
		}
		return "EXISTS (subquery)"
	case statement.Nested:
		return "(subquery)"
	case statement.Expression:
		return p.SQL
	}
	return ""
}

func flattenValue(v statement.Value) string {
	switch v := v.(type) {
	case statement.Column:
		return string(v)
	case statement.Raw:
		return string(v)
	case statement.Named:
		return ":" + v.Name
	case statement.List:
		items := make([]string, len(v))
		for i, item := range v {
			items[i] = flattenValue(item)
		}
		return "(" + strings.Join(items, ", ") + ")"
	case statement.SubQuery:
		return "(subquery)"
	}
	return "?"
}
