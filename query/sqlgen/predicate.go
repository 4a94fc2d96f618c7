package sqlgen

import (
	"fmt"

	"github.com/dbkit-go/dbkit/query/statement"
)

// value renders v as a placeholder, identifier, fragment or sub-query.
func (w *writer) value(v statement.Value) error {
	switch v := v.(type) {
	case nil:
		w.bind(nil)
	case statement.Literal:
		w.bind(v.V)
	case statement.Null:
		w.bind(nil)
	case statement.Named:
		if v.Name == "" {
			return w.fail(ErrInvalidOperand, "named binding without a name")
		}
		w.bindNamed(v.Name, v.V)
	case statement.Column:
		w.ident(string(v))
	case statement.Raw:
		w.WriteString(string(v))
	case statement.List:
		w.WriteString("(")
		for i, item := range v {
			if i > 0 {
				w.WriteString(",")
			}
			if err := w.value(item); err != nil {
				return err
			}
		}
		w.WriteString(")")
	case statement.SubQuery:
		return w.subSelect(v.Select)
	default:
		return w.fail(ErrInvalidOperand, "unknown value type %T", v)
	}
	return nil
}

// subSelect renders a nested SELECT in parentheses, sharing this writer's
// bindings so placeholder order is preserved.
func (w *writer) subSelect(s *statement.Select) error {
	if s == nil {
		return w.fail(ErrInvalidOperand, "empty sub-query")
	}
	w.WriteString("(")
	if err := w.selectStmt(s); err != nil {
		return err
	}
	w.WriteString(")")
	return nil
}

// predicates renders a predicate list. The boolean of the first visible
// predicate is dropped; empty groups are skipped.
func (w *writer) predicates(list []statement.Predicate) error {
	first := true
	for _, p := range list {
		if g, ok := p.(statement.Group); ok && isEmptyGroup(g) {
			continue
		}
		if !first {
			b := p.Conjunction()
			if b == "" {
				b = statement.And
			}
			w.WriteString(" " + string(b) + " ")
		}
		first = false
		if err := w.predicate(p); err != nil {
			return err
		}
	}
	return nil
}

func isEmptyGroup(g statement.Group) bool {
	for _, p := range g.Predicates {
		if inner, ok := p.(statement.Group); ok && isEmptyGroup(inner) {
			continue
		}
		return false
	}
	return true
}

func hasPredicates(list []statement.Predicate) bool {
	for _, p := range list {
		if g, ok := p.(statement.Group); ok && isEmptyGroup(g) {
			continue
		}
		return true
	}
	return false
}

func (w *writer) predicate(p statement.Predicate) error {
	switch p := p.(type) {
	case statement.Comparison:
		return w.comparison(p)
	case statement.Group:
		w.WriteString("(")
		if err := w.predicates(p.Predicates); err != nil {
			return err
		}
		w.WriteString(")")
	case statement.Exists:
		if p.Negated {
			w.WriteString("NOT ")
		}
		w.WriteString("EXISTS ")
		return w.subSelect(p.Select)
	case statement.Nested:
		return w.subSelect(p.Select)
	case statement.Expression:
		w.WriteString(p.SQL)
	default:
		return w.fail(ErrInvalidOperand, "unknown predicate type %T", p)
	}
	return nil
}

func (w *writer) comparison(c statement.Comparison) error {
	switch c.Operator {
	case statement.OpIsNull, statement.OpIsNotNull:
		w.left(c)
		w.WriteString(" " + c.Operator)
		return nil
	case statement.OpIn, statement.OpNotIn:
		return w.in(c)
	case statement.OpBetween, statement.OpNotBetween:
		list, ok := c.Value.(statement.List)
		if !ok || len(list) != 2 {
			return w.fail(ErrInvalidOperand, "%s on %q requires exactly two values", c.Operator, c.Column)
		}
		w.left(c)
		w.WriteString(" " + c.Operator + " ")
		if err := w.value(list[0]); err != nil {
			return err
		}
		w.WriteString(" AND ")
		return w.value(list[1])
	}
	if _, ok := c.Value.(statement.List); ok {
		return w.fail(ErrInvalidOperand, "operator %s on %q does not accept a list", c.Operator, c.Column)
	}
	w.left(c)
	w.WriteString(" " + c.Operator + " ")
	return w.value(c.Value)
}

// left writes the left side of a comparison.
func (w *writer) left(c statement.Comparison) {
	if c.Expr {
		w.WriteString(c.Column)
		return
	}
	w.ident(c.Column)
}

func (w *writer) in(c statement.Comparison) error {
	switch v := c.Value.(type) {
	case statement.List:
		if len(v) == 0 {
			// x IN () is not valid SQL.
			if c.Operator == statement.OpIn {
				w.WriteString("1 = 0")
			} else {
				w.WriteString("1 = 1")
			}
			return nil
		}
		w.left(c)
		w.WriteString(" " + c.Operator + " ")
		return w.value(v)
	case statement.SubQuery:
		w.left(c)
		w.WriteString(" " + c.Operator + " ")
		return w.value(v)
	default:
		w.left(c)
		w.WriteString(fmt.Sprintf(" %s (", c.Operator))
		if err := w.value(v); err != nil {
			return err
		}
		w.WriteString(")")
		return nil
	}
}
