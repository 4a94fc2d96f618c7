package statement

import (
	"fmt"
	"strings"
)

// Boolean is the conjunction joining a predicate to the previous one.
type Boolean string

const (
	And Boolean = "AND"
	Or  Boolean = "OR"
)

// Predicate is a node of a WHERE, HAVING or JOIN ON list.
type Predicate interface {
	Conjunction() Boolean
	predicate()
}

// Comparison compares a column with a value. When Expr is set, Column is an
// SQL expression such as an aggregate and is written verbatim.
type Comparison struct {
	Boolean  Boolean
	Column   string
	Expr     bool
	Operator string
	Value    Value
}

// Group is a parenthesized list of predicates built by a nested clause builder.
type Group struct {
	Boolean    Boolean
	Predicates []Predicate
}

// Exists is an [NOT] EXISTS (SELECT ...) predicate.
type Exists struct {
	Boolean Boolean
	Select  *Select
	Negated bool
}

// Nested is a parenthesized SELECT used as a whole boolean expression.
type Nested struct {
	Boolean Boolean
	Select  *Select
}

// Expression is a literal predicate string inserted verbatim.
type Expression struct {
	Boolean Boolean
	SQL     string
}

func (p Comparison) Conjunction() Boolean { return p.Boolean }
func (p Group) Conjunction() Boolean      { return p.Boolean }
func (p Exists) Conjunction() Boolean     { return p.Boolean }
func (p Nested) Conjunction() Boolean     { return p.Boolean }
func (p Expression) Conjunction() Boolean { return p.Boolean }

func (Comparison) predicate() {}
func (Group) predicate()      {}
func (Exists) predicate()     {}
func (Nested) predicate()     {}
func (Expression) predicate() {}

// WithBoolean returns a copy of p joined with b.
func WithBoolean(p Predicate, b Boolean) Predicate {
	switch p := p.(type) {
	case Comparison:
		p.Boolean = b
		return p
	case Group:
		p.Boolean = b
		return p
	case Exists:
		p.Boolean = b
		return p
	case Nested:
		p.Boolean = b
		return p
	case Expression:
		p.Boolean = b
		return p
	}
	return p
}

// Comparison operators.
const (
	OpEq         = "="
	OpNeq        = "!="
	OpNeqAlt     = "<>"
	OpGt         = ">"
	OpGte        = ">="
	OpLt         = "<"
	OpLte        = "<="
	OpBetween    = "BETWEEN"
	OpNotBetween = "NOT BETWEEN"
	OpIn         = "IN"
	OpNotIn      = "NOT IN"
	OpLike       = "LIKE"
	OpNotLike    = "NOT LIKE"
	OpIsNull     = "IS NULL"
	OpIsNotNull  = "IS NOT NULL"
)

var operators = map[string]bool{
	OpEq: true, OpNeq: true, OpNeqAlt: true, OpGt: true, OpGte: true,
	OpLt: true, OpLte: true, OpBetween: true, OpNotBetween: true,
	OpIn: true, OpNotIn: true, OpLike: true, OpNotLike: true,
	OpIsNull: true, OpIsNotNull: true,
}

// NormalizeOperator validates op and applies the value-dependent rewrites:
// "= NULL" becomes IS NULL, "!= NULL" / "<> NULL" become IS NOT NULL, "= list"
// becomes IN and "!= list" / "<> list" become NOT IN.
func NormalizeOperator(op string, v Value) (string, error) {
	op = strings.ToUpper(strings.Join(strings.Fields(op), " "))
	if !operators[op] {
		return "", fmt.Errorf("statement: unknown operator %q", op)
	}
	_, isList := v.(List)
	switch {
	case op == OpEq && IsNull(v):
		return OpIsNull, nil
	case (op == OpNeq || op == OpNeqAlt) && IsNull(v):
		return OpIsNotNull, nil
	case op == OpEq && isList:
		return OpIn, nil
	case (op == OpNeq || op == OpNeqAlt) && isList:
		return OpNotIn, nil
	}
	return op, nil
}
