// Package statement defines the dialect-agnostic representation of SQL
// statements produced by the builders and consumed by the compilers.
package statement

import (
	"database/sql/driver"
	"reflect"
	"time"
)

// Value is a closed union describing how a value is rendered into SQL.
// Exactly one of the following holds for every value: it is bound as a
// parameter (Literal, Null, Named, List members), it is a quoted identifier
// (Column), it is inserted verbatim (Raw), or it is a nested statement
// (SubQuery).
type Value interface {
	value()
}

// Literal is a plain value bound as a positional parameter.
type Literal struct {
	V any
}

// Null is the SQL NULL. It is bound as a parameter when used as a value and
// turns comparisons into IS NULL / IS NOT NULL.
type Null struct{}

// Named is a value bound as a named parameter (:name).
type Named struct {
	Name string
	V    any
}

// Column is an identifier rendered with the dialect's quoting.
type Column string

// Raw is a SQL fragment inserted verbatim. It is never quoted nor bound.
type Raw string

// List is an ordered list of operands used by IN and BETWEEN.
type List []Value

// SubQuery is a nested SELECT rendered in parentheses.
type SubQuery struct {
	Select *Select
}

func (Literal) value()  {}
func (Null) value()     {}
func (Named) value()    {}
func (Column) value()   {}
func (Raw) value()      {}
func (List) value()     {}
func (SubQuery) value() {}

// Bind returns a named binding for v.
func Bind(name string, v any) Named { return Named{Name: name, V: v} }

// ValueOf classifies a plain Go value used as a column value. Values that
// already implement Value are returned unchanged, nil becomes Null and a
// *Select becomes a SubQuery. Slices stay one Literal; the executor binds them
// as a single comma-joined string.
func ValueOf(v any) Value {
	switch v := v.(type) {
	case nil:
		return Null{}
	case Value:
		return v
	case *Select:
		if v == nil {
			return Null{}
		}
		return SubQuery{Select: v}
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return Null{}
	}
	return Literal{V: v}
}

// ListOf classifies a comparison operand. Slices and arrays (except []byte)
// become a List of their elements, anything else is classified by ValueOf.
func ListOf(v any) Value {
	switch v := v.(type) {
	case []byte, time.Time, driver.Valuer, Value:
		return ValueOf(v)
	case []any:
		list := make(List, len(v))
		for i := range v {
			list[i] = ValueOf(v[i])
		}
		return list
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return List{}
		}
		list := make(List, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			list[i] = ValueOf(rv.Index(i).Interface())
		}
		return list
	}
	return ValueOf(v)
}

// IsNull reports whether v is the SQL NULL.
func IsNull(v Value) bool {
	switch v := v.(type) {
	case Null:
		return true
	case Literal:
		return v.V == nil
	}
	return false
}
