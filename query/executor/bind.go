package executor

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// ParamKind classifies a bound value.
type ParamKind int

const (
	ParamNull ParamKind = iota
	ParamInt
	ParamBool
	ParamString
)

func (k ParamKind) String() string {
	switch k {
	case ParamNull:
		return "null"
	case ParamInt:
		return "int"
	case ParamBool:
		return "bool"
	default:
		return "string"
	}
}

// Binding is one converted argument.
type Binding struct {
	Name  string
	Kind  ParamKind
	Value interface{}
}

// Bind converts compiled arguments into driver bindings. Integers widen to
// int64, slices collapse into a comma separated list of quoted strings and
// named arguments keep their name. Floats are classified as ParamInt but keep
// their value.
func Bind(args []interface{}) []Binding {
	out := make([]Binding, len(args))
	for i, a := range args {
		out[i] = bind(a)
	}
	return out
}

func bind(v interface{}) Binding {
	switch x := v.(type) {
	case nil:
		return Binding{Kind: ParamNull}
	case sql.NamedArg:
		b := bind(x.Value)
		b.Name = x.Name
		return b
	case int:
		return Binding{Kind: ParamInt, Value: int64(x)}
	case int8:
		return Binding{Kind: ParamInt, Value: int64(x)}
	case int16:
		return Binding{Kind: ParamInt, Value: int64(x)}
	case int32:
		return Binding{Kind: ParamInt, Value: int64(x)}
	case int64:
		return Binding{Kind: ParamInt, Value: x}
	case uint:
		return Binding{Kind: ParamInt, Value: int64(x)}
	case uint8:
		return Binding{Kind: ParamInt, Value: int64(x)}
	case uint16:
		return Binding{Kind: ParamInt, Value: int64(x)}
	case uint32:
		return Binding{Kind: ParamInt, Value: int64(x)}
	case uint64:
		// Kept unsigned; values above MaxInt64 would wrap.
		return Binding{Kind: ParamInt, Value: x}
	case float32, float64:
		return Binding{Kind: ParamInt, Value: x}
	case bool:
		return Binding{Kind: ParamBool, Value: x}
	case string, []byte, time.Time, driver.Valuer:
		return Binding{Kind: ParamString, Value: x}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]string, rv.Len())
		for i := range items {
			s := fmt.Sprint(rv.Index(i).Interface())
			items[i] = "'" + strings.ReplaceAll(s, "'", "''") + "'"
		}
		return Binding{Kind: ParamString, Value: strings.Join(items, ",")}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Binding{Kind: ParamInt, Value: rv.Int()}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Binding{Kind: ParamInt, Value: rv.Uint()}
	case reflect.Bool:
		return Binding{Kind: ParamBool, Value: rv.Bool()}
	case reflect.String:
		return Binding{Kind: ParamString, Value: rv.String()}
	case reflect.Pointer:
		if rv.IsNil() {
			return Binding{Kind: ParamNull}
		}
		return bind(rv.Elem().Interface())
	}
	return Binding{Kind: ParamString, Value: v}
}

// Args returns the values handed to database/sql.
func Args(bindings []Binding) []interface{} {
	out := make([]interface{}, len(bindings))
	for i, b := range bindings {
		if b.Name != "" {
			out[i] = sql.Named(b.Name, b.Value)
			continue
		}
		out[i] = b.Value
	}
	return out
}

func values(bindings []Binding) []interface{} {
	out := make([]interface{}, len(bindings))
	for i, b := range bindings {
		out[i] = b.Value
	}
	return out
}
