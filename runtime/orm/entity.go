// Package orm maps Go structs to tables and persists them through a
// client.Connection.
package orm

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-openapi/inflect"
)

var (
	// ErrNotFound is returned when no row matches a lookup.
	ErrNotFound = errors.New("orm: entity not found")
	// ErrNoPrimaryKey is returned for key based operations on entities
	// without a primary key.
	ErrNoPrimaryKey = errors.New("orm: entity has no primary key")
)

// Tabler overrides the table name derived from the type name.
type Tabler interface {
	TableName() string
}

// Mapping pairs a column with the struct property holding it.
type Mapping struct {
	Column   string
	Property string

	index []int
}

// EntityMap describes how an entity type is stored. Every primary key is
// also listed in Columns.
type EntityMap struct {
	Table       string
	PrimaryKeys []Mapping
	Columns     []Mapping
	// AutoIncrement is the column filled from the last insert id, if any.
	AutoIncrement string

	typ        reflect.Type
	byColumn   map[string]int
	byProperty map[string]int
}

// NewEntityMap builds a map from explicit mappings. Primary keys missing
// from columns are added in front of them.
func NewEntityMap(table string, primaryKeys, columns []Mapping) *EntityMap {
	m := &EntityMap{Table: table, PrimaryKeys: append([]Mapping(nil), primaryKeys...)}
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		seen[c.Column] = true
	}
	for _, pk := range primaryKeys {
		if !seen[pk.Column] {
			m.Columns = append(m.Columns, pk)
		}
	}
	m.Columns = append(m.Columns, columns...)
	m.index()
	return m
}

func (m *EntityMap) index() {
	m.byColumn = make(map[string]int, len(m.Columns))
	m.byProperty = make(map[string]int, len(m.Columns))
	for i, c := range m.Columns {
		m.byColumn[c.Column] = i
		m.byProperty[c.Property] = i
	}
}

// Property returns the property stored in column.
func (m *EntityMap) Property(column string) (string, bool) {
	i, ok := m.byColumn[column]
	if !ok {
		return "", false
	}
	return m.Columns[i].Property, true
}

// Column returns the column storing property.
func (m *EntityMap) Column(property string) (string, bool) {
	i, ok := m.byProperty[property]
	if !ok {
		return "", false
	}
	return m.Columns[i].Column, true
}

// ColumnNames returns every column in declaration order.
func (m *EntityMap) ColumnNames() []string {
	names := make([]string, len(m.Columns))
	for i, c := range m.Columns {
		names[i] = c.Column
	}
	return names
}

// KeyNames returns the primary key columns.
func (m *EntityMap) KeyNames() []string {
	names := make([]string, len(m.PrimaryKeys))
	for i, c := range m.PrimaryKeys {
		names[i] = c.Column
	}
	return names
}

// IsKey reports whether column is part of the primary key.
func (m *EntityMap) IsKey(column string) bool {
	for _, pk := range m.PrimaryKeys {
		if pk.Column == column {
			return true
		}
	}
	return false
}

// field returns the addressable field behind column in the struct v.
func (m *EntityMap) field(v reflect.Value, column string) (reflect.Value, bool) {
	i, ok := m.byColumn[column]
	if !ok || m.Columns[i].index == nil {
		return reflect.Value{}, false
	}
	return v.FieldByIndex(m.Columns[i].index), true
}

var maps sync.Map // reflect.Type -> *EntityMap

// MapOf returns the entity map of T, deriving it from struct tags on first
// use. The db tag names the column; the options pk, auto and noauto mark
// keys, and "-" skips a field. Untagged fields use the snake_case field
// name. A single integer primary key is auto increment unless noauto is set.
func MapOf[T any]() (*EntityMap, error) {
	return mapType(reflect.TypeOf((*T)(nil)).Elem())
}

func mapType(t reflect.Type) (*EntityMap, error) {
	if cached, ok := maps.Load(t); ok {
		return cached.(*EntityMap), nil
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("orm: %s is not a struct", t)
	}
	m := &EntityMap{Table: tableName(t), typ: t}
	var auto []string
	var noauto bool
	collect(t, nil, m, &auto, &noauto)
	if len(m.Columns) == 0 {
		return nil, fmt.Errorf("orm: %s has no mapped fields", t)
	}
	switch {
	case len(auto) == 1:
		m.AutoIncrement = auto[0]
	case len(auto) == 0 && len(m.PrimaryKeys) == 1 && !noauto:
		if isInteger(t.FieldByIndex(m.PrimaryKeys[0].index).Type.Kind()) {
			m.AutoIncrement = m.PrimaryKeys[0].Column
		}
	case len(auto) > 1:
		return nil, fmt.Errorf("orm: %s has %d auto increment columns", t, len(auto))
	}
	m.index()
	actual, _ := maps.LoadOrStore(t, m)
	return actual.(*EntityMap), nil
}

func collect(t reflect.Type, parent []int, m *EntityMap, auto *[]string, noauto *bool) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		index := append(append([]int(nil), parent...), i)
		tag, hasTag := f.Tag.Lookup("db")
		if tag == "-" {
			continue
		}
		if f.Anonymous && !hasTag && f.Type.Kind() == reflect.Struct {
			collect(f.Type, index, m, auto, noauto)
			continue
		}
		if !f.IsExported() {
			continue
		}
		parts := strings.Split(tag, ",")
		name := parts[0]
		if name == "" {
			name = snake(f.Name)
		}
		mp := Mapping{Column: name, Property: f.Name, index: index}
		for _, opt := range parts[1:] {
			switch strings.TrimSpace(opt) {
			case "pk":
				m.PrimaryKeys = append(m.PrimaryKeys, mp)
			case "auto":
				*auto = append(*auto, name)
			case "noauto":
				*noauto = true
			}
		}
		m.Columns = append(m.Columns, mp)
	}
}

func tableName(t reflect.Type) string {
	if tb, ok := reflect.New(t).Interface().(Tabler); ok {
		return tb.TableName()
	}
	if tb, ok := reflect.Zero(t).Interface().(Tabler); ok {
		return tb.TableName()
	}
	return inflect.Pluralize(snake(t.Name()))
}

func isInteger(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// snake converts a Go name to snake_case. Acronym runs are folded first so
// that UserID becomes user_id rather than user_i_d.
func snake(name string) string {
	r := []rune(name)
	out := make([]rune, len(r))
	for i, c := range r {
		out[i] = c
		if i > 0 && unicode.IsUpper(c) && unicode.IsUpper(r[i-1]) &&
			(i+1 == len(r) || !unicode.IsLower(r[i+1])) {
			out[i] = unicode.ToLower(c)
		}
	}
	return inflect.Underscore(string(out))
}
