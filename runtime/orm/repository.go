package orm

import (
	"context"
	"fmt"
	"reflect"

	"github.com/dbkit-go/dbkit/query/builder"
	"github.com/dbkit-go/dbkit/query/statement"
	"github.com/dbkit-go/dbkit/runtime/client"
)

// Repository persists entities of type T through one connection.
type Repository[T any] struct {
	conn *client.Connection
	m    *EntityMap
}

// NewRepository creates a repository for T on conn.
func NewRepository[T any](conn *client.Connection) (*Repository[T], error) {
	m, err := MapOf[T]()
	if err != nil {
		return nil, err
	}
	return &Repository[T]{conn: conn, m: m}, nil
}

// Map returns the entity map of T.
func (r *Repository[T]) Map() *EntityMap { return r.m }

// Connection returns the connection the repository runs on.
func (r *Repository[T]) Connection() *client.Connection { return r.conn }

// Query starts a SELECT of every mapped column.
func (r *Repository[T]) Query() *builder.Select {
	return r.conn.Select(r.m.ColumnNames()...).From(r.m.Table)
}

// Find loads the entity with the given primary key values.
func (r *Repository[T]) Find(ctx context.Context, keys ...interface{}) (*T, error) {
	if len(r.m.PrimaryKeys) == 0 {
		return nil, ErrNoPrimaryKey
	}
	if len(keys) != len(r.m.PrimaryKeys) {
		return nil, fmt.Errorf("orm: %s: got %d key values for %d primary key columns",
			r.m.Table, len(keys), len(r.m.PrimaryKeys))
	}
	q := r.Query()
	for i, pk := range r.m.PrimaryKeys {
		q.AndWhere(pk.Column, "=", keys[i])
	}
	rows, err := q.Limit(1).Execute(ctx)
	if err != nil {
		return nil, err
	}
	return scanOne[T](r.m, rows)
}

// FindBy loads the entities whose column equals value.
func (r *Repository[T]) FindBy(ctx context.Context, column string, value interface{}) ([]*T, error) {
	return r.All(ctx, func(q *builder.Select) { q.Where(column, "=", value) })
}

// First loads the first entity matching fn, or ErrNotFound.
func (r *Repository[T]) First(ctx context.Context, fn func(*builder.Select)) (*T, error) {
	q := r.Query()
	if fn != nil {
		fn(q)
	}
	rows, err := q.Limit(1).Execute(ctx)
	if err != nil {
		return nil, err
	}
	return scanOne[T](r.m, rows)
}

// All loads every entity matching the conditions fn adds. A nil fn loads
// the whole table.
func (r *Repository[T]) All(ctx context.Context, fn func(*builder.Select)) ([]*T, error) {
	q := r.Query()
	if fn != nil {
		fn(q)
	}
	rows, err := q.Execute(ctx)
	if err != nil {
		return nil, err
	}
	return scanAll[T](r.m, rows)
}

// Insert stores e. A zero auto increment key is left to the database and
// filled from the last insert id.
func (r *Repository[T]) Insert(ctx context.Context, e *T) error {
	v := reflect.ValueOf(e).Elem()
	var autoField reflect.Value
	ins := r.conn.Insert().Into(r.m.Table)
	var cols []string
	var vals []interface{}
	for _, c := range r.m.Columns {
		f, ok := r.m.field(v, c.Column)
		if !ok {
			continue
		}
		if c.Column == r.m.AutoIncrement && f.IsZero() {
			autoField = f
			continue
		}
		cols = append(cols, c.Column)
		vals = append(vals, f.Interface())
	}
	res, err := ins.Columns(cols...).Values(vals...).Execute(ctx)
	if err != nil {
		return err
	}
	if autoField.IsValid() && res.LastInsertID != 0 {
		setInt(autoField, res.LastInsertID)
	}
	return nil
}

// Update writes every non key column of e and returns the affected rows.
func (r *Repository[T]) Update(ctx context.Context, e *T) (int64, error) {
	if len(r.m.PrimaryKeys) == 0 {
		return 0, ErrNoPrimaryKey
	}
	v := reflect.ValueOf(e).Elem()
	upd := r.conn.Update().Table(r.m.Table)
	for _, c := range r.m.Columns {
		if r.m.IsKey(c.Column) {
			continue
		}
		if f, ok := r.m.field(v, c.Column); ok {
			upd.Set(c.Column, f.Interface())
		}
	}
	if err := whereKeys(r.m, v, upd.AndWhere); err != nil {
		return 0, err
	}
	res, err := upd.Execute(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

// Delete removes e and returns the affected rows.
func (r *Repository[T]) Delete(ctx context.Context, e *T) (int64, error) {
	if len(r.m.PrimaryKeys) == 0 {
		return 0, ErrNoPrimaryKey
	}
	del := r.conn.Delete().From(r.m.Table)
	if err := whereKeys(r.m, reflect.ValueOf(e).Elem(), del.AndWhere); err != nil {
		return 0, err
	}
	res, err := del.Execute(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

// Save inserts e when it has not been stored yet, otherwise updates it.
// Entities with an auto increment key are new while the key is zero; for
// other keys the table is checked.
func (r *Repository[T]) Save(ctx context.Context, e *T) error {
	if len(r.m.PrimaryKeys) == 0 {
		return ErrNoPrimaryKey
	}
	v := reflect.ValueOf(e).Elem()
	var exists bool
	if r.m.AutoIncrement != "" {
		f, _ := r.m.field(v, r.m.AutoIncrement)
		exists = f.IsValid() && !f.IsZero()
	} else {
		q := r.conn.Select().AddColumn(statement.Raw("1"), "found").From(r.m.Table)
		if err := whereKeys(r.m, v, q.AndWhere); err != nil {
			return err
		}
		row, err := q.Limit(1).FetchOne(ctx)
		if err != nil {
			return err
		}
		exists = row != nil
	}
	if !exists {
		return r.Insert(ctx, e)
	}
	_, err := r.Update(ctx, e)
	return err
}

// whereKeys restricts a statement to the primary key of the struct v.
func whereKeys[B any](m *EntityMap, v reflect.Value, where func(col, op string, value interface{}) B) error {
	for _, pk := range m.PrimaryKeys {
		f, ok := m.field(v, pk.Column)
		if !ok {
			return fmt.Errorf("orm: %s: key %q is not a field", m.Table, pk.Column)
		}
		where(pk.Column, "=", f.Interface())
	}
	return nil
}

func setInt(f reflect.Value, n int64) {
	switch f.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		f.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		f.SetUint(uint64(n))
	}
}
