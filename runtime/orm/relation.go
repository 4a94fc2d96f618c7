package orm

import (
	"context"
	"fmt"
	"reflect"

	"github.com/go-openapi/inflect"

	"github.com/dbkit-go/dbkit/query/builder"
	"github.com/dbkit-go/dbkit/runtime/client"
)

// Keys names the columns joining two entities. Empty fields take the
// conventional names: the owner's primary key and "<owner singular>_id".
type Keys struct {
	Foreign string
	Local   string
}

// PivotKeys names the columns of a many to many join table.
type PivotKeys struct {
	// Table defaults to the two singular table names in alphabetical
	// order, joined by an underscore.
	Table string
	// Foreign references the owner, Related the related entity.
	Foreign string
	Related string
	// Local and RelatedKey are the referenced columns, the primary keys
	// by default.
	Local      string
	RelatedKey string
}

// HasOne loads the R whose foreign key references owner.
func HasOne[R, O any](ctx context.Context, conn *client.Connection, owner *O, keys Keys) (*R, error) {
	all, err := hasMany[R](ctx, conn, owner, keys, 1)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, ErrNotFound
	}
	return all[0], nil
}

// HasMany loads every R whose foreign key references owner.
func HasMany[R, O any](ctx context.Context, conn *client.Connection, owner *O, keys Keys) ([]*R, error) {
	return hasMany[R](ctx, conn, owner, keys, 0)
}

func hasMany[R, O any](ctx context.Context, conn *client.Connection, owner *O, keys Keys, limit int64) ([]*R, error) {
	om, err := MapOf[O]()
	if err != nil {
		return nil, err
	}
	repo, err := NewRepository[R](conn)
	if err != nil {
		return nil, err
	}
	local, err := keyOr(om, keys.Local)
	if err != nil {
		return nil, err
	}
	foreign := keys.Foreign
	if foreign == "" {
		foreign = foreignKeyName(om)
	}
	value, err := columnValue(om, owner, local)
	if err != nil {
		return nil, err
	}
	return repo.All(ctx, func(q *builder.Select) {
		q.Where(foreign, "=", value)
		if limit > 0 {
			q.Limit(limit)
		}
	})
}

// BelongsTo loads the R that child references through its foreign key.
func BelongsTo[R, C any](ctx context.Context, conn *client.Connection, child *C, keys Keys) (*R, error) {
	cm, err := MapOf[C]()
	if err != nil {
		return nil, err
	}
	repo, err := NewRepository[R](conn)
	if err != nil {
		return nil, err
	}
	owner, err := keyOr(repo.Map(), keys.Local)
	if err != nil {
		return nil, err
	}
	foreign := keys.Foreign
	if foreign == "" {
		foreign = foreignKeyName(repo.Map())
	}
	value, err := columnValue(cm, child, foreign)
	if err != nil {
		return nil, err
	}
	return repo.First(ctx, func(q *builder.Select) { q.Where(owner, "=", value) })
}

// BelongsToMany loads every R linked to owner through a pivot table.
func BelongsToMany[R, O any](ctx context.Context, conn *client.Connection, owner *O, keys PivotKeys) ([]*R, error) {
	om, err := MapOf[O]()
	if err != nil {
		return nil, err
	}
	repo, err := NewRepository[R](conn)
	if err != nil {
		return nil, err
	}
	rm := repo.Map()
	local, err := keyOr(om, keys.Local)
	if err != nil {
		return nil, err
	}
	relatedKey, err := keyOr(rm, keys.RelatedKey)
	if err != nil {
		return nil, err
	}
	pivot := keys.Table
	if pivot == "" {
		pivot = pivotTable(om.Table, rm.Table)
	}
	foreign := keys.Foreign
	if foreign == "" {
		foreign = foreignKeyName(om)
	}
	related := keys.Related
	if related == "" {
		related = foreignKeyName(rm)
	}
	value, err := columnValue(om, owner, local)
	if err != nil {
		return nil, err
	}

	cols := make([]string, len(rm.Columns))
	for i, c := range rm.Columns {
		cols[i] = rm.Table + "." + c.Column
	}
	rows, err := conn.Select(cols...).From(rm.Table).
		InnerJoin(pivot, func(on *builder.Clause) {
			on.On(pivot+"."+related, "=", rm.Table+"."+relatedKey)
		}).
		Where(pivot+"."+foreign, "=", value).
		Execute(ctx)
	if err != nil {
		return nil, err
	}
	return scanAll[R](rm, rows)
}

func keyOr(m *EntityMap, column string) (string, error) {
	if column != "" {
		return column, nil
	}
	if len(m.PrimaryKeys) != 1 {
		return "", fmt.Errorf("%w: %s needs an explicit key", ErrNoPrimaryKey, m.Table)
	}
	return m.PrimaryKeys[0].Column, nil
}

func foreignKeyName(m *EntityMap) string {
	return inflect.Singularize(m.Table) + "_id"
}

func pivotTable(a, b string) string {
	a, b = inflect.Singularize(a), inflect.Singularize(b)
	if b < a {
		a, b = b, a
	}
	return a + "_" + b
}

func columnValue[T any](m *EntityMap, e *T, column string) (interface{}, error) {
	f, ok := m.field(reflect.ValueOf(e).Elem(), column)
	if !ok {
		return nil, fmt.Errorf("orm: %s has no field for column %q", m.Table, column)
	}
	return f.Interface(), nil
}
