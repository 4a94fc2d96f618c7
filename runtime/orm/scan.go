package orm

import (
	"reflect"

	"github.com/dbkit-go/dbkit/query/executor"
)

// scanAll reads every row into a new *T, matching result columns by name.
// Columns the map does not know are discarded.
func scanAll[T any](m *EntityMap, rows *executor.Rows) ([]*T, error) {
	defer rows.Close()
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []*T
	for rows.Next() {
		result := new(T)
		val := reflect.ValueOf(result).Elem()

		dest := make([]interface{}, len(columns))
		for i, col := range columns {
			if field, ok := m.field(val, col); ok && field.CanAddr() {
				dest[i] = field.Addr().Interface()
			} else {
				dest[i] = new(interface{})
			}
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// scanOne returns the first row or ErrNotFound.
func scanOne[T any](m *EntityMap, rows *executor.Rows) (*T, error) {
	all, err := scanAll[T](m, rows)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, ErrNotFound
	}
	return all[0], nil
}
