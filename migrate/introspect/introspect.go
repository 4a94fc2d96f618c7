// Package introspect reads the table catalog of a live database.
package introspect

import (
	"context"
	"fmt"

	"github.com/dbkit-go/dbkit/query/builder"
	"github.com/dbkit-go/dbkit/query/sqlgen"
	"github.com/dbkit-go/dbkit/runtime/client"
)

// tablesQuery selects the base table names of the current database.
func tablesQuery(conn *client.Connection) *builder.Select {
	if conn.Dialect() == sqlgen.SQLiteDialect {
		return conn.Select("name").From("sqlite_master").
			Where("type", "=", "table").
			AndWhere("name", "not like", "sqlite_%").
			OrderBy("name")
	}
	return conn.Select("TABLE_NAME").From("information_schema.TABLES").
		WhereRaw("TABLE_SCHEMA", "=", "DATABASE()").
		AndWhere("TABLE_TYPE", "=", "BASE TABLE").
		OrderBy("TABLE_NAME")
}

// Tables lists the tables of the current database in name order.
func Tables(ctx context.Context, conn *client.Connection) ([]string, error) {
	rows, err := tablesQuery(conn).Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// HasTable reports whether table exists.
func HasTable(ctx context.Context, conn *client.Connection, table string) (bool, error) {
	q := tablesQuery(conn)
	if conn.Dialect() == sqlgen.SQLiteDialect {
		q.AndWhere("name", "=", table)
	} else {
		q.AndWhere("TABLE_NAME", "=", table)
	}
	row, err := q.FetchOne(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to query table %q: %w", table, err)
	}
	return row != nil, nil
}
