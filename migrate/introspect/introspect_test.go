package introspect

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbkit-go/dbkit/runtime/client"
)

func newConn(t *testing.T, dialect string) (*client.Connection, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	conn, err := client.New(db, dialect)
	require.NoError(t, err)
	return conn, mock
}

func TestTablesSQLite(t *testing.T) {
	conn, mock := newConn(t, "sqlite")
	mock.ExpectQuery(`SELECT "name" FROM "sqlite_master" WHERE "type" = ? AND "name" NOT LIKE ? ORDER BY "name" ASC`).
		WithArgs("table", "sqlite_%").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("migrations").AddRow("users"))

	tables, err := Tables(context.Background(), conn)
	require.NoError(t, err)
	assert.Equal(t, []string{"migrations", "users"}, tables)
}

func TestHasTableMySQL(t *testing.T) {
	conn, mock := newConn(t, "mysql")
	mock.ExpectQuery("SELECT `TABLE_NAME` FROM `information_schema`.`TABLES` WHERE `TABLE_SCHEMA` = DATABASE() " +
		"AND `TABLE_TYPE` = ? AND `TABLE_NAME` = ? ORDER BY `TABLE_NAME` ASC").
		WithArgs("BASE TABLE", "migrations").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME"}))

	ok, err := HasTable(context.Background(), conn, "migrations")
	require.NoError(t, err)
	assert.False(t, ok)
}
