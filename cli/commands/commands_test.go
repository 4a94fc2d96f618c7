package commands

import (
	"bytes"
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbkit-go/dbkit/cli/internal/config"
	"github.com/dbkit-go/dbkit/cli/internal/ui"
	"github.com/dbkit-go/dbkit/migrate"
	"github.com/dbkit-go/dbkit/runtime/client"
)

const testConfig = `connections:
  default:
    dialect: sqlite
    dsn: app.db
migrations:
  path: db/migrations
  seeds: db/seeds
  lock_file: db/.lock
`

type harness struct {
	fs     afero.Fs
	out    *bytes.Buffer
	errOut *bytes.Buffer
	app    *app
	mock   sqlmock.Sqlmock
	opened int
}

func newHarness(t *testing.T, cfg string) *harness {
	t.Helper()
	h := &harness{fs: afero.NewMemMapFs(), out: &bytes.Buffer{}, errOut: &bytes.Buffer{}}

	prevFs, prevOut, prevErr := config.AppFs, ui.Out, ui.Err
	config.AppFs, ui.Out, ui.Err = h.fs, h.out, h.errOut
	ui.Plain()
	t.Cleanup(func() { config.AppFs, ui.Out, ui.Err = prevFs, prevOut, prevErr })

	require.NoError(t, afero.WriteFile(h.fs, "dbkit.yaml", []byte(cfg), 0o644))

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	h.mock = mock

	h.app = &app{
		open: func(c client.Config, opts ...client.Option) (*client.Connection, error) {
			h.opened++
			if c.Dialect != "sqlite" {
				return client.Open(c, opts...)
			}
			return client.New(db, c.Dialect, opts...)
		},
		confirm: func(string) (bool, error) { return false, nil },
	}
	return h
}

func (h *harness) run(args ...string) error {
	cmd := h.app.rootCommand()
	cmd.SetArgs(append([]string{"--config", "dbkit.yaml"}, args...))
	cmd.SetOut(h.out)
	cmd.SetErr(h.errOut)
	return report(cmd.ExecuteContext(context.Background()))
}

func (h *harness) mkdirs(t *testing.T) {
	t.Helper()
	require.NoError(t, h.fs.MkdirAll("db/migrations", 0o755))
	require.NoError(t, h.fs.MkdirAll("db/seeds", 0o755))
}

func TestMissingPathFailsBeforeConnecting(t *testing.T) {
	h := newHarness(t, testConfig)

	err := h.run("migrate", "up")
	assert.ErrorIs(t, err, migrate.ErrPathNotFound)
	assert.Zero(t, h.opened)
	assert.Contains(t, h.errOut.String(), "db/migrations")
}

func TestHeldLockIsNotAnError(t *testing.T) {
	h := newHarness(t, testConfig)
	h.mkdirs(t)
	lock, err := migrate.AcquireLock(h.fs, "db/.lock")
	require.NoError(t, err)
	h.mock.ExpectClose()

	require.NoError(t, h.run("migrate"))
	assert.Contains(t, h.out.String(), "another migration is in progress")
	require.NoError(t, lock.Release())
	require.NoError(t, h.mock.ExpectationsWereMet())
}

func TestUnsupportedDialect(t *testing.T) {
	h := newHarness(t, strings.Replace(testConfig, "dialect: sqlite", "dialect: oracle", 1))
	h.mkdirs(t)

	err := h.run("migrate", "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `dialect "oracle" is not supported`)
}

func TestMigrateUpAndStatus(t *testing.T) {
	h := newHarness(t, testConfig)
	h.mkdirs(t)
	require.NoError(t, afero.WriteFile(h.fs, "db/migrations/2024_01_01_000000_create_users.sql",
		[]byte("-- +up\nCREATE TABLE users (id INTEGER);\n-- +down\nDROP TABLE users;\n"), 0o644))

	install := `CREATE TABLE IF NOT EXISTS "migrations" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, ` +
		`"fileName" VARCHAR(255) NOT NULL, "batch" INTEGER NOT NULL, "migratedAt" DATETIME NOT NULL)`
	applied := `SELECT "id", "fileName", "batch", "migratedAt" FROM "migrations" ORDER BY "batch" ASC, "fileName" ASC`
	columns := []string{"id", "fileName", "batch", "migratedAt"}

	h.mock.ExpectExec(install).WillReturnResult(sqlmock.NewResult(0, 0))
	h.mock.ExpectQuery(applied).WillReturnRows(sqlmock.NewRows(columns))
	h.mock.ExpectBegin()
	h.mock.ExpectExec("CREATE TABLE users (id INTEGER)").WillReturnResult(sqlmock.NewResult(0, 0))
	h.mock.ExpectExec(`INSERT INTO "migrations" ("fileName", "batch", "migratedAt") VALUES (?,?,?)`).
		WithArgs("2024_01_01_000000_create_users", int64(1), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	h.mock.ExpectCommit()
	h.mock.ExpectClose()

	require.NoError(t, h.run("migrate", "up"))
	assert.Contains(t, h.out.String(), "Migrated 1:")
	assert.Contains(t, h.out.String(), "2024_01_01_000000_create_users")
	require.NoError(t, h.mock.ExpectationsWereMet())
	exists, _ := afero.Exists(h.fs, "db/.lock")
	assert.False(t, exists)
}

func TestMigrateStatusYAML(t *testing.T) {
	h := newHarness(t, testConfig)
	h.mkdirs(t)
	require.NoError(t, afero.WriteFile(h.fs, "db/migrations/2024_01_01_000000_create_users.sql", []byte("-- +up\nSELECT 1;\n"), 0o644))

	h.mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "migrations" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, ` +
		`"fileName" VARCHAR(255) NOT NULL, "batch" INTEGER NOT NULL, "migratedAt" DATETIME NOT NULL)`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	h.mock.ExpectQuery(`SELECT "id", "fileName", "batch", "migratedAt" FROM "migrations" ORDER BY "batch" ASC, "fileName" ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "fileName", "batch", "migratedAt"}))
	h.mock.ExpectClose()

	require.NoError(t, h.run("migrate", "status", "-o", "yaml"))
	assert.Contains(t, h.out.String(), "- name: 2024_01_01_000000_create_users\n  ran: false\n")

	err := h.run("migrate", "status", "-o", "json")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestDestructiveCommandsConfirm(t *testing.T) {
	h := newHarness(t, testConfig)
	h.mkdirs(t)

	require.NoError(t, h.run("migrate", "reset"))
	assert.Contains(t, h.out.String(), "Aborted.")
	assert.Zero(t, h.opened)

	require.NoError(t, afero.WriteFile(h.fs, "app.db", []byte("sqlite"), 0o644))
	require.NoError(t, h.run("db", "drop"))
	exists, _ := afero.Exists(h.fs, "app.db")
	assert.True(t, exists)

	require.NoError(t, h.run("db", "drop", "--force"))
	exists, _ = afero.Exists(h.fs, "app.db")
	assert.False(t, exists)
	assert.Contains(t, h.out.String(), "Database app.db dropped.")
}

func TestMakeCommands(t *testing.T) {
	h := newHarness(t, testConfig)

	require.NoError(t, h.run("migrate", "make", "create posts", "--table", "posts"))
	files, err := afero.ReadDir(h.fs, "db/migrations")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.True(t, strings.HasSuffix(files[0].Name(), "_create_posts.sql"))
	data, err := afero.ReadFile(h.fs, "db/migrations/"+files[0].Name())
	require.NoError(t, err)
	assert.Contains(t, string(data), `CREATE TABLE "posts"`)

	require.NoError(t, h.run("seed", "make", "users"))
	exists, _ := afero.Exists(h.fs, "db/seeds/users.sql")
	assert.True(t, exists)
	assert.Zero(t, h.opened)
}

func TestDBQuery(t *testing.T) {
	h := newHarness(t, testConfig)
	h.mock.ExpectBegin()
	h.mock.ExpectQuery("SELECT id, name FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "ada").AddRow(int64(2), nil))
	h.mock.ExpectCommit()
	h.mock.ExpectClose()

	require.NoError(t, h.run("db", "query", "SELECT id, name FROM users"))
	assert.Contains(t, h.out.String(), "ada")
	assert.Contains(t, h.out.String(), "NULL")
	require.NoError(t, h.mock.ExpectationsWereMet())
}

func TestInit(t *testing.T) {
	h := newHarness(t, testConfig)
	require.NoError(t, h.fs.Remove("dbkit.yaml"))

	require.NoError(t, h.run("init", "--dialect", "mysql", "--dsn", "root@tcp(localhost)/app"))
	data, err := afero.ReadFile(h.fs, "dbkit.yaml")
	require.NoError(t, err)
	assert.Contains(t, string(data), "dialect: mysql")
	exists, _ := afero.DirExists(h.fs, "database/migrations")
	assert.True(t, exists)

	assert.Error(t, h.run("init"))
}

func TestHelpers(t *testing.T) {
	assert.True(t, returnsRows("  select 1"))
	assert.True(t, returnsRows("(SELECT 1) UNION (SELECT 2)"))
	assert.True(t, returnsRows("PRAGMA table_info(users)"))
	assert.False(t, returnsRows("INSERT INTO t VALUES (1)"))
	assert.False(t, returnsRows(""))

	assert.Equal(t, "app.db", sqliteFile("app.db"))
	assert.Equal(t, "data/app.db", sqliteFile("file:data/app.db?cache=shared"))
	assert.Empty(t, sqliteFile(":memory:"))
	assert.Empty(t, sqliteFile("file:x?mode=memory"))

	assert.Equal(t, "NULL", cell(nil))
	assert.Equal(t, "abc", cell([]byte("abc")))
	assert.Equal(t, "3", cell(int64(3)))

	assert.NoError(t, report(nil))
	assert.NoError(t, report(migrate.ErrLocked))
	assert.ErrorIs(t, report(sql.ErrNoRows), sql.ErrNoRows)
}
