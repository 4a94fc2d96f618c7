// Package client provides the database connection for dbkit.
package client

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/hashicorp/go-version"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/dbkit-go/dbkit/internal/debug"
	"github.com/dbkit-go/dbkit/query/builder"
	"github.com/dbkit-go/dbkit/query/executor"
	"github.com/dbkit-go/dbkit/query/sqlgen"
	"github.com/dbkit-go/dbkit/query/statement"
)

// ErrUnsupportedDialect is wrapped by ConnectionError for unknown dialects.
var ErrUnsupportedDialect = errors.New("unsupported dialect")

// ConnectionError reports a connection that could not be configured.
type ConnectionError struct {
	Dialect string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("client: %s: %v", e.Dialect, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Config describes one connection.
type Config struct {
	Dialect         string        `mapstructure:"dialect" yaml:"dialect"`
	DSN             string        `mapstructure:"dsn" yaml:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" yaml:"max_open_conns,omitempty"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns,omitempty"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime,omitempty"`
	// StatementCache is the number of prepared DML statements kept per
	// connection. Zero disables caching.
	StatementCache int `mapstructure:"statement_cache" yaml:"statement_cache,omitempty"`
}

// driverName maps dialect names to database/sql driver names
func driverName(dialect string) string {
	switch dialect {
	case sqlgen.MySQLDialect:
		return "mysql"
	case sqlgen.SQLiteDialect:
		return "sqlite3"
	default:
		return ""
	}
}

// Option configures a Connection.
type Option func(*Connection)

// WithLogger sets the logger used for statements and transactions.
func WithLogger(l *slog.Logger) Option {
	return func(c *Connection) {
		c.logger = l
		c.execOpts = append(c.execOpts, executor.WithLogger(l))
	}
}

// WithStatementCache enables the prepared statement cache.
func WithStatementCache(size int) Option {
	return func(c *Connection) {
		c.execOpts = append(c.execOpts, executor.WithStatementCache(size))
	}
}

// WithMiddleware adds middlewares around every statement.
func WithMiddleware(m ...Middleware) Option {
	return func(c *Connection) {
		c.middlewares = append(c.middlewares, m...)
	}
}

// Connection binds a database handle to a dialect. It creates builders that
// execute on it and tracks a transaction depth counter. A Connection is not
// safe for concurrent use while a transaction is open.
type Connection struct {
	*builder.Builder

	db          *sql.DB
	dialect     string
	compiler    sqlgen.Compiler
	exec        *executor.Executor
	execOpts    []executor.Option
	logger      *slog.Logger
	middlewares []Middleware
	txOptions   *sql.TxOptions

	tx           *sql.Tx
	txExec       *executor.Executor
	depth        int
	lastInsertID int64
}

// Open opens a connection described by cfg. The database is not contacted;
// use Ping to verify it.
func Open(cfg Config, opts ...Option) (*Connection, error) {
	dialect := sqlgen.NormalizeDialect(cfg.Dialect)
	driver := driverName(dialect)
	if driver == "" {
		return nil, &ConnectionError{Dialect: cfg.Dialect, Err: ErrUnsupportedDialect}
	}
	dsn := cfg.DSN
	if dialect == sqlgen.MySQLDialect {
		mc, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, &ConnectionError{Dialect: dialect, Err: fmt.Errorf("invalid DSN: %w", err)}
		}
		mc.ParseTime = true
		dsn = mc.FormatDSN()
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, &ConnectionError{Dialect: dialect, Err: err}
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.StatementCache > 0 {
		opts = append([]Option{WithStatementCache(cfg.StatementCache)}, opts...)
	}
	c, err := New(db, dialect, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// New wraps an open database handle.
func New(db *sql.DB, dialect string, opts ...Option) (*Connection, error) {
	compiler, err := sqlgen.NewCompiler(dialect)
	if err != nil {
		return nil, &ConnectionError{Dialect: dialect, Err: ErrUnsupportedDialect}
	}
	c := &Connection{db: db, dialect: compiler.Dialect(), compiler: compiler}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = debug.Logger()
	}
	c.exec, err = executor.New(db, c.execOpts...)
	if err != nil {
		return nil, &ConnectionError{Dialect: c.dialect, Err: err}
	}
	c.Builder = builder.New(compiler, c)
	return c, nil
}

// Dialect returns the dialect name.
func (c *Connection) Dialect() string { return c.dialect }

// DB returns the underlying database handle.
func (c *Connection) DB() *sql.DB { return c.db }

// Logger returns the connection logger.
func (c *Connection) Logger() *slog.Logger { return c.logger }

// Use adds a middleware to the chain.
func (c *Connection) Use(m Middleware) { c.middlewares = append(c.middlewares, m) }

func (c *Connection) current() *executor.Executor {
	if c.txExec != nil {
		return c.txExec
	}
	return c.exec
}

// Run implements builder.Runner.
func (c *Connection) Run(ctx context.Context, q *sqlgen.Query) (executor.Result, error) {
	var res executor.Result
	err := c.intercept(ctx, q, func() error {
		var err error
		res, err = c.current().Exec(ctx, q)
		return err
	})
	if err != nil {
		return res, err
	}
	if q.Kind == statement.KindInsert || q.Kind == 0 {
		if res.LastInsertID != 0 {
			c.lastInsertID = res.LastInsertID
		}
	}
	return res, nil
}

// Fetch implements builder.Runner.
func (c *Connection) Fetch(ctx context.Context, q *sqlgen.Query) (*executor.Rows, error) {
	var rows *executor.Rows
	err := c.intercept(ctx, q, func() error {
		var err error
		rows, err = c.current().Query(ctx, q)
		return err
	})
	return rows, err
}

// Exec runs hand written SQL that returns no rows.
func (c *Connection) Exec(ctx context.Context, query string, args ...interface{}) (executor.Result, error) {
	return c.Run(ctx, &sqlgen.Query{SQL: query, Args: args})
}

// Query runs hand written SQL that returns rows. The caller closes them.
func (c *Connection) Query(ctx context.Context, query string, args ...interface{}) (*executor.Rows, error) {
	return c.Fetch(ctx, &sqlgen.Query{SQL: query, Args: args})
}

// LastInsertID returns the id generated by the last INSERT on this
// connection. With a sequence name it reads the table's auto increment
// counter instead.
func (c *Connection) LastInsertID(ctx context.Context, sequence string) (int64, error) {
	if sequence == "" {
		return c.lastInsertID, nil
	}
	var sel *builder.Select
	switch c.dialect {
	case sqlgen.SQLiteDialect:
		sel = c.Select("seq").From("sqlite_sequence").Where("name", "=", sequence)
	default:
		sel = c.Select("AUTO_INCREMENT").From("information_schema.TABLES").
			WhereRaw("TABLE_SCHEMA", "=", "DATABASE()").
			AndWhere("TABLE_NAME", "=", sequence)
	}
	rows, err := sel.Execute(ctx)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	if !rows.Next() {
		return 0, rows.Err()
	}
	var n sql.NullInt64
	if err := rows.Scan(&n); err != nil {
		return 0, fmt.Errorf("client: scan sequence %q: %w", sequence, err)
	}
	if c.dialect == sqlgen.MySQLDialect && n.Int64 > 0 {
		// AUTO_INCREMENT is the next value to be assigned.
		return n.Int64 - 1, nil
	}
	return n.Int64, nil
}

// ServerVersion queries the server version and hands it to the compiler,
// which uses it to reject syntax the server does not support.
func (c *Connection) ServerVersion(ctx context.Context) (*version.Version, error) {
	query := "SELECT VERSION()"
	if c.dialect == sqlgen.SQLiteDialect {
		query = "SELECT sqlite_version()"
	}
	rows, err := c.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("client: %s returned no rows", query)
	}
	var raw string
	if err := rows.Scan(&raw); err != nil {
		return nil, fmt.Errorf("client: scan server version: %w", err)
	}
	v, err := parseServerVersion(raw)
	if err != nil {
		return nil, err
	}
	switch comp := c.compiler.(type) {
	case *sqlgen.MySQL:
		comp.Version = v
	case *sqlgen.SQLite:
		comp.Version = v
	}
	return v, nil
}

// parseServerVersion keeps the numeric core of strings such as
// "8.0.36-0ubuntu0.22.04.1" or "10.11.6-MariaDB-log".
func parseServerVersion(raw string) (*version.Version, error) {
	core := strings.TrimSpace(raw)
	if i := strings.IndexAny(core, "-+ "); i > 0 {
		core = core[:i]
	}
	v, err := version.NewVersion(core)
	if err != nil {
		return nil, fmt.Errorf("client: parse server version %q: %w", raw, err)
	}
	return v, nil
}

// Ping verifies the database is reachable.
func (c *Connection) Ping(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return &ConnectionError{Dialect: c.dialect, Err: err}
	}
	return nil
}

// Close rolls back an open transaction, releases cached statements and
// closes the database handle.
func (c *Connection) Close() error {
	var errs []error
	if c.tx != nil {
		errs = append(errs, c.tx.Rollback())
		c.tx, c.txExec, c.depth = nil, nil, 0
	}
	c.exec.Close()
	errs = append(errs, c.db.Close())
	return errors.Join(errs...)
}
