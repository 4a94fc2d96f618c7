// Package executor runs compiled statements through database/sql.
package executor

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dbkit-go/dbkit/internal/debug"
	"github.com/dbkit-go/dbkit/query/sqlgen"
)

// ExecQuerier is the part of *sql.DB and *sql.Tx the executor needs.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

type preparer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// Executor executes compiled queries
type Executor struct {
	conn      ExecQuerier
	tx        *sql.Tx
	logger    *slog.Logger
	stmtCache *lru.Cache[string, *sql.Stmt]
}

// Option configures an Executor.
type Option func(*Executor) error

// WithLogger sets the logger statements are reported to.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) error {
		e.logger = l
		return nil
	}
}

// WithStatementCache keeps up to size prepared DML statements. Evicted
// statements are closed. Zero disables the cache.
func WithStatementCache(size int) Option {
	return func(e *Executor) error {
		if size <= 0 {
			e.stmtCache = nil
			return nil
		}
		cache, err := lru.NewWithEvict[string, *sql.Stmt](size, func(_ string, stmt *sql.Stmt) {
			stmt.Close()
		})
		if err != nil {
			return fmt.Errorf("statement cache: %w", err)
		}
		e.stmtCache = cache
		return nil
	}
}

// New creates an executor over conn.
func New(conn ExecQuerier, opts ...Option) (*Executor, error) {
	e := &Executor{conn: conn}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	if e.logger == nil {
		e.logger = debug.Logger()
	}
	return e, nil
}

// InTx returns an executor that runs every statement on tx. Cached
// statements are rebound to the transaction.
func (e *Executor) InTx(tx *sql.Tx) *Executor {
	cp := *e
	cp.tx = tx
	return &cp
}

// Logger returns the logger in use.
func (e *Executor) Logger() *slog.Logger { return e.logger }

func (e *Executor) target() ExecQuerier {
	if e.tx != nil {
		return e.tx
	}
	return e.conn
}

// stmt returns a prepared statement for q when caching applies.
func (e *Executor) stmt(ctx context.Context, q *sqlgen.Query) (*sql.Stmt, error) {
	if e.stmtCache == nil || q.Kind == 0 || q.Kind.IsDDL() {
		return nil, nil
	}
	p, ok := e.conn.(preparer)
	if !ok {
		return nil, nil
	}
	stmt, ok := e.stmtCache.Get(q.SQL)
	if !ok {
		var err error
		stmt, err = p.PrepareContext(ctx, q.SQL)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare statement: %w", err)
		}
		e.stmtCache.Add(q.SQL, stmt)
	}
	if e.tx != nil {
		return e.tx.StmtContext(ctx, stmt), nil
	}
	return stmt, nil
}

// Exec runs a statement that returns no rows.
func (e *Executor) Exec(ctx context.Context, q *sqlgen.Query) (Result, error) {
	bindings := Bind(q.Args)
	start := time.Now()

	stmt, err := e.stmt(ctx, q)
	if err != nil {
		return Result{}, e.fail(ctx, "exec", q, bindings, start, err)
	}
	var res sql.Result
	if stmt != nil {
		res, err = stmt.ExecContext(ctx, Args(bindings)...)
	} else {
		res, err = e.target().ExecContext(ctx, q.SQL, Args(bindings)...)
	}
	if err != nil {
		return Result{}, e.fail(ctx, "exec", q, bindings, start, err)
	}
	e.log(ctx, "exec", q, bindings, start)

	var out Result
	// Drivers that cannot report these return an error, which leaves zero.
	if n, err := res.RowsAffected(); err == nil {
		out.RowsAffected = n
	}
	if id, err := res.LastInsertId(); err == nil {
		out.LastInsertID = id
	}
	return out, nil
}

// Query runs a statement that returns rows. The caller must close them.
func (e *Executor) Query(ctx context.Context, q *sqlgen.Query) (*Rows, error) {
	bindings := Bind(q.Args)
	start := time.Now()

	stmt, err := e.stmt(ctx, q)
	if err != nil {
		return nil, e.fail(ctx, "query", q, bindings, start, err)
	}
	var rows *sql.Rows
	if stmt != nil {
		rows, err = stmt.QueryContext(ctx, Args(bindings)...)
	} else {
		rows, err = e.target().QueryContext(ctx, q.SQL, Args(bindings)...)
	}
	if err != nil {
		return nil, e.fail(ctx, "query", q, bindings, start, err)
	}
	e.log(ctx, "query", q, bindings, start)
	return &Rows{rows: rows, sql: q.SQL, bindings: bindings}, nil
}

// Close closes every cached statement.
func (e *Executor) Close() {
	if e.stmtCache != nil {
		e.stmtCache.Purge()
	}
}

func (e *Executor) log(ctx context.Context, op string, q *sqlgen.Query, bindings []Binding, start time.Time) {
	e.logger.DebugContext(ctx, "sql",
		"op", op,
		"sql", q.SQL,
		"bindings", values(bindings),
		"duration", time.Since(start),
	)
}

func (e *Executor) fail(ctx context.Context, op string, q *sqlgen.Query, bindings []Binding, start time.Time, err error) error {
	e.logger.DebugContext(ctx, "sql failed",
		"op", op,
		"sql", q.SQL,
		"bindings", values(bindings),
		"duration", time.Since(start),
		"error", err,
	)
	return &ExecutionError{SQL: q.SQL, Bindings: bindings, Err: err}
}
