// Package builder provides a fluent query builder API.
package builder

import (
	"context"
	"errors"

	"github.com/dbkit-go/dbkit/query/executor"
	"github.com/dbkit-go/dbkit/query/sqlgen"
	"github.com/dbkit-go/dbkit/query/statement"
)

var (
	// ErrNoCompiler is returned when a builder has no dialect to compile with.
	ErrNoCompiler = errors.New("builder: no compiler")
	// ErrNoRunner is returned by Execute on builders not created from a connection.
	ErrNoRunner = errors.New("builder: not bound to a connection")
)

// Runner executes compiled queries. A connection implements it.
type Runner interface {
	Run(ctx context.Context, q *sqlgen.Query) (executor.Result, error)
	Fetch(ctx context.Context, q *sqlgen.Query) (*executor.Rows, error)
}

// Builder creates statement builders bound to one dialect and, optionally,
// to a Runner that executes them.
type Builder struct {
	compiler sqlgen.Compiler
	runner   Runner
}

// New creates a builder factory. runner may be nil, in which case the
// builders can compile but not execute.
func New(c sqlgen.Compiler, runner Runner) *Builder {
	return &Builder{compiler: c, runner: runner}
}

// Compiler returns the dialect compiler.
func (b *Builder) Compiler() sqlgen.Compiler { return b.compiler }

func (b *Builder) base() base {
	return base{compiler: b.compiler, runner: b.runner}
}

// Select starts a SELECT of the given columns.
func (b *Builder) Select(columns ...string) *Select {
	s := newSelect(b.base())
	if len(columns) > 0 {
		s.Columns(columns...)
	}
	return s
}

// Insert starts an INSERT.
func (b *Builder) Insert() *Insert { return &Insert{base: b.base()} }

// Update starts an UPDATE.
func (b *Builder) Update() *Update { return newUpdate(b.base()) }

// Delete starts a DELETE.
func (b *Builder) Delete() *Delete { return newDelete(b.base()) }

// CreateDatabase starts a CREATE DATABASE.
func (b *Builder) CreateDatabase(name string) *CreateDatabase {
	return &CreateDatabase{base: b.base(), stmt: statement.CreateDatabase{Name: name}}
}

// DropDatabase starts a DROP DATABASE.
func (b *Builder) DropDatabase(name string) *DropDatabase {
	return &DropDatabase{base: b.base(), stmt: statement.DropDatabase{Name: name}}
}

// CreateTable starts a CREATE TABLE.
func (b *Builder) CreateTable(name string) *CreateTable { return newCreateTable(b.base(), name) }

// AlterTable starts an ALTER TABLE.
func (b *Builder) AlterTable(name string) *AlterTable { return newAlterTable(b.base(), name) }

// DropTable starts a DROP TABLE.
func (b *Builder) DropTable(names ...string) *DropTable {
	return &DropTable{base: b.base(), stmt: statement.DropTable{Tables: names}}
}

// TruncateTable starts a TRUNCATE TABLE.
func (b *Builder) TruncateTable(name string) *TruncateTable {
	return &TruncateTable{base: b.base(), stmt: statement.TruncateTable{Table: name}}
}

// CreateIndex starts a CREATE INDEX. An empty name is derived from the table
// and columns.
func (b *Builder) CreateIndex(name string) *CreateIndex {
	return &CreateIndex{base: b.base(), stmt: statement.CreateIndex{Name: name}}
}

// DropIndex starts a DROP INDEX.
func (b *Builder) DropIndex(name string) *DropIndex {
	return &DropIndex{base: b.base(), stmt: statement.DropIndex{Name: name}}
}

// CreateView starts a CREATE VIEW.
func (b *Builder) CreateView(name string) *CreateView {
	return &CreateView{base: b.base(), name: name}
}

// DropView starts a DROP VIEW.
func (b *Builder) DropView(names ...string) *DropView {
	return &DropView{base: b.base(), stmt: statement.DropView{Names: names}}
}

// base carries what every builder needs to compile and execute, plus the
// errors recorded while chaining.
type base struct {
	compiler sqlgen.Compiler
	runner   Runner
	errs     []error
}

func (b *base) addErr(err error) {
	if err != nil {
		b.errs = append(b.errs, err)
	}
}

// Err returns the errors recorded while building, joined.
func (b *base) Err() error {
	return errors.Join(b.errs...)
}

func (b *base) compile(stmt statement.Statement) (*sqlgen.Query, error) {
	if err := b.Err(); err != nil {
		return nil, err
	}
	if b.compiler == nil {
		return nil, ErrNoCompiler
	}
	return b.compiler.Compile(stmt)
}

func (b *base) toSQL(stmt statement.Statement) (string, []interface{}, error) {
	q, err := b.compile(stmt)
	if err != nil {
		return "", nil, err
	}
	return q.SQL, q.Args, nil
}

func (b *base) exec(ctx context.Context, stmt statement.Statement) (executor.Result, error) {
	q, err := b.compile(stmt)
	if err != nil {
		return executor.Result{}, err
	}
	if b.runner == nil {
		return executor.Result{}, ErrNoRunner
	}
	return b.runner.Run(ctx, q)
}

func (b *base) fetch(ctx context.Context, stmt statement.Statement) (*executor.Rows, error) {
	q, err := b.compile(stmt)
	if err != nil {
		return nil, err
	}
	if b.runner == nil {
		return nil, ErrNoRunner
	}
	return b.runner.Fetch(ctx, q)
}
