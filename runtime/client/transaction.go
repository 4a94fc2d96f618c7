package client

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// IsolationLevel represents transaction isolation levels
type IsolationLevel int

const (
	// DefaultIsolation leaves the isolation level to the driver.
	DefaultIsolation IsolationLevel = iota
	ReadUncommitted
	ReadCommitted
	RepeatableRead
	Serializable
)

// ToSQLIsolationLevel converts IsolationLevel to sql.IsolationLevel
func (level IsolationLevel) ToSQLIsolationLevel() sql.IsolationLevel {
	switch level {
	case ReadUncommitted:
		return sql.LevelReadUncommitted
	case ReadCommitted:
		return sql.LevelReadCommitted
	case RepeatableRead:
		return sql.LevelRepeatableRead
	case Serializable:
		return sql.LevelSerializable
	default:
		return sql.LevelDefault
	}
}

// WithIsolation sets the options used when the outermost transaction begins.
func WithIsolation(level IsolationLevel, readOnly bool) Option {
	return func(c *Connection) {
		c.txOptions = &sql.TxOptions{Isolation: level.ToSQLIsolationLevel(), ReadOnly: readOnly}
	}
}

// TransactionLevel returns the current transaction depth.
func (c *Connection) TransactionLevel() int { return c.depth }

// InTransaction reports whether a driver transaction is open.
func (c *Connection) InTransaction() bool { return c.tx != nil }

// BeginTransaction increments the transaction depth. Only the outermost call
// starts a driver transaction; nested calls share it.
func (c *Connection) BeginTransaction(ctx context.Context) error {
	if c.depth == 0 {
		tx, err := c.db.BeginTx(ctx, c.txOptions)
		if err != nil {
			return fmt.Errorf("client: begin transaction: %w", err)
		}
		c.tx = tx
		c.txExec = c.exec.InTx(tx)
	}
	c.depth++
	c.logger.DebugContext(ctx, "transaction begin", "level", c.depth)
	return nil
}

// Commit decrements the transaction depth and commits when it reaches zero.
// It reports false when no transaction was open.
func (c *Connection) Commit() (bool, error) {
	return c.finish("commit", (*sql.Tx).Commit)
}

// RollBack decrements the transaction depth and rolls back when it reaches
// zero. Nested levels do not roll back on their own.
func (c *Connection) RollBack() (bool, error) {
	return c.finish("rollback", (*sql.Tx).Rollback)
}

func (c *Connection) finish(op string, end func(*sql.Tx) error) (bool, error) {
	if c.depth == 0 {
		return false, nil
	}
	c.depth--
	c.logger.Debug("transaction "+op, "level", c.depth)
	if c.depth > 0 {
		return true, nil
	}
	tx := c.tx
	c.tx, c.txExec = nil, nil
	if err := end(tx); err != nil {
		return false, fmt.Errorf("client: %s: %w", op, err)
	}
	return true, nil
}

// Transaction runs fn inside a transaction level. An error or panic from fn
// rolls the level back, otherwise it is committed.
func (c *Connection) Transaction(ctx context.Context, fn func(*Connection) error) (err error) {
	if err := c.BeginTransaction(ctx); err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_, _ = c.RollBack()
			panic(p)
		}
	}()
	if err := fn(c); err != nil {
		if _, rbErr := c.RollBack(); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	_, err = c.Commit()
	return err
}
