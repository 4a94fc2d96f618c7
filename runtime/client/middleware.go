package client

import (
	"context"
	"log/slog"
	"time"

	"github.com/dbkit-go/dbkit/query/sqlgen"
	"github.com/dbkit-go/dbkit/query/statement"
)

// QueryEvent describes one statement passing through the middleware chain.
type QueryEvent struct {
	SQL      string
	Args     []interface{}
	Kind     statement.Kind
	Duration time.Duration
	Error    error
	Start    time.Time
	End      time.Time
}

// Middleware intercepts statements. It must call next to run the statement.
type Middleware func(ctx context.Context, event *QueryEvent, next func() error) error

// intercept runs exec through the middleware chain
func (c *Connection) intercept(ctx context.Context, q *sqlgen.Query, exec func() error) error {
	if len(c.middlewares) == 0 {
		return exec()
	}

	event := &QueryEvent{
		SQL:   q.SQL,
		Args:  q.Args,
		Kind:  q.Kind,
		Start: time.Now(),
	}

	var next func() error
	index := 0

	next = func() error {
		if index >= len(c.middlewares) {
			err := exec()
			event.End = time.Now()
			event.Duration = event.End.Sub(event.Start)
			event.Error = err
			return err
		}

		m := c.middlewares[index]
		index++
		return m(ctx, event, next)
	}

	return next()
}

// LoggingMiddleware logs every statement at info level.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(ctx context.Context, event *QueryEvent, next func() error) error {
		err := next()
		if err != nil {
			logger.ErrorContext(ctx, "statement failed", "sql", event.SQL, "error", err)
		} else {
			logger.InfoContext(ctx, "statement", "sql", event.SQL, "duration", event.Duration)
		}
		return err
	}
}

// TimingMiddleware reports the duration of every statement.
func TimingMiddleware(onTiming func(sql string, duration time.Duration)) Middleware {
	return func(ctx context.Context, event *QueryEvent, next func() error) error {
		err := next()
		if onTiming != nil {
			onTiming(event.SQL, event.Duration)
		}
		return err
	}
}

// ErrorMiddleware reports failed statements.
func ErrorMiddleware(onError func(sql string, err error)) Middleware {
	return func(ctx context.Context, event *QueryEvent, next func() error) error {
		err := next()
		if err != nil && onError != nil {
			onError(event.SQL, err)
		}
		return err
	}
}
