package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/dbkit-go/dbkit/cli/internal/config"
	"github.com/dbkit-go/dbkit/internal/debug"
	"github.com/dbkit-go/dbkit/migrate"
	"github.com/dbkit-go/dbkit/runtime/client"
)

// errAborted is returned when a confirmation is declined.
var errAborted = errors.New("aborted")

// connect opens the selected connection.
func (a *app) connect(ctx context.Context) (*client.Connection, error) {
	name, cfg, err := a.cfg.Connection(a.connection)
	if err != nil {
		return nil, err
	}
	conn, err := a.open(cfg, client.WithLogger(debug.Logger()))
	if err != nil {
		if errors.Is(err, client.ErrUnsupportedDialect) {
			return nil, fmt.Errorf("connection %q: dialect %q is not supported, use mysql or sqlite", name, cfg.Dialect)
		}
		return nil, fmt.Errorf("connection %q: %w", name, err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connection %q: %w", name, err)
	}
	return conn, nil
}

// source returns the migrations directory, failing when a configured path
// is missing.
func (a *app) source() (*migrate.Dir, error) {
	dir := migrate.NewDir(config.AppFs, a.cfg.Migrations.Path, a.cfg.Migrations.Seeds)
	if err := dir.Check(); err != nil {
		return nil, err
	}
	return dir, nil
}

// withMigrator checks the paths, connects and runs fn. Paths are checked
// before connecting.
func (a *app) withMigrator(ctx context.Context, fn func(*migrate.Migrator) error) error {
	src, err := a.source()
	if err != nil {
		return err
	}
	conn, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	opts := []migrate.Option{migrate.WithTable(a.cfg.Migrations.Table)}
	if a.cfg.Migrations.LockFile != "" {
		opts = append(opts, migrate.WithLock(config.AppFs, a.cfg.Migrations.LockFile))
	}
	return fn(migrate.New(conn, src, opts...))
}

// sure asks for confirmation unless --force was given.
func (a *app) sure(message string) error {
	if a.force {
		return nil
	}
	ok, err := a.confirm(message)
	if err != nil {
		return err
	}
	if !ok {
		return errAborted
	}
	return nil
}

func interruptible(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt)
}
