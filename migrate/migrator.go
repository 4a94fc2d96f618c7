package migrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/afero"

	"github.com/dbkit-go/dbkit/migrate/history"
	"github.com/dbkit-go/dbkit/migrate/introspect"
	"github.com/dbkit-go/dbkit/runtime/client"
)

// ErrUnknownMigration is returned when the history names a migration the
// source does not provide.
var ErrUnknownMigration = errors.New("migrate: unknown migration")

// ErrUnknownSeed is returned for seed names the source does not provide.
var ErrUnknownSeed = errors.New("migrate: unknown seed")

// Migrator applies and reverts migrations from a Source.
type Migrator struct {
	conn    *client.Connection
	source  Source
	history *history.Repository
	logger  *slog.Logger

	lockFs   afero.Fs
	lockPath string
}

// Option configures a Migrator.
type Option func(*Migrator)

// WithTable overrides the history table name.
func WithTable(name string) Option {
	return func(m *Migrator) { m.history = history.NewRepository(m.conn, name) }
}

// WithLock guards every run with a lock file at path.
func WithLock(fs afero.Fs, path string) Option {
	return func(m *Migrator) { m.lockFs, m.lockPath = fs, path }
}

// WithLogger sets the logger progress is reported to.
func WithLogger(l *slog.Logger) Option {
	return func(m *Migrator) { m.logger = l }
}

// New creates a migrator running source on conn.
func New(conn *client.Connection, source Source, opts ...Option) *Migrator {
	m := &Migrator{
		conn:    conn,
		source:  source,
		history: history.NewRepository(conn, ""),
		logger:  conn.Logger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MigrateOptions tunes Migrate.
type MigrateOptions struct {
	// Step puts every migration in its own batch so each can be rolled
	// back separately.
	Step bool
}

// Status describes one migration.
type Status struct {
	Name       string     `yaml:"name" json:"name"`
	Ran        bool       `yaml:"ran" json:"ran"`
	Batch      int        `yaml:"batch,omitempty" json:"batch,omitempty"`
	MigratedAt *time.Time `yaml:"migrated_at,omitempty" json:"migrated_at,omitempty"`
	// Missing marks history records without a matching migration.
	Missing bool `yaml:"missing,omitempty" json:"missing,omitempty"`
}

// Install creates the history table.
func (m *Migrator) Install(ctx context.Context) error {
	return m.history.Install(ctx)
}

// Migrate runs every pending migration in a new batch and returns their
// names in order.
func (m *Migrator) Migrate(ctx context.Context, opts MigrateOptions) ([]string, error) {
	units, err := m.source.Migrations()
	if err != nil {
		return nil, err
	}
	var ran []string
	err = m.locked(func() error {
		records, err := m.prepare(ctx)
		if err != nil {
			return err
		}
		applied := make(map[string]bool, len(records))
		for _, rec := range records {
			applied[rec.FileName] = true
		}
		batch := history.NextBatch(records)
		for _, u := range units {
			if applied[u.Name] {
				continue
			}
			if err := m.run(ctx, "migrate", u.Name, func(conn *client.Connection) error {
				if err := u.Unit.Up(ctx, conn); err != nil {
					return err
				}
				return m.history.Log(ctx, u.Name, batch)
			}); err != nil {
				return err
			}
			ran = append(ran, u.Name)
			if opts.Step {
				batch++
			}
		}
		return nil
	})
	return ran, err
}

// Rollback reverts the last steps batches, at least one, newest migration
// first.
func (m *Migrator) Rollback(ctx context.Context, steps int) ([]string, error) {
	if steps < 1 {
		steps = 1
	}
	return m.revert(ctx, func(records []history.Record) []history.Record {
		return history.LastBatches(records, steps)
	})
}

// Reset reverts every applied migration.
func (m *Migrator) Reset(ctx context.Context) ([]string, error) {
	return m.revert(ctx, func(records []history.Record) []history.Record {
		return history.LastBatches(records, len(records))
	})
}

// Refresh resets and then migrates again.
func (m *Migrator) Refresh(ctx context.Context, opts MigrateOptions) (reverted, migrated []string, err error) {
	if reverted, err = m.Reset(ctx); err != nil {
		return reverted, nil, err
	}
	migrated, err = m.Migrate(ctx, opts)
	return reverted, migrated, err
}

// Fresh drops every table, history included, and migrates from scratch.
// Down migrations are not run.
func (m *Migrator) Fresh(ctx context.Context, opts MigrateOptions) ([]string, error) {
	if _, err := m.source.Migrations(); err != nil {
		return nil, err
	}
	err := m.locked(func() error {
		tables, err := introspect.Tables(ctx, m.conn)
		if err != nil {
			return err
		}
		if len(tables) == 0 {
			return nil
		}
		m.logger.InfoContext(ctx, "dropping tables", "tables", tables)
		_, err = m.conn.DropTable(tables...).IfExists().Execute(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return m.Migrate(ctx, opts)
}

func (m *Migrator) revert(ctx context.Context, pick func([]history.Record) []history.Record) ([]string, error) {
	units, err := m.source.Migrations()
	if err != nil {
		return nil, err
	}
	byName := make(map[string]Migration, len(units))
	for _, u := range units {
		byName[u.Name] = u.Unit
	}
	var reverted []string
	err = m.locked(func() error {
		records, err := m.prepare(ctx)
		if err != nil {
			return err
		}
		for _, rec := range pick(records) {
			mig, ok := byName[rec.FileName]
			if !ok {
				return fmt.Errorf("%w: %s", ErrUnknownMigration, rec.FileName)
			}
			if err := m.run(ctx, "rollback", rec.FileName, func(conn *client.Connection) error {
				if err := mig.Down(ctx, conn); err != nil {
					return err
				}
				return m.history.Delete(ctx, rec.FileName)
			}); err != nil {
				return err
			}
			reverted = append(reverted, rec.FileName)
		}
		return nil
	})
	return reverted, err
}

// Status reports every migration of the source and any recorded migration
// the source no longer has.
func (m *Migrator) Status(ctx context.Context) ([]Status, error) {
	units, err := m.source.Migrations()
	if err != nil {
		return nil, err
	}
	records, err := m.prepare(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]history.Record, len(records))
	for _, rec := range records {
		byName[rec.FileName] = rec
	}
	out := make([]Status, 0, len(units))
	for _, u := range units {
		st := Status{Name: u.Name}
		if rec, ok := byName[u.Name]; ok {
			at := rec.MigratedAt
			st.Ran, st.Batch, st.MigratedAt = true, rec.Batch, &at
			delete(byName, u.Name)
		}
		out = append(out, st)
	}
	for _, rec := range records {
		if _, orphan := byName[rec.FileName]; orphan {
			at := rec.MigratedAt
			out = append(out, Status{Name: rec.FileName, Ran: true, Batch: rec.Batch, MigratedAt: &at, Missing: true})
		}
	}
	return out, nil
}

// Seed runs the named seeds, or all of them when names is empty.
func (m *Migrator) Seed(ctx context.Context, names ...string) ([]string, error) {
	units, err := m.source.Seeds()
	if err != nil {
		return nil, err
	}
	if len(names) > 0 {
		byName := make(map[string]Unit[Seed], len(units))
		for _, u := range units {
			byName[u.Name] = u
		}
		units = units[:0:0]
		for _, n := range names {
			u, ok := byName[n]
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnknownSeed, n)
			}
			units = append(units, u)
		}
	}
	var sown []string
	err = m.locked(func() error {
		for _, u := range units {
			if err := m.run(ctx, "seed", u.Name, func(conn *client.Connection) error {
				return u.Unit.Sow(ctx, conn)
			}); err != nil {
				return err
			}
			sown = append(sown, u.Name)
		}
		return nil
	})
	return sown, err
}

// prepare installs the history table and reads it.
func (m *Migrator) prepare(ctx context.Context) ([]history.Record, error) {
	if err := m.history.Install(ctx); err != nil {
		return nil, err
	}
	return m.history.Applied(ctx)
}

// run executes fn in a transaction and logs the outcome.
func (m *Migrator) run(ctx context.Context, op, name string, fn func(*client.Connection) error) error {
	start := time.Now()
	if err := m.conn.Transaction(ctx, fn); err != nil {
		m.logger.ErrorContext(ctx, op+" failed", "name", name, "error", err)
		return fmt.Errorf("%s %s: %w", op, name, err)
	}
	m.logger.InfoContext(ctx, op, "name", name, "duration", time.Since(start))
	return nil
}

func (m *Migrator) locked(fn func() error) error {
	if m.lockFs == nil {
		return fn()
	}
	lock, err := AcquireLock(m.lockFs, m.lockPath)
	if err != nil {
		return err
	}
	return errors.Join(fn(), lock.Release())
}
