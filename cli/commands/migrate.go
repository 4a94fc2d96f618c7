package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dbkit-go/dbkit/cli/internal/config"
	"github.com/dbkit-go/dbkit/cli/internal/ui"
	"github.com/dbkit-go/dbkit/cli/internal/watch"
	"github.com/dbkit-go/dbkit/migrate"
	"github.com/dbkit-go/dbkit/query/builder"
	"github.com/dbkit-go/dbkit/query/sqlgen"
)

func (a *app) migrateCommand() *cobra.Command {
	var step bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long: `Run, revert and inspect migrations.

Migration files live in the configured migrations path and are named
YYYY_MM_DD_HHMMSS_name.sql with a "-- +up" and an optional "-- +down"
section. Without a subcommand, pending migrations are applied.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runMigrate(cmd.Context(), step)
		},
	}
	cmd.Flags().BoolVar(&step, "step", false, "run each migration in its own batch")

	cmd.AddCommand(a.migrateUpCommand())
	cmd.AddCommand(a.migrateRollbackCommand())
	cmd.AddCommand(a.migrateResetCommand())
	cmd.AddCommand(a.migrateRefreshCommand())
	cmd.AddCommand(a.migrateFreshCommand())
	cmd.AddCommand(a.migrateStatusCommand())
	cmd.AddCommand(a.migrateInstallCommand())
	cmd.AddCommand(a.migrateMakeCommand())
	cmd.AddCommand(a.migrateWatchCommand())
	return cmd
}

func (a *app) migrateUpCommand() *cobra.Command {
	var step bool
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runMigrate(cmd.Context(), step)
		},
	}
	cmd.Flags().BoolVar(&step, "step", false, "run each migration in its own batch")
	return cmd
}

func (a *app) runMigrate(ctx context.Context, step bool) error {
	return a.withMigrator(ctx, func(m *migrate.Migrator) error {
		ran, err := m.Migrate(ctx, migrate.MigrateOptions{Step: step})
		printRan("Migrated", ran, "Nothing to migrate.", err)
		return err
	})
}

func (a *app) migrateRollbackCommand() *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Revert the last batch of migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withMigrator(ctx, func(m *migrate.Migrator) error {
				reverted, err := m.Rollback(ctx, steps)
				printRan("Rolled back", reverted, "Nothing to roll back.", err)
				return err
			})
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "number of batches to revert")
	return cmd
}

func (a *app) migrateResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Revert all migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.sure("Revert every migration?"); err != nil {
				return err
			}
			ctx := cmd.Context()
			return a.withMigrator(ctx, func(m *migrate.Migrator) error {
				reverted, err := m.Reset(ctx)
				printRan("Rolled back", reverted, "Nothing to roll back.", err)
				return err
			})
		},
	}
}

func (a *app) migrateRefreshCommand() *cobra.Command {
	var step, seed bool
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Revert all migrations and run them again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.sure("Revert and re-run every migration?"); err != nil {
				return err
			}
			ctx := cmd.Context()
			return a.withMigrator(ctx, func(m *migrate.Migrator) error {
				reverted, ran, err := m.Refresh(ctx, migrate.MigrateOptions{Step: step})
				printRan("Rolled back", reverted, "Nothing to roll back.", err)
				printRan("Migrated", ran, "Nothing to migrate.", err)
				if err != nil || !seed {
					return err
				}
				return a.sow(ctx, m, nil)
			})
		},
	}
	cmd.Flags().BoolVar(&step, "step", false, "run each migration in its own batch")
	cmd.Flags().BoolVar(&seed, "seed", false, "run all seeds afterwards")
	return cmd
}

func (a *app) migrateFreshCommand() *cobra.Command {
	var step, seed bool
	cmd := &cobra.Command{
		Use:   "fresh",
		Short: "Drop all tables and run every migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.sure("Drop every table in the database?"); err != nil {
				return err
			}
			ctx := cmd.Context()
			return a.withMigrator(ctx, func(m *migrate.Migrator) error {
				ran, err := m.Fresh(ctx, migrate.MigrateOptions{Step: step})
				printRan("Migrated", ran, "Nothing to migrate.", err)
				if err != nil || !seed {
					return err
				}
				return a.sow(ctx, m, nil)
			})
		},
	}
	cmd.Flags().BoolVar(&step, "step", false, "run each migration in its own batch")
	cmd.Flags().BoolVar(&seed, "seed", false, "run all seeds afterwards")
	return cmd
}

func (a *app) migrateStatusCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show which migrations have run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "table" && output != "yaml" {
				return fmt.Errorf("unknown output format %q, use table or yaml", output)
			}
			ctx := cmd.Context()
			return a.withMigrator(ctx, func(m *migrate.Migrator) error {
				status, err := m.Status(ctx)
				if err != nil {
					return err
				}
				if output == "yaml" {
					enc := yaml.NewEncoder(ui.Out)
					defer enc.Close()
					return enc.Encode(status)
				}
				return printStatus(status)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table or yaml")
	return cmd
}

func printStatus(status []migrate.Status) error {
	if len(status) == 0 {
		ui.PrintInfo("No migrations found.")
		return nil
	}
	rows := make([][]string, 0, len(status))
	for _, s := range status {
		state := ui.Badge(s.Ran, "Ran", "Pending")
		if s.Missing {
			state = ui.ErrorStyle.Render("Missing")
		}
		batch, at := "", ""
		if s.Ran {
			batch = strconv.Itoa(s.Batch)
		}
		if s.MigratedAt != nil && !s.MigratedAt.IsZero() {
			at = s.MigratedAt.Local().Format(time.DateTime)
		}
		rows = append(rows, []string{s.Name, state, batch, at})
	}
	return ui.PrintTable([]string{"Migration", "Status", "Batch", "Migrated At"}, rows)
}

func (a *app) migrateInstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Create the migrations table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withMigrator(ctx, func(m *migrate.Migrator) error {
				if err := m.Install(ctx); err != nil {
					return err
				}
				ui.PrintSuccess("Migrations table %q is ready.", a.cfg.Migrations.Table)
				return nil
			})
		},
	}
}

func (a *app) migrateMakeCommand() *cobra.Command {
	var table string
	cmd := &cobra.Command{
		Use:   "make NAME",
		Short: "Create a migration file",
		Example: `  dbkit migrate make add_email_index
  dbkit migrate make create_posts --table posts`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Files are created without connecting; the dialect only picks
			// the quoting of the generated table.
			var b *builder.Builder
			if table != "" {
				_, conn, err := a.cfg.Connection(a.connection)
				if err != nil {
					return err
				}
				compiler, err := sqlgen.NewCompiler(conn.Dialect)
				if err != nil {
					return err
				}
				b = builder.New(compiler, nil)
			}
			dir := migrate.NewDir(config.AppFs, a.cfg.Migrations.Path, a.cfg.Migrations.Seeds)
			path, err := dir.Create(b, args[0], table, time.Now())
			if err != nil {
				return err
			}
			ui.PrintSuccess("Created migration %s", path)
			return showFile(path)
		},
	}
	cmd.Flags().StringVarP(&table, "table", "t", "", "start with a CREATE TABLE for this table")
	return cmd
}

func (a *app) migrateWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Apply migrations whenever migration files change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.source(); err != nil {
				return err
			}
			ctx, stop := interruptible(cmd.Context())
			defer stop()

			w, err := watch.NewWatcher(a.cfg.Migrations.Path, func(ctx context.Context) error {
				err := a.runMigrate(ctx, false)
				if errors.Is(err, migrate.ErrLocked) {
					ui.PrintWarning("%v", err)
					return nil
				}
				return err
			}, func(err error) {
				ui.PrintError("%v", err)
			})
			if err != nil {
				return err
			}
			ui.PrintInfo("Watching %s, press Ctrl+C to stop.", a.cfg.Migrations.Path)
			return w.Run(ctx)
		},
	}
}

// printRan lists what ran. The "none" message is skipped after a failure.
func printRan(verb string, names []string, none string, err error) {
	if len(names) == 0 {
		if err == nil {
			ui.PrintInfo("%s", none)
		}
		return
	}
	ui.PrintSuccess("%s %d:", verb, len(names))
	ui.PrintList(names)
}

func showFile(path string) error {
	data, err := afero.ReadFile(config.AppFs, path)
	if err != nil {
		return err
	}
	return ui.PrintSQL(path, string(data))
}
