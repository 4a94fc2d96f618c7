package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dbkit-go/dbkit/cli/internal/config"
	"github.com/dbkit-go/dbkit/cli/internal/ui"
	"github.com/dbkit-go/dbkit/migrate"
)

func (a *app) dbSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed [NAME...]",
		Short: "Run seeds",
		Long:  "Run the named seeds from the seeds path, or all of them in name order.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withMigrator(ctx, func(m *migrate.Migrator) error {
				return a.sow(ctx, m, args)
			})
		},
	}
}

func (a *app) sow(ctx context.Context, m *migrate.Migrator, names []string) error {
	sown, err := m.Seed(ctx, names...)
	printRan("Seeded", sown, "No seeds found.", err)
	return err
}

func (a *app) seedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Manage seed files",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "make NAME",
		Short: "Create a seed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := migrate.NewDir(config.AppFs, a.cfg.Migrations.Path, a.cfg.Migrations.Seeds)
			path, err := dir.CreateSeed(args[0])
			if err != nil {
				return err
			}
			ui.PrintSuccess("Created seed %s", path)
			return nil
		},
	})
	return cmd
}
