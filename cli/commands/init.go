package commands

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dbkit-go/dbkit/cli/internal/config"
	"github.com/dbkit-go/dbkit/cli/internal/ui"
	"github.com/dbkit-go/dbkit/runtime/client"
)

func (a *app) initCommand() *cobra.Command {
	var dialect, dsn string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a .dbkit.yaml and the migration directories",
		Args:  cobra.NoArgs,
		// The config file is written here, not read.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			cfg.Connections[client.DefaultName] = client.Config{Dialect: dialect, DSN: dsn}
			path := a.cfgFile
			if path == "" {
				path = config.FileName
			}
			if err := config.Save(cfg, path); err != nil {
				return err
			}
			for _, dir := range []string{cfg.Migrations.Path, cfg.Migrations.Seeds} {
				if err := config.AppFs.MkdirAll(filepath.FromSlash(dir), 0o755); err != nil {
					return err
				}
			}
			ui.PrintHeader("dbkit initialized", "Connection "+client.DefaultName+": "+dialect)
			ui.PrintList([]string{
				path,
				cfg.Migrations.Path,
				cfg.Migrations.Seeds,
			})
			ui.PrintInfo("Create a migration with: dbkit migrate make create_users --table users")
			return nil
		},
	}
	cmd.Flags().StringVar(&dialect, "dialect", "sqlite", "database dialect: mysql or sqlite")
	cmd.Flags().StringVar(&dsn, "dsn", "dbkit.db", "data source name")
	return cmd
}
