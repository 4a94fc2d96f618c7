// Package commands implements the dbkit command line.
package commands

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dbkit-go/dbkit/cli/internal/config"
	"github.com/dbkit-go/dbkit/cli/internal/ui"
	"github.com/dbkit-go/dbkit/cli/internal/version"
	"github.com/dbkit-go/dbkit/internal/debug"
	"github.com/dbkit-go/dbkit/migrate"
	"github.com/dbkit-go/dbkit/runtime/client"
)

// app is the state shared by all commands.
type app struct {
	cfgFile    string
	connection string
	debug      bool
	force      bool

	cfg *config.Config
	// open connects to a configured database.
	open func(client.Config, ...client.Option) (*client.Connection, error)
	// confirm asks before destructive commands.
	confirm func(message string) (bool, error)
}

// NewRootCommand builds the dbkit command tree.
func NewRootCommand() *cobra.Command {
	a := &app{open: client.Open, confirm: ui.Confirm}
	return a.rootCommand()
}

func (a *app) rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dbkit",
		Short: "SQL builder, migrations and seeds for MySQL and SQLite",
		Long: `dbkit manages MySQL and SQLite databases: it runs versioned SQL
migrations and seeds, and executes ad hoc statements.

Connections and paths are read from .dbkit.yaml, DBKIT_* environment
variables and .env files.`,
		Version:       version.Get().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default .dbkit.yaml)")
	flags.StringVarP(&a.connection, "connection", "c", "", "connection name (default from config)")
	flags.BoolVar(&a.debug, "debug", false, "log every statement to stderr")
	flags.BoolVarP(&a.force, "force", "f", false, "skip confirmation prompts")

	cmd.AddCommand(a.migrateCommand())
	cmd.AddCommand(a.dbCommand())
	cmd.AddCommand(a.seedCommand())
	cmd.AddCommand(a.versionCommand())
	cmd.AddCommand(a.initCommand())
	return cmd
}

func (a *app) load() error {
	cfg, err := config.Load(viper.New(), a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	debug.Init(a.debug || cfg.Debug)
	if cfg.File != "" {
		debug.Debug("config loaded", "file", cfg.File)
	}
	return nil
}

// Execute runs the CLI. A migration lock held by another run is reported
// and is not an error.
func Execute() error {
	return report(NewRootCommand().Execute())
}

func report(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, migrate.ErrLocked):
		ui.PrintWarning("%v", err)
		return nil
	case errors.Is(err, errAborted):
		ui.PrintInfo("Aborted.")
		return nil
	default:
		ui.PrintError("%v", err)
		return err
	}
}
