package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/dbkit-go/dbkit/cli/internal/config"
	"github.com/dbkit-go/dbkit/cli/internal/ui"
	"github.com/dbkit-go/dbkit/internal/debug"
	"github.com/dbkit-go/dbkit/migrate"
	"github.com/dbkit-go/dbkit/query/sqlgen"
	"github.com/dbkit-go/dbkit/runtime/client"
)

func (a *app) dbCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the database itself",
		Long: `Create, drop and ping the configured database, run seeds and
execute raw SQL.`,
	}
	cmd.AddCommand(a.dbCreateCommand())
	cmd.AddCommand(a.dbDropCommand())
	cmd.AddCommand(a.dbPingCommand())
	cmd.AddCommand(a.dbSeedCommand())
	cmd.AddCommand(a.dbQueryCommand())
	return cmd
}

func (a *app) dbCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create the configured database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.manageDatabase(cmd.Context(), true)
		},
	}
}

func (a *app) dbDropCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "drop",
		Short: "Drop the configured database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.sure("Drop the database and all its data?"); err != nil {
				return err
			}
			return a.manageDatabase(cmd.Context(), false)
		},
	}
}

// manageDatabase creates or drops the database named in the DSN. MySQL
// does it through the server; a SQLite database is its file.
func (a *app) manageDatabase(ctx context.Context, create bool) error {
	name, cfg, err := a.cfg.Connection(a.connection)
	if err != nil {
		return err
	}
	switch sqlgen.NormalizeDialect(cfg.Dialect) {
	case sqlgen.SQLiteDialect:
		return a.manageSQLite(ctx, cfg, create)
	case sqlgen.MySQLDialect:
		return a.manageMySQL(ctx, cfg, create)
	default:
		return fmt.Errorf("connection %q: dialect %q is not supported, use mysql or sqlite", name, cfg.Dialect)
	}
}

func (a *app) manageMySQL(ctx context.Context, cfg client.Config, create bool) error {
	dsn, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return fmt.Errorf("invalid DSN: %w", err)
	}
	database := dsn.DBName
	if database == "" {
		return fmt.Errorf("the DSN names no database")
	}
	// Connect to the server without selecting the database.
	dsn.DBName = ""
	cfg.DSN = dsn.FormatDSN()
	conn, err := a.open(cfg, client.WithLogger(debug.Logger()))
	if err != nil {
		return err
	}
	defer conn.Close()

	if create {
		if _, err := conn.CreateDatabase(database).IfNotExists().Execute(ctx); err != nil {
			return err
		}
		ui.PrintSuccess("Database %s created.", database)
		return nil
	}
	if _, err := conn.DropDatabase(database).IfExists().Execute(ctx); err != nil {
		return err
	}
	ui.PrintSuccess("Database %s dropped.", database)
	return nil
}

func (a *app) manageSQLite(ctx context.Context, cfg client.Config, create bool) error {
	path := sqliteFile(cfg.DSN)
	if path == "" {
		return fmt.Errorf("in-memory SQLite databases cannot be created or dropped")
	}
	if create {
		// Opening the file creates it.
		conn, err := a.open(cfg, client.WithLogger(debug.Logger()))
		if err != nil {
			return err
		}
		defer conn.Close()
		if err := conn.Ping(ctx); err != nil {
			return err
		}
		ui.PrintSuccess("Database %s created.", path)
		return nil
	}
	ok, err := afero.Exists(config.AppFs, path)
	if err != nil {
		return err
	}
	if !ok {
		ui.PrintInfo("Database %s does not exist.", path)
		return nil
	}
	if err := config.AppFs.Remove(path); err != nil {
		return err
	}
	ui.PrintSuccess("Database %s dropped.", path)
	return nil
}

// sqliteFile returns the file of a SQLite DSN, empty for memory databases.
func sqliteFile(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		if strings.Contains(path[i:], "mode=memory") {
			return ""
		}
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return ""
	}
	return path
}

func (a *app) dbPingCommand() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check that the database is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if all {
				return a.pingAll(ctx)
			}
			conn, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()
			v, err := conn.ServerVersion(ctx)
			if err != nil {
				return err
			}
			ui.PrintSuccess("Connected to %s %s.", conn.Dialect(), v)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "ping every configured connection")
	return cmd
}

func (a *app) pingAll(ctx context.Context) error {
	pool := client.NewPool()
	pool.SetDefault(a.cfg.Default)
	defer pool.Close()
	for _, name := range a.cfg.Names() {
		conn, err := a.open(a.cfg.Connections[name], client.WithLogger(debug.Logger()))
		if err != nil {
			return fmt.Errorf("connection %q: %w", name, err)
		}
		pool.Set(name, conn)
	}
	if err := pool.Ping(ctx); err != nil {
		return err
	}
	ui.PrintSuccess("All connections reachable:")
	ui.PrintList(pool.Names())
	return nil
}

func (a *app) dbQueryCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "query [SQL]",
		Short: "Execute raw SQL",
		Long: `Execute SQL against the database. Statements returning rows are
printed as a table; others report the affected rows. With --file every
statement of the file runs in one transaction.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var stmts []string
			switch {
			case file != "" && len(args) == 0:
				data, err := afero.ReadFile(config.AppFs, file)
				if err != nil {
					return err
				}
				stmts = migrate.SplitStatements(string(data))
			case file == "" && len(args) == 1:
				stmts = []string{args[0]}
			default:
				return fmt.Errorf("pass either a statement or --file")
			}
			ctx := cmd.Context()
			conn, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()
			return conn.Transaction(ctx, func(conn *client.Connection) error {
				for _, s := range stmts {
					if err := runStatement(ctx, conn, s); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "read statements from a SQL file")
	return cmd
}

var rowKeywords = map[string]bool{
	"SELECT": true, "SHOW": true, "PRAGMA": true, "WITH": true,
	"EXPLAIN": true, "DESCRIBE": true, "DESC": true, "VALUES": true,
}

func returnsRows(stmt string) bool {
	fields := strings.Fields(stmt)
	return len(fields) > 0 && rowKeywords[strings.ToUpper(strings.TrimLeft(fields[0], "("))]
}

func runStatement(ctx context.Context, conn *client.Connection, stmt string) error {
	if !returnsRows(stmt) {
		res, err := conn.Exec(ctx, stmt)
		if err != nil {
			return err
		}
		ui.PrintSuccess("%d row(s) affected.", res.RowsAffected)
		return nil
	}
	rows, err := conn.Query(ctx, stmt)
	if err != nil {
		return err
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	var table [][]string
	for rows.Next() {
		m, err := rows.ScanMap()
		if err != nil {
			return err
		}
		line := make([]string, len(cols))
		for i, c := range cols {
			line[i] = cell(m[c])
		}
		table = append(table, line)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(table) == 0 {
		ui.PrintInfo("No rows.")
		return nil
	}
	return ui.PrintTable(cols, table)
}

func cell(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}
