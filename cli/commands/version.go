package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbkit-go/dbkit/cli/internal/ui"
	"github.com/dbkit-go/dbkit/cli/internal/version"
)

func (a *app) versionCommand() *cobra.Command {
	var server bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print version information. With --server, also connect to the
database and report which statements its version supports.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(ui.Out, version.Get().FullString())
			if !server {
				return nil
			}
			ctx := cmd.Context()
			conn, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()
			v, err := conn.ServerVersion(ctx)
			if err != nil {
				return err
			}
			s, err := version.CheckServer(conn.Dialect(), v)
			if err != nil {
				return err
			}
			fmt.Fprintf(ui.Out, "Server: %s %s\n", s.Dialect, s.Version)
			if !s.Supported {
				ui.PrintWarning("%s %s is older than dbkit supports.", s.Dialect, s.Version)
			}
			for _, f := range s.Unavailable {
				ui.PrintWarning("Not available on this server: %s", f)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&server, "server", false, "also report the database server version")
	return cmd
}
