package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newDevCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dev",
		Short: "Build assets, then watch sources and serve the backend with live reload",
		Long: `Runs generate-assets once, then starts the backend server, a reload proxy
in front of it and a file watcher. Changed sources re-run the matching task
and connected browsers reload. Stop with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.Dev(cmd.Context(), options(cmd))
		},
	}
}
