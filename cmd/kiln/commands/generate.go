package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newGenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "generate-assets",
		Aliases: []string{"build"},
		Short:   "Compile, bundle and minify all static assets once",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.GenerateAssets(cmd.Context(), options(cmd))
		},
	}
}
