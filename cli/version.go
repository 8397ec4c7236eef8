package cli

import (
	"fmt"

	"github.com/goto/salt/term"
	"github.com/spf13/cobra"
)

// Version of the current build, set by the build system.
var Version string

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Aliases: []string{"v"},
		Short:   "Print version information",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if Version == "" {
				fmt.Fprintln(cmd.OutOrStdout(), term.Yellow("Version information not available"))
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "sitesearch version %s\n", Version)
			return nil
		},
	}
}
