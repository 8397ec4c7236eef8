package cli

import (
	"fmt"

	"github.com/MakeNowJust/heredoc"
	"github.com/goto/salt/cmdx"
	"github.com/spf13/cobra"
)

func New(cfg *Config) *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:           "sitesearch <command> <subcommand> [flags]",
		Short:         "Site search API",
		Long:          "Search API for the content of a website, backed by Elasticsearch.",
		SilenceErrors: true,
		SilenceUsage:  false,
		Example: heredoc.Doc(`
			$ sitesearch server start
			$ sitesearch server migrate
			$ sitesearch search 'q=tax&filter_format=guide'
			$ sitesearch documents load govuk ./fixtures/govuk.jsonl
		`),
		Annotations: map[string]string{
			"group": "core",
			"help:learn": heredoc.Doc(`
				Use 'sitesearch <command> --help' for info about a command.
			`),
			"help:environment": envHelp,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, err := cmd.Flags().GetString(configFlag)
			if err != nil || cfgFile == "" {
				return nil
			}
			if err := LoadConfigFromFlag(cfgFile, cfg); err != nil {
				return fmt.Errorf("load config %q: %w", cfgFile, err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(
		serverCmd(cfg),
		configCommand(cfg),
		searchCommand(cfg),
		documentsCommand(cfg),
		versionCmd(),
	)

	rootCmd.AddCommand(cmdx.SetCompletionCmd("sitesearch"))
	cmdx.SetHelp(rootCmd)

	rootCmd.PersistentFlags().StringP(configFlag, "c", "", "Override config file")
	return rootCmd
}
