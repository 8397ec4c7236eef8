package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/goto/sitesearch/core/schema"
	"github.com/goto/sitesearch/core/searcher"
	"github.com/spf13/cobra"
)

func searchCommand(cfg *Config) *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "search [query-string]",
		Short: "Print the elasticsearch payload built for a search request",
		Long: heredoc.Doc(`
			Parse search.json parameters and print the elasticsearch payload
			that would be sent for them. Elasticsearch is not contacted.
		`),
		Example: heredoc.Doc(`
			$ sitesearch search 'q=tax&count=5'
			$ sitesearch search --params 'filter_organisations=hm-revenue-customs&aggregate_format=10'
		`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				query = args[0]
			}
			return previewPayload(cmd.OutOrStdout(), cfg, query)
		},
	}

	cmd.Flags().StringVarP(&query, "params", "p", "", "URL encoded search parameters")
	return cmd
}

func previewPayload(w io.Writer, cfg *Config, query string) error {
	values, err := url.ParseQuery(strings.TrimPrefix(query, "?"))
	if err != nil {
		return fmt.Errorf("parse query %q: %w", query, err)
	}

	schemaCfg, err := schema.Load(cfg.Schema.ConfigPath)
	if err != nil {
		return fmt.Errorf("load schema from %q: %w", cfg.Schema.ConfigPath, err)
	}
	svc, err := searcher.NewService(searcher.ServiceDeps{
		Schema:  schemaCfg,
		Indices: cfg.Schema.Indices(),
	})
	if err != nil {
		return err
	}

	payload, err := svc.Payload(values)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
