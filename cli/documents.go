package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/MakeNowJust/heredoc"
	esStore "github.com/goto/sitesearch/internal/store/elasticsearch"
	"github.com/spf13/cobra"
)

const (
	loadBatchSize = 500
	maxLineSize   = 8 << 20
)

type documentUpserter interface {
	Upsert(ctx context.Context, index string, docs []map[string]interface{}) error
}

func documentsCommand(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "documents <command>",
		Short: "Manage indexed documents",
		Example: heredoc.Doc(`
			$ sitesearch documents load govuk ./govuk.jsonl
		`),
	}
	cmd.AddCommand(documentsLoadCommand(cfg))
	return cmd
}

func documentsLoadCommand(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "load <index> <file>",
		Short: "Index the documents of a JSON lines file",
		Long: heredoc.Doc(`
			Index one JSON document per line into the given index or alias.
			A document is identified by its "_id", or else by its "link".
			Use "-" to read from standard input.
		`),
		Example: heredoc.Doc(`
			$ sitesearch documents load government ./organisations.jsonl
			$ cat people.jsonl | sitesearch documents load govuk -
		`),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, path := args[0], args[1]

			var r io.Reader = cmd.InOrStdin()
			if path != "-" {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			logger := initLogger(cfg.LogLevel)
			esClient, err := initElasticsearch(logger, cfg.Elasticsearch)
			if err != nil {
				return err
			}

			n, err := loadDocuments(cmd.Context(), esStore.NewDocumentWriter(esClient), index, r)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d documents into %s\n", n, index)
			return nil
		},
	}
}

// loadDocuments upserts the JSON lines read from r in batches. Blank lines
// are skipped.
func loadDocuments(ctx context.Context, w documentUpserter, index string, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var (
		batch []map[string]interface{}
		total int
		line  int
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := w.Upsert(ctx, index, batch); err != nil {
			return fmt.Errorf("index documents before line %d: %w", line, err)
		}
		total += len(batch)
		batch = nil
		return nil
	}

	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}

		var doc map[string]interface{}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return total, fmt.Errorf("line %d: %w", line, err)
		}
		batch = append(batch, doc)
		if len(batch) == loadBatchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return total, err
	}
	return total, flush()
}
