package cli

import (
	"errors"

	"github.com/MakeNowJust/heredoc"
)

var ErrConfigNotFound = errors.New(heredoc.Doc(`
	Config file not found. Loading from defaults...

	Run "sitesearch config init" to initialize a new configuration file
	Run "sitesearch --help" for the supported environment variables.

	Alternatively, make a "sitesearch.yaml" file in the current directory
`))

var envHelp = heredoc.Doc(`
	Every config key can be set through an environment variable prefixed
	with SITESEARCH_, with dots replaced by underscores, e.g.
	SITESEARCH_ELASTICSEARCH_BROKERS or SITESEARCH_SCHEMA_CONFIG_PATH.
`)
