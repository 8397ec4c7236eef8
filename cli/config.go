package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/goto/salt/cmdx"
	"github.com/goto/salt/config"
	"github.com/goto/sitesearch/core/registry"
	"github.com/goto/sitesearch/internal/server"
	esStore "github.com/goto/sitesearch/internal/store/elasticsearch"
	"github.com/goto/sitesearch/internal/workermanager"
	"github.com/goto/sitesearch/pkg/statsd"
	"github.com/goto/sitesearch/pkg/telemetry"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

const configFlag = "config"

type Config struct {
	LogLevel string `yaml:"log_level" mapstructure:"log_level" default:"info"`

	StatsD        statsd.Config        `yaml:"statsd" mapstructure:"statsd"`
	Telemetry     telemetry.Config     `yaml:"telemetry" mapstructure:"telemetry"`
	Elasticsearch esStore.Config       `yaml:"elasticsearch" mapstructure:"elasticsearch"`
	Schema        SchemaConfig         `yaml:"schema" mapstructure:"schema"`
	Registry      registry.Config      `yaml:"registry" mapstructure:"registry"`
	Worker        workermanager.Config `yaml:"worker" mapstructure:"worker"`
	Service       server.Config        `yaml:"service" mapstructure:"service"`
}

type SchemaConfig struct {
	ConfigPath string `yaml:"config_path" mapstructure:"config_path" default:"./config/schema"`
	// ContentIndices is a comma separated list of the aliases searched.
	ContentIndices string `yaml:"content_indices" mapstructure:"content_indices" default:"govuk,government"`
	// MetasearchIndex holds the best bets. Empty disables them.
	MetasearchIndex string `yaml:"metasearch_index" mapstructure:"metasearch_index" default:"metasearch"`
}

func (c SchemaConfig) Indices() []string {
	var indices []string
	for _, name := range strings.Split(c.ContentIndices, ",") {
		if name = strings.TrimSpace(name); name != "" {
			indices = append(indices, name)
		}
	}
	return indices
}

func configCommand(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config <command>",
		Short: "Manage server configuration",
		Example: heredoc.Doc(`
			$ sitesearch config init
			$ sitesearch config list`),
	}

	cmd.AddCommand(
		configInitCommand(),
		configListCommand(cfg),
	)
	return cmd
}

func configInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a new configuration file with the defaults",
		Example: heredoc.Doc(`
			$ sitesearch config init
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := cmdx.SetConfig("sitesearch")
			if err := cfg.Init(&Config{}); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "config created: %v\n", cfg.File())
			return nil
		},
	}
}

func configListCommand(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the effective configuration",
		Example: heredoc.Doc(`
			$ sitesearch config list
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return yaml.NewEncoder(cmd.OutOrStdout()).Encode(*cfg)
		},
	}
}

// LoadConfig reads the user config file, then ./sitesearch.yaml. Missing
// files leave the defaults in place.
func LoadConfig() (*Config, error) {
	var cfg Config
	err := cmdx.SetConfig("sitesearch").Load(&cfg)
	if err != nil {
		if errors.As(err, &config.ConfigFileNotFoundError{}) {
			return LoadFromCurrentDir()
		}
		return &cfg, err
	}
	return &cfg, nil
}

func LoadFromCurrentDir() (*Config, error) {
	var cfg Config
	err := config.NewLoader(
		config.WithPath("./"),
		config.WithName("sitesearch.yaml"),
		config.WithEnvKeyReplacer(".", "_"),
		config.WithEnvPrefix("SITESEARCH"),
	).Load(&cfg)
	if err != nil {
		if errors.As(err, &config.ConfigFileNotFoundError{}) {
			return &cfg, ErrConfigNotFound
		}
		return &cfg, err
	}
	return &cfg, nil
}

// LoadConfigFromFlag loads the file named by the --config flag over cfg.
func LoadConfigFromFlag(cfgFile string, cfg *Config) error {
	return config.NewLoader(
		config.WithFile(cfgFile),
		config.WithEnvKeyReplacer(".", "_"),
		config.WithEnvPrefix("SITESEARCH"),
	).Load(cfg)
}
