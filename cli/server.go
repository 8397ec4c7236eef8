package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/goto/salt/log"
	"github.com/goto/sitesearch/core/registry"
	"github.com/goto/sitesearch/core/schema"
	"github.com/goto/sitesearch/core/searcher"
	"github.com/goto/sitesearch/internal/server"
	esStore "github.com/goto/sitesearch/internal/store/elasticsearch"
	"github.com/goto/sitesearch/internal/workermanager"
	"github.com/goto/sitesearch/pkg/statsd"
	"github.com/goto/sitesearch/pkg/telemetry"
	"github.com/spf13/cobra"
)

func serverCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "server <command>",
		Aliases: []string{"s"},
		Short:   "Run sitesearch server",
		Long:    "Server management commands.",
		Example: heredoc.Doc(`
			$ sitesearch server start
			$ sitesearch server start -c ./config.yaml
			$ sitesearch server migrate
			$ sitesearch server migrate -c ./config.yaml
		`),
	}

	cmd.AddCommand(
		serverStartCommand(cfg),
		serverMigrateCommand(cfg),
	)

	return cmd
}

func serverStartCommand(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:     "start",
		Short:   "Start server on default port 8080",
		Example: "sitesearch server start",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runServer(cmd.Context(), cfg); err != nil {
				return fmt.Errorf("run server: %w", err)
			}
			return nil
		},
	}
}

func serverMigrateCommand(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the search indices or add missing fields to them",
		Example: heredoc.Doc(`
			$ sitesearch server migrate
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), cfg)
		},
	}
}

func runServer(ctx context.Context, cfg *Config) error {
	logger := initLogger(cfg.LogLevel)
	logger.Info("sitesearch starting", "version", Version)

	cfg.Telemetry.AppVersion = Version
	nrApp, cleanUpTelemetry, err := telemetry.Init(ctx, cfg.Telemetry, logger)
	if err != nil {
		return err
	}
	defer cleanUpTelemetry()

	statsdReporter, err := statsd.Init(logger, cfg.StatsD)
	if err != nil {
		return err
	}
	defer statsdReporter.Close()

	esClient, err := initElasticsearch(logger, cfg.Elasticsearch, esStore.WithStatsD(statsdReporter))
	if err != nil {
		return err
	}

	schemaCfg, err := schema.Load(cfg.Schema.ConfigPath)
	if err != nil {
		return fmt.Errorf("load schema from %q: %w", cfg.Schema.ConfigPath, err)
	}

	registries := registry.New(
		esStore.NewRegistrySource(esClient),
		cfg.Registry,
		registry.WithLogger(logger),
	)

	engine := esStore.NewSearchEngine(esClient)
	var bestBets searcher.BestBetsFinder
	if cfg.Schema.MetasearchIndex != "" {
		bestBets = searcher.NewBestBetsChecker(engine, esClient, cfg.Schema.MetasearchIndex, statsdReporter)
	}

	svc, err := searcher.NewService(searcher.ServiceDeps{
		Engine:     engine,
		Schema:     schemaCfg,
		Registries: registries,
		Indices:    cfg.Schema.Indices(),
		BestBets:   bestBets,
		Logger:     logger,
		StatsD:     statsdReporter,
	})
	if err != nil {
		return fmt.Errorf("create search service: %w", err)
	}

	deps := server.Deps{
		Search:     svc,
		Health:     esClient,
		Registries: registries,
		Logger:     logger,
		NewRelic:   nrApp,
		StatsD:     statsdReporter,
	}

	if cfg.Worker.Enabled {
		mgr, err := workermanager.New(workermanager.Deps{
			Config:     cfg.Worker,
			Registries: registries,
			Logger:     logger,
		})
		if err != nil {
			return err
		}
		deps.Jobs = mgr.DeadJobsHandler()

		go func() {
			if err := mgr.Run(ctx); err != nil {
				logger.Error("registry worker stopped", "err", err)
			}
		}()
	}

	return server.Serve(ctx, cfg.Service, logger, server.NewHandler(deps))
}

func initLogger(logLevel string) *log.Logrus {
	return log.NewLogrus(
		log.LogrusWithLevel(logLevel),
		log.LogrusWithWriter(os.Stdout),
	)
}

func initElasticsearch(logger log.Logger, cfg esStore.Config, opts ...esStore.ClientOption) (*esStore.Client, error) {
	esClient, err := esStore.NewClient(logger, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("create new elasticsearch client: %w", err)
	}
	got, err := esClient.Init()
	if err != nil {
		return nil, fmt.Errorf("establish connection to elasticsearch: %w", err)
	}
	logger.Info("connected to elasticsearch", "info", got)
	return esClient, nil
}

func runMigrations(ctx context.Context, cfg *Config) error {
	logger := initLogger(cfg.LogLevel)
	logger.Info("sitesearch is migrating", "version", Version)

	schemaCfg, err := schema.Load(cfg.Schema.ConfigPath)
	if err != nil {
		return fmt.Errorf("load schema from %q: %w", cfg.Schema.ConfigPath, err)
	}

	esClient, err := initElasticsearch(logger, cfg.Elasticsearch)
	if err != nil {
		return err
	}

	aliases := make([]string, 0, len(schemaCfg.IndexSchemas))
	for alias := range schemaCfg.IndexSchemas {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)

	for _, alias := range aliases {
		res, err := esClient.Migrate(ctx, schemaCfg, alias, time.Now())
		if err != nil {
			return fmt.Errorf("migrate %q: %w", alias, err)
		}
		logger.Info("migrated index",
			"alias", res.Alias,
			"index", res.Index,
			"created", res.Created,
			"added_fields", res.AddedFields,
		)
		if len(res.ChangedFields) > 0 {
			logger.Warn("fields differ from the schema and need a reindex",
				"alias", res.Alias, "fields", res.ChangedFields)
		}
	}
	return nil
}
