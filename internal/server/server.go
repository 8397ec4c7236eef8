package server

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"
	"github.com/goto/salt/log"
	"github.com/goto/sitesearch/core/search/presenter"
	"github.com/goto/sitesearch/pkg/statsd"
	"github.com/newrelic/go-agent/v3/newrelic"
)

type SearchService interface {
	Search(ctx context.Context, values url.Values) (presenter.ResultSet, error)
}

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type RegistryRefresher interface {
	Refresh(ctx context.Context) error
}

type Deps struct {
	Search     SearchService
	Health     HealthChecker
	Registries RegistryRefresher
	// Jobs serves dead job management under /_admin/jobs.
	Jobs       http.Handler
	Logger     log.Logger
	NewRelic   *newrelic.Application
	StatsD     *statsd.Reporter
}

// NewHandler returns the router serving the public search API and the
// admin endpoints.
func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = log.NewNoop()
	}
	h := &handler{
		search:     deps.Search,
		health:     deps.Health,
		registries: deps.Registries,
		logger:     deps.Logger,
	}

	router := mux.NewRouter()
	router.Use(
		RequestID(),
		NewRelic(deps.NewRelic),
		StatsD(deps.StatsD),
	)

	router.HandleFunc("/search.json", h.Search).Methods(http.MethodGet)
	router.HandleFunc("/healthcheck", h.Healthcheck).Methods(http.MethodGet)
	router.HandleFunc("/_admin/registries/refresh", h.RefreshRegistries).Methods(http.MethodPost)
	if deps.Jobs != nil {
		router.PathPrefix("/_admin/jobs/").Handler(deps.Jobs)
	}

	router.NotFoundHandler = http.HandlerFunc(notFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	return router
}
