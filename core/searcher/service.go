package searcher

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/goto/salt/log"
	"github.com/goto/sitesearch/core/registry"
	"github.com/goto/sitesearch/core/schema"
	"github.com/goto/sitesearch/core/search"
	"github.com/goto/sitesearch/core/search/params"
	"github.com/goto/sitesearch/core/search/presenter"
	"github.com/goto/sitesearch/core/search/querybuilder"
	"github.com/goto/sitesearch/pkg/statsd"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Registries provides the registry tables used to expand one response.
type Registries interface {
	Snapshot(ctx context.Context) registry.Snapshot
}

type Service struct {
	engine     search.Engine
	schema     *schema.Config
	parser     *params.Parser
	registries Registries
	examples   ExampleFetcher
	bestBets   BestBetsFinder
	indices    []string
	logger     log.Logger
	statsd     *statsd.Reporter
	now        func() time.Time

	searchCounter metric.Int64Counter
}

type ServiceDeps struct {
	Engine     search.Engine
	Schema     *schema.Config
	Registries Registries
	// Indices are the content indices searched, "govuk" and "government"
	// unless set.
	Indices []string
	// BestBets looks up promoted links for free text queries. Best bets
	// are not applied when it is nil.
	BestBets BestBetsFinder
	Logger   log.Logger
	StatsD   *statsd.Reporter
	Now      func() time.Time
}

var defaultIndices = []string{"govuk", "government"}

func NewService(deps ServiceDeps) (*Service, error) {
	indices := deps.Indices
	if len(indices) == 0 {
		indices = defaultIndices
	}
	combined, err := deps.Schema.Merge(indices...)
	if err != nil {
		return nil, fmt.Errorf("combine schemas of %v: %w", indices, err)
	}

	logger := deps.Logger
	if logger == nil {
		logger = log.NewNoop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	searchCounter, err := otel.Meter("github.com/goto/sitesearch/core/searcher").
		Int64Counter("sitesearch.search.request")
	if err != nil {
		otel.Handle(err)
	}

	return &Service{
		engine:     deps.Engine,
		schema:     deps.Schema,
		parser:     params.NewParser(combined),
		registries: deps.Registries,
		examples:   NewExampleFetcher(deps.Engine, indices),
		bestBets:   deps.BestBets,
		indices:    indices,
		logger:     logger,
		statsd:     deps.StatsD,
		now:        now,

		searchCounter: searchCounter,
	}, nil
}

// Search parses a search request, runs it and presents the response.
// Invalid requests fail with a search.ValidationError and engine failures
// with an error wrapping search.ErrEngineUnavailable.
func (s *Service) Search(ctx context.Context, values url.Values) (rs presenter.ResultSet, err error) {
	start := s.now()
	defer func() {
		s.instrument(ctx, start, err)
	}()

	qp, err := s.parser.Parse(values)
	if err != nil {
		return presenter.ResultSet{}, err
	}
	return s.Run(ctx, qp)
}

// Run runs already parsed parameters.
func (s *Service) Run(ctx context.Context, qp search.QueryParameters) (presenter.ResultSet, error) {
	builder := s.builder(qp, querybuilder.WithBestBets(s.findBestBets(ctx, qp)))
	payload, err := builder.Payload()
	if err != nil {
		return presenter.ResultSet{}, fmt.Errorf("build search payload: %w", err)
	}

	resp, err := s.engine.Search(ctx, s.indices, payload)
	if err != nil {
		s.logger.Error("search failed", "indices", s.indices, "err", err)
		return presenter.ResultSet{}, fmt.Errorf("%w: %w", search.ErrEngineUnavailable, err)
	}

	snapshot := registry.Snapshot{}
	if s.registries != nil {
		snapshot = s.registries.Snapshot(ctx)
	}
	aggs := presenter.NewAggregateResultPresenter(qp, snapshot).Present(resp.Aggregations)

	examples, err := s.examples.Fetch(ctx, builder, qp, aggs)
	if err != nil {
		s.logger.Error("aggregate examples failed", "err", err)
		return presenter.ResultSet{}, fmt.Errorf("%w: %w", search.ErrEngineUnavailable, err)
	}
	presenter.MergeExamples(aggs, examples)

	return presenter.NewResultSetPresenter(qp, s.schema, snapshot).Present(resp, aggs, payload), nil
}

// Payload returns the search body built for a request without running it.
// Best bets are not looked up.
func (s *Service) Payload(values url.Values) (map[string]interface{}, error) {
	qp, err := s.parser.Parse(values)
	if err != nil {
		return nil, err
	}
	return s.builder(qp).Payload()
}

func (s *Service) builder(qp search.QueryParameters, opts ...querybuilder.Option) *querybuilder.Builder {
	opts = append([]querybuilder.Option{
		querybuilder.WithClock(s.now),
		querybuilder.WithIndices(s.indices...),
	}, opts...)
	return querybuilder.New(qp, opts...)
}

// findBestBets returns no bets when the lookup fails.
func (s *Service) findBestBets(ctx context.Context, qp search.QueryParameters) search.BestBets {
	if s.bestBets == nil || !qp.HasQuery() || qp.Debug().DisableBestBets {
		return search.BestBets{}
	}
	bets, err := s.bestBets.Find(ctx, qp.Query())
	if err != nil {
		s.logger.Warn("best bets lookup failed", "query", qp.Query(), "err", err)
		return search.BestBets{}
	}
	return bets
}

func (s *Service) instrument(ctx context.Context, start time.Time, err error) {
	outcome := "success"
	switch {
	case err == nil:
	case isValidationError(err):
		outcome = "invalid"
	default:
		outcome = "failure"
	}

	s.statsd.Timing("search.latency", s.now().Sub(start)).
		Tag("outcome", outcome).
		Publish()

	if s.searchCounter == nil {
		return
	}
	s.searchCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("search.outcome", outcome),
	))
}

func isValidationError(err error) bool {
	return errors.Is(err, search.ErrInvalidParameters)
}
