package searcher_test

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/goto/sitesearch/core/registry"
	"github.com/goto/sitesearch/core/search"
	"github.com/goto/sitesearch/core/search/presenter"
	"github.com/goto/sitesearch/core/search/querybuilder"
	"github.com/goto/sitesearch/core/searcher"
	"github.com/goto/sitesearch/internal/testutils"
	"github.com/goto/sitesearch/lib/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	fixedNow       = time.Date(2016, 3, 11, 16, 0, 30, 0, time.UTC)
	contentIndices = []string{"govuk", "government"}
)

type staticRegistries registry.Snapshot

func (r staticRegistries) Snapshot(context.Context) registry.Snapshot { return registry.Snapshot(r) }

func newService(t *testing.T, engine search.Engine) *searcher.Service {
	t.Helper()

	orgs := registry.NewTable(registry.Organisations, []registry.Entity{
		{Slug: "hmrc", Attributes: map[string]interface{}{"title": "HMRC", "link": "/government/organisations/hmrc"}},
	})
	svc, err := searcher.NewService(searcher.ServiceDeps{
		Engine:     engine,
		Schema:     testutils.LoadSchema(t),
		Registries: staticRegistries{registry.Organisations: orgs},
		Now:        func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return svc
}

func payloadWith(key string, expected interface{}) interface{} {
	return mock.MatchedBy(func(body interface{}) bool {
		m, ok := body.(map[string]interface{})
		if !ok {
			return false
		}
		return fmt.Sprint(m[key]) == fmt.Sprint(expected)
	})
}

func TestServiceSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("should reject invalid parameters without searching", func(t *testing.T) {
		engine := new(mocks.SearchEngine)
		defer engine.AssertExpectations(t)

		_, err := newService(t, engine).Search(ctx, url.Values{"count": {"1001"}, "bogus": {"x"}})
		require.Error(t, err)
		assert.ErrorIs(t, err, search.ErrInvalidParameters)

		var verr search.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Len(t, verr.Errors, 2)
	})

	t.Run("should present the engine response", func(t *testing.T) {
		engine := new(mocks.SearchEngine)
		defer engine.AssertExpectations(t)

		engine.On("Search", ctx, contentIndices, payloadWith("size", 2)).Return(search.Response{
			Total: 1,
			Hits: []search.Hit{{
				Index:  "govuk",
				ID:     "/tax",
				Source: map[string]interface{}{"document_type": "edition", "title": "Tax", "link": "/tax", "organisations": []interface{}{"hmrc"}},
			}},
			Aggregations: map[string]search.Aggregation{
				"organisations": {Filtered: search.FilteredAggregation{Buckets: []search.Bucket{{Key: "hmrc", DocCount: 1}}}},
			},
		}, nil)

		rs, err := newService(t, engine).Search(ctx, url.Values{
			"q":                       {"tax"},
			"count":                   {"2"},
			"fields":                  {"title,link,organisations"},
			"aggregate_organisations": {"5"},
		})
		require.NoError(t, err)

		require.Len(t, rs.Results, 1)
		assert.Equal(t, "Tax", rs.Results[0]["title"])
		assert.Equal(t, []interface{}{map[string]interface{}{
			"slug":  "hmrc",
			"title": "HMRC",
			"link":  "/government/organisations/hmrc",
		}}, rs.Results[0]["organisations"])
		assert.Equal(t, 1, rs.Total)
		assert.Equal(t, "aggregates", rs.AggregateName)
		require.Contains(t, rs.Aggregates, "organisations")
		assert.Equal(t, "HMRC", rs.Aggregates["organisations"].Options[0].Value["title"])
		assert.Nil(t, rs.ElasticsearchQuery)
	})

	t.Run("should include the payload when asked", func(t *testing.T) {
		engine := new(mocks.SearchEngine)
		engine.On("Search", ctx, contentIndices, mock.Anything).Return(search.Response{}, nil)

		rs, err := newService(t, engine).Search(ctx, url.Values{"debug": {"show_query"}, "facet_format": {"2"}})
		require.NoError(t, err)
		assert.Equal(t, float64(10), rs.ElasticsearchQuery["size"])
		assert.Equal(t, "facets", rs.AggregateName)
	})

	t.Run("should report an unavailable engine", func(t *testing.T) {
		engine := new(mocks.SearchEngine)
		engine.On("Search", ctx, contentIndices, mock.Anything).Return(search.Response{}, errors.New("connection refused"))

		_, err := newService(t, engine).Search(ctx, url.Values{"q": {"tax"}})
		assert.ErrorIs(t, err, search.ErrEngineUnavailable)
		assert.ErrorContains(t, err, "connection refused")
	})

	t.Run("should attach aggregate examples", func(t *testing.T) {
		engine := new(mocks.SearchEngine)
		defer engine.AssertExpectations(t)

		engine.On("Search", ctx, contentIndices, mock.Anything).Return(search.Response{
			Aggregations: map[string]search.Aggregation{
				"format": {Filtered: search.FilteredAggregation{Buckets: []search.Bucket{
					{Key: "guide", DocCount: 3},
					{Key: "answer", DocCount: 2},
				}}},
			},
		}, nil)
		engine.On("MultiSearch", ctx, contentIndices, mock.MatchedBy(func(bodies []interface{}) bool {
			return len(bodies) == 2
		})).Return([]search.Response{
			{Total: 3, Hits: []search.Hit{{Source: map[string]interface{}{"title": "A guide", "link": "/a-guide"}}}},
			{Total: 2, Hits: []search.Hit{}},
		}, nil)

		rs, err := newService(t, engine).Search(ctx, url.Values{
			"aggregate_format": {"10,examples:1,example_scope:global"},
		})
		require.NoError(t, err)

		opts := rs.Aggregates["format"].Options
		require.Len(t, opts, 2)
		assert.Equal(t, presenter.ExampleInfo{
			Total:    3,
			Examples: []map[string]interface{}{{"title": "A guide", "link": "/a-guide"}},
		}, opts[0].Value["example_info"])
		assert.Equal(t, presenter.ExampleInfo{Total: 2, Examples: []map[string]interface{}{}}, opts[1].Value["example_info"])
	})

	t.Run("should fail when examples cannot be fetched", func(t *testing.T) {
		engine := new(mocks.SearchEngine)
		engine.On("Search", ctx, contentIndices, mock.Anything).Return(search.Response{
			Aggregations: map[string]search.Aggregation{
				"format": {Filtered: search.FilteredAggregation{Buckets: []search.Bucket{{Key: "guide", DocCount: 3}}}},
			},
		}, nil)
		engine.On("MultiSearch", ctx, contentIndices, mock.Anything).Return(nil, errors.New("timeout"))

		_, err := newService(t, engine).Search(ctx, url.Values{"aggregate_format": {"1,examples:1,example_scope:query"}})
		assert.ErrorIs(t, err, search.ErrEngineUnavailable)
	})
}

func TestServiceBestBets(t *testing.T) {
	ctx := context.Background()

	newServiceWithBets := func(t *testing.T, engine search.Engine, finder searcher.BestBetsFinder) *searcher.Service {
		t.Helper()

		svc, err := searcher.NewService(searcher.ServiceDeps{
			Engine:   engine,
			Schema:   testutils.LoadSchema(t),
			BestBets: finder,
			Now:      func() time.Time { return fixedNow },
		})
		require.NoError(t, err)
		return svc
	}
	promotes := func(link string) interface{} {
		return mock.MatchedBy(func(body interface{}) bool {
			m, ok := body.(map[string]interface{})
			if !ok {
				return false
			}
			return strings.Contains(fmt.Sprint(m["query"]), link)
		})
	}

	t.Run("should promote best bets of the query", func(t *testing.T) {
		finder := new(mocks.BestBetsFinder)
		finder.On("Find", ctx, "jobs").Return(search.BestBets{Positions: map[int][]string{1: {"/jobsearch"}}}, nil)
		engine := new(mocks.SearchEngine)
		defer engine.AssertExpectations(t)
		engine.On("Search", ctx, contentIndices, promotes("/jobsearch")).Return(search.Response{}, nil)

		_, err := newServiceWithBets(t, engine, finder).Search(ctx, url.Values{"q": {"jobs"}})
		require.NoError(t, err)
	})

	t.Run("should search without bets when the lookup fails", func(t *testing.T) {
		finder := new(mocks.BestBetsFinder)
		finder.On("Find", ctx, "jobs").Return(search.BestBets{}, errors.New("metasearch unavailable"))
		engine := new(mocks.SearchEngine)
		defer engine.AssertExpectations(t)
		engine.On("Search", ctx, contentIndices, mock.Anything).Return(search.Response{}, nil)

		_, err := newServiceWithBets(t, engine, finder).Search(ctx, url.Values{"q": {"jobs"}})
		require.NoError(t, err)
	})

	t.Run("should not look up bets when disabled or without a query", func(t *testing.T) {
		finder := new(mocks.BestBetsFinder)
		defer finder.AssertExpectations(t)
		engine := new(mocks.SearchEngine)
		engine.On("Search", ctx, contentIndices, mock.Anything).Return(search.Response{}, nil)
		svc := newServiceWithBets(t, engine, finder)

		_, err := svc.Search(ctx, url.Values{"q": {"jobs"}, "debug": {"disable_best_bets"}})
		require.NoError(t, err)
		_, err = svc.Search(ctx, url.Values{"similar_to": {"/jobsearch"}})
		require.NoError(t, err)
		finder.AssertNotCalled(t, "Find", mock.Anything, mock.Anything)
	})
}

func TestServicePayload(t *testing.T) {
	svc := newService(t, new(mocks.SearchEngine))

	payload, err := svc.Payload(url.Values{"start": {"20"}, "filter_format": {"guide"}})
	require.NoError(t, err)
	assert.Equal(t, float64(20), payload["from"])
	assert.Contains(t, payload, "post_filter")

	similar, err := svc.Payload(url.Values{"similar_to": {"/tax"}})
	require.NoError(t, err)
	assert.Len(t, findLikes(similar), 2)

	_, err = svc.Payload(url.Values{"start": {"-1"}})
	assert.ErrorIs(t, err, search.ErrInvalidParameters)
}

func TestExampleFetcherBatches(t *testing.T) {
	ctx := context.Background()

	var buckets []search.Bucket
	for i := 0; i < 120; i++ {
		buckets = append(buckets, search.Bucket{Key: fmt.Sprintf("org-%03d", i), DocCount: 1000 - i})
	}
	qp := search.NewQueryParameters(search.Params{
		Aggregates: map[string]search.AggregateRequest{
			"organisations": {
				Requested:     120,
				Scope:         search.ScopeExcludeFieldFilter,
				Examples:      1,
				ExampleFields: []string{"title"},
				ExampleScope:  search.ExampleScopeGlobal,
			},
		},
	})
	aggs := presenter.NewAggregateResultPresenter(qp, nil).Present(map[string]search.Aggregation{
		"organisations": {Filtered: search.FilteredAggregation{Buckets: buckets}},
	})

	engine := new(mocks.SearchEngine)
	defer engine.AssertExpectations(t)
	for _, size := range []int{50, 50, 20} {
		size := size
		responses := make([]search.Response, size)
		for i := range responses {
			responses[i] = search.Response{Total: 1}
		}
		engine.On("MultiSearch", ctx, contentIndices, mock.MatchedBy(func(bodies []interface{}) bool {
			return len(bodies) == size
		})).Return(responses, nil).Once()
	}

	examples, err := searcher.NewExampleFetcher(engine, contentIndices).Fetch(ctx, querybuilder.New(qp), qp, aggs)
	require.NoError(t, err)
	assert.Len(t, examples["organisations"], 120)
	assert.Equal(t, 1, examples["organisations"]["org-119"].Total)
}

func findLikes(payload map[string]interface{}) []interface{} {
	query, _ := payload["query"].(map[string]interface{})
	mlt, _ := query["more_like_this"].(map[string]interface{})
	likes, _ := mlt["like"].([]interface{})
	return likes
}
