package elasticsearch_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/goto/sitesearch/core/search"
	store "github.com/goto/sitesearch/internal/store/elasticsearch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchResponseBody = `{
	"took": 3,
	"hits": {
		"total": {"value": 42, "relation": "eq"},
		"hits": [
			{
				"_index": "govuk-2016-03-11t16-00-30z-0b7b1f1e-1d1c-4c5e-8e0b-6f3f1c1d2e3f",
				"_id": "/pigs",
				"_score": 1.5,
				"_source": {"title": "Pigs", "format": "guide"},
				"highlight": {"title.synonym": ["<mark>Pigs</mark>"]}
			}
		]
	},
	"aggregations": {
		"format": {"doc_count": 42, "filtered_aggregations": {"buckets": [{"key": "guide", "doc_count": 40}]}},
		"format_with_missing_value": {"doc_count": 42, "filtered_aggregations": {"doc_count": 2}}
	},
	"suggest": {
		"spelling_suggestions": [{"text": "pgis", "options": [{"text": "pigs", "highlighted": "<mark>pigs</mark>", "score": 0.9}]}]
	}
}`

func TestSearchEngineSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("should decode the response", func(t *testing.T) {
		cluster := &fakeCluster{handle: func(w http.ResponseWriter, r recordedRequest) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(searchResponseBody))
		}}
		engine := store.NewSearchEngine(newTestClient(t, cluster))

		resp, err := engine.Search(ctx, []string{"govuk", "government"}, map[string]interface{}{"size": 10})
		require.NoError(t, err)

		assert.Equal(t, 42, resp.Total)
		assert.Equal(t, 3, resp.Took)
		require.Len(t, resp.Hits, 1)
		hit := resp.Hits[0]
		assert.Equal(t, "/pigs", hit.ID)
		assert.Equal(t, 1.5, *hit.Score)
		assert.Equal(t, "Pigs", hit.Source["title"])
		assert.Equal(t, []string{"<mark>Pigs</mark>"}, hit.Highlight["title.synonym"])
		assert.Equal(t, "govuk", search.IndexAlias(hit.Index))

		assert.Equal(t, []search.Bucket{{Key: "guide", DocCount: 40}}, resp.Aggregations["format"].Filtered.Buckets)
		assert.Equal(t, 2, resp.Aggregations["format_with_missing_value"].Filtered.DocCount)
		assert.Equal(t, "pigs", resp.Suggest["spelling_suggestions"][0].Options[0].Text)

		requests := cluster.Requests()
		require.Len(t, requests, 1)
		assert.Equal(t, "/govuk,government/_search", requests[0].Path)
		assert.Contains(t, requests[0].Query, "ignore_unavailable=true")
		assert.JSONEq(t, `{"size": 10}`, requests[0].Body)
	})

	t.Run("should return an empty hit list", func(t *testing.T) {
		cluster := &fakeCluster{handle: func(w http.ResponseWriter, r recordedRequest) {
			writeJSON(w, http.StatusOK, map[string]interface{}{"hits": map[string]interface{}{"total": map[string]interface{}{"value": 0}}})
		}}
		resp, err := store.NewSearchEngine(newTestClient(t, cluster)).Search(ctx, []string{"govuk"}, map[string]interface{}{})
		require.NoError(t, err)
		assert.NotNil(t, resp.Hits)
		assert.Empty(t, resp.Hits)
	})

	t.Run("should return the cluster error", func(t *testing.T) {
		cluster := &fakeCluster{handle: func(w http.ResponseWriter, r recordedRequest) {
			writeError(w, http.StatusBadRequest, "parsing_exception", "unknown query [bogus]")
		}}
		_, err := store.NewSearchEngine(newTestClient(t, cluster)).Search(ctx, []string{"govuk"}, map[string]interface{}{})

		var serr store.SearchError
		require.True(t, errors.As(err, &serr))
		assert.Equal(t, "parsing_exception", serr.ESCode)
		assert.Contains(t, err.Error(), "unknown query [bogus]")
	})
}

func TestSearchEngineMultiSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("should send one header per body and keep the order", func(t *testing.T) {
		cluster := &fakeCluster{handle: func(w http.ResponseWriter, r recordedRequest) {
			writeJSON(w, http.StatusOK, map[string]interface{}{"responses": []interface{}{
				map[string]interface{}{"hits": map[string]interface{}{"total": map[string]interface{}{"value": 3}, "hits": []interface{}{
					map[string]interface{}{"_id": "/a", "_source": map[string]interface{}{"title": "A"}},
				}}},
				map[string]interface{}{"hits": map[string]interface{}{"total": map[string]interface{}{"value": 0}, "hits": []interface{}{}}},
			}})
		}}
		engine := store.NewSearchEngine(newTestClient(t, cluster))

		responses, err := engine.MultiSearch(ctx, []string{"govuk", "government"}, []interface{}{
			map[string]interface{}{"size": 1},
			map[string]interface{}{"size": 2},
		})
		require.NoError(t, err)
		require.Len(t, responses, 2)
		assert.Equal(t, 3, responses[0].Total)
		assert.Equal(t, "A", responses[0].Hits[0].Source["title"])
		assert.Equal(t, 0, responses[1].Total)

		requests := cluster.Requests()
		require.Len(t, requests, 1)
		assert.Equal(t, "/_msearch", requests[0].Path)

		lines := strings.Split(strings.TrimSpace(requests[0].Body), "\n")
		require.Len(t, lines, 4)
		var header map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &header))
		assert.Equal(t, []interface{}{"govuk", "government"}, header["index"])
		assert.JSONEq(t, `{"size": 2}`, lines[3])
	})

	t.Run("should fail when one search fails", func(t *testing.T) {
		cluster := &fakeCluster{handle: func(w http.ResponseWriter, r recordedRequest) {
			writeJSON(w, http.StatusOK, map[string]interface{}{"responses": []interface{}{
				map[string]interface{}{"error": map[string]interface{}{"type": "search_phase_execution_exception", "reason": "all shards failed"}, "status": 400},
			}})
		}}
		_, err := store.NewSearchEngine(newTestClient(t, cluster)).MultiSearch(ctx, []string{"govuk"}, []interface{}{map[string]interface{}{}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "all shards failed")
	})

	t.Run("should not call the cluster without searches", func(t *testing.T) {
		cluster := &fakeCluster{}
		responses, err := store.NewSearchEngine(newTestClient(t, cluster)).MultiSearch(ctx, []string{"govuk"}, nil)
		require.NoError(t, err)
		assert.Empty(t, responses)
		assert.Empty(t, cluster.Requests())
	})
}
