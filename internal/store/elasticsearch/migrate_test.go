package elasticsearch_test

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/goto/sitesearch/core/search"
	"github.com/goto/sitesearch/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var migrateTime = time.Date(2016, 3, 11, 16, 0, 30, 0, time.UTC)

func TestClientMigrate(t *testing.T) {
	ctx := context.Background()
	cfg := testutils.LoadSchema(t)

	t.Run("should create an aliased index when the alias is missing", func(t *testing.T) {
		cluster := &fakeCluster{handle: func(w http.ResponseWriter, r recordedRequest) {
			if strings.HasPrefix(r.Path, "/_alias/") {
				writeError(w, http.StatusNotFound, "aliases_not_found_exception", "aliases [govuk] missing")
				return
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{"acknowledged": true})
		}}
		cli := newTestClient(t, cluster)

		result, err := cli.Migrate(ctx, cfg, "govuk", migrateTime)
		require.NoError(t, err)
		assert.True(t, result.Created)
		assert.Equal(t, "govuk", search.IndexAlias(result.Index))

		requests := cluster.Requests()
		require.Len(t, requests, 2)
		create := requests[1]
		assert.Equal(t, http.MethodPut, create.Method)
		assert.Equal(t, "/"+result.Index, create.Path)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(create.Body), &body))
		assert.Equal(t, map[string]interface{}{"govuk": map[string]interface{}{}}, body["aliases"])
		settings := body["settings"].(map[string]interface{})
		assert.Equal(t, true, settings["index.mapping.ignore_malformed"])
		assert.Contains(t, settings, "analysis")
		props := body["mappings"].(map[string]interface{})["properties"].(map[string]interface{})
		assert.Contains(t, props, "document_type")
		assert.Contains(t, props, "title")
	})

	t.Run("should only add missing properties to an existing index", func(t *testing.T) {
		desired, err := cfg.ElasticsearchMappings("govuk")
		require.NoError(t, err)
		current := map[string]interface{}{}
		for name, def := range desired["properties"].(map[string]interface{}) {
			if name != "title" {
				current[name] = def
			}
		}
		index := search.NewIndexName("govuk", migrateTime)

		cluster := &fakeCluster{handle: func(w http.ResponseWriter, r recordedRequest) {
			switch {
			case strings.HasPrefix(r.Path, "/_alias/"):
				writeJSON(w, http.StatusOK, map[string]interface{}{index: map[string]interface{}{"aliases": map[string]interface{}{"govuk": map[string]interface{}{}}}})
			case r.Method == http.MethodGet:
				writeJSON(w, http.StatusOK, map[string]interface{}{index: map[string]interface{}{"mappings": map[string]interface{}{"properties": current}}})
			default:
				writeJSON(w, http.StatusOK, map[string]interface{}{"acknowledged": true})
			}
		}}
		cli := newTestClient(t, cluster)

		result, err := cli.Migrate(ctx, cfg, "govuk", migrateTime)
		require.NoError(t, err)
		assert.False(t, result.Created)
		assert.Equal(t, index, result.Index)
		assert.Equal(t, []string{"title"}, result.AddedFields)
		assert.Empty(t, result.ChangedFields)

		requests := cluster.Requests()
		require.Len(t, requests, 3)
		put := requests[2]
		assert.Equal(t, "/"+index+"/_mapping", put.Path)

		var body map[string]map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(put.Body), &body))
		assert.Len(t, body["properties"], 1)
		assert.Contains(t, body["properties"], "title")
	})

	t.Run("should leave an up to date index alone", func(t *testing.T) {
		desired, err := cfg.ElasticsearchMappings("government")
		require.NoError(t, err)
		index := search.NewIndexName("government", migrateTime)

		cluster := &fakeCluster{handle: func(w http.ResponseWriter, r recordedRequest) {
			if strings.HasPrefix(r.Path, "/_alias/") {
				writeJSON(w, http.StatusOK, map[string]interface{}{index: map[string]interface{}{}})
				return
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{index: map[string]interface{}{"mappings": desired}})
		}}

		result, err := newTestClient(t, cluster).Migrate(ctx, cfg, "government", migrateTime)
		require.NoError(t, err)
		assert.Empty(t, result.AddedFields)
		assert.Len(t, cluster.Requests(), 2)
	})

	t.Run("should reject an index without a schema", func(t *testing.T) {
		_, err := newTestClient(t, &fakeCluster{}).Migrate(ctx, cfg, "unknown", migrateTime)
		assert.Error(t, err)
	})
}
