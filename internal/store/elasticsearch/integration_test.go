//go:build integration

package elasticsearch_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/goto/salt/log"
	"github.com/goto/sitesearch/core/search"
	"github.com/goto/sitesearch/core/search/querybuilder"
	store "github.com/goto/sitesearch/internal/store/elasticsearch"
	"github.com/goto/sitesearch/internal/testutils"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runElasticsearch(t *testing.T) *store.Client {
	t.Helper()

	pool, err := dockertest.NewPool("")
	require.NoError(t, err, "create dockertest pool")

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "docker.elastic.co/elasticsearch/elasticsearch",
		Tag:        "7.10.2",
		Env: []string{
			"discovery.type=single-node",
			"ES_JAVA_OPTS=-Xms512m -Xmx512m",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err, "start elasticsearch")
	require.NoError(t, resource.Expire(300))
	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Log(err)
		}
	})

	cli, err := store.NewClient(log.NewNoop(), store.Config{
		Brokers: fmt.Sprintf("http://localhost:%s", resource.GetPort("9200/tcp")),
	})
	require.NoError(t, err)

	pool.MaxWait = 2 * time.Minute
	require.NoError(t, pool.Retry(func() error {
		_, err := cli.Init()
		return err
	}), "wait for elasticsearch")
	return cli
}

func TestIntegration(t *testing.T) {
	ctx := context.Background()
	cfg := testutils.LoadSchema(t)
	cli := runElasticsearch(t)

	for _, alias := range []string{"govuk", "government"} {
		result, err := cli.Migrate(ctx, cfg, alias, time.Now())
		require.NoError(t, err)
		assert.True(t, result.Created)
	}
	result, err := cli.Migrate(ctx, cfg, "govuk", time.Now())
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.Empty(t, result.AddedFields)

	writer := store.NewDocumentWriter(cli)
	require.NoError(t, writer.Upsert(ctx, "govuk", []map[string]interface{}{
		{"document_type": "edition", "link": "/pig-farming", "title": "Pig farming", "format": "guide", "organisations": []string{"defra"}, "popularity": 0.5},
		{"document_type": "edition", "link": "/sheep", "title": "Sheep", "format": "answer", "organisations": []string{"defra"}, "popularity": 0.1},
	}))
	require.NoError(t, writer.Upsert(ctx, "government", []map[string]interface{}{
		{"document_type": "organisation", "link": "/government/organisations/defra", "slug": "defra", "title": "Defra", "format": "organisation"},
	}))

	t.Run("search", func(t *testing.T) {
		qp := search.NewQueryParameters(search.Params{
			Count:      10,
			Query:      "pig",
			Aggregates: map[string]search.AggregateRequest{"format": {Requested: 10, Scope: search.ScopeExcludeFieldFilter, Order: search.DefaultAggregateOrder}},
			Debug:      search.DebugFlags{IncludeWithdrawn: true},
		})
		payload, err := querybuilder.New(qp).Payload()
		require.NoError(t, err)

		resp, err := store.NewSearchEngine(cli).Search(ctx, []string{"govuk", "government"}, payload)
		require.NoError(t, err)
		require.NotEmpty(t, resp.Hits)
		assert.Equal(t, "/pig-farming", resp.Hits[0].ID)
		assert.Contains(t, resp.Aggregations, "format")
	})

	t.Run("registry source", func(t *testing.T) {
		docs, err := store.NewRegistrySource(cli).DocumentsByFormat(ctx, "government", "organisation", []string{"slug", "title", "link"})
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "defra", docs[0]["slug"])
	})
}
