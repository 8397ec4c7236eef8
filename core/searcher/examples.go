package searcher

import (
	"context"
	"fmt"

	"github.com/goto/sitesearch/core/search"
	"github.com/goto/sitesearch/core/search/presenter"
	"github.com/goto/sitesearch/core/search/querybuilder"
)

// exampleBatchSize is the number of example searches sent in one msearch.
const exampleBatchSize = 50

// ExampleFetcher fetches example documents for the presented options of
// aggregates that asked for examples.
type ExampleFetcher struct {
	engine  search.Engine
	indices []string
}

func NewExampleFetcher(engine search.Engine, indices []string) ExampleFetcher {
	return ExampleFetcher{engine: engine, indices: indices}
}

// Fetch returns the examples of every option of aggs, keyed by aggregate
// field and then by option value.
func (f ExampleFetcher) Fetch(ctx context.Context, builder *querybuilder.Builder, qp search.QueryParameters, aggs map[string]*presenter.Aggregate) (map[string]map[string]presenter.ExampleInfo, error) {
	out := make(map[string]map[string]presenter.ExampleInfo)
	for _, field := range qp.AggregateNames() {
		req, _ := qp.Aggregate(field)
		agg, ok := aggs[field]
		if !ok || req.Examples <= 0 {
			continue
		}

		values := make([]string, 0, len(agg.Options))
		for _, o := range agg.Options {
			values = append(values, o.Term())
		}
		infos, err := f.fetchField(ctx, builder, field, values)
		if err != nil {
			return nil, err
		}
		out[field] = infos
	}
	return out, nil
}

func (f ExampleFetcher) fetchField(ctx context.Context, builder *querybuilder.Builder, field string, values []string) (map[string]presenter.ExampleInfo, error) {
	searches, err := builder.ExampleSearches(field, values)
	if err != nil {
		return nil, err
	}

	infos := make(map[string]presenter.ExampleInfo, len(values))
	for start := 0; start < len(searches); start += exampleBatchSize {
		end := start + exampleBatchSize
		if end > len(searches) {
			end = len(searches)
		}

		bodies := make([]interface{}, 0, end-start)
		for _, s := range searches[start:end] {
			bodies = append(bodies, s)
		}
		responses, err := f.engine.MultiSearch(ctx, f.indices, bodies)
		if err != nil {
			return nil, fmt.Errorf("fetch examples of %q: %w", field, err)
		}
		if len(responses) != len(bodies) {
			return nil, fmt.Errorf("fetch examples of %q: got %d responses for %d searches", field, len(responses), len(bodies))
		}

		for i, resp := range responses {
			examples := make([]map[string]interface{}, 0, len(resp.Hits))
			for _, hit := range resp.Hits {
				examples = append(examples, hit.Source)
			}
			infos[values[start+i]] = presenter.ExampleInfo{Total: resp.Total, Examples: examples}
		}
	}
	return infos, nil
}
