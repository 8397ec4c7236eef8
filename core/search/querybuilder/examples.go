package querybuilder

import (
	"fmt"

	"github.com/goto/sitesearch/core/search"
	"github.com/olivere/elastic/v7"
)

// ExampleSearches returns one search per option value of the aggregate on
// field, each fetching the most popular documents having that value.
func (b *Builder) ExampleSearches(field string, values []string) ([]map[string]interface{}, error) {
	req, ok := b.params.Aggregate(field)
	if !ok || req.Examples <= 0 {
		return nil, nil
	}

	var query, filter elastic.Query
	if req.ExampleScope == search.ExampleScopeQuery {
		if err := NewFilter(b.params).Validate(); err != nil {
			return nil, err
		}
		query = b.Query()
		filter = b.Filter()
	} else {
		query = elastic.NewMatchAllQuery()
	}

	searches := make([]map[string]interface{}, 0, len(values))
	for _, value := range values {
		must := []elastic.Query{elastic.NewTermQuery(field, value)}
		if filter != nil {
			must = append(must, filter)
		}

		ss := elastic.NewSearchSource().
			Query(elastic.NewBoolQuery().Must(query)).
			PostFilter(elastic.NewBoolQuery().Must(must...)).
			Size(req.Examples).
			FetchSourceContext(elastic.NewFetchSourceContext(true).Include(req.ExampleFields...)).
			SortBy(elastic.NewFieldSort(popularityField).Desc())

		body, err := sourceMap(ss)
		if err != nil {
			return nil, fmt.Errorf("example search for %s=%q: %w", field, value, err)
		}
		searches = append(searches, body)
	}
	return searches, nil
}
