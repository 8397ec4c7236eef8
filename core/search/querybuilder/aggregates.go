package querybuilder

import (
	"github.com/goto/sitesearch/core/search"
	"github.com/olivere/elastic/v7"
)

const (
	FilteredAggregationName = "filtered_aggregations"
	MissingValueSuffix      = "_with_missing_value"

	// All terms are fetched so that the number of options is accurate.
	maxAggregateTerms = 100000
)

// Aggregates builds one terms aggregation and one missing-value
// aggregation per requested aggregate, each scoped by the active filters.
type Aggregates struct {
	params search.QueryParameters
	filter Filter
}

func NewAggregates(params search.QueryParameters) Aggregates {
	return Aggregates{params: params, filter: NewFilter(params)}
}

func (a Aggregates) Payload() map[string]elastic.Aggregation {
	aggs := make(map[string]elastic.Aggregation)
	for _, field := range a.params.AggregateNames() {
		req, _ := a.params.Aggregate(field)
		scope := a.scopeFilter(field, req.Scope)

		aggs[field] = elastic.NewFilterAggregation().
			Filter(scope).
			SubAggregation(FilteredAggregationName, elastic.NewTermsAggregation().
				Field(field).
				OrderByCountDesc().
				Size(maxAggregateTerms))
		aggs[field+MissingValueSuffix] = elastic.NewFilterAggregation().
			Filter(scope).
			SubAggregation(FilteredAggregationName, elastic.NewMissingAggregation().Field(field))
	}
	return aggs
}

func (a Aggregates) scopeFilter(field string, scope search.AggregateScope) elastic.Query {
	var q elastic.Query
	if scope == search.ScopeAllFilters {
		q = a.filter.Payload()
	} else {
		q = a.filter.Excluding(field)
	}
	if q == nil {
		return elastic.NewMatchAllQuery()
	}
	return q
}
