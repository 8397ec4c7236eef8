package querybuilder

import (
	"fmt"
	"time"

	"github.com/goto/sitesearch/core/search"
	"github.com/olivere/elastic/v7"
)

const (
	withdrawnField = "is_withdrawn"
	iso8601Layout  = "2006-01-02T15:04:05-07:00"
)

// Filter builds the post filter from the filter and reject parameters.
type Filter struct {
	params search.QueryParameters
}

func NewFilter(params search.QueryParameters) Filter {
	return Filter{params: params}
}

// Payload returns the filter over every requested field, or nil when
// nothing is filtered.
func (f Filter) Payload() elastic.Query {
	return f.excluding("")
}

// Validate fails for a field filter that selects no values, such as a date
// filter without a range. Payload and Excluding leave such filters out.
func (f Filter) Validate() error {
	for _, ff := range f.params.Filters() {
		if fieldFilterClause(ff) == nil {
			return search.ValidationError{Errors: []string{
				fmt.Sprintf(`%s filter on "%s" selects no values`, ff.Kind, ff.FieldName),
			}}
		}
	}
	return nil
}

// Excluding returns the filter without the clauses on field. It is used to
// scope aggregates.
func (f Filter) Excluding(field string) elastic.Query {
	return f.excluding(field)
}

func (f Filter) excluding(field string) elastic.Query {
	var selected, rejected []elastic.Query
	for _, ff := range f.params.Filters() {
		if field != "" && ff.FieldName == field {
			continue
		}
		clause := fieldFilterClause(ff)
		if clause == nil {
			continue
		}
		if ff.Reject {
			rejected = append(rejected, clause)
		} else {
			selected = append(selected, clause)
		}
	}
	if !f.params.Debug().IncludeWithdrawn {
		rejected = append(rejected, elastic.NewTermQuery(withdrawnField, true))
	}

	must := combineAnd(selected)
	mustNot := combineOr(rejected)
	switch {
	case must != nil && mustNot != nil:
		return elastic.NewBoolQuery().Must(must).MustNot(mustNot)
	case must != nil:
		return must
	case mustNot != nil:
		return elastic.NewBoolQuery().MustNot(mustNot)
	default:
		return nil
	}
}

func fieldFilterClause(ff search.FieldFilter) elastic.Query {
	var clauses []elastic.Query
	if ff.IncludeMissing {
		clauses = append(clauses, elastic.NewBoolQuery().MustNot(elastic.NewExistsQuery(ff.FieldName)))
	}

	switch ff.Kind {
	case search.FilterKindDate:
		if ff.DateRange != nil {
			clauses = append(clauses, dateClause(ff.FieldName, *ff.DateRange))
		}
	case search.FilterKindBoolean:
		if len(ff.Values) > 0 {
			clauses = append(clauses, termClauses(ff.FieldName, ff.Values, search.MultivalueAll, booleanValue))
		}
	default:
		if len(ff.Values) > 0 {
			clauses = append(clauses, termClauses(ff.FieldName, ff.Values, ff.Multivalue, stringValue))
		}
	}
	return combineOr(clauses)
}

func termClauses(field string, values []string, multivalue search.Multivalue, convert func(string) interface{}) elastic.Query {
	if multivalue == search.MultivalueAll {
		must := make([]elastic.Query, 0, len(values))
		for _, v := range values {
			must = append(must, elastic.NewTermQuery(field, convert(v)))
		}
		return elastic.NewBoolQuery().Must(must...)
	}

	terms := make([]interface{}, 0, len(values))
	for _, v := range values {
		terms = append(terms, convert(v))
	}
	return elastic.NewTermsQuery(field, terms...)
}

func dateClause(field string, dr search.DateRange) elastic.Query {
	q := elastic.NewRangeQuery(field)
	if dr.From != nil {
		q = q.Gte(formatTime(*dr.From))
	}
	if dr.To != nil {
		q = q.Lte(formatTime(*dr.To))
	}
	return q
}

func formatTime(t time.Time) string {
	return t.Format(iso8601Layout)
}

func stringValue(v string) interface{} { return v }

func booleanValue(v string) interface{} { return v == "true" }

func combineAnd(queries []elastic.Query) elastic.Query {
	switch len(queries) {
	case 0:
		return nil
	case 1:
		return queries[0]
	default:
		return elastic.NewBoolQuery().Must(queries...)
	}
}

func combineOr(queries []elastic.Query) elastic.Query {
	switch len(queries) {
	case 0:
		return nil
	case 1:
		return queries[0]
	default:
		return elastic.NewBoolQuery().Should(queries...)
	}
}
