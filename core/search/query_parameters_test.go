package search_test

import (
	"errors"
	"testing"

	"github.com/goto/sitesearch/core/search"
	"github.com/stretchr/testify/assert"
)

func TestNewQueryParameters(t *testing.T) {
	t.Run("should not share state with its input", func(t *testing.T) {
		p := search.Params{
			Query:        "  pigs  ",
			Order:        &search.SortOrder{Field: "public_timestamp", Descending: true},
			ReturnFields: []string{"title"},
			Filters: []search.FieldFilter{
				{FieldName: "organisations", Kind: search.FilterKindText, Values: []string{"hmrc"}},
			},
			Aggregates: map[string]search.AggregateRequest{
				"organisations": {Requested: 10, Order: []search.AggregateOrder{{Key: search.OrderFiltered, Direction: 1}}},
			},
		}
		qp := search.NewQueryParameters(p)

		p.Order.Field = "title.sort"
		p.ReturnFields[0] = "link"
		p.Filters[0].Values[0] = "dvla"
		p.Aggregates["organisations"].Order[0].Key = "count"

		order, ok := qp.Order()
		assert.True(t, ok)
		assert.Equal(t, "public_timestamp", order.Field)
		assert.Equal(t, []string{"title"}, qp.ReturnFields())
		assert.Equal(t, []string{"hmrc"}, qp.Filters()[0].Values)
		agg, ok := qp.Aggregate("organisations")
		assert.True(t, ok)
		assert.Equal(t, search.OrderFiltered, agg.Order[0].Key)
		assert.Equal(t, "pigs", qp.Query())
	})

	t.Run("accessors return copies", func(t *testing.T) {
		qp := search.NewQueryParameters(search.Params{
			Filters: []search.FieldFilter{{FieldName: "format", Values: []string{"guide"}}},
		})
		filters := qp.Filters()
		filters[0].Values[0] = "answer"
		assert.Equal(t, []string{"guide"}, qp.Filters()[0].Values)
	})
}

func TestQueryParametersQuotedSearchPhrase(t *testing.T) {
	testCases := []struct {
		Query    string
		Expected bool
	}{
		{Query: `"self assessment"`, Expected: true},
		{Query: `self assessment`, Expected: false},
		{Query: `"self" "assessment"`, Expected: false},
		{Query: `"self assessment`, Expected: false},
		{Query: `""`, Expected: false},
	}
	for _, tc := range testCases {
		t.Run(tc.Query, func(t *testing.T) {
			qp := search.NewQueryParameters(search.Params{Query: tc.Query})
			assert.Equal(t, tc.Expected, qp.QuotedSearchPhrase())
		})
	}
}

func TestQueryParametersAppliedValues(t *testing.T) {
	qp := search.NewQueryParameters(search.Params{
		Filters: []search.FieldFilter{
			{FieldName: "organisations", Values: []string{"hmrc", "dvla"}},
			{FieldName: "organisations", Values: []string{"dft"}, Reject: true},
			{FieldName: "format", Values: []string{"guide"}},
			{FieldName: "organisations", Values: []string{"hmrc", "cabinet-office"}},
		},
	})

	assert.Equal(t, []string{"hmrc", "dvla", "cabinet-office"}, qp.AppliedValues("organisations"))
	assert.Empty(t, qp.AppliedValues("people"))
}

func TestQueryParametersAggregateNames(t *testing.T) {
	qp := search.NewQueryParameters(search.Params{
		Aggregates: map[string]search.AggregateRequest{
			"specialist_sectors": {Requested: 1},
			"organisations":      {Requested: 1},
		},
	})
	assert.Equal(t, []string{"organisations", "specialist_sectors"}, qp.AggregateNames())
}

func TestQueryParametersSuggestSpelling(t *testing.T) {
	assert.True(t, search.NewQueryParameters(search.Params{Suggest: []string{"spelling"}}).SuggestSpelling())
	assert.False(t, search.NewQueryParameters(search.Params{}).SuggestSpelling())
}

func TestBucketTerm(t *testing.T) {
	testCases := []struct {
		Description string
		Bucket      search.Bucket
		Expected    string
	}{
		{Description: "string key", Bucket: search.Bucket{Key: "hmrc"}, Expected: "hmrc"},
		{Description: "key as string wins", Bucket: search.Bucket{Key: float64(1), KeyAsString: "true"}, Expected: "true"},
		{Description: "numeric key", Bucket: search.Bucket{Key: float64(2016)}, Expected: "2016"},
	}
	for _, tc := range testCases {
		t.Run(tc.Description, func(t *testing.T) {
			assert.Equal(t, tc.Expected, tc.Bucket.Term())
		})
	}
}

func TestValidationError(t *testing.T) {
	err := search.ValidationError{Errors: []string{"Invalid value \"-1\" for parameter \"start\"", "Unexpected parameters: foo"}}

	assert.EqualError(t, err, `Invalid value "-1" for parameter "start". Unexpected parameters: foo`)
	assert.True(t, errors.Is(err, search.ErrInvalidParameters))
}
