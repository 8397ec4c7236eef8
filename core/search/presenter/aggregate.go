package presenter

import (
	"sort"
	"strings"

	"github.com/goto/sitesearch/core/registry"
	"github.com/goto/sitesearch/core/search"
	"github.com/goto/sitesearch/core/search/querybuilder"
)

// AggregateOption is one value of an aggregate.
type AggregateOption struct {
	Value     map[string]interface{} `json:"value"`
	Documents int                    `json:"documents"`
	Applied   bool                   `json:"applied"`

	term string
}

// Term returns the raw aggregated value the option was built from.
func (o AggregateOption) Term() string { return o.term }

// Aggregate is the presented form of one requested aggregate.
type Aggregate struct {
	Options              []AggregateOption     `json:"options"`
	DocumentsWithNoValue int                   `json:"documents_with_no_value"`
	TotalOptions         int                   `json:"total_options"`
	MissingOptions       int                   `json:"missing_options"`
	Scope                search.AggregateScope `json:"scope"`
}

// ExampleInfo holds the example documents fetched for one option.
type ExampleInfo struct {
	Total    int                      `json:"total"`
	Examples []map[string]interface{} `json:"examples"`
}

// FieldPresenter expands an aggregated value into an object, using the
// registry named after the field when there is one.
type FieldPresenter struct {
	registries registry.Snapshot
}

func NewFieldPresenter(registries registry.Snapshot) FieldPresenter {
	return FieldPresenter{registries: registries}
}

func (p FieldPresenter) Expand(field, value string) map[string]interface{} {
	key := registry.KeySlug
	if strings.HasSuffix(field, "_content_ids") {
		key = registry.KeyContentID
	}
	return p.registries.Get(field).Expand(key, value).AsMap()
}

// AggregateResultPresenter turns the aggregations of a response into
// option lists.
type AggregateResultPresenter struct {
	params search.QueryParameters
	fields FieldPresenter
}

func NewAggregateResultPresenter(params search.QueryParameters, registries registry.Snapshot) *AggregateResultPresenter {
	return &AggregateResultPresenter{params: params, fields: NewFieldPresenter(registries)}
}

// Present returns one Aggregate per requested aggregate found in aggs.
func (p *AggregateResultPresenter) Present(aggs map[string]search.Aggregation) map[string]*Aggregate {
	out := make(map[string]*Aggregate)
	for _, field := range p.params.AggregateNames() {
		if strings.HasSuffix(field, querybuilder.MissingValueSuffix) {
			continue
		}
		agg, ok := aggs[field]
		if !ok {
			continue
		}
		req, _ := p.params.Aggregate(field)

		buckets := agg.Filtered.Buckets
		missing := len(buckets) - req.Requested
		if missing < 0 {
			missing = 0
		}
		out[field] = &Aggregate{
			Options:              p.options(field, buckets, req),
			DocumentsWithNoValue: aggs[field+querybuilder.MissingValueSuffix].Filtered.DocCount,
			TotalOptions:         len(buckets),
			MissingOptions:       missing,
			Scope:                req.Scope,
		}
	}
	return out
}

// options returns the requested number of options with documents, plus
// every applied option whatever its count.
func (p *AggregateResultPresenter) options(field string, buckets []search.Bucket, req search.AggregateRequest) []AggregateOption {
	applied := make(map[string]bool)
	for _, v := range p.params.AppliedValues(field) {
		applied[v] = true
	}

	seen := make(map[string]bool)
	var all []AggregateOption
	add := func(term string, count int) {
		if seen[term] {
			return
		}
		seen[term] = true
		all = append(all, AggregateOption{
			Value:     p.fields.Expand(field, term),
			Documents: count,
			Applied:   applied[term],
			term:      term,
		})
	}
	for _, b := range buckets {
		add(b.Term(), b.DocCount)
	}
	for _, v := range p.params.AppliedValues(field) {
		add(v, 0)
	}

	order := req.Order
	if len(order) == 0 {
		order = search.DefaultAggregateOrder
	}
	sortOptions(all, order)

	picked := make(map[string]bool)
	var top []AggregateOption
	for _, o := range all {
		if len(top) >= req.Requested {
			break
		}
		if o.Documents > 0 {
			top = append(top, o)
			picked[o.term] = true
		}
	}
	for _, o := range all {
		if o.Applied && !picked[o.term] {
			top = append(top, o)
			picked[o.term] = true
		}
	}
	sortOptions(top, order)

	if top == nil {
		top = []AggregateOption{}
	}
	return top
}

func sortOptions(options []AggregateOption, order []search.AggregateOrder) {
	sort.SliceStable(options, func(i, j int) bool {
		return compareOptions(options[i], options[j], order) < 0
	})
}

func compareOptions(a, b AggregateOption, order []search.AggregateOrder) int {
	for _, o := range order {
		var c int
		switch o.Key {
		case search.OrderFiltered:
			c = compareInts(appliedRank(a), appliedRank(b))
		case search.OrderCount:
			c = compareInts(a.Documents, b.Documents)
		case search.OrderValue:
			c = strings.Compare(valueSortKey(a), valueSortKey(b))
		case search.OrderValueSlug, search.OrderSlug:
			c = strings.Compare(a.term, b.term)
		case search.OrderValueTitle:
			c = strings.Compare(stringValue(a.Value["title"]), stringValue(b.Value["title"]))
		case search.OrderValueLink:
			c = strings.Compare(stringValue(a.Value["link"]), stringValue(b.Value["link"]))
		}
		if c != 0 {
			return c * o.Direction
		}
	}
	return 0
}

func appliedRank(o AggregateOption) int {
	if o.Applied {
		return 0
	}
	return 1
}

// valueSortKey sorts expanded entities by title and bare values by the
// value itself.
func valueSortKey(o AggregateOption) string {
	if title := stringValue(o.Value["title"]); title != "" {
		return strings.ToLower(title)
	}
	return strings.ToLower(o.term)
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// MergeExamples attaches the example documents fetched for each option.
// Options of an aggregate with examples but none for the option get an
// empty ExampleInfo.
func MergeExamples(aggs map[string]*Aggregate, examples map[string]map[string]ExampleInfo) {
	for field, agg := range aggs {
		fieldExamples, ok := examples[field]
		if !ok {
			continue
		}
		for i, o := range agg.Options {
			info, ok := fieldExamples[o.term]
			if !ok {
				info = ExampleInfo{Examples: []map[string]interface{}{}}
			}
			value := copyMap(o.Value)
			value["example_info"] = info
			agg.Options[i].Value = value
		}
	}
}
