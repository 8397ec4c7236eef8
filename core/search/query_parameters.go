package search

import (
	"regexp"
	"sort"
	"strings"
)

const (
	DefaultCount = 10
	MaxCount     = 1000

	SuggestSpelling = "spelling"

	// DefaultAggregateName is the response key of presented aggregates.
	DefaultAggregateName = "aggregates"
)

var quotedPhraseRe = regexp.MustCompile(`^"[^"]+"$`)

// SortOrder is an explicit result ordering on one field.
type SortOrder struct {
	Field      string
	Descending bool
}

// DebugFlags are the options of the debug request parameter.
type DebugFlags struct {
	DisableBestBets   bool
	DisablePopularity bool
	DisableSynonyms   bool
	DisableBoosting   bool
	Explain           bool
	IncludeWithdrawn  bool
	ShowQuery         bool
}

// Params holds the values a QueryParameters is built from.
type Params struct {
	Start        int
	Count        int
	Query        string
	SimilarTo    string
	Order        *SortOrder
	Filters      []FieldFilter
	Aggregates   map[string]AggregateRequest
	ReturnFields []string
	Debug        DebugFlags
	Suggest      []string

	// AggregateName is "facets" when the request used the facet_ prefix.
	AggregateName string
}

// QueryParameters is a parsed search request. It is created once per
// request and every accessor returns a copy, so it can be shared freely.
type QueryParameters struct {
	start        int
	count        int
	query        string
	similarTo    string
	order        *SortOrder
	filters      []FieldFilter
	aggregates   map[string]AggregateRequest
	returnFields []string
	debug        DebugFlags
	suggest      []string
	aggName      string
}

func NewQueryParameters(p Params) QueryParameters {
	qp := QueryParameters{
		start:        p.Start,
		count:        p.Count,
		query:        strings.TrimSpace(p.Query),
		similarTo:    strings.TrimSpace(p.SimilarTo),
		debug:        p.Debug,
		returnFields: append([]string(nil), p.ReturnFields...),
		suggest:      append([]string(nil), p.Suggest...),
		aggregates:   make(map[string]AggregateRequest, len(p.Aggregates)),
		aggName:      p.AggregateName,
	}
	if qp.aggName == "" {
		qp.aggName = DefaultAggregateName
	}
	if p.Order != nil {
		order := *p.Order
		qp.order = &order
	}
	for _, f := range p.Filters {
		qp.filters = append(qp.filters, f.clone())
	}
	for name, agg := range p.Aggregates {
		qp.aggregates[name] = agg.clone()
	}
	return qp
}

func (p QueryParameters) Start() int { return p.start }

func (p QueryParameters) Count() int { return p.count }

// Query returns the free text of the request, or "" when there is none.
func (p QueryParameters) Query() string { return p.query }

func (p QueryParameters) HasQuery() bool { return p.query != "" }

// SimilarTo returns the link of the document whose lookalikes are
// requested, or "".
func (p QueryParameters) SimilarTo() string { return p.similarTo }

// QuotedSearchPhrase reports whether the whole query is one quoted phrase.
func (p QueryParameters) QuotedSearchPhrase() bool {
	return quotedPhraseRe.MatchString(p.query)
}

func (p QueryParameters) Order() (SortOrder, bool) {
	if p.order == nil {
		return SortOrder{}, false
	}
	return *p.order, true
}

func (p QueryParameters) Filters() []FieldFilter {
	out := make([]FieldFilter, 0, len(p.filters))
	for _, f := range p.filters {
		out = append(out, f.clone())
	}
	return out
}

// AppliedValues returns the values selected by the non-rejecting filters on
// a field, in request order and without duplicates.
func (p QueryParameters) AppliedValues(field string) []string {
	var values []string
	seen := make(map[string]struct{})
	for _, f := range p.filters {
		if f.FieldName != field || f.Reject {
			continue
		}
		for _, v := range f.Values {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			values = append(values, v)
		}
	}
	return values
}

func (p QueryParameters) Aggregate(field string) (AggregateRequest, bool) {
	agg, ok := p.aggregates[field]
	if !ok {
		return AggregateRequest{}, false
	}
	return agg.clone(), true
}

// AggregateNames returns the requested aggregate fields in sorted order.
func (p QueryParameters) AggregateNames() []string {
	names := make([]string, 0, len(p.aggregates))
	for name := range p.aggregates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AggregateName returns the key aggregates are presented under.
func (p QueryParameters) AggregateName() string { return p.aggName }

func (p QueryParameters) ReturnFields() []string {
	return append([]string(nil), p.returnFields...)
}

// ReturnsField reports whether the caller asked for the field.
func (p QueryParameters) ReturnsField(name string) bool {
	for _, f := range p.returnFields {
		if f == name {
			return true
		}
	}
	return false
}

func (p QueryParameters) Debug() DebugFlags { return p.debug }

func (p QueryParameters) SuggestSpelling() bool {
	for _, s := range p.suggest {
		if s == SuggestSpelling {
			return true
		}
	}
	return false
}
