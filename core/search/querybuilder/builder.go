package querybuilder

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/goto/sitesearch/core/search"
	"github.com/olivere/elastic/v7"
)

// Fields fetched for every result. Title and description back the
// highlighted virtual fields and the content ids back entity expansion, so
// they are fetched even when the caller did not ask for them.
var requiredSourceFields = []string{
	"document_type",
	"title",
	"description",
	"organisation_content_ids",
	"topic_content_ids",
	"mainstream_browse_page_content_ids",
	"popularity",
	"format",
	"link",
	"public_timestamp",
	"updated_at",
	"indexable_content",
}

type Option func(*Builder)

// WithClock sets the time used for the freshness boost.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithIndices sets the content indices, where similar_to looks up the
// liked document.
func WithIndices(indices ...string) Option {
	return func(b *Builder) { b.indices = append([]string(nil), indices...) }
}

// WithBestBets sets the links promoted and demoted for the query.
func WithBestBets(bets search.BestBets) Option {
	return func(b *Builder) { b.bestBets = bets }
}

// Builder composes the search payload out of the query components.
type Builder struct {
	params   search.QueryParameters
	now      func() time.Time
	indices  []string
	bestBets search.BestBets
}

func New(params search.QueryParameters, opts ...Option) *Builder {
	b := &Builder{params: params, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Query returns the scoring query. Without free text every document
// matches equally. A similar_to request ignores every scoring component.
func (b *Builder) Query() elastic.Query {
	if link := b.params.SimilarTo(); link != "" {
		return NewMoreLikeThis(link, b.indices).Payload()
	}
	if !b.params.HasQuery() {
		return elastic.NewMatchAllQuery()
	}
	core := NewTextQuery(b.params).Payload()
	return NewBestBets(b.params, b.bestBets).Wrap(
		NewPopularity(b.params).Wrap(
			NewBooster(b.params, b.now()).Wrap(core),
		),
	)
}

// Filter returns the post filter, or nil.
func (b *Builder) Filter() elastic.Query {
	return NewFilter(b.params).Payload()
}

// SourceFields returns the fields fetched from _source.
func (b *Builder) SourceFields() []string {
	return uniqueStrings(append(b.params.ReturnFields(), requiredSourceFields...))
}

func (b *Builder) SearchSource() *elastic.SearchSource {
	ss := elastic.NewSearchSource().
		From(b.params.Start()).
		Size(b.params.Count()).
		FetchSourceContext(elastic.NewFetchSourceContext(true).Include(b.SourceFields()...)).
		Query(b.Query())

	if filter := b.Filter(); filter != nil {
		ss = ss.PostFilter(filter)
	}
	if sorters := NewSort(b.params).Payload(); len(sorters) > 0 {
		ss = ss.SortBy(sorters...)
	}
	for name, agg := range NewAggregates(b.params).Payload() {
		ss = ss.Aggregation(name, agg)
	}
	if hl := NewHighlight(b.params).Payload(); hl != nil {
		ss = ss.Highlight(hl)
	}
	if sg := NewSuggest(b.params).Payload(); sg != nil {
		ss = ss.Suggester(sg)
	}
	if b.params.Debug().Explain {
		ss = ss.Explain(true)
	}
	return ss
}

// Payload returns the search body as a JSON object.
func (b *Builder) Payload() (map[string]interface{}, error) {
	if err := NewFilter(b.params).Validate(); err != nil {
		return nil, err
	}
	return sourceMap(b.SearchSource())
}

// sourceMap turns a query DSL value into plain maps so that it can be
// inspected, logged and compared.
func sourceMap(src interface{ Source() (interface{}, error) }) (map[string]interface{}, error) {
	raw, err := src.Source()
	if err != nil {
		return nil, fmt.Errorf("build payload: %w", err)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return out, nil
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
