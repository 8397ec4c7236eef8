package querybuilder

import (
	"github.com/goto/sitesearch/core/search"
	"github.com/olivere/elastic/v7"
)

const (
	SpellingSuggesterName = "spelling_suggestions"
	spellingField         = "spelling_text"
)

// Suggest asks for spelling corrections of the free text.
type Suggest struct {
	params search.QueryParameters
}

func NewSuggest(params search.QueryParameters) Suggest {
	return Suggest{params: params}
}

// Payload returns nil unless spelling suggestions were requested for a
// query.
func (s Suggest) Payload() elastic.Suggester {
	if !s.params.SuggestSpelling() || !s.params.HasQuery() {
		return nil
	}
	return elastic.NewPhraseSuggester(SpellingSuggesterName).
		Text(s.params.Query()).
		Field(spellingField).
		Size(1).
		Highlight(HighlightPreTag, HighlightPostTag).
		CandidateGenerator(
			elastic.NewDirectCandidateGenerator(spellingField).
				SuggestMode("missing").
				Size(10),
		)
}
