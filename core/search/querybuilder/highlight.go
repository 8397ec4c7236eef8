package querybuilder

import (
	"github.com/goto/sitesearch/core/search"
	"github.com/olivere/elastic/v7"
)

const (
	TitleWithHighlighting       = "title_with_highlighting"
	DescriptionWithHighlighting = "description_with_highlighting"

	HighlightPreTag  = "<mark>"
	HighlightPostTag = "</mark>"

	descriptionFragmentSize = 225
)

// Highlight requests marked up title and description snippets when the
// caller asked for the highlighted virtual fields.
type Highlight struct {
	params search.QueryParameters
}

func NewHighlight(params search.QueryParameters) Highlight {
	return Highlight{params: params}
}

// HighlightFields returns the names under which the engine reports title
// and description fragments.
func HighlightFields(params search.QueryParameters) (title, description string) {
	if params.Debug().DisableSynonyms {
		return "title", "description"
	}
	return "title.synonym", "description.synonym"
}

func (h Highlight) Payload() *elastic.Highlight {
	if !h.params.ReturnsField(TitleWithHighlighting) && !h.params.ReturnsField(DescriptionWithHighlighting) {
		return nil
	}

	title, description := HighlightFields(h.params)
	return elastic.NewHighlight().
		Encoder("html").
		PreTags(HighlightPreTag).
		PostTags(HighlightPostTag).
		Fields(
			elastic.NewHighlighterField(title).NumOfFragments(0),
			elastic.NewHighlighterField(description).
				NumOfFragments(1).
				FragmentSize(descriptionFragmentSize),
		)
}
