package presenter_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/goto/sitesearch/core/search"
	"github.com/goto/sitesearch/core/search/presenter"
	"github.com/stretchr/testify/assert"
)

func TestHighlightedTitle(t *testing.T) {
	params := search.NewQueryParameters(search.Params{})

	t.Run("uses the highlighted fragment", func(t *testing.T) {
		hit := search.Hit{
			Source:    map[string]interface{}{"title": "Pig farming"},
			Highlight: map[string][]string{"title.synonym": {"<mark>Pig</mark> farming"}},
		}
		assert.Equal(t, "<mark>Pig</mark> farming", presenter.HighlightedTitle(hit, params))
	})

	t.Run("escapes the plain title", func(t *testing.T) {
		hit := search.Hit{Source: map[string]interface{}{"title": "Pigs & sheep"}}
		assert.Equal(t, "Pigs &amp; sheep", presenter.HighlightedTitle(hit, params))
	})

	t.Run("uses the plain field when synonyms are disabled", func(t *testing.T) {
		hit := search.Hit{
			Source:    map[string]interface{}{"title": "Pig farming"},
			Highlight: map[string][]string{"title": {"<mark>Pig</mark> farming"}},
		}
		noSynonyms := search.NewQueryParameters(search.Params{Debug: search.DebugFlags{DisableSynonyms: true}})
		assert.Equal(t, "<mark>Pig</mark> farming", presenter.HighlightedTitle(hit, noSynonyms))
	})
}

func TestHighlightedDescription(t *testing.T) {
	params := search.NewQueryParameters(search.Params{})

	t.Run("adds highlighting if present", func(t *testing.T) {
		hit := search.Hit{
			Source:    map[string]interface{}{"description": "I will be highlighted."},
			Highlight: map[string][]string{"description.synonym": {"I will be <mark>highlighted</mark>."}},
		}
		assert.Equal(t, "I will be <mark>highlighted</mark>.", presenter.HighlightedDescription(hit, params))
	})

	t.Run("marks fragments cut on both sides", func(t *testing.T) {
		hit := search.Hit{
			Source:    map[string]interface{}{"description": "Before the fragment, the highlighted words, after the fragment."},
			Highlight: map[string][]string{"description.synonym": {"the <mark>highlighted</mark> words"}},
		}
		assert.Equal(t, "…the <mark>highlighted</mark> words…", presenter.HighlightedDescription(hit, params))
	})

	t.Run("marks a fragment cut at the end", func(t *testing.T) {
		hit := search.Hit{
			Source:    map[string]interface{}{"description": "Pigs are farmed across the country."},
			Highlight: map[string][]string{"description.synonym": {"<mark>Pigs</mark> are farmed"}},
		}
		assert.Equal(t, "<mark>Pigs</mark> are farmed…", presenter.HighlightedDescription(hit, params))
	})

	t.Run("uses the escaped description if highlight not found", func(t *testing.T) {
		hit := search.Hit{Source: map[string]interface{}{"description": "I will not be highlighted & escaped."}}
		assert.Equal(t, "I will not be highlighted &amp; escaped.", presenter.HighlightedDescription(hit, params))
	})

	t.Run("truncates a long description", func(t *testing.T) {
		hit := search.Hit{Source: map[string]interface{}{"description": strings.Repeat("This is a sentence that is too long.", 10)}}
		got := presenter.HighlightedDescription(hit, params)
		assert.Equal(t, 225, utf8.RuneCountInString(got))
		assert.True(t, strings.HasSuffix(got, "…"))
	})

	t.Run("empty without a description", func(t *testing.T) {
		hit := search.Hit{Source: map[string]interface{}{"description": nil}}
		assert.Equal(t, "", presenter.HighlightedDescription(hit, params))
	})
}
