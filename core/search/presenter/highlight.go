package presenter

import (
	"html"
	"strings"

	"github.com/goto/sitesearch/core/search"
	"github.com/goto/sitesearch/core/search/querybuilder"
)

const (
	descriptionLength = 225
	ellipsis          = "…"
)

// HighlightedTitle returns the marked up title fragment, or the escaped
// plain title when the engine returned none.
func HighlightedTitle(hit search.Hit, params search.QueryParameters) string {
	field, _ := querybuilder.HighlightFields(params)
	if fragment, ok := firstFragment(hit, field, "title"); ok {
		return fragment
	}
	return html.EscapeString(stringValue(hit.Source["title"]))
}

// HighlightedDescription returns the marked up description fragment,
// marking truncation on either side with an ellipsis. Without a fragment the
// escaped description is truncated to a fixed length.
func HighlightedDescription(hit search.Hit, params search.QueryParameters) string {
	description := stringValue(hit.Source["description"])

	_, field := querybuilder.HighlightFields(params)
	if fragment, ok := firstFragment(hit, field, "description"); ok {
		return markTruncation(fragment, html.EscapeString(description))
	}
	return html.EscapeString(truncate(description, descriptionLength))
}

func firstFragment(hit search.Hit, fields ...string) (string, bool) {
	for _, f := range fields {
		if fragments := hit.Highlight[f]; len(fragments) > 0 {
			return fragments[0], true
		}
	}
	return "", false
}

func markTruncation(fragment, original string) string {
	plain := strings.NewReplacer(querybuilder.HighlightPreTag, "", querybuilder.HighlightPostTag, "").Replace(fragment)
	if original == "" || plain == "" {
		return fragment
	}
	if !strings.HasPrefix(original, plain) {
		fragment = ellipsis + fragment
	}
	if !strings.HasSuffix(original, plain) {
		fragment += ellipsis
	}
	return fragment
}

// truncate shortens s to at most length runes, the last being an ellipsis.
func truncate(s string, length int) string {
	runes := []rune(s)
	if len(runes) <= length {
		return s
	}
	return string(runes[:length-1]) + ellipsis
}

func stringValue(v interface{}) string {
	switch v := v.(type) {
	case string:
		return v
	case []interface{}:
		if len(v) > 0 {
			return stringValue(v[0])
		}
	}
	return ""
}
