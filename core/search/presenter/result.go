package presenter

import (
	"strings"

	"github.com/goto/sitesearch/core/registry"
	"github.com/goto/sitesearch/core/schema"
	"github.com/goto/sitesearch/core/search"
	"github.com/goto/sitesearch/core/search/querybuilder"
)

const (
	// Only results ranked this high render the parts of multi-page
	// documents.
	partsMaxRank = 3
	partsLimit   = 10
)

// ResultPresenter turns a raw hit into a search result. Presentation never
// fails: values that cannot be expanded are passed through as they are.
type ResultPresenter struct {
	schema   *schema.Config
	params   search.QueryParameters
	expander EntityExpander
}

func NewResultPresenter(cfg *schema.Config, registries registry.Snapshot, params search.QueryParameters) *ResultPresenter {
	return &ResultPresenter{
		schema:   cfg,
		params:   params,
		expander: NewEntityExpander(registries),
	}
}

// resultStep derives a new result map from the previous one. Steps never
// modify their input.
type resultStep func(result map[string]interface{}, hit search.Hit, rank int) map[string]interface{}

func (p *ResultPresenter) steps() []resultStep {
	return []resultStep{
		p.normalizeFields,
		p.expandSchemaValues,
		p.expandEntities,
		p.addVirtualFields,
		p.fixLink,
		p.restrictFields,
		p.truncateParts,
		p.addDebugValues,
	}
}

// Present presents a hit at the given 1-based rank in the result set.
func (p *ResultPresenter) Present(hit search.Hit, rank int) map[string]interface{} {
	result := copyMap(hit.Source)
	for _, step := range p.steps() {
		result = step(result, hit, rank)
	}
	return result
}

// DocumentType returns the schema type name of the hit.
func DocumentType(hit search.Hit) string {
	if t, ok := hit.Source["document_type"].(string); ok && t != "" {
		return t
	}
	return hit.Type
}

func (p *ResultPresenter) documentSchema(hit search.Hit) (schema.ElasticsearchType, bool) {
	if p.schema == nil {
		return schema.ElasticsearchType{}, false
	}
	return p.schema.DocumentSchema(search.IndexAlias(hit.Index), DocumentType(hit))
}

// normalizeFields drops fields unknown to the document type and reduces
// arrays of single-valued fields to their first element.
func (p *ResultPresenter) normalizeFields(result map[string]interface{}, hit search.Hit, _ int) map[string]interface{} {
	docSchema, ok := p.documentSchema(hit)
	if !ok {
		return result
	}

	out := make(map[string]interface{}, len(result))
	for name, value := range result {
		def, known := docSchema.Field(name)
		if !known {
			continue
		}
		if list, isList := value.([]interface{}); isList && !def.Type.Multivalued && !strings.HasPrefix(name, "_") {
			if len(list) == 0 {
				value = nil
			} else {
				value = list[0]
			}
		}
		out[name] = value
	}
	return out
}

// expandSchemaValues replaces values of fields with a static label list by
// their label/value objects.
func (p *ResultPresenter) expandSchemaValues(result map[string]interface{}, hit search.Hit, _ int) map[string]interface{} {
	docSchema, ok := p.documentSchema(hit)
	if !ok {
		return result
	}

	expandable := docSchema.ExpandedSearchResultFields()
	if len(expandable) == 0 {
		return result
	}

	out := copyMap(result)
	for name := range expandable {
		raw, ok := result[name]
		if !ok {
			continue
		}
		def, _ := docSchema.Field(name)
		values := stringList(raw)
		expanded := make([]interface{}, 0, len(values))
		for _, v := range values {
			if lv, found := def.ExpandValue(v); found {
				expanded = append(expanded, map[string]interface{}{"label": lv.Label, "value": lv.Value})
			} else {
				expanded = append(expanded, map[string]interface{}{"value": v})
			}
		}
		out[name] = expanded
	}
	return out
}

func (p *ResultPresenter) expandEntities(result map[string]interface{}, _ search.Hit, _ int) map[string]interface{} {
	return p.expander.Expand(result)
}

func (p *ResultPresenter) addVirtualFields(result map[string]interface{}, hit search.Hit, _ int) map[string]interface{} {
	title := p.params.ReturnsField(querybuilder.TitleWithHighlighting)
	description := p.params.ReturnsField(querybuilder.DescriptionWithHighlighting)
	if !title && !description {
		return result
	}

	out := copyMap(result)
	if title {
		out[querybuilder.TitleWithHighlighting] = HighlightedTitle(hit, p.params)
	}
	if description {
		out[querybuilder.DescriptionWithHighlighting] = HighlightedDescription(hit, p.params)
	}
	return out
}

// fixLink makes stored relative paths absolute.
func (p *ResultPresenter) fixLink(result map[string]interface{}, _ search.Hit, _ int) map[string]interface{} {
	link, ok := result["link"].(string)
	if !ok || link == "" || strings.HasPrefix(link, "http") || strings.HasPrefix(link, "/") {
		return result
	}
	out := copyMap(result)
	out["link"] = "/" + link
	return out
}

func (p *ResultPresenter) restrictFields(result map[string]interface{}, _ search.Hit, _ int) map[string]interface{} {
	fields := p.params.ReturnFields()
	if len(fields) == 0 {
		return result
	}
	out := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		if v, ok := result[f]; ok {
			out[f] = v
		}
	}
	return out
}

func (p *ResultPresenter) truncateParts(result map[string]interface{}, _ search.Hit, rank int) map[string]interface{} {
	parts, ok := result["parts"].([]interface{})
	if !ok {
		return result
	}

	limit := 0
	if rank <= partsMaxRank {
		limit = partsLimit
	}
	if len(parts) <= limit {
		return result
	}

	out := copyMap(result)
	out["parts"] = append([]interface{}{}, parts[:limit]...)
	return out
}

func (p *ResultPresenter) addDebugValues(result map[string]interface{}, hit search.Hit, _ int) map[string]interface{} {
	out := copyMap(result)
	out["index"] = search.IndexAlias(hit.Index)
	out["es_score"] = hit.Score
	out["_id"] = hit.ID
	out["elasticsearch_type"] = DocumentType(hit)
	out["document_type"] = DocumentType(hit)
	if hit.Explanation != nil && p.params.Debug().Explain {
		out["_explanation"] = hit.Explanation
	}
	return out
}
