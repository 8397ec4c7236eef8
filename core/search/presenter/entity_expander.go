package presenter

import (
	"github.com/goto/sitesearch/core/registry"
)

// Mapping replaces references stored in Field by the registry entities
// they refer to, writing the expansion to Target.
type Mapping struct {
	Registry string
	Field    string
	Target   string
	Key      string
}

// EntityMappings lists the result fields expanded from registries.
var EntityMappings = []Mapping{
	{Registry: registry.DocumentSeries, Field: "document_series", Target: "document_series", Key: registry.KeySlug},
	{Registry: registry.DocumentCollections, Field: "document_collections", Target: "document_collections", Key: registry.KeySlug},
	{Registry: registry.Organisations, Field: "organisations", Target: "organisations", Key: registry.KeySlug},
	{Registry: registry.PolicyAreas, Field: "policy_areas", Target: "policy_areas", Key: registry.KeySlug},
	{Registry: registry.WorldLocations, Field: "world_locations", Target: "world_locations", Key: registry.KeySlug},
	{Registry: registry.SpecialistSectors, Field: "specialist_sectors", Target: "specialist_sectors", Key: registry.KeySlug},
	{Registry: registry.People, Field: "people", Target: "people", Key: registry.KeySlug},
	{Registry: registry.Roles, Field: "roles", Target: "roles", Key: registry.KeySlug},
	{Registry: registry.TopicContentIDs, Field: "topic_content_ids", Target: "expanded_topics", Key: registry.KeyContentID},
	{Registry: registry.OrganisationContentIDs, Field: "organisation_content_ids", Target: "expanded_organisations", Key: registry.KeyContentID},
}

// EntityExpander turns lists of slugs and content ids into entity objects.
// References missing from a registry stay as {slug: value} or
// {content_id: value}.
type EntityExpander struct {
	registries registry.Snapshot
	mappings   []Mapping
}

func NewEntityExpander(registries registry.Snapshot) EntityExpander {
	return EntityExpander{registries: registries, mappings: EntityMappings}
}

// Expand returns a copy of result with every mapped field expanded. Fields
// whose registry is not available are left alone.
func (x EntityExpander) Expand(result map[string]interface{}) map[string]interface{} {
	out := copyMap(result)
	for _, m := range x.mappings {
		raw, ok := result[m.Field]
		if !ok || raw == nil {
			continue
		}
		table, ok := x.registries[m.Registry]
		if !ok {
			continue
		}

		refs := stringList(raw)
		expanded := make([]interface{}, 0, len(refs))
		for _, ref := range refs {
			expanded = append(expanded, table.Expand(m.Key, ref).AsMap())
		}
		out[m.Target] = expanded
	}
	return out
}

func stringList(v interface{}) []string {
	switch v := v.(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
