package schema

import (
	"sort"
)

// CombinedSchema is the union of the fields of every type in a set of
// indices. Searches over several indices are validated against it.
type CombinedSchema struct {
	IndexNames []string
	fields     map[string]FieldDefinition
}

// Merge combines the schemas of the given indices. Each name may be an
// alias or a concrete index name.
func (c *Config) Merge(indexNames ...string) (*CombinedSchema, error) {
	combined := &CombinedSchema{
		IndexNames: indexNames,
		fields:     make(map[string]FieldDefinition),
	}

	for _, indexName := range indexNames {
		s, err := c.SchemaForAliasName(indexName)
		if err != nil {
			return nil, err
		}
		for _, typeName := range s.typeNames() {
			for name, def := range s.ElasticsearchTypes[typeName].Fields {
				existing, ok := combined.fields[name]
				if !ok {
					combined.fields[name] = def
					continue
				}
				existing.ExpandedSearchResultFields = mergeLabelValues(
					existing.ExpandedSearchResultFields, def.ExpandedSearchResultFields)
				combined.fields[name] = existing
			}
		}
	}
	if def, ok := c.FieldDefinitions[documentTypeFieldName]; ok {
		combined.fields[documentTypeFieldName] = def
	}
	return combined, nil
}

// GetField returns the definition of a field present in any of the indices.
func (s *CombinedSchema) GetField(name string) (FieldDefinition, error) {
	def, ok := s.fields[name]
	if !ok {
		return FieldDefinition{}, UndefinedFieldError{Field: name}
	}
	return def, nil
}

// HasField reports whether the field is present in any of the indices.
func (s *CombinedSchema) HasField(name string) bool {
	_, ok := s.fields[name]
	return ok
}

// FieldNames returns every field name in sorted order.
func (s *CombinedSchema) FieldNames() []string {
	names := make([]string, 0, len(s.fields))
	for name := range s.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AllowedFilterFields returns the names of the fields whose type declares a
// filter type.
func (s *CombinedSchema) AllowedFilterFields() []string {
	var names []string
	for _, name := range s.FieldNames() {
		if s.fields[name].Type.Filterable() {
			names = append(names, name)
		}
	}
	return names
}

// ExpandedSearchResultFields returns the label/value lists of every
// expandable field.
func (s *CombinedSchema) ExpandedSearchResultFields() map[string][]LabelValue {
	out := make(map[string][]LabelValue)
	for name, def := range s.fields {
		if def.Expandable() {
			out[name] = def.ExpandedSearchResultFields
		}
	}
	return out
}

func mergeLabelValues(a, b []LabelValue) []LabelValue {
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]LabelValue, 0, len(a)+len(b))
	for _, list := range [][]LabelValue{a, b} {
		for _, lv := range list {
			if _, ok := seen[lv.Value]; ok {
				continue
			}
			seen[lv.Value] = struct{}{}
			out = append(out, lv)
		}
	}
	return out
}
