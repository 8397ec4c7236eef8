package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

const (
	baseTypeFile           = "base_elasticsearch_type.json"
	elasticsearchTypesDir  = "elasticsearch_types"
	documentTypeFieldName  = "document_type"
	elasticsearchTypeKind  = "document type definition"
	elasticsearchTypeRegex = `^[a-z][-_a-z]*\.json$`
)

var elasticsearchTypeFileRe = regexp.MustCompile(elasticsearchTypeRegex)

// ElasticsearchType is a named set of fields that documents of one kind may
// carry.
type ElasticsearchType struct {
	Name   string
	Fields map[string]FieldDefinition
}

// Field returns the definition of a field declared by this type.
func (t ElasticsearchType) Field(name string) (FieldDefinition, bool) {
	def, ok := t.Fields[name]
	return def, ok
}

// FieldNames returns the declared field names in sorted order.
func (t ElasticsearchType) FieldNames() []string {
	names := make([]string, 0, len(t.Fields))
	for name := range t.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExpandedSearchResultFields returns the label/value lists of the fields
// that declare one.
func (t ElasticsearchType) ExpandedSearchResultFields() map[string][]LabelValue {
	out := make(map[string][]LabelValue)
	for name, def := range t.Fields {
		if def.Expandable() {
			out[name] = def.ExpandedSearchResultFields
		}
	}
	return out
}

// ESConfig returns the mapping properties of every field of the type.
func (t ElasticsearchType) ESConfig() map[string]interface{} {
	props := make(map[string]interface{}, len(t.Fields))
	for name, def := range t.Fields {
		props[name] = cloneConfig(def.ESConfig)
	}
	return props
}

type elasticsearchTypeParser struct {
	path     string
	baseType *ElasticsearchType
	defs     map[string]FieldDefinition
}

func (p elasticsearchTypeParser) typeName() string {
	return strings.TrimSuffix(filepath.Base(p.path), ".json")
}

func (p elasticsearchTypeParser) err(format string, args ...interface{}) error {
	return ConfigError{Path: p.path, Kind: elasticsearchTypeKind, Msg: fmt.Sprintf(format, args...)}
}

func (p elasticsearchTypeParser) parse() (ElasticsearchType, error) {
	raw, err := readRawObject(p.path)
	if err != nil {
		return ElasticsearchType{}, err
	}

	useBaseType := true
	if _, err := raw.take("use_base_type", &useBaseType); err != nil {
		return ElasticsearchType{}, p.err("%s", err)
	}

	var fieldNames []string
	found, err := raw.take("fields", &fieldNames)
	if err != nil {
		return ElasticsearchType{}, p.err("%s", err)
	}
	if !found {
		return ElasticsearchType{}, p.err(`missing "fields"`)
	}
	if dup := firstDuplicate(fieldNames); dup != "" {
		return ElasticsearchType{}, p.err(`duplicate entries in "fields" (%q)`, dup)
	}

	var expanded map[string][]LabelValue
	if _, err := raw.take("expanded_search_result_fields", &expanded); err != nil {
		return ElasticsearchType{}, p.err("%s", err)
	}

	if len(raw) > 0 {
		return ElasticsearchType{}, p.err("unknown keys (%s)", raw.unknownKeys())
	}

	if p.baseType != nil && useBaseType {
		fieldNames = mergeFieldNames(fieldNames, p.baseType.FieldNames())
	}

	fields := make(map[string]FieldDefinition, len(fieldNames))
	for _, name := range fieldNames {
		def, ok := p.defs[name]
		if !ok {
			return ElasticsearchType{}, p.err("%s %q", ErrUndefinedField, name)
		}
		fields[name] = def
	}

	for name, values := range expanded {
		def, ok := fields[name]
		if !ok {
			return ElasticsearchType{}, p.err(`field %q set in "expanded_search_result_fields", but not in "fields"`, name)
		}
		def.ExpandedSearchResultFields = values
		fields[name] = def
	}

	return ElasticsearchType{Name: p.typeName(), Fields: fields}, nil
}

func loadElasticsearchTypes(configPath string, defs map[string]FieldDefinition) (map[string]ElasticsearchType, error) {
	base, err := elasticsearchTypeParser{
		path: filepath.Join(configPath, baseTypeFile),
		defs: defs,
	}.parse()
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(configPath, elasticsearchTypesDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read elasticsearch types: %w", err)
	}

	types := make(map[string]ElasticsearchType)
	for _, entry := range entries {
		if entry.IsDir() || !elasticsearchTypeFileRe.MatchString(entry.Name()) {
			continue
		}
		t, err := elasticsearchTypeParser{
			path:     filepath.Join(dir, entry.Name()),
			baseType: &base,
			defs:     defs,
		}.parse()
		if err != nil {
			return nil, err
		}
		types[t.Name] = t
	}
	return types, nil
}

func mergeFieldNames(names, base []string) []string {
	seen := make(map[string]struct{}, len(names)+len(base))
	out := make([]string, 0, len(names)+len(base))
	for _, list := range [][]string{names, base} {
		for _, name := range list {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}

func firstDuplicate(names []string) string {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			return name
		}
		seen[name] = struct{}{}
	}
	return ""
}
