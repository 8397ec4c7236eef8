package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

const indexesDir = "indexes"

var indexSchemaFileRe = regexp.MustCompile(`^[a-z][-a-z]*\.json$`)

// IndexSchema lists the elasticsearch types stored in one index.
type IndexSchema struct {
	Name               string
	ElasticsearchTypes map[string]ElasticsearchType

	documentTypeField map[string]interface{}
}

// ElasticsearchType returns the named type if the index stores it.
func (s IndexSchema) ElasticsearchType(name string) (ElasticsearchType, bool) {
	t, ok := s.ElasticsearchTypes[name]
	return t, ok
}

// ESMappings returns the typeless mapping body used to create the index.
func (s IndexSchema) ESMappings() map[string]interface{} {
	props := map[string]interface{}{
		documentTypeFieldName: cloneConfig(s.documentTypeField),
	}
	for _, name := range s.typeNames() {
		for field, cfg := range s.ElasticsearchTypes[name].ESConfig() {
			props[field] = cfg
		}
	}
	return map[string]interface{}{"properties": props}
}

func (s IndexSchema) typeNames() []string {
	names := make([]string, 0, len(s.ElasticsearchTypes))
	for name := range s.ElasticsearchTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func loadIndexSchemas(configPath string, defs map[string]FieldDefinition, known map[string]ElasticsearchType) (map[string]IndexSchema, error) {
	docTypeField, ok := defs[documentTypeFieldName]
	if !ok {
		return nil, UndefinedFieldError{Field: documentTypeFieldName}
	}

	dir := filepath.Join(configPath, indexesDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read index schemas: %w", err)
	}

	schemas := make(map[string]IndexSchema)
	for _, entry := range entries {
		if entry.IsDir() || !indexSchemaFileRe.MatchString(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		s, err := parseIndexSchema(path, docTypeField, known)
		if err != nil {
			return nil, err
		}
		schemas[s.Name] = s
	}
	return schemas, nil
}

func parseIndexSchema(path string, docTypeField FieldDefinition, known map[string]ElasticsearchType) (IndexSchema, error) {
	cfgErr := func(format string, args ...interface{}) error {
		return ConfigError{Path: path, Kind: "index definition", Msg: fmt.Sprintf(format, args...)}
	}

	raw, err := readRawObject(path)
	if err != nil {
		return IndexSchema{}, err
	}

	var typeNames []string
	found, err := raw.take("elasticsearch_types", &typeNames)
	if err != nil {
		return IndexSchema{}, cfgErr("%s", err)
	}
	if !found {
		return IndexSchema{}, cfgErr(`missing "elasticsearch_types"`)
	}
	if len(raw) > 0 {
		return IndexSchema{}, cfgErr("unknown keys (%s)", raw.unknownKeys())
	}

	types := make(map[string]ElasticsearchType, len(typeNames))
	for _, name := range typeNames {
		t, ok := known[name]
		if !ok {
			return IndexSchema{}, cfgErr("unknown document type %q", name)
		}
		types[name] = t
	}

	return IndexSchema{
		Name:               strings.TrimSuffix(filepath.Base(path), ".json"),
		ElasticsearchTypes: types,
		documentTypeField:  docTypeField.ESConfig,
	}, nil
}
