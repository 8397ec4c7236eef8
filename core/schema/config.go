package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"
)

const settingsFile = "elasticsearch_schema.yml"

var testIndexSuffixRe = regexp.MustCompile(`[-_]test$`)

// Config is the complete schema loaded from a configuration directory:
// field types and definitions, elasticsearch types and one IndexSchema per
// index. It is immutable once loaded and safe for concurrent use.
type Config struct {
	FieldTypes         map[string]FieldType
	FieldDefinitions   map[string]FieldDefinition
	ElasticsearchTypes map[string]ElasticsearchType
	IndexSchemas       map[string]IndexSchema

	settings map[string]interface{}
}

// Load reads and validates the schema configuration stored under
// configPath. Any malformed file fails the whole load.
func Load(configPath string) (*Config, error) {
	types, err := loadFieldTypes(configPath)
	if err != nil {
		return nil, fmt.Errorf("load field types: %w", err)
	}

	defs, err := loadFieldDefinitions(configPath, types)
	if err != nil {
		return nil, fmt.Errorf("load field definitions: %w", err)
	}

	esTypes, err := loadElasticsearchTypes(configPath, defs)
	if err != nil {
		return nil, fmt.Errorf("load elasticsearch types: %w", err)
	}

	indexSchemas, err := loadIndexSchemas(configPath, defs, esTypes)
	if err != nil {
		return nil, fmt.Errorf("load index schemas: %w", err)
	}

	settings, err := loadIndexSettings(filepath.Join(configPath, settingsFile))
	if err != nil {
		return nil, fmt.Errorf("load index settings: %w", err)
	}

	return &Config{
		FieldTypes:         types,
		FieldDefinitions:   defs,
		ElasticsearchTypes: esTypes,
		IndexSchemas:       indexSchemas,
		settings:           settings,
	}, nil
}

// GetField returns the definition of a field declared anywhere in the schema.
func (c *Config) GetField(name string) (FieldDefinition, error) {
	def, ok := c.FieldDefinitions[name]
	if !ok {
		return FieldDefinition{}, UndefinedFieldError{Field: name}
	}
	return def, nil
}

// SchemaForAliasName returns the schema of the index whose name prefixes
// the given alias or concrete index name. The longest matching name wins.
func (c *Config) SchemaForAliasName(alias string) (IndexSchema, error) {
	names := make([]string, 0, len(c.IndexSchemas))
	for name := range c.IndexSchemas {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})

	for _, name := range names {
		if strings.HasPrefix(alias, name) {
			return c.IndexSchemas[name], nil
		}
	}
	return IndexSchema{}, fmt.Errorf("%w for alias %q", ErrSchemaNotFound, alias)
}

// DocumentSchema returns the elasticsearch type of a document stored in
// the given index.
func (c *Config) DocumentSchema(index, typeName string) (ElasticsearchType, bool) {
	s, err := c.SchemaForAliasName(index)
	if err != nil {
		return ElasticsearchType{}, false
	}
	return s.ElasticsearchType(typeName)
}

// ElasticsearchMappings returns the mappings of an index. Test indices
// share the mappings of the index they are named after.
func (c *Config) ElasticsearchMappings(indexName string) (map[string]interface{}, error) {
	s, ok := c.IndexSchemas[testIndexSuffixRe.ReplaceAllString(indexName, "")]
	if !ok {
		return nil, fmt.Errorf("%w for index %q", ErrSchemaNotFound, indexName)
	}
	return s.ESMappings(), nil
}

// ElasticsearchSettings returns the index settings shared by every index.
func (c *Config) ElasticsearchSettings() map[string]interface{} {
	return cloneConfig(c.settings)
}

func loadIndexSettings(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc struct {
		Index struct {
			Settings map[interface{}]interface{} `yaml:"settings"`
		} `yaml:"index"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %q: %w", path, err)
	}
	if doc.Index.Settings == nil {
		return nil, ConfigError{Path: path, Kind: "index settings", Msg: `missing "index.settings"`}
	}

	settings, ok := normalizeYAML(doc.Index.Settings).(map[string]interface{})
	if !ok {
		return nil, ConfigError{Path: path, Kind: "index settings", Msg: "settings must be a mapping"}
	}
	return settings, nil
}

// normalizeYAML converts the map[interface{}]interface{} values produced by
// yaml.v2 into JSON-encodable maps.
func normalizeYAML(v interface{}) interface{} {
	switch v := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			out[fmt.Sprint(k)] = normalizeYAML(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i := range v {
			out[i] = normalizeYAML(v[i])
		}
		return out
	default:
		return v
	}
}
