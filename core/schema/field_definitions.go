package schema

import (
	"fmt"
	"path/filepath"

	"github.com/peterbourgon/mergemap"
)

const fieldDefinitionsFile = "field_definitions.json"

// LabelValue is a static label for a stored field value, used to decorate
// search results and aggregate options.
type LabelValue struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// FieldDefinition is a named field of a known FieldType.
type FieldDefinition struct {
	Name        string
	Type        FieldType
	ESConfig    map[string]interface{}
	Description string
	Children    map[string]FieldDefinition

	// ExpandedSearchResultFields lists the label/value pairs which replace raw
	// values of this field when it is presented.
	ExpandedSearchResultFields []LabelValue
}

// Expandable reports whether raw values of the field are replaced by
// label/value objects on presentation.
func (d FieldDefinition) Expandable() bool { return len(d.ExpandedSearchResultFields) > 0 }

// ExpandValue returns the label/value pair matching the raw value.
func (d FieldDefinition) ExpandValue(raw string) (LabelValue, bool) {
	for _, lv := range d.ExpandedSearchResultFields {
		if lv.Value == raw {
			return lv, true
		}
	}
	return LabelValue{}, false
}

func loadFieldDefinitions(configPath string, types map[string]FieldType) (map[string]FieldDefinition, error) {
	path := filepath.Join(configPath, fieldDefinitionsFile)
	raw, err := readRawObject(path)
	if err != nil {
		return nil, err
	}
	return parseFieldDefinitions(path, raw, types)
}

func parseFieldDefinitions(path string, raw rawObject, types map[string]FieldType) (map[string]FieldDefinition, error) {
	defs := make(map[string]FieldDefinition, len(raw))
	for _, name := range sortedKeys(raw) {
		def, err := parseFieldDefinition(path, name, raw[name], types)
		if err != nil {
			return nil, err
		}
		defs[name] = def
	}
	return defs, nil
}

func parseFieldDefinition(path, name string, data []byte, types map[string]FieldType) (FieldDefinition, error) {
	cfgErr := func(format string, args ...interface{}) error {
		return ConfigError{Path: path, Kind: "field definition", Name: name, Msg: fmt.Sprintf(format, args...)}
	}

	value, err := decodeRawObject(path, data)
	if err != nil {
		return FieldDefinition{}, err
	}

	var typeName string
	if _, err := value.take("type", &typeName); err != nil {
		return FieldDefinition{}, cfgErr("%s", err)
	}
	if typeName == "" {
		return FieldDefinition{}, cfgErr(`missing "type"`)
	}
	typ, ok := types[typeName]
	if !ok {
		return FieldDefinition{}, cfgErr("%s %q", ErrUnknownTypeName, typeName)
	}

	def := FieldDefinition{
		Name:     name,
		Type:     typ,
		ESConfig: cloneConfig(typ.ESConfig),
	}

	var children rawObject
	found, err := value.take("children", &children)
	if err != nil {
		return FieldDefinition{}, cfgErr("%s", err)
	}
	if found {
		if typ.Children != ChildrenNamed {
			return FieldDefinition{}, cfgErr("named children not valid for type %q", typeName)
		}
		def.Children, err = parseFieldDefinitions(path, children, types)
		if err != nil {
			return FieldDefinition{}, err
		}
		def.ESConfig = mergemap.Merge(def.ESConfig, map[string]interface{}{
			"properties": childrenESConfig(def.Children),
		})
	}

	if _, err := value.take("description", &def.Description); err != nil {
		return FieldDefinition{}, cfgErr("%s", err)
	}
	if _, err := value.take("expanded_search_result_fields", &def.ExpandedSearchResultFields); err != nil {
		return FieldDefinition{}, cfgErr("%s", err)
	}

	if len(value) > 0 {
		return FieldDefinition{}, cfgErr("unknown keys (%s)", value.unknownKeys())
	}
	return def, nil
}

func childrenESConfig(children map[string]FieldDefinition) map[string]interface{} {
	props := make(map[string]interface{}, len(children))
	for name, child := range children {
		props[name] = cloneConfig(child.ESConfig)
	}
	return props
}

func cloneConfig(src map[string]interface{}) map[string]interface{} {
	if src == nil {
		return nil
	}
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		dst[k] = cloneValue(v)
	}
	return dst
}

func cloneValue(v interface{}) interface{} {
	switch v := v.(type) {
	case map[string]interface{}:
		return cloneConfig(v)
	case []interface{}:
		out := make([]interface{}, len(v))
		for i := range v {
			out[i] = cloneValue(v[i])
		}
		return out
	default:
		return v
	}
}
