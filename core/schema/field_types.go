package schema

import (
	"fmt"
	"path/filepath"

	"github.com/goto/sitesearch/core/validator"
)

const fieldTypesFile = "field_types.json"

// Filter types a field type may declare.
const (
	FilterTypeText    = "text"
	FilterTypeDate    = "date"
	FilterTypeBoolean = "boolean"
)

// Children modes a field type may declare.
const (
	ChildrenNamed   = "named"
	ChildrenDynamic = "dynamic"
)

// FieldType describes how values of a field are stored and filtered.
type FieldType struct {
	Name        string
	FilterType  string
	Description string
	ESConfig    map[string]interface{}
	Multivalued bool
	Children    string
}

// Filterable reports whether fields of this type may be used in filters.
func (t FieldType) Filterable() bool { return t.FilterType != "" }

func loadFieldTypes(configPath string) (map[string]FieldType, error) {
	path := filepath.Join(configPath, fieldTypesFile)
	raw, err := readRawObject(path)
	if err != nil {
		return nil, err
	}

	types := make(map[string]FieldType, len(raw))
	for _, name := range sortedKeys(raw) {
		t, err := parseFieldType(path, name, raw[name])
		if err != nil {
			return nil, err
		}
		types[name] = t
	}
	return types, nil
}

func parseFieldType(path, name string, data []byte) (FieldType, error) {
	cfgErr := func(format string, args ...interface{}) error {
		return ConfigError{Path: path, Kind: "field type", Name: name, Msg: fmt.Sprintf(format, args...)}
	}

	value, err := decodeRawObject(path, data)
	if err != nil {
		return FieldType{}, err
	}

	t := FieldType{Name: name}
	found, err := value.take("es_config", &t.ESConfig)
	if err != nil {
		return FieldType{}, cfgErr("%s", err)
	}
	if !found {
		return FieldType{}, cfgErr(`missing "es_config"`)
	}

	if _, err := value.take("filter_type", &t.FilterType); err != nil {
		return FieldType{}, cfgErr("%s", err)
	}
	if err := validator.ValidateOneOf(t.FilterType, FilterTypeText, FilterTypeDate, FilterTypeBoolean); err != nil {
		return FieldType{}, cfgErr(`invalid value for "filter_type" (%q)`, t.FilterType)
	}

	if _, err := value.take("children", &t.Children); err != nil {
		return FieldType{}, cfgErr("%s", err)
	}
	if err := validator.ValidateOneOf(t.Children, ChildrenNamed, ChildrenDynamic); err != nil {
		return FieldType{}, cfgErr(`invalid value for "children" (%q)`, t.Children)
	}

	if _, err := value.take("description", &t.Description); err != nil {
		return FieldType{}, cfgErr("%s", err)
	}
	if _, err := value.take("multivalued", &t.Multivalued); err != nil {
		return FieldType{}, cfgErr("%s", err)
	}

	if len(value) > 0 {
		return FieldType{}, cfgErr("unknown keys (%s)", value.unknownKeys())
	}
	return t, nil
}
