package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// rawObject is a decoded JSON object whose keys are consumed one by one, so
// that anything left over can be reported as unknown.
type rawObject map[string]json.RawMessage

func readRawObject(path string) (rawObject, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	return decodeRawObject(path, data)
}

func decodeRawObject(path string, data []byte) (rawObject, error) {
	var obj rawObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("decode %q: %w", path, err)
	}
	if obj == nil {
		obj = rawObject{}
	}
	return obj, nil
}

// take decodes key into dst and removes it. It reports whether the key was
// present and not null.
func (o rawObject) take(key string, dst interface{}) (bool, error) {
	raw, ok := o[key]
	if !ok {
		return false, nil
	}
	delete(o, key)
	if string(raw) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("decode %q: %w", key, err)
	}
	return true, nil
}

func (o rawObject) unknownKeys() string {
	return strings.Join(sortedKeys(o), ", ")
}

func sortedKeys(o rawObject) []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
