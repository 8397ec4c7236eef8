package testutils

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/goto/sitesearch/core/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SchemaConfigPath returns the path of the schema configuration shipped
// with the repository.
func SchemaConfigPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "config", "schema")
}

// LoadSchema loads the repository schema configuration or fails the test.
func LoadSchema(t *testing.T) *schema.Config {
	t.Helper()

	cfg, err := schema.Load(SchemaConfigPath())
	require.NoError(t, err)
	return cfg
}

// CombinedSchema merges the schemas of the given indices, defaulting to the
// content indices.
func CombinedSchema(t *testing.T, indexNames ...string) *schema.CombinedSchema {
	t.Helper()

	if len(indexNames) == 0 {
		indexNames = []string{"govuk", "government"}
	}
	combined, err := LoadSchema(t).Merge(indexNames...)
	require.NoError(t, err)
	return combined
}

// JSONMap round-trips v through encoding/json so that values built from
// structs, query builders and literal maps compare equal.
func JSONMap(t *testing.T, v interface{}) interface{} {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err)

	var out interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

// AssertEqualJSON compares the JSON encodings of expected and actual.
func AssertEqualJSON(t *testing.T, expected, actual interface{}) {
	t.Helper()

	exp, act := JSONMap(t, expected), JSONMap(t, actual)
	if diff := cmp.Diff(exp, act); diff != "" {
		msg := fmt.Sprintf(
			"Not equal:\n"+
				"expected:\n\t'%v'\n"+
				"actual:\n\t'%v'\n"+
				"diff (-expected +actual):\n%s",
			exp, act, diff,
		)
		assert.Fail(t, msg)
	}
}
