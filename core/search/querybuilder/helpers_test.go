package querybuilder_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/goto/sitesearch/core/search"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2016, 3, 11, 16, 0, 30, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type sourcer interface {
	Source() (interface{}, error)
}

// toMap renders a query DSL value the way it is sent to the engine.
func toMap(t *testing.T, s sourcer) map[string]interface{} {
	t.Helper()

	src, err := s.Source()
	require.NoError(t, err)
	return jsonRoundTrip(t, src)
}

func jsonRoundTrip(t *testing.T, v interface{}) map[string]interface{} {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

// decodeJSON parses an expected fragment written as JSON.
func decodeJSON(t *testing.T, s string) map[string]interface{} {
	t.Helper()

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(s), &out))
	return out
}

// findAll returns every object stored under key anywhere in node.
func findAll(node interface{}, key string) []map[string]interface{} {
	var found []map[string]interface{}
	switch n := node.(type) {
	case map[string]interface{}:
		for k, v := range n {
			if k == key {
				if m, ok := v.(map[string]interface{}); ok {
					found = append(found, m)
				}
			}
			found = append(found, findAll(v, key)...)
		}
	case []interface{}:
		for _, v := range n {
			found = append(found, findAll(v, key)...)
		}
	}
	return found
}

// asList accepts a bool clause rendered either as one object or as a list.
func asList(v interface{}) []interface{} {
	switch v := v.(type) {
	case nil:
		return nil
	case []interface{}:
		return v
	default:
		return []interface{}{v}
	}
}

func params(p search.Params) search.QueryParameters {
	if p.Count == 0 {
		p.Count = search.DefaultCount
	}
	return search.NewQueryParameters(p)
}
