package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/goto/sitesearch/core/schema"
	"github.com/goto/sitesearch/core/search"
	"github.com/peterbourgon/mergemap"
	"github.com/r3labs/diff/v2"
)

// Settings every index gets regardless of the shared schema settings.
var baseIndexSettings = map[string]interface{}{
	"index.mapping.ignore_malformed": true,
}

// MigrateResult describes what Migrate did to one index.
type MigrateResult struct {
	Alias string
	Index string
	// Created is false when the alias already existed.
	Created bool
	// AddedFields are the properties added to an existing index.
	AddedFields []string
	// ChangedFields differ from the schema but cannot be changed in place.
	ChangedFields []string
}

// Migrate makes the index behind alias match its schema. A missing alias
// gets a new timestamped index; an existing one gets the properties that
// are missing from its mappings.
func (c *Client) Migrate(ctx context.Context, cfg *schema.Config, alias string, now time.Time) (MigrateResult, error) {
	mappings, err := cfg.ElasticsearchMappings(alias)
	if err != nil {
		return MigrateResult{}, err
	}
	// Compare against the mappings as the cluster would echo them back.
	desired, err := normalizeJSON(mappings)
	if err != nil {
		return MigrateResult{}, fmt.Errorf("encode mappings of %q: %w", alias, err)
	}

	index, exists, err := c.aliasedIndex(ctx, alias)
	if err != nil {
		return MigrateResult{}, fmt.Errorf("resolve alias %q: %w", alias, err)
	}

	if !exists {
		index = search.NewIndexName(alias, now)
		c.logger.Info("creating index", "alias", alias, "index", index)
		if err := c.createIndex(ctx, index, alias, indexSettings(cfg), desired); err != nil {
			return MigrateResult{}, fmt.Errorf("create index %q: %w", index, err)
		}
		return MigrateResult{Alias: alias, Index: index, Created: true}, nil
	}

	current, err := c.mappings(ctx, index)
	if err != nil {
		return MigrateResult{}, fmt.Errorf("get mappings of %q: %w", index, err)
	}
	added, changed, err := diffProperties(properties(current), properties(desired))
	if err != nil {
		return MigrateResult{}, fmt.Errorf("diff mappings of %q: %w", index, err)
	}
	result := MigrateResult{Alias: alias, Index: index, ChangedFields: changed}
	for _, name := range changed {
		c.logger.Warn("mapping differs from schema, reindex to apply", "index", index, "field", name)
	}
	if len(added) == 0 {
		c.logger.Info("index is up to date", "alias", alias, "index", index)
		return result, nil
	}

	addedProps := make(map[string]interface{}, len(added))
	for _, name := range added {
		addedProps[name] = properties(desired)[name]
	}
	c.logger.Info("updating index mappings", "index", index, "fields", added)
	if err := c.putMapping(ctx, index, addedProps); err != nil {
		return MigrateResult{}, fmt.Errorf("update mappings of %q: %w", index, err)
	}
	result.AddedFields = added
	return result, nil
}

func indexSettings(cfg *schema.Config) map[string]interface{} {
	settings := mergemap.Merge(map[string]interface{}{}, baseIndexSettings)
	return mergemap.Merge(settings, cfg.ElasticsearchSettings())
}

func normalizeJSON(m map[string]interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func properties(mappings map[string]interface{}) map[string]interface{} {
	props, _ := mappings["properties"].(map[string]interface{})
	if props == nil {
		return map[string]interface{}{}
	}
	return props
}

// diffProperties returns the properties of desired missing from current
// and the ones present in both with a different definition, each sorted.
func diffProperties(current, desired map[string]interface{}) (added, changed []string, err error) {
	changelog, err := diff.Diff(current, desired, diff.AllowTypeMismatch(true))
	if err != nil {
		return nil, nil, err
	}

	seenAdded := map[string]bool{}
	seenChanged := map[string]bool{}
	for _, change := range changelog {
		if len(change.Path) == 0 {
			continue
		}
		name := change.Path[0]
		if _, ok := current[name]; !ok {
			if change.Type == diff.CREATE && !seenAdded[name] {
				seenAdded[name] = true
				added = append(added, name)
			}
			continue
		}
		// Removing a property from the schema leaves the index untouched.
		if _, ok := desired[name]; ok && !seenChanged[name] {
			seenChanged[name] = true
			changed = append(changed, name)
		}
	}
	sort.Strings(added)
	sort.Strings(changed)
	return added, changed, nil
}

// aliasedIndex returns the concrete index behind alias, if there is one.
func (c *Client) aliasedIndex(ctx context.Context, alias string) (string, bool, error) {
	res, err := c.client.Indices.GetAlias(
		c.client.Indices.GetAlias.WithName(alias),
		c.client.Indices.GetAlias.WithContext(ctx),
	)
	if err != nil {
		return "", false, SearchError{Op: "GetAlias", Index: alias, Err: err}
	}
	defer drainBody(res)
	if res.StatusCode == http.StatusNotFound {
		return "", false, nil
	}
	if res.IsError() {
		code, reason := errorCodeAndReason(res)
		return "", false, SearchError{Op: "GetAlias", Index: alias, ESCode: code, Err: fmt.Errorf("%s", reason)}
	}

	var indices map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&indices); err != nil {
		return "", false, fmt.Errorf("decode aliases: %w", err)
	}
	names := make([]string, 0, len(indices))
	for name := range indices {
		names = append(names, name)
	}
	if len(names) == 0 {
		return "", false, nil
	}
	// The newest index sorts last.
	sort.Strings(names)
	return names[len(names)-1], true, nil
}

func (c *Client) createIndex(ctx context.Context, index, alias string, settings, mappings map[string]interface{}) error {
	body, err := json.Marshal(map[string]interface{}{
		"settings": settings,
		"mappings": mappings,
		"aliases":  map[string]interface{}{alias: map[string]interface{}{}},
	})
	if err != nil {
		return err
	}

	res, err := c.client.Indices.Create(
		index,
		c.client.Indices.Create.WithBody(bytes.NewReader(body)),
		c.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return SearchError{Op: "CreateIndex", Index: index, Err: err}
	}
	defer drainBody(res)
	if res.IsError() {
		code, reason := errorCodeAndReason(res)
		return SearchError{Op: "CreateIndex", Index: index, ESCode: code, Err: fmt.Errorf("%s", reason)}
	}
	return nil
}

func (c *Client) mappings(ctx context.Context, index string) (map[string]interface{}, error) {
	res, err := c.client.Indices.GetMapping(
		c.client.Indices.GetMapping.WithIndex(index),
		c.client.Indices.GetMapping.WithContext(ctx),
	)
	if err != nil {
		return nil, SearchError{Op: "GetMapping", Index: index, Err: err}
	}
	defer drainBody(res)
	if res.IsError() {
		code, reason := errorCodeAndReason(res)
		return nil, SearchError{Op: "GetMapping", Index: index, ESCode: code, Err: fmt.Errorf("%s", reason)}
	}

	var body map[string]struct {
		Mappings map[string]interface{} `json:"mappings"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode mappings: %w", err)
	}
	return body[index].Mappings, nil
}

func (c *Client) putMapping(ctx context.Context, index string, props map[string]interface{}) error {
	body, err := json.Marshal(map[string]interface{}{"properties": props})
	if err != nil {
		return err
	}

	res, err := c.client.Indices.PutMapping(
		bytes.NewReader(body),
		c.client.Indices.PutMapping.WithIndex(index),
		c.client.Indices.PutMapping.WithContext(ctx),
	)
	if err != nil {
		return SearchError{Op: "PutMapping", Index: index, Err: err}
	}
	defer drainBody(res)
	if res.IsError() {
		code, reason := errorCodeAndReason(res)
		return SearchError{Op: "PutMapping", Index: index, ESCode: code, Err: fmt.Errorf("%s", reason)}
	}
	return nil
}
