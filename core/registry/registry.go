package registry

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultCacheLifetime is how long a fetched registry stays fresh.
const DefaultCacheLifetime = 300 * time.Second

var defaultFields = []string{KeySlug, KeyContentID, "link", "title"}

// Source fetches the documents of one format from an index.
type Source interface {
	DocumentsByFormat(ctx context.Context, index, format string, fields []string) ([]map[string]interface{}, error)
}

// Definition says where the entities of a registry are stored.
type Definition struct {
	Name    string
	Aliases []string
	Index   string
	Format  string
	Fields  []string
}

// Registry is a cached table of the entities of one format. The table is
// fetched on first use and again once it is older than the cache lifetime.
type Registry struct {
	def      Definition
	source   Source
	lifetime time.Duration
	now      func() time.Time

	mu        sync.Mutex
	computed  bool
	fetchedAt time.Time
	table     *Table
}

func NewRegistry(def Definition, source Source, lifetime time.Duration, now func() time.Time) *Registry {
	if len(def.Fields) == 0 {
		def.Fields = defaultFields
	}
	if lifetime <= 0 {
		lifetime = DefaultCacheLifetime
	}
	if now == nil {
		now = time.Now
	}
	return &Registry{def: def, source: source, lifetime: lifetime, now: now}
}

func (r *Registry) Definition() Definition { return r.def }

// Table returns the current snapshot, fetching it when it is missing or
// stale. When a refetch fails the stale snapshot is returned along with the
// error.
func (r *Registry) Table(ctx context.Context) (*Table, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.computed && r.now().Sub(r.fetchedAt) < r.lifetime {
		return r.table, nil
	}
	return r.refreshLocked(ctx)
}

// Refresh refetches the table regardless of its age.
func (r *Registry) Refresh(ctx context.Context) (*Table, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.refreshLocked(ctx)
}

// Invalidate marks the snapshot stale without discarding it.
func (r *Registry) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.computed = false
}

func (r *Registry) refreshLocked(ctx context.Context) (*Table, error) {
	docs, err := r.source.DocumentsByFormat(ctx, r.def.Index, r.def.Format, r.def.Fields)
	if err != nil {
		return r.table, fmt.Errorf("fetch registry %q: %w", r.def.Name, err)
	}

	entities := make([]Entity, 0, len(docs))
	for _, doc := range docs {
		entities = append(entities, entityFromDocument(doc))
	}

	r.table = NewTable(r.def.Name, entities)
	r.fetchedAt = r.now()
	r.computed = true
	return r.table, nil
}

func entityFromDocument(doc map[string]interface{}) Entity {
	e := Entity{Attributes: make(map[string]interface{}, len(doc))}
	for k, v := range doc {
		switch k {
		case KeySlug:
			e.Slug = firstString(v)
		case KeyContentID:
			e.ContentID = firstString(v)
		default:
			e.Attributes[k] = v
		}
	}
	return e
}

func firstString(v interface{}) string {
	switch v := v.(type) {
	case string:
		return v
	case []interface{}:
		if len(v) > 0 {
			s, _ := v[0].(string)
			return s
		}
	}
	return ""
}
