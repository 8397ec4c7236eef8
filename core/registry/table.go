package registry

import (
	"sort"
)

// Table is an immutable snapshot of one registry.
type Table struct {
	Name        string
	bySlug      map[string]Entity
	byContentID map[string]Entity
}

func NewTable(name string, entities []Entity) *Table {
	t := &Table{
		Name:        name,
		bySlug:      make(map[string]Entity, len(entities)),
		byContentID: make(map[string]Entity, len(entities)),
	}
	for _, e := range entities {
		if e.Slug != "" {
			t.bySlug[e.Slug] = e
		}
		if e.ContentID != "" {
			t.byContentID[e.ContentID] = e
		}
	}
	return t
}

func (t *Table) Get(slug string) (Entity, bool) {
	if t == nil {
		return Entity{}, false
	}
	e, ok := t.bySlug[slug]
	return e, ok
}

func (t *Table) ByContentID(id string) (Entity, bool) {
	if t == nil {
		return Entity{}, false
	}
	e, ok := t.byContentID[id]
	return e, ok
}

// Expand looks value up by the given key, which is KeySlug or KeyContentID.
func (t *Table) Expand(key, value string) Expansion {
	var (
		e  Entity
		ok bool
	)
	switch key {
	case KeyContentID:
		e, ok = t.ByContentID(value)
	default:
		e, ok = t.Get(value)
	}
	if !ok {
		return Unexpanded(key, value)
	}
	return Expanded(e)
}

// All returns every entity with a slug, ordered by slug.
func (t *Table) All() []Entity {
	if t == nil {
		return nil
	}
	slugs := make([]string, 0, len(t.bySlug))
	for slug := range t.bySlug {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	out := make([]Entity, 0, len(slugs))
	for _, slug := range slugs {
		out = append(out, t.bySlug[slug])
	}
	return out
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.bySlug)
}
