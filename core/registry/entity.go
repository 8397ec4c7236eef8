package registry

const (
	KeySlug      = "slug"
	KeyContentID = "content_id"
)

// Entity is a document loaded into a registry.
type Entity struct {
	Slug       string
	ContentID  string
	Attributes map[string]interface{}
}

// AsMap returns the attributes of the entity together with its keys.
func (e Entity) AsMap() map[string]interface{} {
	out := make(map[string]interface{}, len(e.Attributes)+2)
	for k, v := range e.Attributes {
		out[k] = v
	}
	if e.Slug != "" {
		out[KeySlug] = e.Slug
	}
	if e.ContentID != "" {
		out[KeyContentID] = e.ContentID
	}
	return out
}

// Expansion is the outcome of looking a reference up in a registry: either
// the entity it refers to, or the bare reference when nothing was found.
type Expansion struct {
	entity *Entity
	key    string
	value  string
}

func Expanded(e Entity) Expansion { return Expansion{entity: &e} }

func Unexpanded(key, value string) Expansion { return Expansion{key: key, value: value} }

// Entity returns the expanded entity, if there is one.
func (x Expansion) Entity() (Entity, bool) {
	if x.entity == nil {
		return Entity{}, false
	}
	return *x.entity, true
}

// AsMap renders the expansion as it appears in search results.
func (x Expansion) AsMap() map[string]interface{} {
	if x.entity != nil {
		return x.entity.AsMap()
	}
	return map[string]interface{}{x.key: x.value}
}
