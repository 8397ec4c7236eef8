package registry

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/goto/salt/log"
)

// Registry names used by result and aggregate expansion.
const (
	Organisations          = "organisations"
	OrganisationContentIDs = "organisation_content_ids"
	SpecialistSectors      = "specialist_sectors"
	TopicContentIDs        = "topic_content_ids"
	PolicyAreas            = "policy_areas"
	DocumentSeries         = "document_series"
	DocumentCollections    = "document_collections"
	WorldLocations         = "world_locations"
	People                 = "people"
	Roles                  = "roles"
)

var organisationFields = []string{
	KeySlug,
	KeyContentID,
	"link",
	"title",
	"acronym",
	"organisation_type",
	"organisation_closed_state",
	"organisation_state",
	"logo_formatted_title",
	"organisation_brand",
	"organisation_crest",
	"organisation_brand_colour_class_name",
	"logo_url",
	"closed_at",
	"public_timestamp",
	"analytics_identifier",
	"child_organisations",
	"parent_organisations",
	"superseded_organisations",
	"superseding_organisations",
}

type Config struct {
	RegistryIndex string        `yaml:"registry_index" mapstructure:"registry_index" default:"government"`
	GovukIndex    string        `yaml:"govuk_index" mapstructure:"govuk_index" default:"govuk"`
	CacheLifetime time.Duration `yaml:"cache_lifetime" mapstructure:"cache_lifetime" default:"300s"`
}

// DefaultDefinitions lists the registries used to expand search results.
func DefaultDefinitions(cfg Config) []Definition {
	return []Definition{
		{Name: Organisations, Aliases: []string{OrganisationContentIDs}, Index: cfg.RegistryIndex, Format: "organisation", Fields: organisationFields},
		{Name: SpecialistSectors, Aliases: []string{TopicContentIDs}, Index: cfg.GovukIndex, Format: "specialist_sector"},
		{Name: PolicyAreas, Index: cfg.RegistryIndex, Format: "topic"},
		{Name: DocumentSeries, Index: cfg.RegistryIndex, Format: "document_series"},
		{Name: DocumentCollections, Index: cfg.RegistryIndex, Format: "document_collection"},
		{Name: WorldLocations, Index: cfg.RegistryIndex, Format: "world_location"},
		{Name: People, Index: cfg.GovukIndex, Format: "person"},
		{Name: Roles, Index: cfg.GovukIndex, Format: "ministerial_role"},
	}
}

// Snapshot maps registry names, aliases included, to the tables used for
// one request.
type Snapshot map[string]*Table

// Get returns the named table, or nil. A nil table expands nothing.
func (s Snapshot) Get(name string) *Table { return s[name] }

// Registries is the set of registries shared by all requests.
type Registries struct {
	registries []*Registry
	byName     map[string]*Registry
	logger     log.Logger
}

type Option func(*options)

type options struct {
	logger      log.Logger
	now         func() time.Time
	definitions []Definition
}

func WithLogger(logger log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithDefinitions(defs ...Definition) Option {
	return func(o *options) { o.definitions = defs }
}

func New(source Source, cfg Config, opts ...Option) *Registries {
	o := options{logger: log.NewNoop(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.definitions == nil {
		o.definitions = DefaultDefinitions(cfg)
	}

	r := &Registries{
		byName: make(map[string]*Registry),
		logger: o.logger,
	}
	for _, def := range o.definitions {
		reg := NewRegistry(def, source, cfg.CacheLifetime, o.now)
		r.registries = append(r.registries, reg)
		r.byName[def.Name] = reg
		for _, alias := range def.Aliases {
			r.byName[alias] = reg
		}
	}
	return r
}

func (r *Registries) Get(name string) (*Registry, bool) {
	reg, ok := r.byName[name]
	return reg, ok
}

// Names returns every registry name and alias in sorted order.
func (r *Registries) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns the current table of every registry. A registry that
// cannot be fetched is logged and left out, so its references stay
// unexpanded.
func (r *Registries) Snapshot(ctx context.Context) Snapshot {
	tables := make(map[*Registry]*Table, len(r.registries))
	for _, reg := range r.registries {
		t, err := reg.Table(ctx)
		if err != nil {
			r.logger.Warn("registry unavailable", "registry", reg.def.Name, "err", err)
		}
		tables[reg] = t
	}

	snap := make(Snapshot, len(r.byName))
	for name, reg := range r.byName {
		if t := tables[reg]; t != nil {
			snap[name] = t
		}
	}
	return snap
}

// Refresh refetches every registry and returns the joined errors.
func (r *Registries) Refresh(ctx context.Context) error {
	var errs []error
	for _, reg := range r.registries {
		t, err := reg.Refresh(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		r.logger.Info("registry refreshed", "registry", reg.def.Name, "entities", t.Len())
	}
	return errors.Join(errs...)
}

// Sizes returns the number of entities currently held by each registry.
func (r *Registries) Sizes() map[string]int {
	sizes := make(map[string]int, len(r.registries))
	for _, reg := range r.registries {
		reg.mu.Lock()
		sizes[reg.def.Name] = reg.table.Len()
		reg.mu.Unlock()
	}
	return sizes
}
