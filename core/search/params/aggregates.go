package params

import (
	"fmt"
	"strings"

	"github.com/goto/sitesearch/core/search"
	"github.com/goto/sitesearch/core/validator"
)

// aggregates parses aggregate_<field> parameters, or facet_<field> for
// older clients. The two prefixes may not be mixed.
func (r *request) aggregates() (map[string]search.AggregateRequest, string) {
	aggregateFields := r.withPrefix("aggregate_")
	facetFields := r.withPrefix("facet_")

	prefix, name, fields := "aggregate_", "aggregates", aggregateFields
	if len(facetFields) > 0 {
		if len(aggregateFields) > 0 {
			r.addError("Cannot use both aggregate_ and facet_ parameters")
			return nil, ""
		}
		prefix, name, fields = "facet_", "facets", facetFields
	}

	out := make(map[string]search.AggregateRequest, len(fields))
	for _, field := range fields {
		values := r.values[prefix+field]
		if len(values) > 1 {
			r.addError(`Too many values (%d) for parameter "%s%s" (must occur at most once)`, len(values), prefix, field)
			continue
		}
		if !contains(AllowedAggregateFields, field) {
			r.addError(`"%s" is not a valid %s field`, field, strings.TrimSuffix(prefix, "_"))
			continue
		}

		ap := &aggregateParser{request: r, field: field}
		if req, ok := ap.parse(values[0]); ok {
			out[field] = req
		}
	}
	return out, name
}

type aggregateParser struct {
	*request
	field       string
	options     map[string][]string
	keys        []string
	usedOptions map[string]bool
}

func (p *aggregateParser) description() string {
	return fmt.Sprintf(` in aggregate "%s"`, p.field)
}

func (p *aggregateParser) parse(value string) (search.AggregateRequest, bool) {
	errorsBefore := len(p.errors)

	parts := strings.Split(value, ",")
	requested, _ := p.positiveInteger(parts[0], fmt.Sprintf(`first parameter for aggregate "%s"`, p.field))

	p.options = make(map[string][]string)
	p.usedOptions = make(map[string]bool)
	for _, part := range parts[1:] {
		k, v, ok := strings.Cut(part, ":")
		if !ok {
			p.addError(`Invalid parameter "%s"%s; must be of form "key:value"`, part, p.description())
			continue
		}
		if _, seen := p.options[k]; !seen {
			p.keys = append(p.keys, k)
		}
		p.options[k] = append(p.options[k], v)
	}

	req := search.AggregateRequest{
		Requested:     requested,
		Scope:         p.scope(),
		Order:         p.order(),
		Examples:      p.examples(),
		ExampleFields: p.exampleFields(),
		ExampleScope:  p.exampleScope(),
	}
	if req.Examples > 0 && req.ExampleScope == "" {
		p.addError("example_scope parameter must be set to 'query' or 'global' when requesting examples")
		req.Examples = 0
	}

	var unused []string
	for _, k := range p.keys {
		if !p.usedOptions[k] {
			unused = append(unused, k)
		}
	}
	if len(unused) > 0 {
		p.addError("Unexpected options%s: %s", p.description(), strings.Join(unused, ", "))
	}
	return req, len(p.errors) == errorsBefore
}

func (p *aggregateParser) option(key string) (string, bool) {
	p.usedOptions[key] = true
	values := p.options[key]
	if len(values) > 1 {
		p.addError(`Too many values (%d) for parameter "%s"%s (must occur at most once)`, len(values), key, p.description())
	}
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func (p *aggregateParser) scope() search.AggregateScope {
	value, ok := p.option("scope")
	if !ok {
		return search.ScopeExcludeFieldFilter
	}
	if err := validator.ValidateOneOf(value, string(search.ScopeExcludeFieldFilter), string(search.ScopeAllFilters)); err != nil || value == "" {
		p.addError(`"%s" is not a valid scope option%s`, value, p.description())
		return search.ScopeExcludeFieldFilter
	}
	return search.AggregateScope(value)
}

func (p *aggregateParser) order() []search.AggregateOrder {
	p.usedOptions["order"] = true
	var orders []search.AggregateOrder
	for _, value := range p.options["order"] {
		for _, key := range strings.Split(value, ":") {
			direction := 1
			if rest, ok := strings.CutPrefix(key, "-"); ok {
				key, direction = rest, -1
			}
			if !contains(allowedAggregateOrderKeys, key) {
				p.addError(`"%s" is not a valid sort option%s`, key, p.description())
				continue
			}
			orders = append(orders, search.AggregateOrder{Key: key, Direction: direction})
		}
	}
	if len(orders) == 0 {
		return append([]search.AggregateOrder(nil), search.DefaultAggregateOrder...)
	}
	return orders
}

func (p *aggregateParser) examples() int {
	value, ok := p.option("examples")
	if !ok {
		return 0
	}
	n, ok := p.positiveInteger(value, fmt.Sprintf(`parameter "examples"%s`, p.description()))
	if !ok {
		return 0
	}
	if n != 0 && !contains(AllowedAggregateExampleFields, p.field) {
		p.addError("Aggregate examples are not supported%s", p.description())
		return 0
	}
	return n
}

func (p *aggregateParser) exampleFields() []string {
	p.usedOptions["example_fields"] = true
	var fields []string
	for _, value := range p.options["example_fields"] {
		fields = append(fields, strings.Split(value, ":")...)
	}
	if len(fields) == 0 {
		return append([]string(nil), DefaultExampleFields...)
	}
	return p.validReturnFields(fields, fmt.Sprintf(` in parameter "example_fields"%s`, p.description()))
}

func (p *aggregateParser) exampleScope() search.ExampleScope {
	value, _ := p.option("example_scope")
	switch search.ExampleScope(value) {
	case search.ExampleScopeQuery, search.ExampleScopeGlobal:
		return search.ExampleScope(value)
	default:
		return ""
	}
}
