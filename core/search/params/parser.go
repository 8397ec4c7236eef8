package params

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/goto/sitesearch/core/schema"
	"github.com/goto/sitesearch/core/search"
	"github.com/goto/sitesearch/core/validator"
)

// Parser turns search.json request parameters into QueryParameters,
// validating them against the combined schema of the searched indices.
type Parser struct {
	schema *schema.CombinedSchema
}

func NewParser(s *schema.CombinedSchema) *Parser {
	return &Parser{schema: s}
}

// Parse collects every problem of the request into one
// search.ValidationError instead of failing on the first.
func (p *Parser) Parse(values url.Values) (search.QueryParameters, error) {
	r := &request{
		schema: p.schema,
		values: values,
		// c is a cache buster and carries no meaning.
		used: map[string]bool{"c": true},
	}

	var sp search.Params
	sp.Start = r.singleInteger("start", 0, "")
	sp.Count = r.count()
	sp.Query = r.query()
	sp.SimilarTo = r.similarTo(sp.Query)
	sp.Order = r.order()
	sp.ReturnFields = r.returnFields()
	sp.Filters = r.filters()
	sp.Aggregates, sp.AggregateName = r.aggregates()
	sp.Debug = r.debug()
	sp.Suggest = r.suggest()
	r.checkUnused()

	if len(r.errors) > 0 {
		return search.QueryParameters{}, search.ValidationError{Errors: r.errors}
	}
	return search.NewQueryParameters(sp), nil
}

type request struct {
	schema *schema.CombinedSchema
	values url.Values
	used   map[string]bool
	errors []string
}

func (r *request) addError(format string, args ...interface{}) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

// single returns the value of a parameter which may occur at most once.
func (r *request) single(name, description string) (string, bool) {
	r.used[name] = true
	values := r.values[name]
	if len(values) > 1 {
		r.addError(`Too many values (%d) for parameter "%s"%s (must occur at most once)`, len(values), name, description)
	}
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// list joins every occurrence of a comma separated parameter.
func (r *request) list(name string) []string {
	r.used[name] = true
	var out []string
	for _, v := range r.values[name] {
		out = append(out, strings.Split(v, ",")...)
	}
	return out
}

func (r *request) singleInteger(name string, def int, description string) int {
	value, ok := r.single(name, description)
	if !ok {
		return def
	}
	n, ok := r.positiveInteger(value, fmt.Sprintf(`parameter "%s"%s`, name, description))
	if !ok {
		return def
	}
	return n
}

func (r *request) positiveInteger(value, description string) (int, bool) {
	n, err := strconv.Atoi(value)
	if err != nil {
		r.addError(`Invalid value "%s" for %s (expected positive integer)`, value, description)
		return 0, false
	}
	if n < 0 {
		r.addError(`Invalid negative value "%s" for %s (expected positive integer)`, value, description)
		return 0, false
	}
	return n, true
}

func (r *request) count() int {
	count := r.singleInteger("count", search.DefaultCount, "")
	bounds := struct {
		Count int `json:"count" validate:"lte=1000"`
	}{Count: count}
	if err := validator.ValidateStruct(bounds); err != nil {
		r.addError("Maximum result set size (as specified in 'count') is %d", search.MaxCount)
		return search.DefaultCount
	}
	return count
}

func (r *request) query() string {
	q, _ := r.single("q", "")
	return strings.TrimSpace(q)
}

func (r *request) similarTo(query string) string {
	value, _ := r.single("similar_to", "")
	value = strings.TrimSpace(value)
	if value != "" && query != "" {
		r.addError("Parameters 'q' and 'similar_to' cannot be used together")
	}
	return value
}

func (r *request) order() *search.SortOrder {
	value, ok := r.single("order", "")
	if !ok || value == "" {
		return nil
	}

	field, descending := strings.CutPrefix(value, "-")
	if !contains(AllowedSortFields, field) {
		r.addError(`"%s" is not a valid sort field`, field)
		return nil
	}
	if mapped, ok := sortMappings[field]; ok {
		field = mapped
	}
	return &search.SortOrder{Field: field, Descending: descending}
}

func (r *request) allowedReturnFields() []string {
	return append(r.schema.FieldNames(), VirtualFields...)
}

func (r *request) returnFields() []string {
	fields := r.list("fields")
	if len(fields) == 0 {
		return append([]string(nil), DefaultReturnFields...)
	}
	return r.validReturnFields(fields, "")
}

func (r *request) validReturnFields(fields []string, description string) []string {
	allowed := r.allowedReturnFields()
	var valid, invalid []string
	for _, f := range fields {
		if contains(allowed, f) {
			valid = append(valid, f)
		} else {
			invalid = append(invalid, f)
		}
	}
	if len(invalid) > 0 {
		r.addError("Some requested fields are not valid return fields: [%s]%s", strings.Join(invalid, ", "), description)
	}
	return valid
}

func (r *request) debug() search.DebugFlags {
	var flags search.DebugFlags
	for _, option := range r.list("debug") {
		switch option {
		case "":
		case "disable_best_bets":
			flags.DisableBestBets = true
		case "disable_popularity":
			flags.DisablePopularity = true
		case "disable_synonyms":
			flags.DisableSynonyms = true
		case "disable_boosting":
			flags.DisableBoosting = true
		case "explain":
			flags.Explain = true
		case "include_withdrawn":
			flags.IncludeWithdrawn = true
		case "show_query":
			flags.ShowQuery = true
		default:
			r.addError(`Unknown debug option "%s"`, option)
		}
	}
	return flags
}

func (r *request) suggest() []string {
	var out []string
	for _, s := range r.list("suggest") {
		if err := validator.ValidateOneOf(s, search.SuggestSpelling); err != nil {
			r.addError(`Unknown suggest option "%s"`, s)
			continue
		}
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// withPrefix marks every parameter starting with prefix as used and returns
// their names without the prefix, sorted.
func (r *request) withPrefix(prefix string) []string {
	var names []string
	for name := range r.values {
		if rest, ok := strings.CutPrefix(name, prefix); ok {
			r.used[name] = true
			names = append(names, rest)
		}
	}
	sort.Strings(names)
	return names
}

func (r *request) checkUnused() {
	var unused []string
	for name := range r.values {
		if !r.used[name] {
			unused = append(unused, name)
		}
	}
	if len(unused) == 0 {
		return
	}
	sort.Strings(unused)
	r.addError("Unexpected parameters: %s", strings.Join(unused, ", "))
}
