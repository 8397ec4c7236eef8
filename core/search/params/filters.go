package params

import (
	"regexp"
	"strings"
	"time"

	"github.com/golang-module/carbon/v2"
	"github.com/goto/sitesearch/core/schema"
	"github.com/goto/sitesearch/core/search"
)

var (
	datePattern       = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	datePrefixPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
)

func (r *request) filters() []search.FieldFilter {
	var filters []search.FieldFilter
	for _, op := range []struct {
		prefix string
		reject bool
	}{
		{prefix: "filter_", reject: false},
		{prefix: "reject_", reject: true},
	} {
		for _, name := range r.withPrefix(op.prefix) {
			values := r.values[op.prefix+name]
			multivalue := search.MultivalueAny
			if rest, ok := strings.CutPrefix(name, "all_"); ok {
				name, multivalue = rest, search.MultivalueAll
			} else if rest, ok := strings.CutPrefix(name, "any_"); ok {
				name = rest
			}

			f, ok := r.filter(name, values, op.reject, op.prefix)
			if !ok {
				continue
			}
			f.Multivalue = multivalue
			filters = append(filters, f)
		}
	}
	return filters
}

func (r *request) filter(name string, values []string, reject bool, prefix string) (search.FieldFilter, bool) {
	kind := strings.TrimSuffix(prefix, "_")
	fieldName, aliased := filterNameMapping[name]
	if !aliased {
		fieldName = name
	}

	def, err := r.schema.GetField(fieldName)
	if err != nil || (!aliased && !def.Type.Filterable()) {
		r.addError(`"%s" is not a valid %s field`, name, kind)
		return search.FieldFilter{}, false
	}

	filterType := def.Type.FilterType
	if aliased {
		filterType = schema.FilterTypeText
	}

	f := search.FieldFilter{FieldName: fieldName, Reject: reject}
	for _, v := range values {
		if v == search.MissingValue {
			f.IncludeMissing = true
			continue
		}
		f.Values = append(f.Values, v)
	}

	switch filterType {
	case schema.FilterTypeText:
		f.Kind = search.FilterKindText
	case schema.FilterTypeBoolean:
		f.Kind = search.FilterKindBoolean
		for _, v := range f.Values {
			if v != "true" && v != "false" {
				r.addError(`Invalid value "%s" for boolean parameter "%s" (expected "true" or "false")`, v, fieldName)
				return search.FieldFilter{}, false
			}
		}
	case schema.FilterTypeDate:
		f.Kind = search.FilterKindDate
		dr, ok := r.dateRange(fieldName, f.Values)
		if !ok {
			return search.FieldFilter{}, false
		}
		f.Values = nil
		f.DateRange = dr
	default:
		r.addError(`"%s" has no filter_type defined`, fieldName)
		return search.FieldFilter{}, false
	}
	return f, true
}

// dateRange parses "from:YYYY-MM-DD,to:YYYY-MM-DD". A date-only "to" covers
// the whole day.
func (r *request) dateRange(field string, values []string) (*search.DateRange, bool) {
	if len(values) > 1 {
		r.addError(`Too many values (%d) for parameter "%s" (must occur at most once)`, len(values), field)
		return nil, false
	}
	if len(values) == 0 {
		return nil, true
	}

	errorsBefore := len(r.errors)
	dr := &search.DateRange{}
	for _, part := range strings.Split(values[0], ",") {
		key, value, _ := strings.Cut(part, ":")
		switch key {
		case "from":
			dr.From = r.parseDate(field, key, value)
		case "to":
			dr.To = r.parseDate(field, key, value)
		default:
			r.addError(`Invalid date filter parameter "%s:" (expected "from:" or "to:")`, key)
		}
	}
	return dr, len(r.errors) == errorsBefore
}

func (r *request) parseDate(field, label, value string) *time.Time {
	invalid := func() *time.Time {
		r.addError(`Invalid "%s" value "%s" for parameter "%s" (expected ISO8601 date)`, label, value, field)
		return nil
	}
	// carbon also understands words such as "now"; only dates are accepted.
	if !datePrefixPattern.MatchString(value) {
		return invalid()
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		t = t.UTC()
		return &t
	}

	c := carbon.Parse(value, carbon.UTC)
	if c.Error != nil {
		return invalid()
	}
	if label == "to" && datePattern.MatchString(value) {
		c = c.EndOfDay()
	}

	t, err := time.Parse(time.RFC3339, c.ToRfc3339String())
	if err != nil {
		return invalid()
	}
	t = t.UTC()
	return &t
}
