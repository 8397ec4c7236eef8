package search

import (
	"time"
)

type FilterKind string

const (
	FilterKindText    FilterKind = "text"
	FilterKindDate    FilterKind = "date"
	FilterKindBoolean FilterKind = "boolean"
)

// Multivalue says how several values of one filter combine.
type Multivalue string

const (
	MultivalueAny Multivalue = "any"
	MultivalueAll Multivalue = "all"
)

// MissingValue is the filter value selecting documents without the field.
const MissingValue = "_MISSING"

// DateRange is an inclusive range. Either bound may be nil.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// FieldFilter is one filter_<field> or reject_<field> request parameter.
type FieldFilter struct {
	FieldName      string
	Kind           FilterKind
	Values         []string
	DateRange      *DateRange
	IncludeMissing bool
	Reject         bool
	Multivalue     Multivalue
}

func (f FieldFilter) clone() FieldFilter {
	f.Values = append([]string(nil), f.Values...)
	if f.DateRange != nil {
		dr := *f.DateRange
		f.DateRange = &dr
	}
	return f
}
