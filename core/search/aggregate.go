package search

type AggregateScope string

const (
	ScopeExcludeFieldFilter AggregateScope = "exclude_field_filter"
	ScopeAllFilters         AggregateScope = "all_filters"
)

type ExampleScope string

const (
	ExampleScopeQuery  ExampleScope = "query"
	ExampleScopeGlobal ExampleScope = "global"
)

// Option sort keys.
const (
	OrderFiltered   = "filtered"
	OrderCount      = "count"
	OrderValue      = "value"
	OrderValueSlug  = "value.slug"
	OrderValueTitle = "value.title"
	OrderValueLink  = "value.link"
	OrderSlug       = "slug"
)

// AggregateOrder is one key of an aggregate option ordering. Direction is 1
// for ascending and -1 for descending.
type AggregateOrder struct {
	Key       string
	Direction int
}

// DefaultAggregateOrder puts applied options first, then the most common.
var DefaultAggregateOrder = []AggregateOrder{
	{Key: OrderFiltered, Direction: 1},
	{Key: OrderCount, Direction: -1},
	{Key: OrderSlug, Direction: 1},
}

// AggregateRequest is one aggregate_<field> request parameter.
type AggregateRequest struct {
	Requested     int
	Scope         AggregateScope
	Order         []AggregateOrder
	Examples      int
	ExampleFields []string
	ExampleScope  ExampleScope
}

func (r AggregateRequest) clone() AggregateRequest {
	r.Order = append([]AggregateOrder(nil), r.Order...)
	r.ExampleFields = append([]string(nil), r.ExampleFields...)
	return r
}
