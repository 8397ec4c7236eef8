package search

import (
	"fmt"
	"strconv"
)

// Hit is one raw document returned by the engine.
type Hit struct {
	Index       string                 `json:"_index"`
	Type        string                 `json:"_type,omitempty"`
	ID          string                 `json:"_id"`
	Score       *float64               `json:"_score"`
	Source      map[string]interface{} `json:"_source"`
	Highlight   map[string][]string    `json:"highlight,omitempty"`
	Explanation interface{}            `json:"_explanation,omitempty"`
}

// Bucket is one term of a terms aggregation.
type Bucket struct {
	Key         interface{} `json:"key"`
	KeyAsString string      `json:"key_as_string,omitempty"`
	DocCount    int         `json:"doc_count"`
}

// Term returns the bucket key as a filter value.
func (b Bucket) Term() string {
	if b.KeyAsString != "" {
		return b.KeyAsString
	}
	switch k := b.Key.(type) {
	case string:
		return k
	case float64:
		return strconv.FormatFloat(k, 'f', -1, 64)
	default:
		return fmt.Sprint(k)
	}
}

// FilteredAggregation is the nested aggregation under a filter wrapper.
type FilteredAggregation struct {
	DocCount         int      `json:"doc_count"`
	Buckets          []Bucket `json:"buckets"`
	SumOtherDocCount int      `json:"sum_other_doc_count"`
}

// Aggregation is the filter wrapper emitted for every requested aggregate.
type Aggregation struct {
	DocCount int                 `json:"doc_count"`
	Filtered FilteredAggregation `json:"filtered_aggregations"`
}

type SuggestOption struct {
	Text        string  `json:"text"`
	Highlighted string  `json:"highlighted"`
	Score       float64 `json:"score"`
}

type SuggestEntry struct {
	Text    string          `json:"text"`
	Options []SuggestOption `json:"options"`
}

// Response is the part of a search response the presenters consume.
type Response struct {
	Took         int                       `json:"took"`
	Total        int                       `json:"total"`
	Hits         []Hit                     `json:"hits"`
	Aggregations map[string]Aggregation    `json:"aggregations,omitempty"`
	Suggest      map[string][]SuggestEntry `json:"suggest,omitempty"`
}
