package querybuilder

import (
	"github.com/goto/sitesearch/core/search"
	"github.com/olivere/elastic/v7"
)

const popularityField = "popularity"

// Sort orders results explicitly. With free text or similar_to and no
// requested order results are left in relevance order.
type Sort struct {
	params search.QueryParameters
}

func NewSort(params search.QueryParameters) Sort {
	return Sort{params: params}
}

func (s Sort) Payload() []elastic.Sorter {
	order, ok := s.params.Order()
	if ok {
		return []elastic.Sorter{
			elastic.NewFieldSort(order.Field).Order(!order.Descending).Missing("_last"),
		}
	}
	if s.params.HasQuery() || s.params.SimilarTo() != "" || s.params.Debug().DisablePopularity {
		return nil
	}
	return []elastic.Sorter{elastic.NewFieldSort(popularityField).Desc()}
}
