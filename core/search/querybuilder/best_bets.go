package querybuilder

import (
	"github.com/goto/sitesearch/core/search"
	"github.com/olivere/elastic/v7"
)

const (
	// bestBetWeight lifts promoted links above any organic score.
	bestBetWeight = 1000000

	// bestBetLookupSize caps the bet entries read for one query.
	bestBetLookupSize = 1000

	bestBetDocumentType = "best_bet"
)

// BestBets promotes and demotes links chosen by editors for a query.
type BestBets struct {
	params search.QueryParameters
	bets   search.BestBets
}

func NewBestBets(params search.QueryParameters, bets search.BestBets) BestBets {
	return BestBets{params: params, bets: bets}
}

// Wrap adds one boosted ids clause per promoted position next to q, the
// top position scoring highest, and excludes the demoted links.
func (b BestBets) Wrap(q elastic.Query) elastic.Query {
	if b.params.Debug().DisableBestBets || b.bets.Empty() {
		return q
	}

	result := q
	if positions := b.bets.SortedPositions(); len(positions) > 0 {
		maxPosition := positions[len(positions)-1]
		should := []elastic.Query{q}
		for _, pos := range positions {
			weight := float64(maxPosition-pos+1) * bestBetWeight
			should = append(should, elastic.NewFunctionScoreQuery().
				Query(elastic.NewIdsQuery().Ids(b.bets.Positions[pos]...)).
				AddScoreFunc(elastic.NewWeightFactorFunction(weight)))
		}
		result = elastic.NewBoolQuery().Should(should...)
	}
	if len(b.bets.Worst) > 0 {
		result = elastic.NewBoolQuery().
			Should(result).
			MustNot(elastic.NewIdsQuery().Ids(b.bets.Worst...))
	}
	return result
}

// BestBetsLookup returns the body finding the bet entries of a query in
// the metasearch index. The stemmed match is broad, so hits still have to
// be checked against the analyzed query.
func BestBetsLookup(query string) (map[string]interface{}, error) {
	return sourceMap(elastic.NewSearchSource().
		Query(elastic.NewBoolQuery().Should(
			elastic.NewMatchQuery("exact_query", query),
			elastic.NewMatchQuery("stemmed_query", query),
		)).
		PostFilter(elastic.NewBoolQuery().Must(
			elastic.NewMatchQuery("document_type", bestBetDocumentType),
		)).
		Size(bestBetLookupSize).
		FetchSourceContext(elastic.NewFetchSourceContext(true).Include("details", "stemmed_query_as_term")))
}
