package presenter

import (
	"encoding/json"

	"github.com/goto/sitesearch/core/registry"
	"github.com/goto/sitesearch/core/schema"
	"github.com/goto/sitesearch/core/search"
	"github.com/goto/sitesearch/core/search/querybuilder"
)

// Cluster is reported as es_cluster; there is a single cluster.
const Cluster = "A"

// SuggestedQuery is a spelling correction of the query.
type SuggestedQuery struct {
	Text        string `json:"text"`
	Highlighted string `json:"highlighted"`
}

// ResultSet is the body of a search response.
type ResultSet struct {
	Results            []map[string]interface{}
	Total              int
	Start              int
	AggregateName      string
	Aggregates         map[string]*Aggregate
	SuggestedQueries   []SuggestedQuery
	Reranked           bool
	ElasticsearchQuery map[string]interface{}
}

func (rs ResultSet) MarshalJSON() ([]byte, error) {
	body := map[string]interface{}{
		"results":           rs.Results,
		"total":             rs.Total,
		"start":             rs.Start,
		rs.AggregateName:    rs.Aggregates,
		"suggested_queries": rs.SuggestedQueries,
		"es_cluster":        Cluster,
		"reranked":          rs.Reranked,
	}
	if rs.ElasticsearchQuery != nil {
		body["elasticsearch_query"] = rs.ElasticsearchQuery
	}
	return json.Marshal(body)
}

// ResultSetPresenter presents a whole search response.
type ResultSetPresenter struct {
	params     search.QueryParameters
	schema     *schema.Config
	registries registry.Snapshot
}

func NewResultSetPresenter(params search.QueryParameters, cfg *schema.Config, registries registry.Snapshot) *ResultSetPresenter {
	return &ResultSetPresenter{params: params, schema: cfg, registries: registries}
}

// Present presents resp. Aggregates are presented separately so that
// examples can be fetched for the presented options first. The query
// payload is included when the request asked to see it.
func (p *ResultSetPresenter) Present(resp search.Response, aggs map[string]*Aggregate, payload map[string]interface{}) ResultSet {
	results := NewResultPresenter(p.schema, p.registries, p.params)

	rs := ResultSet{
		Results:          make([]map[string]interface{}, 0, len(resp.Hits)),
		Total:            resp.Total,
		Start:            p.params.Start(),
		AggregateName:    p.params.AggregateName(),
		Aggregates:       aggs,
		SuggestedQueries: SuggestedQueries(resp),
	}
	if rs.Aggregates == nil {
		rs.Aggregates = map[string]*Aggregate{}
	}
	for i, hit := range resp.Hits {
		rs.Results = append(rs.Results, results.Present(hit, p.params.Start()+i+1))
	}
	if p.params.Debug().ShowQuery {
		rs.ElasticsearchQuery = payload
	}
	return rs
}

// SuggestedQueries returns the spelling corrections found in resp.
func SuggestedQueries(resp search.Response) []SuggestedQuery {
	out := []SuggestedQuery{}
	for _, entry := range resp.Suggest[querybuilder.SpellingSuggesterName] {
		for _, o := range entry.Options {
			out = append(out, SuggestedQuery{Text: o.Text, Highlighted: o.Highlighted})
		}
	}
	return out
}
