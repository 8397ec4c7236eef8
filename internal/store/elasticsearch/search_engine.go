package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/goto/sitesearch/core/search"
	"github.com/olivere/elastic/v7"
)

// searchResponse is the part of a search response the presenters use.
type searchResponse struct {
	Took     int    `json:"took"`
	ScrollID string `json:"_scroll_id"`
	Hits     struct {
		Total *elastic.TotalHits `json:"total"`
		Hits  []search.Hit       `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]search.Aggregation    `json:"aggregations"`
	Suggest      map[string][]search.SuggestEntry `json:"suggest"`
	Error        *struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

func (r searchResponse) toResponse() search.Response {
	resp := search.Response{
		Took:         r.Took,
		Hits:         r.Hits.Hits,
		Aggregations: r.Aggregations,
		Suggest:      r.Suggest,
	}
	if r.Hits.Total != nil {
		resp.Total = int(r.Hits.Total.Value)
	}
	if resp.Hits == nil {
		resp.Hits = []search.Hit{}
	}
	return resp
}

// SearchEngine implements search.Engine on the cluster.
type SearchEngine struct {
	cli *Client
}

func NewSearchEngine(cli *Client) *SearchEngine {
	return &SearchEngine{cli: cli}
}

func (e *SearchEngine) Search(ctx context.Context, indices []string, body interface{}) (resp search.Response, err error) {
	defer func(start time.Time) {
		e.cli.instrumentOp("search", start, err)
	}(time.Now())

	payload, err := json.Marshal(body)
	if err != nil {
		return search.Response{}, fmt.Errorf("encode search body: %w", err)
	}

	ctx, cancel := e.cli.withTimeout(ctx)
	defer cancel()

	esSearch := e.cli.client.Search
	res, err := esSearch(
		esSearch.WithContext(ctx),
		esSearch.WithIndex(indices...),
		esSearch.WithBody(bytes.NewReader(payload)),
		esSearch.WithIgnoreUnavailable(true),
	)
	if err != nil {
		return resp, SearchError{Op: "Search", Index: strings.Join(indices, ","), Err: err}
	}
	defer drainBody(res)
	if res.IsError() {
		code, reason := errorCodeAndReason(res)
		return resp, SearchError{Op: "Search", Index: strings.Join(indices, ","), ESCode: code, Err: fmt.Errorf("execute search: %s", reason)}
	}

	var raw searchResponse
	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		return resp, SearchError{Op: "Search", Err: fmt.Errorf("decode search response: %w", err)}
	}
	return raw.toResponse(), nil
}

// MultiSearch sends all bodies in one msearch request against the same
// indices. Responses are returned in the order of bodies; a failed search
// fails the whole call.
func (e *SearchEngine) MultiSearch(ctx context.Context, indices []string, bodies []interface{}) (responses []search.Response, err error) {
	defer func(start time.Time) {
		e.cli.instrumentOp("msearch", start, err)
	}(time.Now())

	if len(bodies) == 0 {
		return nil, nil
	}
	payload, err := multiSearchBody(indices, bodies)
	if err != nil {
		return nil, err
	}

	ctx, cancel := e.cli.withTimeout(ctx)
	defer cancel()

	msearch := e.cli.client.Msearch
	res, err := msearch(
		payload,
		msearch.WithContext(ctx),
	)
	if err != nil {
		return nil, SearchError{Op: "MultiSearch", Index: strings.Join(indices, ","), Err: err}
	}
	defer drainBody(res)
	if res.IsError() {
		code, reason := errorCodeAndReason(res)
		return nil, SearchError{Op: "MultiSearch", Index: strings.Join(indices, ","), ESCode: code, Err: fmt.Errorf("execute msearch: %s", reason)}
	}

	var raw struct {
		Responses []searchResponse `json:"responses"`
	}
	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		return nil, SearchError{Op: "MultiSearch", Err: fmt.Errorf("decode msearch response: %w", err)}
	}

	responses = make([]search.Response, 0, len(raw.Responses))
	for i, r := range raw.Responses {
		if r.Error != nil {
			return nil, SearchError{Op: "MultiSearch", ESCode: r.Error.Type, Err: fmt.Errorf("search %d: %s", i, r.Error.Reason)}
		}
		responses = append(responses, r.toResponse())
	}
	return responses, nil
}

// multiSearchBody writes the newline delimited header and body pairs of an
// msearch request.
func multiSearchBody(indices []string, bodies []interface{}) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	header := map[string]interface{}{
		"index":              indices,
		"ignore_unavailable": true,
	}
	for i, body := range bodies {
		if err := enc.Encode(header); err != nil {
			return nil, fmt.Errorf("encode msearch header: %w", err)
		}
		if err := enc.Encode(body); err != nil {
			return nil, fmt.Errorf("encode msearch body %d: %w", i, err)
		}
	}
	return &buf, nil
}
