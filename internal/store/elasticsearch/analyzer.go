package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/goto/sitesearch/core/search"
)

// Analyze runs an analyzer of the index over text. A request the cluster
// refuses, such as an unknown analyzer, fails with search.ErrRejectedRequest.
func (c *Client) Analyze(ctx context.Context, index, analyzer, text string) (tokens []string, err error) {
	defer func(start time.Time) {
		c.instrumentOp("analyze", start, err)
	}(time.Now())

	body, err := json.Marshal(map[string]string{"analyzer": analyzer, "text": text})
	if err != nil {
		return nil, fmt.Errorf("encode analyze body: %w", err)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	analyze := c.client.Indices.Analyze
	res, err := analyze(
		analyze.WithContext(ctx),
		analyze.WithIndex(index),
		analyze.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, SearchError{Op: "Analyze", Index: index, Err: err}
	}
	defer drainBody(res)
	if res.IsError() {
		code, reason := errorCodeAndReason(res)
		if res.StatusCode == http.StatusBadRequest {
			return nil, SearchError{Op: "Analyze", Index: index, ESCode: code, Err: fmt.Errorf("%w: %s", search.ErrRejectedRequest, reason)}
		}
		return nil, SearchError{Op: "Analyze", Index: index, ESCode: code, Err: fmt.Errorf("execute analyze: %s", reason)}
	}

	var response struct {
		Tokens []struct {
			Token string `json:"token"`
		} `json:"tokens"`
	}
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return nil, SearchError{Op: "Analyze", Err: fmt.Errorf("decode analyze response: %w", err)}
	}

	tokens = make([]string, 0, len(response.Tokens))
	for _, t := range response.Tokens {
		tokens = append(tokens, t.Token)
	}
	return tokens, nil
}
