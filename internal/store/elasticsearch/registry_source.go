package elasticsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/olivere/elastic/v7"
)

const (
	scrollKeepAlive = time.Minute
	scrollPageSize  = 500
)

// RegistrySource implements registry.Source, reading every document of a
// format with the scroll API.
type RegistrySource struct {
	cli *Client
}

func NewRegistrySource(cli *Client) *RegistrySource {
	return &RegistrySource{cli: cli}
}

func (s *RegistrySource) DocumentsByFormat(ctx context.Context, index, format string, fields []string) (docs []map[string]interface{}, err error) {
	defer func(start time.Time) {
		s.cli.instrumentOp("registry_fetch", start, err)
	}(time.Now())

	body, err := documentsByFormatQuery(format)
	if err != nil {
		return nil, err
	}

	esSearch := s.cli.client.Search
	res, err := esSearch(
		esSearch.WithContext(ctx),
		esSearch.WithIndex(index),
		esSearch.WithBody(strings.NewReader(body)),
		esSearch.WithSize(scrollPageSize),
		esSearch.WithSourceIncludes(fields...),
		esSearch.WithScroll(scrollKeepAlive),
		esSearch.WithSort("_doc"),
	)
	if err != nil {
		return nil, SearchError{Op: "DocumentsByFormat", Index: index, Err: err}
	}

	var scrollID string
	defer func() {
		if scrollID != "" {
			s.clearScroll(scrollID)
		}
	}()

	for {
		page, err := decodePage(res, index)
		if err != nil {
			return nil, err
		}
		scrollID = page.ScrollID
		if len(page.Hits.Hits) == 0 {
			return docs, nil
		}
		for _, hit := range page.Hits.Hits {
			docs = append(docs, hit.Source)
		}

		res, err = s.cli.client.Scroll(
			s.cli.client.Scroll.WithContext(ctx),
			s.cli.client.Scroll.WithScrollID(scrollID),
			s.cli.client.Scroll.WithScroll(scrollKeepAlive),
		)
		if err != nil {
			return nil, SearchError{Op: "DocumentsByFormat", Index: index, Err: err}
		}
	}
}

func documentsByFormatQuery(format string) (string, error) {
	src, err := elastic.NewTermQuery("format", format).Source()
	if err != nil {
		return "", fmt.Errorf("build format query: %w", err)
	}
	body, err := json.Marshal(map[string]interface{}{"query": src})
	if err != nil {
		return "", fmt.Errorf("encode format query: %w", err)
	}
	return string(body), nil
}

func decodePage(res *esapi.Response, index string) (searchResponse, error) {
	defer drainBody(res)
	if res.IsError() {
		code, reason := errorCodeAndReason(res)
		return searchResponse{}, SearchError{Op: "DocumentsByFormat", Index: index, ESCode: code, Err: fmt.Errorf("%s", reason)}
	}

	var page searchResponse
	if err := json.NewDecoder(res.Body).Decode(&page); err != nil {
		return searchResponse{}, SearchError{Op: "DocumentsByFormat", Index: index, Err: fmt.Errorf("decode scroll page: %w", err)}
	}
	return page, nil
}

func (s *RegistrySource) clearScroll(scrollID string) {
	res, err := s.cli.client.ClearScroll(s.cli.client.ClearScroll.WithScrollID(scrollID))
	if err != nil {
		s.cli.logger.Warn("failed to clear scroll", "err", err)
		return
	}
	drainBody(res)
}
