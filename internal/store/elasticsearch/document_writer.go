package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrEmptyID is returned for a document without an _id or link.
var ErrEmptyID = errors.New("document has no _id or link")

// DocumentWriter writes documents into an index with the bulk API.
type DocumentWriter struct {
	cli *Client
}

func NewDocumentWriter(cli *Client) *DocumentWriter {
	return &DocumentWriter{cli: cli}
}

// Upsert indexes docs into index, replacing documents with the same id.
// A document is identified by its "_id" key, which is not stored, or else
// by its link.
func (w *DocumentWriter) Upsert(ctx context.Context, index string, docs []map[string]interface{}) (err error) {
	defer func(start time.Time) {
		w.cli.instrumentOp("bulk", start, err)
	}(time.Now())

	if len(docs) == 0 {
		return nil
	}
	body, err := bulkBody(index, docs)
	if err != nil {
		return err
	}

	res, err := w.cli.client.Bulk(
		body,
		w.cli.client.Bulk.WithRefresh("true"),
		w.cli.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return SearchError{Op: "Bulk", Index: index, Err: err}
	}
	defer drainBody(res)
	if res.IsError() {
		code, reason := errorCodeAndReason(res)
		return SearchError{Op: "Bulk", Index: index, ESCode: code, Err: fmt.Errorf("%s", reason)}
	}

	var response struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			ID    string `json:"_id"`
			Error *struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return SearchError{Op: "Bulk", Index: index, Err: fmt.Errorf("decode bulk response: %w", err)}
	}
	if !response.Errors {
		return nil
	}

	var errs []error
	for _, item := range response.Items {
		for _, result := range item {
			if result.Error != nil {
				errs = append(errs, fmt.Errorf("document %q: %s: %s", result.ID, result.Error.Type, result.Error.Reason))
			}
		}
	}
	return SearchError{Op: "Bulk", Index: index, Err: errors.Join(errs...)}
}

func bulkBody(index string, docs []map[string]interface{}) (io.Reader, error) {
	payload := bytes.NewBuffer(nil)
	enc := json.NewEncoder(payload)
	for i, doc := range docs {
		id, source, err := documentID(doc)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		action := map[string]interface{}{
			"index": map[string]interface{}{
				"_index": index,
				"_id":    id,
			},
		}
		if err := enc.Encode(action); err != nil {
			return nil, fmt.Errorf("encode bulk action: %w", err)
		}
		if err := enc.Encode(source); err != nil {
			return nil, fmt.Errorf("encode document %q: %w", id, err)
		}
	}
	return payload, nil
}

func documentID(doc map[string]interface{}) (string, map[string]interface{}, error) {
	if id, ok := doc["_id"].(string); ok && id != "" {
		source := make(map[string]interface{}, len(doc))
		for k, v := range doc {
			if k != "_id" {
				source[k] = v
			}
		}
		return id, source, nil
	}
	if link, ok := doc["link"].(string); ok && link != "" {
		return link, doc, nil
	}
	return "", nil, ErrEmptyID
}
