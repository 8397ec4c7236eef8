package search

import "context"

// Engine runs query bodies against the search cluster.
type Engine interface {
	Search(ctx context.Context, indices []string, body interface{}) (Response, error)
	MultiSearch(ctx context.Context, indices []string, bodies []interface{}) ([]Response, error)
}

// Analyzer runs a named analyzer of an index over text and returns the
// resulting tokens.
type Analyzer interface {
	Analyze(ctx context.Context, index, analyzer, text string) ([]string, error)
}
