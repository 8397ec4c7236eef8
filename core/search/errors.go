package search

import (
	"errors"
	"strings"
)

var (
	ErrInvalidParameters = errors.New("invalid search parameters")
	ErrEngineUnavailable = errors.New("search engine unavailable")
	// ErrRejectedRequest marks requests the engine refused as malformed.
	ErrRejectedRequest = errors.New("request rejected by search engine")
)

// ValidationError collects every problem found in a search request.
type ValidationError struct {
	Errors []string
}

func (err ValidationError) Error() string {
	return strings.Join(err.Errors, ". ")
}

func (err ValidationError) Is(target error) bool {
	return target == ErrInvalidParameters
}
