package serp

import (
	"context"
	"fmt"
)

// SearchResult is one organic result returned by a search provider.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// SERPProvider abstracts a search engine that returns organic results for a
// query. The limit parameter is a result-count hint. A failed call must return
// a non-nil error, distinct from a successful call with zero results.
type SERPProvider interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// SearchFailure reports that a single query could not be served.
type SearchFailure struct {
	Query      string
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *SearchFailure) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("search %q: status %d: %v", e.Query, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("search %q: %v", e.Query, e.Err)
}

func (e *SearchFailure) Unwrap() error {
	return e.Err
}
