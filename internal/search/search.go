// Package search provides the search backends and the manager that
// composes one search backend with one scrape backend into a combined,
// concurrency-bounded "search then scrape everything" operation.
package search

import "context"

// Result is one standardized search result, regardless of backend.
type Result struct {
	Title       string
	URL         string
	Description string
	Rank        int // 1-based SERP position; ordering beyond rank is not meaningful
	Metadata    map[string]any
}

// Backend performs keyword searches. The variant set is closed and chosen
// once at construction: DuckDuckGo or Firecrawl.
type Backend interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// ContentProvider is implemented by backends that already deliver page
// content with their results (managed search-and-scrape services). The
// manager skips its own scrape fan-out for such backends.
type ContentProvider interface {
	// Content returns the ready-made markdown for a result URL from the
	// most relevant search response, if the backend captured any.
	Content(result Result) (string, bool)
}
