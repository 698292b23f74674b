// Package scrape provides the scrape backends: a headless-browser scraper
// that renders JavaScript and extracts the human-visible text, and a remote
// rendering service that returns ready-made markdown.
//
// A Scraper owns one long-lived session resource (a browser, an HTTP
// client). Start/Close bracket its lifecycle; Close must run exactly once
// per scraper no matter how many fetches failed, which the owning manager
// guarantees.
package scrape

import "context"

// Content is the standardized result of one successful fetch.
type Content struct {
	URL        string
	Text       string // rendered, human-visible text (or ready markdown)
	HTML       string // raw document HTML where available
	StatusCode int
	Metadata   map[string]string
}

// Scraper fetches single URLs over a scoped session resource.
type Scraper interface {
	// Start initializes the underlying session. Idempotent.
	Start(ctx context.Context) error
	// Fetch retrieves one URL. Implementations are safe for concurrent use.
	Fetch(ctx context.Context, url string) (*Content, error)
	// Close releases the session. Idempotent; later Fetch calls fail.
	Close() error
}
