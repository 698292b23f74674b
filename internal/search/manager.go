package search

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"deepresearch/internal/logging"
	"deepresearch/internal/scrape"
)

// Batch is the combined outcome of one search-then-scrape pass. Contents is
// keyed by result URL and only holds pages that were fetched successfully.
type Batch struct {
	Results  []Result
	Contents map[string]*scrape.Content
}

// ManagerConfig configures the search-and-scrape manager.
type ManagerConfig struct {
	// MaxConcurrentScrapes bounds the per-query scrape fan-out. Zero or
	// negative means 5.
	MaxConcurrentScrapes int
}

// Manager owns one search backend and one scraper and combines them into a
// single operation: search, then fetch every hit concurrently. Failures of
// individual pages never fail the batch.
type Manager struct {
	backend Backend
	scraper scrape.Scraper
	sem     *semaphore.Weighted

	startOnce sync.Once
	startErr  error
	closeOnce sync.Once
}

// NewManager creates a manager around the given backend and scraper. The
// scraper may be nil when the backend provides content itself.
func NewManager(backend Backend, scraper scrape.Scraper, cfg ManagerConfig) *Manager {
	limit := cfg.MaxConcurrentScrapes
	if limit <= 0 {
		limit = 5
	}
	return &Manager{
		backend: backend,
		scraper: scraper,
		sem:     semaphore.NewWeighted(int64(limit)),
	}
}

// SearchAndScrape runs one query and fetches the content of every result.
// Search failure fails the whole call; scrape failures are logged and the
// affected URLs simply have no entry in Contents.
func (m *Manager) SearchAndScrape(ctx context.Context, query string, maxResults int) (*Batch, error) {
	results, err := m.backend.Search(ctx, query, maxResults)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	batch := &Batch{
		Results:  results,
		Contents: make(map[string]*scrape.Content, len(results)),
	}
	if len(results) == 0 {
		return batch, nil
	}

	// Managed backends already scraped each page server-side.
	if provider, ok := m.backend.(ContentProvider); ok {
		for _, r := range results {
			if text, ok := provider.Content(r); ok {
				batch.Contents[r.URL] = &scrape.Content{
					URL:      r.URL,
					Text:     text,
					Metadata: map[string]string{"renderer": "managed"},
				}
			}
		}
		return batch, nil
	}

	if m.scraper == nil {
		return batch, nil
	}
	if err := m.start(ctx); err != nil {
		return nil, fmt.Errorf("scraper failed to start: %w", err)
	}

	log := logging.Get(logging.CategoryScrape)

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, r := range results {
		if err := m.sem.Acquire(ctx, 1); err != nil {
			break // context cancelled; keep what we already have
		}
		wg.Add(1)
		go func(r Result) {
			defer wg.Done()
			defer m.sem.Release(1)

			content, err := m.scraper.Fetch(ctx, r.URL)
			if err != nil {
				log.Warnw("scrape failed", "url", r.URL, "error", err)
				return
			}
			mu.Lock()
			batch.Contents[r.URL] = content
			mu.Unlock()
		}(r)
	}
	wg.Wait()

	log.Debugw("search and scrape complete",
		"query", query, "results", len(results), "scraped", len(batch.Contents))
	logging.Trace(logging.TraceEvent{
		Event: logging.TraceSearch, Query: query, Success: true,
		Fields: map[string]any{"results": len(results), "scraped": len(batch.Contents)},
	})
	return batch, nil
}

func (m *Manager) start(ctx context.Context) error {
	m.startOnce.Do(func() {
		m.startErr = m.scraper.Start(ctx)
	})
	return m.startErr
}

// Close releases the scraper. Safe to call more than once.
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		if m.scraper != nil {
			err = m.scraper.Close()
		}
	})
	return err
}
