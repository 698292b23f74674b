package search

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"deepresearch/internal/scrape"
)

type stubBackend struct {
	results []Result
	err     error
}

func (b *stubBackend) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.results) > maxResults {
		return b.results[:maxResults], nil
	}
	return b.results, nil
}

// managedBackend also serves content, like Firecrawl.
type managedBackend struct {
	stubBackend
}

func (b *managedBackend) Content(result Result) (string, bool) {
	md, ok := result.Metadata["markdown"].(string)
	return md, ok
}

// countingScraper tracks concurrent Fetch calls and Close invocations.
type countingScraper struct {
	mu      sync.Mutex
	current int
	peak    int
	closes  int
	failURL string
}

func (s *countingScraper) Start(ctx context.Context) error { return nil }

func (s *countingScraper) Fetch(ctx context.Context, url string) (*scrape.Content, error) {
	s.mu.Lock()
	s.current++
	if s.current > s.peak {
		s.peak = s.current
	}
	s.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	s.mu.Lock()
	s.current--
	s.mu.Unlock()

	if url == s.failURL {
		return nil, fmt.Errorf("fetch failed")
	}
	return &scrape.Content{URL: url, Text: "text of " + url}, nil
}

func (s *countingScraper) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func makeResults(n int) []Result {
	out := make([]Result, n)
	for i := range out {
		out[i] = Result{
			Title: fmt.Sprintf("result %d", i+1),
			URL:   fmt.Sprintf("https://example.com/page-%d", i+1),
			Rank:  i + 1,
		}
	}
	return out
}

func TestManagerScrapeFanOutBounded(t *testing.T) {
	scraper := &countingScraper{}
	m := NewManager(&stubBackend{results: makeResults(10)}, scraper, ManagerConfig{MaxConcurrentScrapes: 3})
	defer m.Close()

	batch, err := m.SearchAndScrape(context.Background(), "query", 10)
	if err != nil {
		t.Fatalf("SearchAndScrape: %v", err)
	}
	if len(batch.Contents) != 10 {
		t.Errorf("contents = %d, want 10", len(batch.Contents))
	}
	if scraper.peak > 3 {
		t.Errorf("peak concurrent fetches = %d, want <= 3", scraper.peak)
	}
}

func TestManagerIsolatesFetchFailures(t *testing.T) {
	scraper := &countingScraper{failURL: "https://example.com/page-2"}
	m := NewManager(&stubBackend{results: makeResults(4)}, scraper, ManagerConfig{})
	defer m.Close()

	batch, err := m.SearchAndScrape(context.Background(), "query", 4)
	if err != nil {
		t.Fatalf("a single fetch failure failed the batch: %v", err)
	}
	if len(batch.Results) != 4 {
		t.Errorf("results = %d, want 4", len(batch.Results))
	}
	if len(batch.Contents) != 3 {
		t.Errorf("contents = %d, want 3 (failed URL omitted)", len(batch.Contents))
	}
	if _, ok := batch.Contents["https://example.com/page-2"]; ok {
		t.Error("failed URL present in contents")
	}
}

func TestManagerSearchErrorPropagates(t *testing.T) {
	m := NewManager(&stubBackend{err: fmt.Errorf("backend down")}, &countingScraper{}, ManagerConfig{})
	defer m.Close()

	if _, err := m.SearchAndScrape(context.Background(), "query", 5); err == nil {
		t.Error("search backend error did not propagate")
	}
}

func TestManagerSkipsScrapeForManagedBackend(t *testing.T) {
	results := makeResults(3)
	for i := range results {
		results[i].Metadata = map[string]any{"markdown": "md " + results[i].URL}
	}
	scraper := &countingScraper{}
	m := NewManager(&managedBackend{stubBackend{results: results}}, scraper, ManagerConfig{})
	defer m.Close()

	batch, err := m.SearchAndScrape(context.Background(), "query", 3)
	if err != nil {
		t.Fatalf("SearchAndScrape: %v", err)
	}
	if len(batch.Contents) != 3 {
		t.Errorf("contents = %d, want 3 from the backend itself", len(batch.Contents))
	}
	if scraper.peak != 0 {
		t.Error("manager scraped despite the backend providing content")
	}
}

func TestManagerCloseOnce(t *testing.T) {
	scraper := &countingScraper{}
	m := NewManager(&stubBackend{results: makeResults(1)}, scraper, ManagerConfig{})

	for i := 0; i < 3; i++ {
		if err := m.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
	if scraper.closes != 1 {
		t.Errorf("scraper closed %d times, want exactly 1", scraper.closes)
	}
}
