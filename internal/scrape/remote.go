package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"deepresearch/internal/logging"
)

// RemoteConfig configures the hosted rendering service scraper.
type RemoteConfig struct {
	BaseURL string // reader endpoint, e.g. https://r.jina.ai
	APIKey  string
	Timeout time.Duration
}

// RemoteScraper delegates rendering to a hosted reader API that returns the
// page as ready-made markdown. No local browser is involved.
type RemoteScraper struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
}

// NewRemoteScraper creates a remote scraper, filling in defaults.
func NewRemoteScraper(cfg RemoteConfig) *RemoteScraper {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://r.jina.ai"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &RemoteScraper{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Start is a no-op; the HTTP client needs no warm-up.
func (s *RemoteScraper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("scraper is closed")
	}
	return nil
}

// Fetch asks the rendering service for url and returns its markdown.
func (s *RemoteScraper) Fetch(ctx context.Context, url string) (*Content, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, errors.New("scraper is closed")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/"+url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/markdown, text/plain")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20)) // 2MB limit
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	text := string(body)
	// Some reader deployments hand back HTML despite the Accept header.
	if ct := resp.Header.Get("Content-Type"); strings.Contains(ct, "text/html") {
		if md, err := HTMLToMarkdown(text, false); err == nil {
			text = md
		}
	}

	logging.Get(logging.CategoryScrape).Debugw("remote render fetched",
		"url", url, "chars", len(text))

	return &Content{
		URL:        url,
		Text:       text,
		StatusCode: resp.StatusCode,
		Metadata:   map[string]string{"renderer": "remote"},
	}, nil
}

// Close marks the scraper unusable. Idempotent.
func (s *RemoteScraper) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.httpClient.CloseIdleConnections()
	})
	return nil
}
