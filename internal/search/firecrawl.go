package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"deepresearch/internal/logging"
)

// Firecrawl is the managed search-and-scrape backend: one API call returns
// ranked results together with each page rendered to markdown, so no local
// scraping is needed.
type Firecrawl struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// FirecrawlConfig holds configuration for the Firecrawl backend.
type FirecrawlConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// NewFirecrawl creates the Firecrawl backend, filling in defaults.
func NewFirecrawl(cfg FirecrawlConfig) *Firecrawl {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.firecrawl.dev"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Firecrawl{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type firecrawlSearchRequest struct {
	Query         string                  `json:"query"`
	Limit         int                     `json:"limit"`
	Timeout       int                     `json:"timeout,omitempty"`
	ScrapeOptions *firecrawlScrapeOptions `json:"scrapeOptions,omitempty"`
}

type firecrawlScrapeOptions struct {
	Formats []string `json:"formats"`
}

type firecrawlSearchResponse struct {
	Success bool   `json:"success"`
	Warning string `json:"warning,omitempty"`
	Data    []struct {
		Title       string         `json:"title"`
		Description string         `json:"description"`
		URL         string         `json:"url"`
		Markdown    string         `json:"markdown"`
		Metadata    map[string]any `json:"metadata"`
	} `json:"data"`
	Error string `json:"error,omitempty"`
}

// Search performs one managed search; every result carries the scraped
// markdown in its metadata, exposed through the ContentProvider interface.
func (f *Firecrawl) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if f.apiKey == "" {
		return nil, fmt.Errorf("API key not configured")
	}
	if maxResults <= 0 {
		maxResults = 5
	}

	reqBody := firecrawlSearchRequest{
		Query:   query,
		Limit:   maxResults,
		Timeout: 15000,
		ScrapeOptions: &firecrawlScrapeOptions{
			Formats: []string{"markdown"},
		},
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/v1/search", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.apiKey)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20)) // markdown payloads are large
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var parsed firecrawlSearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if !parsed.Success {
		return nil, fmt.Errorf("search failed: %s", parsed.Error)
	}

	results := make([]Result, 0, len(parsed.Data))
	for i, item := range parsed.Data {
		if item.URL == "" {
			continue
		}
		md := map[string]any{}
		for k, v := range item.Metadata {
			md[k] = v
		}
		if item.Markdown != "" {
			md["markdown"] = item.Markdown
		}
		results = append(results, Result{
			Title:       item.Title,
			URL:         item.URL,
			Description: item.Description,
			Rank:        i + 1,
			Metadata:    md,
		})
	}

	logging.Get(logging.CategorySearch).Debugw("firecrawl search",
		"query", query, "results", len(results))
	return results, nil
}

// Content returns the markdown Firecrawl scraped for a result, if any.
func (f *Firecrawl) Content(result Result) (string, bool) {
	if result.Metadata == nil {
		return "", false
	}
	md, ok := result.Metadata["markdown"].(string)
	return md, ok && md != ""
}
