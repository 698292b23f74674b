package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFirecrawlSearchCarriesMarkdown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/search" {
			t.Errorf("path = %q, want /v1/search", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}

		var req firecrawlSearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Query != "golang concurrency" || req.Limit != 2 {
			t.Errorf("request = %+v", req)
		}
		if req.ScrapeOptions == nil || len(req.ScrapeOptions.Formats) != 1 || req.ScrapeOptions.Formats[0] != "markdown" {
			t.Errorf("scrapeOptions = %+v, want markdown format", req.ScrapeOptions)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": []map[string]any{
				{
					"title":       "Go Concurrency Patterns",
					"description": "Talk notes",
					"url":         "https://go.dev/talks/concurrency",
					"markdown":    "# Concurrency\n\nShare memory by communicating.",
				},
				{
					"title": "No content page",
					"url":   "https://example.com/empty",
				},
			},
		})
	}))
	defer server.Close()

	f := NewFirecrawl(FirecrawlConfig{APIKey: "test-key", BaseURL: server.URL})
	results, err := f.Search(context.Background(), "golang concurrency", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}

	md, ok := f.Content(results[0])
	if !ok || md == "" {
		t.Error("first result should carry markdown content")
	}
	if _, ok := f.Content(results[1]); ok {
		t.Error("result without markdown reported content")
	}
}

func TestFirecrawlRequiresAPIKey(t *testing.T) {
	f := NewFirecrawl(FirecrawlConfig{})
	if _, err := f.Search(context.Background(), "anything", 5); err == nil {
		t.Error("missing API key did not error")
	}
}

func TestFirecrawlErrorResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "quota exceeded"})
	}))
	defer server.Close()

	f := NewFirecrawl(FirecrawlConfig{APIKey: "k", BaseURL: server.URL})
	if _, err := f.Search(context.Background(), "anything", 5); err == nil {
		t.Error("unsuccessful response did not error")
	}
}
