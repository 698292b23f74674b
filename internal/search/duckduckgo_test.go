package search

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

const sampleSERP = `<!DOCTYPE html>
<html><body>
<div id="links">
  <div class="result results_links results_links_deep web-result">
    <h2 class="result__title">
      <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2Fdoc%2F&amp;rut=abc123">Go Documentation</a>
    </h2>
    <a class="result__snippet" href="https://go.dev/doc/">Official <b>Go</b> documentation and tutorials.</a>
  </div>
  <div class="result results_links results_links_deep web-result">
    <h2 class="result__title">
      <a class="result__a" href="https://go.dev/blog/">The Go Blog</a>
    </h2>
    <a class="result__snippet" href="https://go.dev/blog/">News from the <b>Go</b> project.</a>
  </div>
  <div class="result--ad">
    <a class="result__a" href="https://ads.example/click">Sponsored thing</a>
  </div>
</div>
</body></html>`

func TestDuckDuckGoSearch(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		io.WriteString(w, sampleSERP)
	}))
	defer server.Close()

	d := NewDuckDuckGo(WithDuckDuckGoEndpoint(server.URL))
	results, err := d.Search(context.Background(), "golang docs", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if gotQuery != "golang docs" {
		t.Errorf("query sent = %q, want %q", gotQuery, "golang docs")
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2 (ad block skipped)", len(results))
	}

	first := results[0]
	if first.URL != "https://go.dev/doc/" {
		t.Errorf("redirect not unwrapped: %q", first.URL)
	}
	if first.Title != "Go Documentation" {
		t.Errorf("title = %q", first.Title)
	}
	if first.Description == "" {
		t.Error("snippet not extracted")
	}
	if first.Rank != 1 || results[1].Rank != 2 {
		t.Errorf("ranks = %d, %d, want 1, 2", first.Rank, results[1].Rank)
	}
}

func TestDuckDuckGoMaxResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, sampleSERP)
	}))
	defer server.Close()

	d := NewDuckDuckGo(WithDuckDuckGoEndpoint(server.URL))
	results, err := d.Search(context.Background(), "golang", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("results = %d, want 1", len(results))
	}
}

func TestDuckDuckGoHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	d := NewDuckDuckGo(WithDuckDuckGoEndpoint(server.URL))
	if _, err := d.Search(context.Background(), "golang", 5); err == nil {
		t.Error("HTTP 403 did not surface as an error")
	}
}

func TestUnwrapRedirect(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fpage&rut=xyz", "https://example.com/page"},
		{"//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2F", "https://example.com/"},
		{"https://example.com/direct", "https://example.com/direct"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := unwrapRedirect(tt.in); got != tt.want {
			t.Errorf("unwrapRedirect(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
