package research

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"deepresearch/internal/scrape"
	"deepresearch/internal/search"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedClient answers planner, distiller and composer prompts with
// canned JSON, keyed on prompt content.
type scriptedClient struct {
	queries    int // queries returned per planning call
	learnings  []string
	followUps  []string
	failPlan   bool
	failDistil bool
	failReport bool
	report     string
}

func (c *scriptedClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteJSON(ctx, "", prompt)
}

func (c *scriptedClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.CompleteJSON(ctx, systemPrompt, userPrompt)
}

func (c *scriptedClient) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	switch {
	case strings.Contains(userPrompt, "SERP queries"):
		if c.failPlan {
			return "", fmt.Errorf("planner unavailable")
		}
		queries := make([]SerpQuery, c.queries)
		for i := range queries {
			queries[i] = SerpQuery{
				Query:        fmt.Sprintf("query %d", i+1),
				ResearchGoal: fmt.Sprintf("goal %d", i+1),
			}
		}
		out, _ := json.Marshal(map[string]any{"queries": queries})
		return string(out), nil

	case strings.Contains(userPrompt, "generate a list of learnings"):
		if c.failDistil {
			return "not json at all", nil
		}
		out, _ := json.Marshal(map[string]any{
			"learnings":         c.learnings,
			"followUpQuestions": c.followUps,
		})
		return string(out), nil

	case strings.Contains(userPrompt, "reportMarkdown"):
		if c.failReport {
			return "", fmt.Errorf("composer unavailable")
		}
		out, _ := json.Marshal(map[string]string{"reportMarkdown": c.report})
		return string(out), nil
	}
	return "", fmt.Errorf("unexpected prompt")
}

// countingSearcher records peak concurrent SearchAndScrape executions and
// can fail selected queries.
type countingSearcher struct {
	mu      sync.Mutex
	current int
	peak    int
	calls   int
	next    int
	failOn  map[string]bool
	delay   time.Duration
}

func (s *countingSearcher) SearchAndScrape(ctx context.Context, query string, maxResults int) (*search.Batch, error) {
	s.mu.Lock()
	s.current++
	if s.current > s.peak {
		s.peak = s.current
	}
	s.calls++
	s.next++
	id := s.next
	s.mu.Unlock()

	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	s.mu.Lock()
	s.current--
	s.mu.Unlock()

	if s.failOn[query] {
		return nil, fmt.Errorf("search backend down")
	}

	url := fmt.Sprintf("https://example.com/page-%d", id)
	return &search.Batch{
		Results: []search.Result{{Title: "page", URL: url, Rank: 1}},
		Contents: map[string]*scrape.Content{
			url: {URL: url, Text: "page text"},
		},
	}, nil
}

func newTestEngine(client *scriptedClient, searcher Searcher) *Engine {
	return NewEngine(NewPlanner(client), NewDistiller(client, 0), searcher)
}

func TestResearchTerminatesAndMerges(t *testing.T) {
	client := &scriptedClient{
		queries:   2,
		learnings: []string{"learning one"},
		followUps: []string{"what next?"},
	}
	searcher := &countingSearcher{}
	engine := newTestEngine(client, searcher)

	result, err := engine.Research(context.Background(), "test topic", Options{
		Breadth: 2, Depth: 2, Concurrency: 2, MaxResults: 5,
	})
	if err != nil {
		t.Fatalf("Research returned error: %v", err)
	}

	if len(result.Learnings) != 1 || result.Learnings[0] != "learning one" {
		t.Errorf("learnings = %v, want the single deduplicated learning", result.Learnings)
	}
	// 2 root branches + 1 follow-up branch each (breadth halves to 1).
	if searcher.calls != 4 {
		t.Errorf("search calls = %d, want 4", searcher.calls)
	}
	if len(result.VisitedURLs) != searcher.calls {
		t.Errorf("visited URLs = %d, want one per search (%d)", len(result.VisitedURLs), searcher.calls)
	}
	for i := 1; i < len(result.VisitedURLs); i++ {
		if result.VisitedURLs[i-1] >= result.VisitedURLs[i] {
			t.Errorf("visited URLs not sorted: %v", result.VisitedURLs)
		}
	}
}

func TestResearchDepthOneIsSinglePass(t *testing.T) {
	client := &scriptedClient{
		queries:   3,
		learnings: []string{"l"},
		followUps: []string{"f"},
	}
	searcher := &countingSearcher{}
	engine := newTestEngine(client, searcher)

	_, err := engine.Research(context.Background(), "topic", Options{
		Breadth: 3, Depth: 1, Concurrency: 2,
	})
	if err != nil {
		t.Fatalf("Research returned error: %v", err)
	}
	if searcher.calls != 3 {
		t.Errorf("search calls = %d, want 3 (no recursion at depth 1)", searcher.calls)
	}
}

func TestResearchConcurrencyBound(t *testing.T) {
	client := &scriptedClient{
		queries:   8,
		learnings: []string{"l"},
		followUps: []string{"f"},
	}
	searcher := &countingSearcher{delay: 5 * time.Millisecond}
	engine := newTestEngine(client, searcher)

	_, err := engine.Research(context.Background(), "wide topic", Options{
		Breadth: 8, Depth: 3, Concurrency: 2,
	})
	if err != nil {
		t.Fatalf("Research returned error: %v", err)
	}

	if searcher.peak > 2 {
		t.Errorf("peak concurrent searches = %d, want <= 2", searcher.peak)
	}
	if searcher.calls <= 8 {
		t.Errorf("search calls = %d, want recursion beyond the 8 root branches", searcher.calls)
	}
}

func TestResearchAbsorbsBranchFailure(t *testing.T) {
	client := &scriptedClient{
		queries:   3,
		learnings: []string{"surviving learning"},
	}
	searcher := &countingSearcher{failOn: map[string]bool{"query 2": true}}
	engine := newTestEngine(client, searcher)

	result, err := engine.Research(context.Background(), "topic", Options{
		Breadth: 3, Depth: 1, Concurrency: 3,
	})
	if err != nil {
		t.Fatalf("branch failure escaped Research: %v", err)
	}
	if len(result.Learnings) == 0 {
		t.Error("surviving branches contributed no learnings")
	}
	if len(result.VisitedURLs) != 2 {
		t.Errorf("visited URLs = %d, want 2 from the surviving branches", len(result.VisitedURLs))
	}
}

func TestResearchPlannerFailureYieldsEmptyResult(t *testing.T) {
	client := &scriptedClient{failPlan: true}
	searcher := &countingSearcher{}
	engine := newTestEngine(client, searcher)

	result, err := engine.Research(context.Background(), "topic", Options{
		Breadth: 4, Depth: 2, Concurrency: 2,
	})
	if err != nil {
		t.Fatalf("planner failure escaped Research: %v", err)
	}
	if len(result.Learnings) != 0 || len(result.VisitedURLs) != 0 {
		t.Errorf("result = %+v, want empty", result)
	}
	if searcher.calls != 0 {
		t.Errorf("search calls = %d, want 0 when planning yields nothing", searcher.calls)
	}
}

func TestResearchDistillerFailureKeepsURLs(t *testing.T) {
	client := &scriptedClient{queries: 2, failDistil: true}
	searcher := &countingSearcher{}
	engine := newTestEngine(client, searcher)

	result, err := engine.Research(context.Background(), "topic", Options{
		Breadth: 2, Depth: 1, Concurrency: 2,
	})
	if err != nil {
		t.Fatalf("Research returned error: %v", err)
	}
	if len(result.Learnings) != 0 {
		t.Errorf("learnings = %v, want none when distillation fails", result.Learnings)
	}
	if len(result.VisitedURLs) != 2 {
		t.Errorf("visited URLs = %d, want 2 despite distillation failure", len(result.VisitedURLs))
	}
}

func TestResearchCancelledContext(t *testing.T) {
	client := &scriptedClient{queries: 4, learnings: []string{"l"}}
	searcher := &countingSearcher{}
	engine := newTestEngine(client, searcher)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := engine.Research(ctx, "topic", Options{Breadth: 4, Depth: 2, Concurrency: 1})
	if err == nil {
		t.Error("Research with cancelled context returned nil error")
	}
	if len(result.Learnings) != 0 {
		t.Errorf("cancelled run produced learnings: %v", result.Learnings)
	}
}

func TestNextBreadth(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{8, 4},
		{4, 2},
		{3, 1},
		{2, 1},
		{1, 1},
	}
	for _, tt := range tests {
		if got := nextBreadth(tt.in); got != tt.want {
			t.Errorf("nextBreadth(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestNextTopic(t *testing.T) {
	got := nextTopic("find benchmarks", []string{"which datasets?", "which hardware?"})
	if !strings.Contains(got, "find benchmarks") {
		t.Errorf("nextTopic dropped the research goal: %q", got)
	}
	if !strings.Contains(got, "which datasets?") || !strings.Contains(got, "which hardware?") {
		t.Errorf("nextTopic dropped follow-ups: %q", got)
	}
	if nextTopic("", nil) != "" {
		t.Error("nextTopic with no inputs should be empty")
	}
}
