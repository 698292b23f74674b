package research

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"deepresearch/internal/logging"
	"deepresearch/internal/search"
)

// Searcher is the slice of the search manager the engine needs. Satisfied
// by *search.Manager; tests substitute instrumented stubs.
type Searcher interface {
	SearchAndScrape(ctx context.Context, query string, maxResults int) (*search.Batch, error)
}

// Options control the shape of one research tree.
type Options struct {
	// Breadth is the number of queries planned at the root. It halves at
	// every level, never dropping below 1.
	Breadth int
	// Depth is the number of recursion levels. Depth 1 means a single
	// plan-search-distill pass.
	Depth int
	// Concurrency bounds simultaneous search-and-scrape operations across
	// the WHOLE tree, all levels included.
	Concurrency int
	// MaxResults is the per-query search result cap.
	MaxResults int
}

func (o Options) normalized() Options {
	if o.Breadth <= 0 {
		o.Breadth = 4
	}
	if o.Depth <= 0 {
		o.Depth = 2
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 2
	}
	if o.MaxResults <= 0 {
		o.MaxResults = 5
	}
	return o
}

// Engine drives the recursive research loop.
type Engine struct {
	planner   *Planner
	distiller *Distiller
	searcher  Searcher
}

// NewEngine wires the engine from its collaborators.
func NewEngine(planner *Planner, distiller *Distiller, searcher Searcher) *Engine {
	return &Engine{planner: planner, distiller: distiller, searcher: searcher}
}

// Research explores topic to the configured breadth and depth and returns
// the merged learnings and visited URLs. One semaphore created here bounds
// search-and-scrape concurrency for the entire tree. Branch failures are
// absorbed into empty branch results; Research itself fails only on a
// cancelled context before any work completes, and even then returns
// whatever was gathered.
func (e *Engine) Research(ctx context.Context, topic string, opts Options) (Result, error) {
	opts = opts.normalized()
	sem := semaphore.NewWeighted(int64(opts.Concurrency))

	logging.Get(logging.CategoryResearch).Infow("research started",
		"topic", topic,
		"breadth", opts.Breadth,
		"depth", opts.Depth,
		"concurrency", opts.Concurrency)

	result := e.explore(ctx, sem, topic, opts.Breadth, opts.Depth, opts.MaxResults, Result{})

	logging.Get(logging.CategoryResearch).Infow("research finished",
		"topic", topic,
		"learnings", len(result.Learnings),
		"urls", len(result.VisitedURLs))
	return result, ctx.Err()
}

// explore runs one recursion level: plan breadth queries, process each in
// its own goroutine, merge the sibling results.
func (e *Engine) explore(ctx context.Context, sem *semaphore.Weighted, topic string, breadth, depth, maxResults int, inherited Result) Result {
	queries := e.planner.GenerateQueries(ctx, topic, breadth, inherited.Learnings)
	if len(queries) == 0 {
		return inherited
	}

	branches := make([]Result, len(queries))
	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func(i int, q SerpQuery) {
			defer wg.Done()
			branches[i] = e.branch(ctx, sem, q, breadth, depth, maxResults, inherited)
		}(i, q)
	}
	wg.Wait()

	return Merge(append(branches, inherited)...)
}

// branch processes one query end to end. Any error or panic inside is
// contained here: the branch contributes an empty Result and its siblings
// are unaffected.
func (e *Engine) branch(ctx context.Context, sem *semaphore.Weighted, q SerpQuery, breadth, depth, maxResults int, inherited Result) (out Result) {
	log := logging.Get(logging.CategoryResearch)

	started := time.Now()
	logging.Trace(logging.TraceEvent{
		Event: logging.TraceBranchStart, Query: q.Query, Depth: depth, Breadth: breadth, Success: true,
	})
	defer func() {
		if r := recover(); r != nil {
			log.Errorw("research branch panicked", "query", q.Query, "panic", r)
			out = Result{}
		}
		logging.Trace(logging.TraceEvent{
			Event: logging.TraceBranchEnd, Query: q.Query, Depth: depth,
			Success:    len(out.Learnings) > 0 || len(out.VisitedURLs) > 0,
			DurationMs: time.Since(started).Milliseconds(),
		})
	}()

	if err := sem.Acquire(ctx, 1); err != nil {
		log.Warnw("branch cancelled before search", "query", q.Query, "error", err)
		return Result{}
	}

	batch, err := e.searcher.SearchAndScrape(ctx, q.Query, maxResults)
	// The permit covers only the search-and-scrape phase. Releasing before
	// distillation and recursion is what keeps a deep tree from deadlocking
	// on its own ancestors' permits.
	sem.Release(1)
	if err != nil {
		log.Warnw("branch search failed", "query", q.Query, "error", err)
		return Result{}
	}

	urls := make([]string, 0, len(batch.Results))
	contents := make([]string, 0, len(batch.Contents))
	for _, r := range batch.Results {
		urls = append(urls, r.URL)
		if c, ok := batch.Contents[r.URL]; ok && c.Text != "" {
			contents = append(contents, c.Text)
		}
	}

	perBranch := breadth / 2
	if perBranch < 1 {
		perBranch = 1
	}
	distilled := e.distiller.Distill(ctx, q.Query, contents, perBranch, perBranch)

	state := Merge(inherited, Result{Learnings: distilled.Learnings, VisitedURLs: urls})

	if depth-1 <= 0 {
		return state
	}

	followUp := nextTopic(q.ResearchGoal, distilled.FollowUpQuestions)
	if followUp == "" {
		return state
	}
	return e.explore(ctx, sem, followUp, nextBreadth(breadth), depth-1, maxResults, state)
}

// nextBreadth halves breadth for the next level, floored at 1.
func nextBreadth(breadth int) int {
	next := breadth / 2
	if next < 1 {
		next = 1
	}
	return next
}

// nextTopic builds the follow-up research topic from the branch's goal and
// the distiller's follow-up questions.
func nextTopic(goal string, followUps []string) string {
	var sb strings.Builder
	if strings.TrimSpace(goal) != "" {
		fmt.Fprintf(&sb, "Previous research goal: %s", goal)
	}
	if len(followUps) > 0 {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("Follow-up research directions:\n")
		for _, f := range followUps {
			fmt.Fprintf(&sb, "- %s\n", f)
		}
	}
	return strings.TrimSpace(sb.String())
}
