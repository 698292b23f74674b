package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"deepresearch/internal/config"
	"deepresearch/internal/llm"
	"deepresearch/internal/logging"
	"deepresearch/internal/research"
	"deepresearch/internal/scrape"
	"deepresearch/internal/search"
)

var (
	flagBreadth     int
	flagDepth       int
	flagConcurrency int
	flagOutput      string
	flagNoRender    bool
)

var runCmd = &cobra.Command{
	Use:   "run [topic]",
	Short: "Research a topic and write a markdown report",
	Long: `Runs the full research loop for the given topic:

  1. Plan search queries for the topic
  2. Search and scrape the results concurrently
  3. Distill learnings and follow-up questions
  4. Recurse with halved breadth until depth is exhausted
  5. Compose a final markdown report with sources

The report is written to the reports directory (or --output) and rendered
to the terminal.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResearch,
}

func init() {
	runCmd.Flags().IntVarP(&flagBreadth, "breadth", "b", 0, "queries per level (default from config)")
	runCmd.Flags().IntVarP(&flagDepth, "depth", "d", 0, "recursion depth (default from config)")
	runCmd.Flags().IntVar(&flagConcurrency, "concurrency", 0, "concurrent searches across the whole tree")
	runCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "report file path (default reports/report_<id>.md)")
	runCmd.Flags().BoolVar(&flagNoRender, "no-render", false, "skip terminal rendering of the report")
}

func runResearch(cmd *cobra.Command, args []string) error {
	topic := strings.Join(args, " ")
	runID := uuid.New().String()[:8]
	log := logging.Get(logging.CategoryBoot).With("runID", runID)

	ctx, cancel := signalContext()
	defer cancel()

	if cfg.Logging.Dir != "" {
		if err := logging.InitTrace(cfg.Logging.Dir, runID); err != nil {
			log.Warnw("run trace disabled", "error", err)
		}
		defer logging.CloseTrace()
	}

	client, err := llm.NewClient(cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}

	manager, err := buildManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to create search manager: %w", err)
	}
	defer manager.Close()

	planner := research.NewPlanner(client)
	distiller := research.NewDistiller(client, cfg.Research.ContentCharBudget)
	engine := research.NewEngine(planner, distiller, manager)
	composer := research.NewComposer(client)

	opts := research.Options{
		Breadth:     cfg.Research.Breadth,
		Depth:       cfg.Research.Depth,
		Concurrency: cfg.Research.Concurrency,
		MaxResults:  cfg.Research.MaxResults,
	}
	if flagBreadth > 0 {
		opts.Breadth = flagBreadth
	}
	if flagDepth > 0 {
		opts.Depth = flagDepth
	}
	if flagConcurrency > 0 {
		opts.Concurrency = flagConcurrency
	}

	log.Infow("starting research", "topic", topic, "breadth", opts.Breadth, "depth", opts.Depth)
	fmt.Printf("Researching: %s (breadth=%d, depth=%d)\n", topic, opts.Breadth, opts.Depth)

	started := time.Now()
	logging.Trace(logging.TraceEvent{
		Event: logging.TraceRunStart, Query: topic,
		Depth: opts.Depth, Breadth: opts.Breadth, Success: true,
	})
	result, err := engine.Research(ctx, topic, opts)
	if err != nil {
		log.Warnw("research interrupted", "error", err)
	}
	logging.Trace(logging.TraceEvent{
		Event: logging.TraceRunEnd, Query: topic, Success: err == nil,
		DurationMs: time.Since(started).Milliseconds(),
		Fields: map[string]any{
			"learnings": len(result.Learnings),
			"urls":      len(result.VisitedURLs),
		},
	})
	fmt.Printf("Gathered %d learnings from %d sources in %s\n",
		len(result.Learnings), len(result.VisitedURLs), time.Since(started).Round(time.Second))

	report := composer.Compose(ctx, topic, result.Learnings, result.VisitedURLs)

	outPath := flagOutput
	if outPath == "" {
		outPath = filepath.Join("reports", fmt.Sprintf("report_%s.md", runID))
	}
	if err := writeReport(outPath, topic, runID, report); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	fmt.Printf("Report written to %s\n", outPath)

	if !flagNoRender {
		renderReport(report)
	}
	return nil
}

// buildManager constructs the search backend and scraper named in the
// config. Backend and scraper variants are resolved exactly once, here.
func buildManager(cfg config.Config) (*search.Manager, error) {
	var backend search.Backend
	switch cfg.Search.Backend {
	case "duckduckgo":
		backend = search.NewDuckDuckGo()
	case "firecrawl":
		backend = search.NewFirecrawl(search.FirecrawlConfig{
			APIKey:  cfg.Search.Firecrawl.APIKey,
			BaseURL: cfg.Search.Firecrawl.BaseURL,
		})
	default:
		return nil, fmt.Errorf("unknown search backend: %q", cfg.Search.Backend)
	}

	var scraper scrape.Scraper
	if _, managed := backend.(search.ContentProvider); !managed {
		switch cfg.Scrape.Backend {
		case "browser":
			scraper = scrape.NewBrowserScraper(scrape.BrowserConfig{
				Headless:          cfg.Scrape.Headless,
				NavigationTimeout: cfg.Scrape.NavigationTimeout(),
			})
		case "remote":
			scraper = scrape.NewRemoteScraper(scrape.RemoteConfig{
				BaseURL: cfg.Scrape.Remote.BaseURL,
				APIKey:  cfg.Scrape.Remote.APIKey,
			})
		default:
			return nil, fmt.Errorf("unknown scrape backend: %q", cfg.Scrape.Backend)
		}
	}

	return search.NewManager(backend, scraper, search.ManagerConfig{
		MaxConcurrentScrapes: cfg.Scrape.MaxConcurrentScrapes,
	}), nil
}

func writeReport(path, topic, runID, report string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	header := fmt.Sprintf("---\ntopic: %s\nrun: %s\ngenerated: %s\nmodel: %s\n---\n\n",
		topic, runID, time.Now().Format(time.RFC3339), cfg.LLM.Model)
	return os.WriteFile(path, []byte(header+report), 0o644)
}

func renderReport(report string) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		fmt.Println(report)
		return
	}
	out, err := renderer.Render(report)
	if err != nil {
		fmt.Println(report)
		return
	}
	fmt.Print(out)
}
