package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitializeRejectsUnknownLevel(t *testing.T) {
	if err := Initialize(Config{Level: "loud"}); err == nil {
		t.Error("unknown level accepted")
	}
}

func TestCategoryNaming(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	Get(CategoryResearch).Infow("branch done", "query", "q1")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].LoggerName != "research" {
		t.Errorf("logger name = %q, want research", entries[0].LoggerName)
	}
}

func TestInitializeWritesLogFile(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(Config{Level: "debug", Format: "json", Dir: dir}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer SetLogger(nil)

	Get(CategoryBoot).Info("hello from test")
	Sync()

	matches, err := filepath.Glob(filepath.Join(dir, "*_deepresearch.log"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("log file not created: %v %v", matches, err)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "hello from test") {
		t.Errorf("log file missing entry: %s", data)
	}
}

func TestTraceLifecycle(t *testing.T) {
	// No-op before init.
	Trace(TraceEvent{Event: TraceRunStart})

	dir := t.TempDir()
	if err := InitTrace(dir, "run-1"); err != nil {
		t.Fatalf("InitTrace: %v", err)
	}

	Trace(TraceEvent{Event: TraceBranchStart, Query: "q1", Depth: 2, Breadth: 4, Success: true})
	Trace(TraceEvent{Event: TraceBranchEnd, Query: "q1", Success: true, DurationMs: 12})
	CloseTrace()

	// No-op after close.
	Trace(TraceEvent{Event: TraceRunEnd})

	matches, err := filepath.Glob(filepath.Join(dir, "*_trace.jsonl"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("trace file not created: %v %v", matches, err)
	}
	f, err := os.Open(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var events []TraceEvent
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev TraceEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("bad trace line %q: %v", scanner.Text(), err)
		}
		events = append(events, ev)
	}

	if len(events) != 2 {
		t.Fatalf("events = %d, want 2 (pre-init and post-close events dropped)", len(events))
	}
	for _, ev := range events {
		if ev.RunID != "run-1" {
			t.Errorf("event %q runID = %q, want run-1", ev.Event, ev.RunID)
		}
		if ev.Timestamp == 0 {
			t.Errorf("event %q missing timestamp", ev.Event)
		}
	}
	if events[0].Event != TraceBranchStart || events[1].Event != TraceBranchEnd {
		t.Errorf("event order = %v", events)
	}
}
