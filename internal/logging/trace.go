package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TraceEventType identifies one kind of run-trace event.
type TraceEventType string

const (
	TraceRunStart    TraceEventType = "run_start"
	TraceRunEnd      TraceEventType = "run_end"
	TraceBranchStart TraceEventType = "branch_start"
	TraceBranchEnd   TraceEventType = "branch_end"
	TraceSearch      TraceEventType = "search"
	TraceLLMCall     TraceEventType = "llm_call"
	TraceReport      TraceEventType = "report"
)

// TraceEvent is one JSONL entry in the run trace. The trace reconstructs
// the shape of a recursive run after the fact: which branches ran, at what
// depth, how long each phase took and where failures were absorbed.
type TraceEvent struct {
	Timestamp  int64          `json:"ts"` // Unix milliseconds
	Event      TraceEventType `json:"event"`
	RunID      string         `json:"run,omitempty"`
	Query      string         `json:"query,omitempty"`
	Depth      int            `json:"depth,omitempty"`
	Breadth    int            `json:"breadth,omitempty"`
	Success    bool           `json:"success"`
	DurationMs int64          `json:"dur_ms,omitempty"`
	Error      string         `json:"error,omitempty"`
	Fields     map[string]any `json:"fields,omitempty"`
}

var (
	traceMu    sync.Mutex
	traceFile  *os.File
	traceRunID string
)

// InitTrace opens the JSONL trace file for one run. Before InitTrace (and
// after CloseTrace) Trace is a no-op, so instrumented code never has to
// check whether tracing is on.
func InitTrace(dir, runID string) error {
	traceMu.Lock()
	defer traceMu.Unlock()

	if traceFile != nil {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create trace dir: %w", err)
	}

	name := fmt.Sprintf("%s_trace.jsonl", time.Now().Format("2006-01-02"))
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open trace file: %w", err)
	}
	traceFile = f
	traceRunID = runID
	return nil
}

// CloseTrace closes the trace file. Idempotent.
func CloseTrace() {
	traceMu.Lock()
	defer traceMu.Unlock()
	if traceFile != nil {
		_ = traceFile.Close()
		traceFile = nil
		traceRunID = ""
	}
}

// Trace appends one event to the run trace.
func Trace(event TraceEvent) {
	traceMu.Lock()
	defer traceMu.Unlock()
	if traceFile == nil {
		return
	}

	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	if event.RunID == "" {
		event.RunID = traceRunID
	}

	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	_, _ = traceFile.Write(append(data, '\n'))
}
