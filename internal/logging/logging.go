// Package logging provides categorized structured logging for deepresearch.
// Every subsystem logs through a named zap logger so a run's output can be
// filtered per category (research, search, scrape, llm, report).
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies a logging subsystem.
type Category string

const (
	CategoryBoot     Category = "boot"     // Startup, config, wiring
	CategoryResearch Category = "research" // Recursive engine, branch lifecycle
	CategorySearch   Category = "search"   // Search backends and the manager
	CategoryScrape   Category = "scrape"   // Scraper lifecycle and fetches
	CategoryBrowser  Category = "browser"  // Headless browser internals
	CategoryLLM      Category = "llm"      // Completion calls
	CategoryReport   Category = "report"   // Final report composition
)

// Config controls log level, encoding and optional file output.
type Config struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console or json
	Dir    string `yaml:"dir"`    // if set, logs also go to <dir>/<date>_deepresearch.log
}

var (
	mu   sync.RWMutex
	root = zap.NewNop()
)

// Initialize builds the process-wide root logger. Safe to call more than
// once; the last call wins. Before Initialize all loggers are no-ops.
func Initialize(cfg Config) error {
	level := zapcore.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info", "":
		level = zapcore.InfoLevel
	case "warn", "warning":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		return fmt.Errorf("unknown log level %q", cfg.Level)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if cfg.Format == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	sinks := []zapcore.WriteSyncer{zapcore.AddSync(os.Stderr)}
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
		name := fmt.Sprintf("%s_deepresearch.log", time.Now().Format("2006-01-02"))
		f, err := os.OpenFile(filepath.Join(cfg.Dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		sinks = append(sinks, zapcore.AddSync(f))
	}

	core := zapcore.NewCore(enc, zapcore.NewMultiWriteSyncer(sinks...), level)

	mu.Lock()
	root = zap.New(core)
	mu.Unlock()
	return nil
}

// SetLogger replaces the root logger directly. Used by tests.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		l = zap.NewNop()
	}
	root = l
}

// L returns the structured logger for a category.
func L(category Category) *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root.Named(string(category))
}

// Get returns the sugared logger for a category.
func Get(category Category) *zap.SugaredLogger {
	return L(category).Sugar()
}

// Sync flushes buffered log entries.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}
