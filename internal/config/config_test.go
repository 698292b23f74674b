package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.LLM.Provider != "openrouter" {
		t.Errorf("default provider = %q", cfg.LLM.Provider)
	}
	if cfg.Research.Breadth != 4 || cfg.Research.Depth != 2 {
		t.Errorf("default research shape = %d/%d, want 4/2", cfg.Research.Breadth, cfg.Research.Depth)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load with missing file: %v", err)
	}
	if cfg.Search.Backend != "duckduckgo" {
		t.Errorf("backend = %q, want default duckduckgo", cfg.Search.Backend)
	}
}

func TestLoadLayersFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deepresearch.yaml")
	data := []byte(`
llm:
  provider: gemini
  model: gemini-2.5-flash
research:
  breadth: 6
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Provider != "gemini" {
		t.Errorf("provider = %q, want gemini", cfg.LLM.Provider)
	}
	if cfg.Research.Breadth != 6 {
		t.Errorf("breadth = %d, want 6", cfg.Research.Breadth)
	}
	// Untouched sections keep their defaults.
	if cfg.Research.Concurrency != 2 {
		t.Errorf("concurrency = %d, want default 2", cfg.Research.Concurrency)
	}
	if cfg.Scrape.Backend != "browser" {
		t.Errorf("scrape backend = %q, want default browser", cfg.Scrape.Backend)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "env-or-key")
	t.Setenv("FIRECRAWL_API_KEY", "env-fc-key")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.APIKey != "env-or-key" {
		t.Errorf("llm key = %q, want env override", cfg.LLM.APIKey)
	}
	if cfg.Search.Firecrawl.APIKey != "env-fc-key" {
		t.Errorf("firecrawl key = %q, want env override", cfg.Search.Firecrawl.APIKey)
	}
}

func TestValidateRejectsUnknownVariants(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"llm provider", func(c *Config) { c.LLM.Provider = "mystery" }},
		{"search backend", func(c *Config) { c.Search.Backend = "bing" }},
		{"scrape backend", func(c *Config) { c.Scrape.Backend = "curl" }},
		{"zero breadth", func(c *Config) { c.Research.Breadth = 0 }},
		{"zero depth", func(c *Config) { c.Research.Depth = 0 }},
		{"zero concurrency", func(c *Config) { c.Research.Concurrency = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate accepted an invalid config")
			}
		})
	}
}

func TestGetterDefaults(t *testing.T) {
	var llm LLMConfig
	if got := llm.RequestTimeout().Seconds(); got != 120 {
		t.Errorf("zero-value request timeout = %vs, want 120s", got)
	}

	var scrape ScrapeConfig
	if got := scrape.NavigationTimeout().Seconds(); got != 30 {
		t.Errorf("zero-value navigation timeout = %vs, want 30s", got)
	}
	if got := scrape.ScrapeLimit(); got != 5 {
		t.Errorf("zero-value scrape limit = %d, want 5", got)
	}
}
