// Package config loads deepresearch configuration from YAML with
// environment-variable overrides for secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"deepresearch/internal/logging"
)

// Config holds all deepresearch configuration.
type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	Search   SearchConfig   `yaml:"search"`
	Scrape   ScrapeConfig   `yaml:"scrape"`
	Research ResearchConfig `yaml:"research"`
	Logging  logging.Config `yaml:"logging"`
}

// LLMConfig configures the completion client.
type LLMConfig struct {
	Provider string `yaml:"provider"` // openrouter, gemini
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
}

// RequestTimeout returns the per-call LLM timeout.
func (c LLMConfig) RequestTimeout() time.Duration {
	if d, err := time.ParseDuration(c.Timeout); err == nil && d > 0 {
		return d
	}
	return 120 * time.Second
}

// SearchConfig selects and configures the search backend.
type SearchConfig struct {
	Backend   string          `yaml:"backend"` // duckduckgo, firecrawl
	Firecrawl FirecrawlConfig `yaml:"firecrawl"`
}

// FirecrawlConfig configures the managed search-and-scrape service.
type FirecrawlConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// ScrapeConfig selects and configures the scrape backend.
type ScrapeConfig struct {
	Backend              string       `yaml:"backend"` // browser, remote
	Headless             bool         `yaml:"headless"`
	NavigationTimeoutMs  int          `yaml:"navigation_timeout_ms"`
	MaxConcurrentScrapes int          `yaml:"max_concurrent_scrapes"`
	Remote               RemoteConfig `yaml:"remote"`
}

// NavigationTimeout returns the per-page navigation timeout.
func (c ScrapeConfig) NavigationTimeout() time.Duration {
	if c.NavigationTimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}

// ScrapeLimit returns the scrape fan-out bound.
func (c ScrapeConfig) ScrapeLimit() int {
	if c.MaxConcurrentScrapes <= 0 {
		return 5
	}
	return c.MaxConcurrentScrapes
}

// RemoteConfig configures the hosted rendering service.
type RemoteConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// ResearchConfig bounds the recursive engine.
type ResearchConfig struct {
	Breadth           int `yaml:"breadth"`
	Depth             int `yaml:"depth"`
	Concurrency       int `yaml:"concurrency"`
	MaxResults        int `yaml:"max_results"`         // search results per query
	ContentCharBudget int `yaml:"content_char_budget"` // per-content trim before distillation
}

// DefaultConfig returns sensible defaults mirroring the shipped config file.
func DefaultConfig() Config {
	return Config{
		LLM: LLMConfig{
			Provider: "openrouter",
			Model:    "qwen/qwen3-30b-a3b:free",
			BaseURL:  "https://openrouter.ai/api/v1",
			Timeout:  "120s",
		},
		Search: SearchConfig{
			Backend: "duckduckgo",
		},
		Scrape: ScrapeConfig{
			Backend:              "browser",
			Headless:             true,
			NavigationTimeoutMs:  30000,
			MaxConcurrentScrapes: 5,
			Remote: RemoteConfig{
				BaseURL: "https://r.jina.ai",
			},
		},
		Research: ResearchConfig{
			Breadth:           4,
			Depth:             2,
			Concurrency:       2,
			MaxResults:        5,
			ContentCharBudget: 25000,
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the config file at path, layered over defaults, and applies
// environment overrides. A missing file is not an error: defaults plus
// environment apply.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnvOverrides layers secret-bearing environment variables over the
// file config. Env always wins so keys stay out of checked-in YAML.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" && cfg.LLM.Provider == "openrouter" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" && cfg.LLM.Provider == "gemini" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("FIRECRAWL_API_KEY"); v != "" {
		cfg.Search.Firecrawl.APIKey = v
	}
	if v := os.Getenv("FIRECRAWL_BASE_URL"); v != "" {
		cfg.Search.Firecrawl.BaseURL = v
	}
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	switch c.LLM.Provider {
	case "openrouter", "gemini":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	switch c.Search.Backend {
	case "duckduckgo", "firecrawl":
	default:
		return fmt.Errorf("unknown search backend %q", c.Search.Backend)
	}
	switch c.Scrape.Backend {
	case "browser", "remote":
	default:
		return fmt.Errorf("unknown scrape backend %q", c.Scrape.Backend)
	}
	if c.Research.Breadth < 1 {
		return fmt.Errorf("research breadth must be >= 1, got %d", c.Research.Breadth)
	}
	if c.Research.Depth < 1 {
		return fmt.Errorf("research depth must be >= 1, got %d", c.Research.Depth)
	}
	if c.Research.Concurrency < 1 {
		return fmt.Errorf("research concurrency must be >= 1, got %d", c.Research.Concurrency)
	}
	return nil
}
