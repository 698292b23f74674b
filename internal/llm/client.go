// Package llm provides text-completion clients for the research pipeline.
// The engine treats the model purely as an external service that may time
// out or return malformed JSON; all structured-output parsing lives with
// the callers.
package llm

import (
	"context"
	"fmt"

	"deepresearch/internal/config"
)

// Client defines the interface for completion providers.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	// CompleteJSON requests a JSON object response. The returned string is
	// the raw completion; use ExtractJSON before unmarshaling.
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// NewClient constructs the configured provider. The provider set is closed
// and resolved exactly once, at construction.
func NewClient(cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case "openrouter":
		return NewOpenRouterClient(OpenRouterConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.RequestTimeout(),
		}), nil
	case "gemini":
		return NewGeminiClient(GeminiConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.RequestTimeout(),
		}), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
