package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func chatOK(content string) map[string]any {
	return map[string]any{
		"id":    "gen-1",
		"model": "test-model",
		"choices": []map[string]any{
			{"index": 0, "message": map[string]string{"role": "assistant", "content": content}},
		},
		"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	}
}

func TestOpenRouterComplete(t *testing.T) {
	var jsonMode atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.ResponseFormat != nil && req.ResponseFormat.Type == "json_object" {
			jsonMode.Store(true)
		}
		json.NewEncoder(w).Encode(chatOK("  hello world  "))
	}))
	defer server.Close()

	c := NewOpenRouterClient(OpenRouterConfig{APIKey: "test-key", BaseURL: server.URL, Timeout: 5 * time.Second})

	got, err := c.Complete(context.Background(), "say hello")
	require.NoError(t, err)
	require.Equal(t, "hello world", got, "completion should be trimmed")
	require.False(t, jsonMode.Load())

	_, err = c.CompleteJSON(context.Background(), "system", "user")
	require.NoError(t, err)
	require.True(t, jsonMode.Load(), "CompleteJSON must request a json_object response")
}

func TestOpenRouterRetriesOn429(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(chatOK("recovered"))
	}))
	defer server.Close()

	c := NewOpenRouterClient(OpenRouterConfig{APIKey: "k", BaseURL: server.URL, Timeout: 5 * time.Second})

	got, err := c.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	require.Equal(t, "recovered", got)
	require.Equal(t, int32(2), calls.Load())
}

func TestOpenRouterHardErrorOnBadStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	c := NewOpenRouterClient(OpenRouterConfig{APIKey: "k", BaseURL: server.URL, Timeout: 5 * time.Second})

	_, err := c.Complete(context.Background(), "prompt")
	require.Error(t, err)
	require.Equal(t, int32(1), calls.Load(), "non-429 failures must not be retried")
}

func TestOpenRouterRequiresAPIKey(t *testing.T) {
	c := NewOpenRouterClient(OpenRouterConfig{})
	_, err := c.Complete(context.Background(), "prompt")
	require.Error(t, err)
}

func TestOpenRouterAPIErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "model overloaded", "type": "server_error"},
		})
	}))
	defer server.Close()

	c := NewOpenRouterClient(OpenRouterConfig{APIKey: "k", BaseURL: server.URL, Timeout: 5 * time.Second})

	_, err := c.Complete(context.Background(), "prompt")
	require.ErrorContains(t, err, "model overloaded")
}
