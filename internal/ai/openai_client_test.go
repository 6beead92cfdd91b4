package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestOpenAIGenerateSuccess(t *testing.T) {
	var got map[string]any
	srv := startLocalServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": "two columns, no surprises"},
			}},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", srv.URL+"/v1", 2*time.Second, 0)
	resp, err := c.Generate(context.Background(), UserPrompt("gpt-4o-mini", "describe"))
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Text() != "two columns, no surprises" || resp.ID != "chatcmpl-1" || resp.Usage.TotalTokens != 15 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if got["model"] != "gpt-4o-mini" {
		t.Fatalf("request model = %v", got["model"])
	}
	msgs, _ := got["messages"].([]any)
	if len(msgs) != 1 {
		t.Fatalf("request messages = %v", got["messages"])
	}
}

func TestOpenAIGenerateAuthError(t *testing.T) {
	srv := startLocalServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "invalid api key", "type": "invalid_request_error"}})
	}))
	defer srv.Close()

	c := NewOpenAIClient("bad", srv.URL, 2*time.Second, 0)
	_, err := c.Generate(context.Background(), UserPrompt("gpt-4o-mini", "hi"))
	var ae *AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AuthError, got %T %v", err, err)
	}
}

func TestRuntimeRegistry(t *testing.T) {
	for _, name := range []string{ProviderOllama, ProviderOpenRouter, ProviderOpenAI} {
		rt, err := NewRuntime(name, RuntimeConfig{APIKey: "k"})
		if err != nil || rt == nil {
			t.Fatalf("NewRuntime(%s): %v", name, err)
		}
		if DefaultModel(name) == "" {
			t.Fatalf("no default model for %s", name)
		}
	}
	if _, err := NewRuntime("nope", RuntimeConfig{}); err == nil {
		t.Fatalf("expected unknown provider error")
	}
	if mi, ok := LookupModel("mistral"); !ok || mi.ContextTokens != 8192 {
		t.Fatalf("mistral lookup = %+v, %v", mi, ok)
	}
}
