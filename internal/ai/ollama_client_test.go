package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestOllamaGenerateSuccess(t *testing.T) {
	srv := startLocalServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message":           map[string]any{"role": "assistant", "content": "hello from ollama"},
			"done":              true,
			"prompt_eval_count": 12,
			"eval_count":        4,
		})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 2*time.Second, 1, 0, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := c.Generate(ctx, GenerateRequest{Model: "llama3:latest", Messages: []Message{{Role: "user", Content: "hi"}}, MaxTokens: 16})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content != "hello from ollama" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.RequestID == "" {
		t.Fatalf("expected simulated request id")
	}
	if resp.Usage.TotalTokens != 16 {
		t.Fatalf("usage = %+v", resp.Usage)
	}
}

func TestOllamaGenerateBadRequest(t *testing.T) {
	srv := startLocalServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "bad request"})
	}))
	defer srv.Close()
	c := NewOllamaClient(srv.URL, 2*time.Second, 1, 0, 0)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "llama3:latest", Messages: []Message{{Role: "user", Content: "hi"}}})
	var bre *BadRequestError
	if !errors.As(err, &bre) {
		t.Fatalf("expected BadRequestError, got %T %v", err, err)
	}
}

func TestOllamaMissingModelAndUnreachable(t *testing.T) {
	srv := startLocalServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "model 'mistral' not found, try pulling it first"})
	}))
	c := NewOllamaClient(srv.URL, 2*time.Second, 1, 0, 0)
	_, err := c.Generate(context.Background(), UserPrompt("mistral", "hi"))
	var mnf *ModelNotFoundError
	if !errors.As(err, &mnf) || !strings.Contains(err.Error(), "try pulling") {
		t.Fatalf("expected ModelNotFoundError, got %T %v", err, err)
	}
	srv.Close()

	// Nothing listens on the closed server's address any more.
	c = NewOllamaClient(srv.URL, time.Second, 1, 0, 0)
	_, err = c.Generate(context.Background(), UserPrompt("mistral", "hi"))
	var ue *UnreachableError
	if !errors.As(err, &ue) || !Transient(err) {
		t.Fatalf("expected UnreachableError, got %T %v", err, err)
	}
}

func TestOllamaGenerateEmptyMessages(t *testing.T) {
	c := NewOllamaClient("", 2*time.Second, 1, 0, 0)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "llama3:latest", Messages: []Message{}})
	if err == nil || err.Error() != "messages cannot be empty" {
		t.Fatalf("expected 'messages cannot be empty' error, got: %v", err)
	}
}

func TestOllamaForwardsConversation(t *testing.T) {
	var got ollamaChatRequest
	srv := startLocalServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"message": map[string]any{"role": "assistant", "content": "ok"}})
	}))
	defer srv.Close()

	sent := []Message{
		{Role: "system", Content: "You describe datasets."},
		{Role: "user", Content: "Rows: 3"},
		{Role: "assistant", Content: "Noted."},
		{Role: "user", Content: "Any outliers?"},
	}
	c := NewOllamaClient(srv.URL, 2*time.Second, 1, 0, 0)
	if _, err := c.Generate(context.Background(), GenerateRequest{Model: "mistral", Messages: sent, Temperature: 0.2}); err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if got.Stream || got.Model != "mistral" || got.Options["temperature"] != 0.2 {
		t.Fatalf("request = %+v", got)
	}
	if len(got.Messages) != len(sent) {
		t.Fatalf("messages = %d, want %d", len(got.Messages), len(sent))
	}
	for i := range sent {
		if got.Messages[i] != sent[i] {
			t.Fatalf("message %d = %+v, want %+v", i, got.Messages[i], sent[i])
		}
	}
}
