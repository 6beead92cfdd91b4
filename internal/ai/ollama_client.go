package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// DefaultOllamaHost is where a local Ollama listens by default.
const DefaultOllamaHost = "http://127.0.0.1:11434"

// OllamaClient is a minimal HTTP client for a local Ollama runtime.
type OllamaClient struct {
	httpClient       *http.Client
	host             string
	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
}

// NewOllamaClient creates a new client targeting the given host (e.g., http://127.0.0.1:11434).
func NewOllamaClient(host string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration) *OllamaClient {
	if host == "" {
		host = DefaultOllamaHost
	}
	if httpTimeout <= 0 {
		httpTimeout = 60 * time.Second
	}
	if retryMax <= 0 {
		retryMax = 2
	}
	if baseDelay <= 0 {
		baseDelay = 200 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = 1 * time.Second
	}
	return &OllamaClient{
		httpClient:       &http.Client{Timeout: httpTimeout},
		host:             host,
		retryMaxAttempts: retryMax,
		retryBaseDelay:   baseDelay,
		retryMaxDelay:    maxDelay,
	}
}

// Structures aligned with Ollama /api/chat (non-streaming)
type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Model   string  `json:"model"`
	Message Message `json:"message"`
	Done    bool    `json:"done"`
	// Token counters reported by Ollama.
	PromptEvalCount int `json:"prompt_eval_count"`
	EvalCount       int `json:"eval_count"`
}

// Generate sends a chat request to Ollama and maps the response to GenerateResponse.
func (c *OllamaClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	if len(req.Messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}
	oreq := ollamaChatRequest{
		Model:    req.Model,
		Messages: req.Messages,
		Options:  map[string]any{},
	}
	if req.Temperature > 0 {
		oreq.Options["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		oreq.Options["num_predict"] = req.MaxTokens
	}
	payload, err := json.Marshal(oreq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var out GenerateResponse
	call := jsonCall{
		client:      c.httpClient,
		endpoint:    c.host + "/api/chat",
		payload:     payload,
		maxAttempts: c.retryMaxAttempts,
		baseDelay:   c.retryBaseDelay,
		maxDelay:    c.retryMaxDelay,
		classify:    classifyOllamaError,
		transport: func(err error) error {
			return &UnreachableError{Host: c.host, Err: err}
		},
		decode: func(resp *http.Response) error {
			var oresp ollamaChatResponse
			if err := json.NewDecoder(resp.Body).Decode(&oresp); err != nil {
				return err
			}
			out.Choices = []Choice{{Message: Message{Role: "assistant", Content: oresp.Message.Content}}}
			out.Usage = Usage{
				PromptTokens:     oresp.PromptEvalCount,
				CompletionTokens: oresp.EvalCount,
				TotalTokens:      oresp.PromptEvalCount + oresp.EvalCount,
			}
			// Ollama has no request ids; synthesize one for log correlation.
			out.RequestID = fmt.Sprintf("ollama_%d", time.Now().UnixNano())
			return nil
		},
	}
	if err := call.do(ctx); err != nil {
		return nil, err
	}
	return &out, nil
}

// classifyOllamaError treats every 404 as a missing model, which is what
// Ollama means by it on /api/chat.
func classifyOllamaError(apiErr *APIError, _ time.Duration) error {
	switch {
	case apiErr.StatusCode == http.StatusNotFound:
		return &ModelNotFoundError{APIError: apiErr}
	case apiErr.StatusCode >= 500:
		return &ServerError{APIError: apiErr}
	case apiErr.StatusCode == http.StatusBadRequest:
		return &BadRequestError{APIError: apiErr}
	}
	return apiErr
}
