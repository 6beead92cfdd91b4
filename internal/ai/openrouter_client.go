package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterClient talks to the OpenRouter chat completions API.
type OpenRouterClient struct {
	httpClient       *http.Client
	apiKey           string
	baseURL          string
	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
}

// NewOpenRouterClient allows customizing HTTP timeout and retry/backoff behavior.
// An empty baseURL targets the public OpenRouter endpoint.
func NewOpenRouterClient(apiKey, baseURL string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration) *OpenRouterClient {
	if httpTimeout <= 0 {
		httpTimeout = 60 * time.Second
	}
	if retryMax <= 0 {
		retryMax = 3
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = 4 * time.Second
	}
	if baseURL == "" {
		baseURL = openRouterBaseURL
	}
	return &OpenRouterClient{
		httpClient:       &http.Client{Timeout: httpTimeout},
		apiKey:           apiKey,
		baseURL:          baseURL,
		retryMaxAttempts: retryMax,
		retryBaseDelay:   baseDelay,
		retryMaxDelay:    maxDelay,
	}
}

func (c *OpenRouterClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if c.apiKey == "" {
		return nil, errors.New("OPENROUTER_API_KEY is missing")
	}
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	var out GenerateResponse
	call := jsonCall{
		client:   c.httpClient,
		endpoint: c.baseURL + "/chat/completions",
		headers: map[string]string{
			"Authorization": "Bearer " + c.apiKey,
			"HTTP-Referer":  "https://github.com/KaramelBytes/edaloom-cli",
			"X-Title":       "edaloom",
		},
		payload:     payload,
		maxAttempts: c.retryMaxAttempts,
		baseDelay:   c.retryBaseDelay,
		maxDelay:    c.retryMaxDelay,
		classify:    classifyAPIError,
		decode: func(resp *http.Response) error {
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return err
			}
			out.RequestID = extractRequestID(resp)
			return nil
		},
	}
	if err := call.do(ctx); err != nil {
		return nil, err
	}
	return &out, nil
}
