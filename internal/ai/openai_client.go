package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient targets any OpenAI-compatible chat completions endpoint
// (OpenAI itself, vLLM, LM Studio, llama.cpp server, ...).
type OpenAIClient struct {
	client  *openai.Client
	baseURL string
}

// NewOpenAIClient builds a client; an empty baseURL keeps the SDK default.
// The SDK owns retries, so retryMax maps onto its own retry budget.
func NewOpenAIClient(apiKey, baseURL string, httpTimeout time.Duration, retryMax int) *OpenAIClient {
	if httpTimeout <= 0 {
		httpTimeout = 60 * time.Second
	}
	if retryMax < 0 {
		retryMax = 0
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: httpTimeout}),
		option.WithMaxRetries(retryMax),
	}
	if baseURL != "" {
		// The SDK resolves endpoint paths relative to the base URL.
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIClient{client: openai.NewClient(opts...), baseURL: baseURL}
}

func (c *OpenAIClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	if len(req.Messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case "assistant":
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}
	params := openai.ChatCompletionNewParams{
		Model:    openai.F(req.Model),
		Messages: openai.F(msgs),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.F(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.F(req.Temperature)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, c.mapError(err)
	}
	out := &GenerateResponse{
		ID: resp.ID,
		Usage: Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}
	for _, ch := range resp.Choices {
		out.Choices = append(out.Choices, Choice{Message: Message{Role: "assistant", Content: ch.Message.Content}})
	}
	return out, nil
}

// mapError converts SDK errors into the typed errors shared by every runtime.
func (c *OpenAIClient) mapError(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		apiErr := &APIError{StatusCode: apierr.StatusCode, Code: apierr.Code, Message: apierr.Message}
		var ra time.Duration
		if apierr.Response != nil {
			apiErr.RequestID = extractRequestID(apierr.Response)
			ra = retryAfter(apierr.Response)
		}
		return classifyAPIError(apiErr, ra)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	host := c.baseURL
	if host == "" {
		host = "api.openai.com"
	}
	return &UnreachableError{Host: host, Err: err}
}
