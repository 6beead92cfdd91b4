// Package insight asks a text-generation runtime to comment on a dataset summary.
package insight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/KaramelBytes/edaloom-cli/internal/ai"
	"github.com/KaramelBytes/edaloom-cli/internal/utils"
)

// PromptPrefix opens every insight prompt.
const PromptPrefix = "Analyze the dataset summary and provide insights:"

// DefaultFallback replaces the insight text when the runtime fails and the
// policy allows degrading.
const DefaultFallback = "AI insights are unavailable for this run."

// responseReserve keeps room in the context window for the answer.
const responseReserve = 1024

// Policy makes the behavior around the single insight request explicit.
type Policy struct {
	// Timeout bounds the whole request including retries; 0 disables it.
	Timeout time.Duration
	// Retries is the number of extra attempts after a transient failure.
	Retries    int
	RetryDelay time.Duration
	// Fallback is shown in place of the insight when degrading.
	Fallback string
	// Required turns an insight failure into a failed run.
	Required bool
}

// DefaultPolicy waits up to three minutes, never retries and degrades to a placeholder.
func DefaultPolicy() Policy {
	return Policy{Timeout: 180 * time.Second, RetryDelay: time.Second, Fallback: DefaultFallback}
}

// Degrade returns the text shown when the request failed with err.
func (p Policy) Degrade(err error) string {
	fb := p.Fallback
	if fb == "" {
		fb = DefaultFallback
	}
	return fmt.Sprintf("⚠ %s\n(%v)", fb, err)
}

// BuildPrompt serializes the summary into the single user prompt.
func BuildPrompt(summary string) string {
	return PromptPrefix + "\n\n" + summary
}

// Requester obtains one insight per analysis run.
type Requester struct {
	Runtime  ai.Runtime
	Provider string
	Model    string
	Policy   Policy
}

// Request sends the summary prompt and returns the raw response text. Every
// failure is returned as a *ServiceError.
func (r *Requester) Request(ctx context.Context, summary string) (string, error) {
	if r.Runtime == nil {
		return "", &ServiceError{Provider: r.Provider, Model: r.Model, Err: errors.New("no runtime configured")}
	}
	if r.Policy.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Policy.Timeout)
		defer cancel()
	}
	prompt := BuildPrompt(summary)
	tokens := utils.EstimateTokens(prompt)
	if mi, ok := ai.LookupModel(r.Model); ok {
		limit := max(mi.ContextTokens-responseReserve, 1)
		if fitted, cut := utils.FitTokens(prompt, limit); cut {
			slog.Warn("truncating insight prompt to model context", "model", r.Model, "prompt_tokens", tokens, "limit", limit)
			prompt = fitted
			tokens = utils.EstimateTokens(prompt)
		}
	}

	req := ai.UserPrompt(r.Model, prompt)
	var lastErr error
	retries := max(r.Policy.Retries, 0)
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			slog.Info("retrying insight request", "attempt", attempt+1, "error", lastErr)
			if err := sleep(ctx, r.Policy.RetryDelay); err != nil {
				break
			}
		}
		start := time.Now()
		resp, err := r.Runtime.Generate(ctx, req)
		if err != nil {
			lastErr = err
			if ai.Transient(err) && ctx.Err() == nil {
				continue
			}
			break
		}
		text := resp.Text()
		if text == "" {
			lastErr = ErrEmptyResponse
			break
		}
		slog.Debug("insight received", "provider", r.Provider, "model", r.Model,
			"prompt_tokens", tokens, "request_id", resp.RequestID, "elapsed", time.Since(start))
		return text, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(lastErr, ctxErr) {
		lastErr = fmt.Errorf("%w (last error: %v)", ctxErr, lastErr)
	}
	return "", &ServiceError{Provider: r.Provider, Model: r.Model, Err: lastErr}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
