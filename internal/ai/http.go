package ai

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"
)

// jsonCall describes one POST of a JSON payload, retried on transient failures.
type jsonCall struct {
	client      *http.Client
	endpoint    string
	headers     map[string]string
	payload     []byte
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	// classify maps a non-2xx response to the error returned to callers.
	classify func(apiErr *APIError, retryAfter time.Duration) error
	// transport wraps a network error that survived every attempt.
	transport func(err error) error
	// decode consumes a 2xx response body.
	decode func(resp *http.Response) error
}

func (c jsonCall) do(ctx context.Context) error {
	maxAttempts := c.maxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	bo := newBackoff(c.baseDelay, c.maxDelay)
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(c.payload))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range c.headers {
			req.Header.Set(k, v)
		}
		resp, err := c.client.Do(req)
		if err != nil {
			if isRetryableNetErr(err) && attempt < maxAttempts {
				lastErr = err
				if werr := bo.wait(ctx); werr != nil {
					return werr
				}
				continue
			}
			if c.transport != nil {
				return c.transport(err)
			}
			return fmt.Errorf("http request: %w", err)
		}

		retry, err := c.handle(resp, attempt < maxAttempts)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			return err
		}
		if rl, ok := err.(*RateLimitError); ok && rl.RetryAfter > 0 {
			if werr := sleepCtx(ctx, rl.RetryAfter); werr != nil {
				return werr
			}
			continue
		}
		if werr := bo.wait(ctx); werr != nil {
			return werr
		}
	}
	return lastErr
}

// handle consumes resp and reports whether the failure, if any, may be retried.
func (c jsonCall) handle(resp *http.Response, canRetry bool) (bool, error) {
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := decodeAPIError(resp)
		ra := retryAfter(resp)
		if canRetry && retryableStatus(resp.StatusCode) {
			if resp.StatusCode == http.StatusTooManyRequests || ra > 0 {
				return true, &RateLimitError{APIError: apiErr, RetryAfter: ra}
			}
			return true, apiErr
		}
		return false, c.classify(apiErr, ra)
	}
	if err := c.decode(resp); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}
	return false, nil
}
