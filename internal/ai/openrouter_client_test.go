package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"
)

const summaryPrompt = "Give insights about this dataset:\nRows: 3\nColumns: 2\n- price (numeric)\n  mean: 4.5000\n"

// localServer is an HTTP server bound to 127.0.0.1 over tcp4 only.
type localServer struct {
	URL string
	srv *http.Server
}

func startLocalServer(t *testing.T, handler http.Handler) *localServer {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
			t.Skipf("skipping test: cannot open local listener (%v)", err)
		}
		t.Fatalf("listen tcp4: %v", err)
	}
	s := &localServer{URL: "http://" + ln.Addr().String(), srv: &http.Server{Handler: handler}}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			panic(fmt.Sprintf("local server: %v", err))
		}
	}()
	return s
}

func (s *localServer) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = s.srv.Shutdown(ctx)
}

// chatStep is one scripted reply of the fake completions endpoint.
type chatStep struct {
	status     int
	retryAfter string
	requestID  string
	errMsg     string
	errCode    string
	insight    string
}

// chatEndpoint replays steps in order, repeating the last one, and keeps
// every request it decoded.
type chatEndpoint struct {
	mu    sync.Mutex
	steps []chatStep
	seen  []GenerateRequest
	auth  []string
}

func (e *chatEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.URL.Path != "/chat/completions" {
		http.NotFound(w, r)
		return
	}
	var req GenerateRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	e.mu.Lock()
	e.seen = append(e.seen, req)
	e.auth = append(e.auth, r.Header.Get("Authorization"))
	step := e.steps[min(len(e.seen), len(e.steps))-1]
	e.mu.Unlock()

	if step.retryAfter != "" {
		w.Header().Set("Retry-After", step.retryAfter)
	}
	if step.requestID != "" {
		w.Header().Set("X-Request-Id", step.requestID)
	}
	w.WriteHeader(step.status)
	if step.status == http.StatusOK {
		_ = json.NewEncoder(w).Encode(GenerateResponse{Choices: []Choice{{Message: Message{Role: "assistant", Content: step.insight}}}})
		return
	}
	if step.errMsg != "" {
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": step.errMsg, "code": step.errCode}})
	}
}

func (e *chatEndpoint) request(i int) (GenerateRequest, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seen[i], e.auth[i]
}

func (e *chatEndpoint) calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.seen)
}

func serveChat(t *testing.T, steps ...chatStep) (*chatEndpoint, string) {
	t.Helper()
	e := &chatEndpoint{steps: steps}
	srv := startLocalServer(t, e)
	t.Cleanup(srv.Close)
	return e, srv.URL
}

func TestOpenRouterSendsSummaryPrompt(t *testing.T) {
	e, url := serveChat(t, chatStep{status: http.StatusOK, insight: "Prices are tightly clustered."})
	c := NewOpenRouterClient("or-key", url, 2*time.Second, 1, 0, 0)

	resp, err := c.Generate(context.Background(), UserPrompt("mistralai/mistral-7b-instruct", summaryPrompt))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got := resp.Choices[0].Message.Content; got != "Prices are tightly clustered." {
		t.Fatalf("insight = %q", got)
	}
	req, auth := e.request(0)
	if req.Model != "mistralai/mistral-7b-instruct" || len(req.Messages) != 1 || req.Messages[0].Content != summaryPrompt {
		t.Fatalf("request = %+v", req)
	}
	if auth != "Bearer or-key" {
		t.Fatalf("authorization = %q", auth)
	}
}

func TestOpenRouterRetriesRateLimit(t *testing.T) {
	e, url := serveChat(t,
		chatStep{status: http.StatusTooManyRequests, retryAfter: "0", errMsg: "slow down"},
		chatStep{status: http.StatusOK, insight: "Two columns, no gaps."},
	)
	c := NewOpenRouterClient("or-key", url, 2*time.Second, 3, 10*time.Millisecond, 100*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := c.Generate(ctx, UserPrompt("m", summaryPrompt))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Choices[0].Message.Content != "Two columns, no gaps." || e.calls() != 2 {
		t.Fatalf("calls=%d resp=%+v", e.calls(), resp)
	}
}

func TestOpenRouterWaitsForRetryAfter(t *testing.T) {
	_, url := serveChat(t,
		chatStep{status: http.StatusTooManyRequests, retryAfter: "1"},
		chatStep{status: http.StatusOK, insight: "ok"},
	)
	c := NewOpenRouterClient("or-key", url, 5*time.Second, 3, 0, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	start := time.Now()
	if _, err := c.Generate(ctx, UserPrompt("m", summaryPrompt)); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 900*time.Millisecond {
		t.Fatalf("Retry-After ignored, retried after %v", elapsed)
	}
}

func TestOpenRouterErrorCarriesRequestID(t *testing.T) {
	_, url := serveChat(t, chatStep{status: http.StatusBadRequest, requestID: "req_summary_42", errMsg: "prompt rejected", errCode: "bad_request"})
	c := NewOpenRouterClient("or-key", url, 2*time.Second, 1, 0, 0)

	_, err := c.Generate(context.Background(), UserPrompt("m", summaryPrompt))
	if err == nil || !strings.Contains(err.Error(), "req_summary_42") {
		t.Fatalf("error = %v, want request id", err)
	}
}

func TestOpenRouterClassifiesErrors(t *testing.T) {
	cases := []struct {
		step  chatStep
		check func(error) bool
	}{
		{chatStep{status: http.StatusUnauthorized, errMsg: "no auth"}, func(err error) bool {
			var e *AuthError
			return errors.As(err, &e) && !Transient(err)
		}},
		{chatStep{status: http.StatusNotFound, errMsg: "model not found", errCode: "model_not_found"}, func(err error) bool {
			var e *ModelNotFoundError
			return errors.As(err, &e)
		}},
		{chatStep{status: http.StatusPaymentRequired, errMsg: "quota exhausted"}, func(err error) bool {
			var e *QuotaExceededError
			return errors.As(err, &e)
		}},
		{chatStep{status: http.StatusBadGateway, errMsg: "upstream"}, func(err error) bool {
			var e *ServerError
			return errors.As(err, &e) && Transient(err)
		}},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.step.status), func(t *testing.T) {
			_, url := serveChat(t, tc.step)
			c := NewOpenRouterClient("or-key", url, 2*time.Second, 1, 0, 0)
			_, err := c.Generate(context.Background(), UserPrompt("m", summaryPrompt))
			if err == nil || !tc.check(err) {
				t.Fatalf("unexpected error %T: %v", err, err)
			}
		})
	}
}

func TestOpenRouterMissingKey(t *testing.T) {
	c := NewOpenRouterClient("", "", time.Second, 1, 0, 0)
	if _, err := c.Generate(context.Background(), UserPrompt("m", summaryPrompt)); err == nil || !strings.Contains(err.Error(), "OPENROUTER_API_KEY") {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func TestOpenRouterBackoffRespectsDeadline(t *testing.T) {
	e, url := serveChat(t, chatStep{status: http.StatusServiceUnavailable})
	c := NewOpenRouterClient("or-key", url, 2*time.Second, 5, time.Second, 4*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Generate(ctx, UserPrompt("m", summaryPrompt))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("backoff outlived the deadline")
	}
	if n := e.calls(); n != 1 {
		t.Fatalf("calls = %d, want 1", n)
	}
}
