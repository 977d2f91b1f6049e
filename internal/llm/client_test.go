package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestClient builds a Client around an injected generate function with
// fast retry intervals.
func newTestClient(gen generateFunc, retry RetryConfig, circuit CircuitConfig) *Client {
	return &Client{
		generate: gen,
		retry:    retry.withDefaults(),
		breaker:  NewCircuitBreaker(circuit),
		logger:   testLogger(),
	}
}

func fastRetry(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries:      maxRetries,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}
}

func TestGenerateSuccess(t *testing.T) {
	var gotSystem, gotPrompt string
	c := newTestClient(func(ctx context.Context, system, prompt string) (string, error) {
		gotSystem = system
		gotPrompt = prompt
		return "generated answer", nil
	}, fastRetry(3), CircuitConfig{})

	text, err := c.Generate(context.Background(), "you are a researcher", "summarize the findings")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "generated answer" {
		t.Errorf("text = %q", text)
	}
	if gotSystem != "you are a researcher" || gotPrompt != "summarize the findings" {
		t.Errorf("system/prompt not forwarded: %q / %q", gotSystem, gotPrompt)
	}
}

func TestGenerateNonRetryableFailsImmediately(t *testing.T) {
	calls := 0
	c := newTestClient(func(ctx context.Context, system, prompt string) (string, error) {
		calls++
		return "", errors.New("invalid api key")
	}, fastRetry(3), CircuitConfig{})

	_, err := c.Generate(context.Background(), "", "p")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if calls != 1 {
		t.Errorf("non-retryable error should not retry, got %d calls", calls)
	}
}

func TestGenerateRetriesTransientFailure(t *testing.T) {
	calls := 0
	c := newTestClient(func(ctx context.Context, system, prompt string) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("429 rate limit exceeded")
		}
		return "eventual answer", nil
	}, fastRetry(5), CircuitConfig{})

	text, err := c.Generate(context.Background(), "", "p")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "eventual answer" {
		t.Errorf("text = %q", text)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestGenerateExhaustsRetries(t *testing.T) {
	calls := 0
	c := newTestClient(func(ctx context.Context, system, prompt string) (string, error) {
		calls++
		return "", errors.New("503 service unavailable")
	}, fastRetry(2), CircuitConfig{})

	_, err := c.Generate(context.Background(), "", "p")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if calls != 3 {
		t.Errorf("expected initial call plus 2 retries, got %d calls", calls)
	}
	if !strings.Contains(err.Error(), "after 2 retries") {
		t.Errorf("error should report retry exhaustion: %v", err)
	}
}

func TestGenerateCancellationDuringRetry(t *testing.T) {
	c := newTestClient(func(ctx context.Context, system, prompt string) (string, error) {
		return "", errors.New("timeout talking to provider")
	}, RetryConfig{MaxRetries: 5, InitialInterval: time.Second, MaxInterval: time.Second}, CircuitConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := c.Generate(ctx, "", "p")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("cancellation should interrupt the backoff sleep")
	}
}

func TestGenerateOpensCircuit(t *testing.T) {
	c := newTestClient(func(ctx context.Context, system, prompt string) (string, error) {
		return "", errors.New("provider exploded")
	}, fastRetry(0), CircuitConfig{FailureThreshold: 2, Cooldown: time.Hour})

	for range 2 {
		if _, err := c.Generate(context.Background(), "", "p"); err == nil {
			t.Fatal("expected failure")
		}
	}
	if c.CircuitState() != CircuitOpen {
		t.Fatalf("circuit should be open, got %v", c.CircuitState())
	}

	_, err := c.Generate(context.Background(), "", "p")
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen fast failure, got %v", err)
	}
}

func TestRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "rate limit", err: errors.New("429 Too Many Requests: rate limit"), want: true},
		{name: "quota", err: errors.New("quota exceeded for project"), want: true},
		{name: "server error", err: errors.New("HTTP 503 unavailable"), want: true},
		{name: "connection reset", err: errors.New("read: connection reset by peer"), want: true},
		{name: "timeout", err: errors.New("request timeout"), want: true},
		{name: "auth failure", err: errors.New("invalid API key"), want: false},
		{name: "bad request", err: errors.New("400 malformed request"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryableError(tt.err); got != tt.want {
				t.Errorf("retryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
