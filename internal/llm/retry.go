package llm

import (
	"strings"
	"time"
)

// RetryConfig configures retry behavior for inference calls.
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig returns sensible defaults for remote inference APIs.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	def := DefaultRetryConfig()
	if c.MaxRetries < 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.InitialInterval <= 0 {
		c.InitialInterval = def.InitialInterval
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = def.MaxInterval
	}
	return c
}

// retryableError reports whether an inference error is worth retrying.
// Providers do not expose typed errors through Genkit, so this matches on
// message content.
func retryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())

	// Rate limits and quota exhaustion.
	if containsAny(msg, "rate limit", "quota exceeded", "429", "resource_exhausted") {
		return true
	}
	// Transient server errors.
	if containsAny(msg, "500", "502", "503", "504", "unavailable", "overloaded") {
		return true
	}
	// Network flakiness.
	if containsAny(msg, "connection reset", "timeout", "temporary", "broken pipe") {
		return true
	}
	return false
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
