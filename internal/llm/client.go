package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// generateFunc issues one model call. Swappable in tests.
type generateFunc func(ctx context.Context, system, prompt string) (string, error)

// Config tunes the generation parameters sent with every call.
type Config struct {
	// Model is the provider-qualified model name, e.g.
	// "googleai/gemini-2.5-flash".
	Model string

	// Temperature in [0, 2]. Zero means provider default.
	Temperature float64

	// MaxTokens caps the response length. Zero means provider default.
	MaxTokens int

	Retry   RetryConfig
	Circuit CircuitConfig
}

// Client generates text through Genkit with retry and circuit breaking.
// Safe for concurrent use.
type Client struct {
	generate generateFunc
	retry    RetryConfig
	breaker  *CircuitBreaker
	logger   *slog.Logger
}

// New creates a Client bound to a Genkit instance.
func New(g *genkit.Genkit, cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		generate: genkitGenerate(g, cfg),
		retry:    cfg.Retry.withDefaults(),
		breaker:  NewCircuitBreaker(cfg.Circuit),
		logger:   logger,
	}
}

// genkitGenerate builds the production generate function.
func genkitGenerate(g *genkit.Genkit, cfg Config) generateFunc {
	return func(ctx context.Context, system, prompt string) (string, error) {
		opts := []ai.GenerateOption{
			ai.WithModelName(cfg.Model),
			ai.WithPrompt(prompt),
		}
		if system != "" {
			opts = append(opts, ai.WithSystem(system))
		}
		if cfg.Temperature > 0 || cfg.MaxTokens > 0 {
			opts = append(opts, ai.WithConfig(&ai.GenerationCommonConfig{
				Temperature:     cfg.Temperature,
				MaxOutputTokens: cfg.MaxTokens,
			}))
		}

		resp, err := genkit.Generate(ctx, g, opts...)
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	}
}

// Generate produces text for the prompt under the system instruction.
// Retryable provider failures back off exponentially; sustained failure
// opens the circuit and subsequent calls fail fast with ErrCircuitOpen.
func (c *Client) Generate(ctx context.Context, system, prompt string) (string, error) {
	if err := c.breaker.Allow(); err != nil {
		return "", err
	}

	text, err := c.generateWithRetry(ctx, system, prompt)
	if err != nil {
		c.breaker.Failure()
		return "", err
	}
	c.breaker.Success()
	return text, nil
}

func (c *Client) generateWithRetry(ctx context.Context, system, prompt string) (string, error) {
	var lastErr error
	delay := c.retry.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		text, err := c.generate(ctx, system, prompt)
		if err == nil {
			c.logger.Debug("generation succeeded",
				"attempts", attempt+1,
				"elapsed", time.Since(start),
			)
			return text, nil
		}
		lastErr = err

		if !retryableError(err) {
			return "", fmt.Errorf("generate: %w", err)
		}
		if attempt == c.retry.MaxRetries {
			break
		}

		c.logger.Debug("retrying generation",
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, c.retry.MaxInterval)
		}
	}

	return "", fmt.Errorf("generate after %d retries (elapsed %v): %w",
		c.retry.MaxRetries, time.Since(start), lastErr)
}

// CircuitState exposes the breaker state for health reporting.
func (c *Client) CircuitState() CircuitState {
	return c.breaker.State()
}
