package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/kbcrew/kbcrew/internal/app"
	"github.com/kbcrew/kbcrew/internal/config"
)

// withApp loads the configuration, initializes the application, and runs fn
// under a signal-aware context. The app is always closed before returning.
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := newLogger()
	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	return fn(ctx, a)
}
