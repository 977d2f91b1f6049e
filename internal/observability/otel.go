// Package observability provides OpenTelemetry trace export.
//
// Traces flow through Genkit's TracerProvider to an OTLP HTTP collector,
// typically running on localhost. Export is opt-in: an empty endpoint in
// the configuration disables the whole pipeline, and a collector that is
// down degrades silently instead of failing startup.
//
// With a local collector listening on localhost:4318, enable export via
// config (~/.kbcrew/config.yaml):
//
//	otel:
//	  endpoint: "localhost:4318"
//	  environment: "dev"
//	  service_name: "kbcrew"
//
// or KBCREW_OTEL_ENDPOINT=localhost:4318.
package observability

import (
	"context"
	"log/slog"
	"os"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config for OTLP trace export.
type Config struct {
	// Endpoint is the OTLP HTTP collector, host:port. Empty disables
	// trace export entirely.
	Endpoint string
	// Environment tags spans with deployment.environment.
	Environment string
	// ServiceName is the reported service name.
	ServiceName string
}

// Setup registers an OTLP HTTP exporter with Genkit's TracerProvider and
// returns a shutdown function that flushes pending spans. When the
// endpoint is empty or the exporter cannot be created, tracing stays
// disabled and the returned shutdown is a no-op.
func Setup(ctx context.Context, cfg Config, logger *slog.Logger) (func(context.Context) error, error) {
	if logger == nil {
		logger = slog.Default()
	}

	noop := func(context.Context) error { return nil }
	if cfg.Endpoint == "" {
		logger.Debug("trace export disabled, no collector endpoint configured")
		return noop, nil
	}

	// Genkit's TracerProvider reads these when building the resource.
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}
	if cfg.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment)
	}

	// The local collector handles authentication and forwarding, so the
	// exporter speaks plain HTTP to it.
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("creating trace exporter failed, tracing disabled", "error", err)
		return noop, nil
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("trace export enabled",
		"endpoint", cfg.Endpoint,
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)

	return tracing.TracerProvider().Shutdown, nil
}
