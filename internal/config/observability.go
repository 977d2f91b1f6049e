package config

// OtelConfig holds OpenTelemetry trace export configuration.
//
// Traces are exported over OTLP HTTP to a local collector; an empty Endpoint
// disables export entirely. See internal/observability for setup.
type OtelConfig struct {
	// Endpoint is the OTLP HTTP collector endpoint, host:port
	// (e.g. "localhost:4318"). Empty disables tracing.
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
	// Environment is the deployment environment tag (default: dev).
	Environment string `mapstructure:"environment" json:"environment"`
	// ServiceName is the reported service name (default: kbcrew).
	ServiceName string `mapstructure:"service_name" json:"service_name"`
}
