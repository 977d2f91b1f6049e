package config

import "time"

// BridgeConfig holds retrieval bridge budgets and shaping limits.
//
// Every knob here is configurable rather than a fixed constant: the bridge's
// callers (crew tasks, MCP clients) have very different token budgets and
// latency tolerances.
type BridgeConfig struct {
	// TimeoutMs is the per-call budget for one index store search, in
	// milliseconds. When exceeded the bridge returns a degraded empty
	// result instead of an error (default: 10000).
	TimeoutMs int `mapstructure:"timeout_ms" json:"timeout_ms"`

	// DefaultTopK is the number of chunks returned when the caller does
	// not specify k (default: 5).
	DefaultTopK int `mapstructure:"default_top_k" json:"default_top_k"`

	// MaxTopK is the ceiling on k, bounding downstream token cost
	// (default: 20).
	MaxTopK int `mapstructure:"max_top_k" json:"max_top_k"`

	// RateLimit is the sustained index store query rate in requests per
	// second, shared by all bridge callers (default: 10).
	RateLimit float64 `mapstructure:"rate_limit" json:"rate_limit"`

	// RateBurst is the rate limiter burst size (default: 20).
	RateBurst int `mapstructure:"rate_burst" json:"rate_burst"`
}

// Timeout returns the per-call budget as a time.Duration.
func (b BridgeConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutMs) * time.Millisecond
}
