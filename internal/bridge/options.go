package bridge

// SearchOption configures a single Search call.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK    int32
	topKSet bool
	filters map[string]string
}

// WithTopK sets the requested result count. Values above the configured
// maximum are clamped; non-positive values are rejected with ErrInvalidTopK.
func WithTopK(k int32) SearchOption {
	return func(c *searchConfig) {
		c.topK = k
		c.topKSet = true
	}
}

// WithFilter restricts results to chunks whose metadata contains the given
// key/value pair. Multiple filters combine with AND semantics.
func WithFilter(key, value string) SearchOption {
	return func(c *searchConfig) {
		if c.filters == nil {
			c.filters = make(map[string]string)
		}
		c.filters[key] = value
	}
}

func buildSearchConfig(opts []SearchOption) searchConfig {
	var cfg searchConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
