package knowledge

import "time"

// VectorDimension is the embedding dimension stored in the documents table.
// Must match the vector(N) column in db/migrations and the embedder's output
// dimensionality.
const VectorDimension = 768

// Source type constants for knowledge documents.
const (
	// SourceTypeFile represents indexed local file content.
	SourceTypeFile = "file"

	// SourceTypeWeb represents ingested web page content.
	SourceTypeWeb = "web"

	// SourceTypeNote represents ad-hoc notes stored by agents or users.
	SourceTypeNote = "note"
)

// Document represents a knowledge document (one indexed chunk).
type Document struct {
	ID        string            // Unique identifier
	Content   string            // Document text content
	Metadata  map[string]string // Source attribution (source_type, source, title, ...)
	CreatedAt time.Time         // Creation timestamp
}

// Result is a single search result with its similarity score.
type Result struct {
	Document   Document
	Similarity float32 // Cosine similarity (0-1, higher is closer)
}

// SearchOutput carries one search call's ranked results and the total number
// of documents matching the filter, letting callers detect truncation.
type SearchOutput struct {
	Results      []Result
	TotalMatches int64
}

// SearchOption configures search behavior via the functional options pattern.
type SearchOption func(*searchConfig)

// searchConfig holds internal search configuration.
type searchConfig struct {
	topK    int32
	filter  map[string]string
	timeout time.Duration
}

// DefaultSearchTimeout bounds one vector search, embedding included.
const DefaultSearchTimeout = 10 * time.Second

// WithTopK sets the maximum number of results to return. Default is 5.
func WithTopK(k int32) SearchOption {
	return func(c *searchConfig) {
		c.topK = k
	}
}

// WithFilter adds a metadata containment filter. Multiple calls AND together.
// Example: WithFilter("source_type", "file").
func WithFilter(key, value string) SearchOption {
	return func(c *searchConfig) {
		if c.filter == nil {
			c.filter = make(map[string]string)
		}
		c.filter[key] = value
	}
}

// WithTimeout overrides the per-search timeout.
func WithTimeout(d time.Duration) SearchOption {
	return func(c *searchConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// buildSearchConfig applies options over the defaults.
func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{
		topK:    5,
		timeout: DefaultSearchTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
