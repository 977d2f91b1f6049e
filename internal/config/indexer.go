package config

import "time"

// IndexerConfig holds knowledge base builder settings.
type IndexerConfig struct {
	// Extensions overrides the supported file extensions
	// (e.g. [".txt", ".md"]). Empty uses the indexer defaults.
	Extensions []string `mapstructure:"extensions" json:"extensions"`

	// ChunkSize is the chunk length in runes before a document is split
	// for embedding (default: 512).
	ChunkSize int `mapstructure:"chunk_size" json:"chunk_size"`

	// ChunkOverlap is the number of runes shared between adjacent chunks
	// (default: 50).
	ChunkOverlap int `mapstructure:"chunk_overlap" json:"chunk_overlap"`

	// MaxFileSize is the largest file accepted for indexing, in bytes
	// (default: 1 MiB).
	MaxFileSize int64 `mapstructure:"max_file_size" json:"max_file_size"`

	// Scraper bounds web page ingestion.
	Scraper WebScraperConfig `mapstructure:"scraper" json:"scraper"`
}

// WebScraperConfig holds web page fetching limits for index add-url.
type WebScraperConfig struct {
	// Parallelism is max concurrent requests per domain (default: 2).
	Parallelism int `mapstructure:"parallelism" json:"parallelism"`
	// DelayMs is the delay between requests in milliseconds (default: 1000).
	DelayMs int `mapstructure:"delay_ms" json:"delay_ms"`
	// TimeoutMs is the request timeout in milliseconds (default: 30000).
	TimeoutMs int `mapstructure:"timeout_ms" json:"timeout_ms"`
	// MaxBodySize is the largest response body accepted, in bytes
	// (default: 10 MiB).
	MaxBodySize int `mapstructure:"max_body_size" json:"max_body_size"`
}

// Timeout returns the scraper request timeout as a time.Duration.
func (w WebScraperConfig) Timeout() time.Duration {
	return time.Duration(w.TimeoutMs) * time.Millisecond
}

// Delay returns the inter-request delay as a time.Duration.
func (w WebScraperConfig) Delay() time.Duration {
	return time.Duration(w.DelayMs) * time.Millisecond
}
