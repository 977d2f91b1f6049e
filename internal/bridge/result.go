package bridge

import "time"

// Chunk is one ranked, attributable result from the index store.
type Chunk struct {
	// DocID identifies the source document the text was taken from.
	DocID string

	// Text is the retrieved span.
	Text string

	// Score is the relevance score, higher is more relevant.
	Score float64

	// Metadata carries source attribution (path, URL, source type).
	Metadata map[string]string
}

// Result is the bridge's response to one search call. It is returned by
// value and never mutated afterwards.
type Result struct {
	// Chunks is ordered by descending Score; ties break by ascending
	// DocID so an unchanged index snapshot yields identical ordering.
	Chunks []Chunk

	// Truncated is true when the store reported more matches than were
	// returned.
	Truncated bool

	// Degraded is true when the store was unreachable or exceeded the
	// timeout budget. A degraded result always has zero chunks.
	Degraded bool

	// Dropped counts store rows discarded for missing required fields.
	Dropped int

	// Latency is the total wall time of the call.
	Latency time.Duration
}
