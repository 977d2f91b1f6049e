package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kbcrew/kbcrew/internal/knowledge"
)

// Searcher is the index store capability the bridge depends on. It must be
// idempotent, read-only, and safe for concurrent calls.
//
// *knowledge.Store is adapted via StoreSearcher.
type Searcher interface {
	Search(ctx context.Context, query string, topK int32, filters map[string]string) (knowledge.SearchOutput, error)
}

// Config bounds a Bridge's behavior. Zero values are replaced by defaults.
type Config struct {
	// Timeout is the per-call budget covering the whole store round trip.
	Timeout time.Duration

	// DefaultTopK applies when a caller does not request a result count.
	DefaultTopK int32

	// MaxTopK caps the result count to bound downstream token cost.
	MaxTopK int32

	// RateLimit is the sustained store call rate in calls per second.
	RateLimit float64

	// RateBurst is the burst allowance on top of RateLimit.
	RateBurst int
}

// DefaultConfig returns the bridge defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:     10 * time.Second,
		DefaultTopK: 5,
		MaxTopK:     20,
		RateLimit:   10,
		RateBurst:   20,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.DefaultTopK <= 0 {
		c.DefaultTopK = def.DefaultTopK
	}
	if c.MaxTopK <= 0 {
		c.MaxTopK = def.MaxTopK
	}
	if c.DefaultTopK > c.MaxTopK {
		c.DefaultTopK = c.MaxTopK
	}
	if c.RateLimit <= 0 {
		c.RateLimit = def.RateLimit
	}
	if c.RateBurst <= 0 {
		c.RateBurst = def.RateBurst
	}
	return c
}

// Bridge decouples task logic from the index store's native interface.
// It holds no per-call state and is safe for concurrent use.
type Bridge struct {
	store   Searcher
	cfg     Config
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates a Bridge over the given store.
func New(store Searcher, cfg Config, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &Bridge{
		store:   store,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		logger:  logger,
	}
}

// Search issues one semantic query against the index store and returns a
// shaped, attributed result.
//
// Input errors (empty query, non-positive k) are returned synchronously and
// no store call is made. Upstream failure is never an error: the result
// comes back empty with Degraded set so the caller can proceed without
// context. Caller cancellation is the one exception and propagates as
// ctx.Err().
func (b *Bridge) Search(ctx context.Context, queryText string, opts ...SearchOption) (Result, error) {
	start := time.Now()

	query := normalizeQuery(queryText)
	if query == "" {
		return Result{}, ErrEmptyQuery
	}

	cfg := buildSearchConfig(opts)
	topK, err := b.resolveTopK(cfg)
	if err != nil {
		return Result{}, err
	}

	// The budget covers rate limiter admission plus the store round trip.
	callCtx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	if err := b.limiter.Wait(callCtx); err != nil {
		if ctx.Err() != nil {
			return Result{}, fmt.Errorf("search canceled: %w", ctx.Err())
		}
		// Budget exhausted waiting for admission. Same contract as a
		// store timeout.
		b.logger.Warn("rate limiter admission exceeded budget", "timeout", b.cfg.Timeout)
		return Result{Degraded: true, Latency: time.Since(start)}, nil
	}

	out, err := b.store.Search(callCtx, query, topK, cfg.filters)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, fmt.Errorf("search canceled: %w", ctx.Err())
		}
		b.logger.Warn("index store unavailable, returning degraded result",
			"error", err, "query_length", len(query))
		return Result{Degraded: true, Latency: time.Since(start)}, nil
	}

	chunks, dropped := shapeChunks(out.Results)
	if dropped > 0 {
		b.logger.Warn("dropped malformed chunks", "count", dropped)
	}

	sortChunks(chunks)
	if len(chunks) > int(topK) {
		chunks = chunks[:topK]
	}

	return Result{
		Chunks:    chunks,
		Truncated: out.TotalMatches > int64(len(chunks)),
		Dropped:   dropped,
		Latency:   time.Since(start),
	}, nil
}

// resolveTopK applies the default and the configured ceiling.
func (b *Bridge) resolveTopK(cfg searchConfig) (int32, error) {
	if !cfg.topKSet {
		return b.cfg.DefaultTopK, nil
	}
	if cfg.topK <= 0 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidTopK, cfg.topK)
	}
	if cfg.topK > b.cfg.MaxTopK {
		return b.cfg.MaxTopK, nil
	}
	return cfg.topK, nil
}

// normalizeQuery collapses whitespace runs and lowercases the query so
// equivalent phrasings hit the store identically.
func normalizeQuery(q string) string {
	return strings.ToLower(strings.Join(strings.Fields(q), " "))
}

// shapeChunks converts store results to chunks, dropping rows missing a
// document ID or text.
func shapeChunks(results []knowledge.Result) ([]Chunk, int) {
	chunks := make([]Chunk, 0, len(results))
	dropped := 0
	for _, r := range results {
		if r.Document.ID == "" || r.Document.Content == "" {
			dropped++
			continue
		}
		chunks = append(chunks, Chunk{
			DocID:    r.Document.ID,
			Text:     r.Document.Content,
			Score:    float64(r.Similarity),
			Metadata: r.Document.Metadata,
		})
	}
	return chunks, dropped
}

// sortChunks orders by descending score with ascending DocID tie-break.
// The store already orders its output, but it is not trusted to.
func sortChunks(chunks []Chunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].Score != chunks[j].Score {
			return chunks[i].Score > chunks[j].Score
		}
		return chunks[i].DocID < chunks[j].DocID
	})
}
