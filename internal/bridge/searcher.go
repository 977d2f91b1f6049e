package bridge

import (
	"context"
	"time"

	"github.com/kbcrew/kbcrew/internal/knowledge"
)

// StoreSearcher adapts *knowledge.Store to the Searcher interface.
type StoreSearcher struct {
	Store *knowledge.Store

	// Timeout is passed down as the store's own search timeout. Zero
	// leaves the store default in place.
	Timeout time.Duration
}

func (s StoreSearcher) Search(ctx context.Context, query string, topK int32, filters map[string]string) (knowledge.SearchOutput, error) {
	opts := []knowledge.SearchOption{knowledge.WithTopK(topK)}
	if s.Timeout > 0 {
		opts = append(opts, knowledge.WithTimeout(s.Timeout))
	}
	for k, v := range filters {
		opts = append(opts, knowledge.WithFilter(k, v))
	}
	return s.Store.Search(ctx, query, opts...)
}
