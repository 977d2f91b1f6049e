package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/kbcrew/kbcrew/internal/bridge"
)

// SearchKnowledgeBaseName is the Genkit tool name for knowledge retrieval.
const SearchKnowledgeBaseName = "search_knowledge_base"

// MaxQueryLength caps the query accepted by the tool. Longer queries are
// rejected before they reach the embedding model.
const MaxQueryLength = 2000

// SearchInput defines input for the search_knowledge_base tool.
type SearchInput struct {
	Query   string            `json:"query" jsonschema_description:"The search query string"`
	TopK    int32             `json:"topK,omitempty" jsonschema_description:"Maximum results to return (1-20, default: 5)"`
	Filters map[string]string `json:"filters,omitempty" jsonschema_description:"Metadata key/value pairs results must match, e.g. {\"source_type\": \"web\"}"`
}

// Searcher is the retrieval capability behind the tool. *bridge.Bridge
// satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string, opts ...bridge.SearchOption) (bridge.Result, error)
}

// Knowledge holds dependencies for the knowledge tool handlers.
type Knowledge struct {
	searcher Searcher
	logger   *slog.Logger
}

// NewKnowledge creates a Knowledge instance.
func NewKnowledge(searcher Searcher, logger *slog.Logger) (*Knowledge, error) {
	if searcher == nil {
		return nil, fmt.Errorf("searcher is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Knowledge{searcher: searcher, logger: logger}, nil
}

// RegisterKnowledge registers the knowledge tools with Genkit.
func RegisterKnowledge(g *genkit.Genkit, kt *Knowledge) ([]ai.Tool, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if kt == nil {
		return nil, fmt.Errorf("Knowledge is required")
	}

	return []ai.Tool{
		genkit.DefineTool(g, SearchKnowledgeBaseName,
			"Search the knowledge base using semantic similarity. "+
				"Finds indexed document chunks that are conceptually related to the query. "+
				"Returns: chunk text with source attribution and similarity scores. "+
				"Results may be marked degraded when the index is temporarily unreachable; "+
				"say so instead of inventing facts. "+
				"Default topK: 5. Maximum topK: 20.",
			WithEvents(SearchKnowledgeBaseName, kt.SearchKnowledgeBase)),
	}, nil
}

// SearchKnowledgeBase runs a retrieval query through the bridge and shapes
// the results for model consumption.
func (k *Knowledge) SearchKnowledgeBase(ctx *ai.ToolContext, input SearchInput) (Result, error) {
	k.logger.Info("SearchKnowledgeBase called", "query", input.Query, "topK", input.TopK)

	if len(input.Query) > MaxQueryLength {
		return Result{
			Status: StatusError,
			Error: &Error{
				Code:    ErrCodeValidation,
				Message: fmt.Sprintf("query length %d exceeds maximum %d characters", len(input.Query), MaxQueryLength),
			},
		}, nil
	}

	opts := make([]bridge.SearchOption, 0, 1+len(input.Filters))
	if input.TopK > 0 {
		opts = append(opts, bridge.WithTopK(input.TopK))
	}
	// Deterministic option order keeps logs and tests stable.
	keys := make([]string, 0, len(input.Filters))
	for key := range input.Filters {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		opts = append(opts, bridge.WithFilter(key, input.Filters[key]))
	}

	result, err := k.searcher.Search(ctx, input.Query, opts...)
	if err != nil {
		// The bridge errors only on rejected input or cancellation.
		k.logger.Warn("SearchKnowledgeBase rejected", "query", input.Query, "error", err)
		return Result{
			Status: StatusError,
			Error: &Error{
				Code:    ErrCodeValidation,
				Message: fmt.Sprintf("searching knowledge base: %v", err),
			},
		}, nil
	}

	chunks := make([]map[string]any, 0, len(result.Chunks))
	for _, chunk := range result.Chunks {
		source := chunk.Metadata["source"]
		if source == "" {
			source = chunk.DocID
		}
		chunks = append(chunks, map[string]any{
			"doc_id": chunk.DocID,
			"text":   chunk.Text,
			"score":  chunk.Score,
			"source": source,
		})
	}

	k.logger.Info("SearchKnowledgeBase succeeded", "query", input.Query,
		"result_count", len(chunks), "degraded", result.Degraded, "truncated", result.Truncated)

	return Result{
		Status: StatusSuccess,
		Data: map[string]any{
			"query":        input.Query,
			"result_count": len(chunks),
			"results":      chunks,
			"degraded":     result.Degraded,
			"truncated":    result.Truncated,
		},
	}, nil
}
