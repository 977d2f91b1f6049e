package bridge

import (
	"context"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// DefineRetriever exposes the bridge as a Genkit ai.Retriever so flows and
// prompts can consume retrieval through the standard Genkit interface.
//
// Options accepted in the request: "k" (numeric or numeric string) and
// "filters" (map of metadata key to value).
//
//	retriever := bridge.DefineRetriever(g, "knowledge-base", b)
func DefineRetriever(g *genkit.Genkit, name string, b *Bridge) ai.Retriever {
	return genkit.DefineRetriever(
		g, name, nil,
		func(ctx context.Context, req *ai.RetrieverRequest) (*ai.RetrieverResponse, error) {
			queryText := extractQueryText(req)

			opts := make([]SearchOption, 0, 2)
			if k, ok := extractTopK(req); ok {
				opts = append(opts, WithTopK(k))
			}
			for key, value := range extractFilters(req) {
				opts = append(opts, WithFilter(key, value))
			}

			result, err := b.Search(ctx, queryText, opts...)
			if err != nil {
				return nil, err
			}

			return &ai.RetrieverResponse{
				Documents: convertToGenkitDocuments(result),
			}, nil
		},
	)
}

// extractQueryText extracts text from RetrieverRequest.Query.
func extractQueryText(req *ai.RetrieverRequest) string {
	if req.Query != nil && len(req.Query.Content) > 0 {
		return req.Query.Content[0].Text
	}
	return ""
}

// extractTopK reads "k" from request options. Returns false when absent or
// unusable; the bridge default applies in that case.
func extractTopK(req *ai.RetrieverRequest) (int32, bool) {
	opts, ok := req.Options.(map[string]any)
	if !ok {
		return 0, false
	}
	k, exists := opts["k"]
	if !exists {
		return 0, false
	}

	var kInt int
	switch v := k.(type) {
	case int:
		kInt = v
	case int32:
		kInt = int(v)
	case int64:
		kInt = int(v)
	case float64:
		kInt = int(v)
	case float32:
		kInt = int(v)
	case string:
		parsed := parseIntSafe(v)
		if parsed <= 0 {
			return 0, false
		}
		kInt = parsed
	default:
		return 0, false
	}

	if kInt < 1 || kInt > 1<<30 {
		return 0, false
	}
	return int32(kInt), true // #nosec G115 -- range checked above
}

// extractFilters reads "filters" from request options.
func extractFilters(req *ai.RetrieverRequest) map[string]string {
	opts, ok := req.Options.(map[string]any)
	if !ok {
		return nil
	}
	raw, exists := opts["filters"]
	if !exists {
		return nil
	}

	filters := make(map[string]string)
	switch m := raw.(type) {
	case map[string]string:
		for k, v := range m {
			filters[k] = v
		}
	case map[string]any:
		for k, v := range m {
			if s, ok := v.(string); ok {
				filters[k] = s
			}
		}
	default:
		return nil
	}
	return filters
}

// parseIntSafe parses a non-negative decimal string, returning 0 on any
// non-digit or overflow-prone input.
func parseIntSafe(s string) int {
	if s == "" {
		return 0
	}
	result := 0
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return 0
		}
		result = result*10 + int(ch-'0')
		if result > 1<<30 {
			return 0
		}
	}
	return result
}

// convertToGenkitDocuments converts shaped chunks to Genkit documents,
// carrying the score and attribution in metadata.
func convertToGenkitDocuments(result Result) []*ai.Document {
	docs := make([]*ai.Document, len(result.Chunks))
	for i, chunk := range result.Chunks {
		metadata := make(map[string]any, len(chunk.Metadata)+2)
		for k, v := range chunk.Metadata {
			metadata[k] = v
		}
		metadata["doc_id"] = chunk.DocID
		metadata["score"] = chunk.Score

		docs[i] = ai.DocumentFromText(chunk.Text, metadata)
	}
	return docs
}
