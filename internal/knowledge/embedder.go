package knowledge

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
)

// embedText generates an embedding for a single text.
// The embedder determines the dimension; the schema pins 768.
func (s *Store) embedText(ctx context.Context, text string) ([]float32, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("embedder not configured")
	}

	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{ai.DocumentFromText(text, nil)},
	})
	if err != nil {
		return nil, fmt.Errorf("embed request: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("embedder returned no embeddings")
	}

	embedding := resp.Embeddings[0].Embedding
	if len(embedding) != VectorDimension {
		return nil, fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(embedding), VectorDimension)
	}
	return embedding, nil
}
