package testutil

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
)

// FakeEmbedder is a deterministic ai.Embedder for tests that need real
// vector storage without a real embedding API. Identical text always
// produces the identical unit vector, so searching with a stored
// document's exact text ranks that document first.
type FakeEmbedder struct {
	// Dimension of produced vectors. Must match the schema (768).
	Dimension int
}

// NewFakeEmbedder returns a FakeEmbedder producing 768-dimension vectors.
func NewFakeEmbedder() *FakeEmbedder {
	return &FakeEmbedder{Dimension: 768}
}

func (f *FakeEmbedder) Name() string { return "fake-embedder" }

func (f *FakeEmbedder) Register(r api.Registry) {}

func (f *FakeEmbedder) Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp := &ai.EmbedResponse{}
	for _, doc := range req.Input {
		var text string
		if len(doc.Content) > 0 {
			text = doc.Content[0].Text
		}
		resp.Embeddings = append(resp.Embeddings, &ai.Embedding{
			Embedding: f.vectorFor(text),
		})
	}
	return resp, nil
}

// vectorFor derives a unit vector from the text's hash.
func (f *FakeEmbedder) vectorFor(text string) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum64()))) // #nosec G404 -- deterministic test data, not crypto

	v := make([]float32, f.Dimension)
	var norm float64
	for i := range v {
		v[i] = float32(rng.Float64()*2 - 1)
		norm += float64(v[i]) * float64(v[i])
	}

	norm = math.Sqrt(norm)
	if norm == 0 {
		v[0] = 1
		return v
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}
