package knowledge_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/kbcrew/kbcrew/internal/knowledge"
	"github.com/kbcrew/kbcrew/internal/testutil"
)

// Integration tests run against a real pgvector container. They are skipped
// in short mode and require a Docker daemon.

func TestStoreRoundTripIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	pg, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store := knowledge.New(
		knowledge.NewQueries(pg.Pool),
		testutil.NewFakeEmbedder(),
		testutil.DiscardLogger(),
	)

	doc := knowledge.Document{
		ID:      "go-lang",
		Content: "Go is a statically typed, compiled programming language designed at Google.",
		Metadata: map[string]string{
			"source":      "/docs/go.txt",
			"source_type": knowledge.SourceTypeFile,
		},
	}

	if err := store.Add(ctx, doc); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	// The fake embedder is deterministic, so searching with the exact
	// stored text ranks this document first with similarity ~1.
	out, err := store.Search(ctx, doc.Content, knowledge.WithTopK(1))
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(out.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(out.Results))
	}
	if out.Results[0].Document.ID != doc.ID {
		t.Errorf("expected top result %q, got %q", doc.ID, out.Results[0].Document.ID)
	}
	if out.Results[0].Similarity < 0.99 {
		t.Errorf("expected near-perfect similarity, got %f", out.Results[0].Similarity)
	}
	if out.Results[0].Document.Metadata["source_type"] != knowledge.SourceTypeFile {
		t.Error("metadata did not round-trip")
	}
	if out.TotalMatches != 1 {
		t.Errorf("expected TotalMatches=1, got %d", out.TotalMatches)
	}
}

func TestStoreSearchReportsTotalMatchesIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	pg, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store := knowledge.New(
		knowledge.NewQueries(pg.Pool),
		testutil.NewFakeEmbedder(),
		testutil.DiscardLogger(),
	)

	for i := range 12 {
		doc := knowledge.Document{
			ID:      fmt.Sprintf("chunk-%02d", i),
			Content: fmt.Sprintf("Shared corpus text with distinct detail %d", i),
			Metadata: map[string]string{
				"source":      "/docs/corpus.txt",
				"source_type": knowledge.SourceTypeFile,
			},
		}
		if err := store.Add(ctx, doc); err != nil {
			t.Fatalf("Add %q failed: %v", doc.ID, err)
		}
	}

	out, err := store.Search(ctx, "corpus detail", knowledge.WithTopK(5))
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(out.Results) != 5 {
		t.Errorf("expected 5 results, got %d", len(out.Results))
	}
	if out.TotalMatches != 12 {
		t.Errorf("expected TotalMatches=12, got %d", out.TotalMatches)
	}
}

func TestStoreFilterAndDeleteBySourceIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	pg, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store := knowledge.New(
		knowledge.NewQueries(pg.Pool),
		testutil.NewFakeEmbedder(),
		testutil.DiscardLogger(),
	)

	docs := []knowledge.Document{
		{
			ID:      "file-1",
			Content: "Revenue summary from the annual report.",
			Metadata: map[string]string{
				"source":      "/docs/report.txt",
				"source_type": knowledge.SourceTypeFile,
			},
		},
		{
			ID:      "file-2",
			Content: "Cost breakdown from the annual report.",
			Metadata: map[string]string{
				"source":      "/docs/report.txt",
				"source_type": knowledge.SourceTypeFile,
			},
		},
		{
			ID:      "web-1",
			Content: "Industry overview from a news site.",
			Metadata: map[string]string{
				"source":      "https://example.com/industry",
				"source_type": knowledge.SourceTypeWeb,
			},
		},
	}
	for _, doc := range docs {
		if err := store.Add(ctx, doc); err != nil {
			t.Fatalf("Add %q failed: %v", doc.ID, err)
		}
	}

	out, err := store.Search(ctx, "annual report",
		knowledge.WithTopK(10),
		knowledge.WithFilter("source_type", knowledge.SourceTypeWeb),
	)
	if err != nil {
		t.Fatalf("filtered Search failed: %v", err)
	}
	if len(out.Results) != 1 || out.Results[0].Document.ID != "web-1" {
		t.Fatalf("filter should match only web-1, got %+v", out.Results)
	}

	webDocs, err := store.ListBySourceType(ctx, knowledge.SourceTypeWeb, 10)
	if err != nil {
		t.Fatalf("ListBySourceType failed: %v", err)
	}
	if len(webDocs) != 1 {
		t.Errorf("expected 1 web document, got %d", len(webDocs))
	}

	n, err := store.DeleteBySource(ctx, "/docs/report.txt")
	if err != nil {
		t.Fatalf("DeleteBySource failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 deletions, got %d", n)
	}

	remaining, err := store.Count(ctx, nil)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if remaining != 1 {
		t.Errorf("expected 1 remaining document, got %d", remaining)
	}
}
