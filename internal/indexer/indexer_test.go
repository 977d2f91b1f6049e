package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kbcrew/kbcrew/internal/knowledge"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockStore implements Store for testing.
type mockStore struct {
	addErr            error
	deleteErr         error
	deleteBySourceErr error
	listErr           error

	added          []knowledge.Document
	deletedIDs     []string
	deletedSources []string
	listByType     map[string][]knowledge.Document
}

func (m *mockStore) Add(ctx context.Context, doc knowledge.Document) error {
	if m.addErr != nil {
		return m.addErr
	}
	m.added = append(m.added, doc)
	return nil
}

func (m *mockStore) Delete(ctx context.Context, docID string) error {
	m.deletedIDs = append(m.deletedIDs, docID)
	return m.deleteErr
}

func (m *mockStore) DeleteBySource(ctx context.Context, source string) (int64, error) {
	if m.deleteBySourceErr != nil {
		return 0, m.deleteBySourceErr
	}
	m.deletedSources = append(m.deletedSources, source)
	return 0, nil
}

func (m *mockStore) ListBySourceType(ctx context.Context, sourceType string, limit int32) ([]knowledge.Document, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.listByType[sourceType], nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestAddFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.txt", "The quick brown fox jumps over the lazy dog.")

	store := &mockStore{}
	idx := New(store, Config{}, testLogger())

	chunks, err := idx.AddFile(context.Background(), path)
	if err != nil {
		t.Fatalf("AddFile failed: %v", err)
	}
	if chunks != 1 {
		t.Errorf("expected 1 chunk for small file, got %d", chunks)
	}
	if len(store.added) != 1 {
		t.Fatalf("expected 1 stored document, got %d", len(store.added))
	}

	doc := store.added[0]
	if doc.Content != "The quick brown fox jumps over the lazy dog." {
		t.Errorf("content mismatch: %q", doc.Content)
	}
	if doc.Metadata["source_type"] != knowledge.SourceTypeFile {
		t.Errorf("source_type = %q", doc.Metadata["source_type"])
	}
	absPath, _ := filepath.Abs(path)
	if doc.Metadata["source"] != absPath {
		t.Errorf("source = %q, want %q", doc.Metadata["source"], absPath)
	}
	if doc.Metadata["chunk"] != "1/1" {
		t.Errorf("chunk = %q, want 1/1", doc.Metadata["chunk"])
	}
	if doc.Metadata["file_ext"] != ".txt" {
		t.Errorf("file_ext = %q", doc.Metadata["file_ext"])
	}
	if !strings.HasPrefix(doc.ID, "kb_") {
		t.Errorf("unexpected doc ID format: %q", doc.ID)
	}

	// Stale chunks for the same source are removed first.
	if len(store.deletedSources) != 1 || store.deletedSources[0] != absPath {
		t.Errorf("stale chunks not removed: %v", store.deletedSources)
	}
}

func TestAddFileChunksLargeContent(t *testing.T) {
	dir := t.TempDir()
	content := strings.Repeat("sentence about quarterly revenue and costs. ", 100)
	path := writeFile(t, dir, "report.md", content)

	store := &mockStore{}
	idx := New(store, Config{ChunkSize: 200, ChunkOverlap: 20}, testLogger())

	chunks, err := idx.AddFile(context.Background(), path)
	if err != nil {
		t.Fatalf("AddFile failed: %v", err)
	}
	if chunks < 2 {
		t.Fatalf("expected multiple chunks, got %d", chunks)
	}
	if len(store.added) != chunks {
		t.Errorf("stored %d documents for %d chunks", len(store.added), chunks)
	}

	// IDs are stable per (source, index) so re-indexing overwrites.
	seen := make(map[string]bool)
	for _, doc := range store.added {
		if seen[doc.ID] {
			t.Errorf("duplicate chunk ID %q", doc.ID)
		}
		seen[doc.ID] = true
	}
	if store.added[0].Metadata["chunk"] != fmt.Sprintf("1/%d", chunks) {
		t.Errorf("chunk annotation = %q", store.added[0].Metadata["chunk"])
	}
}

func TestAddFileErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "binary.exe", "MZ...")
	bigPath := writeFile(t, dir, "big.txt", strings.Repeat("x", 2048))

	store := &mockStore{}
	idx := New(store, Config{MaxFileSize: 1024}, testLogger())

	tests := []struct {
		name      string
		path      string
		expectErr string
	}{
		{name: "missing file", path: filepath.Join(dir, "absent.txt"), expectErr: "stat"},
		{name: "directory", path: dir, expectErr: "is a directory"},
		{name: "unsupported extension", path: filepath.Join(dir, "binary.exe"), expectErr: "unsupported file type"},
		{name: "oversized file", path: bigPath, expectErr: "exceeds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := idx.AddFile(context.Background(), tt.path)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.expectErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.expectErr)
			}
		})
	}

	if len(store.added) != 0 {
		t.Errorf("no documents should be stored, got %d", len(store.added))
	}
}

func TestAddFileStoreError(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.txt", "some content")

	store := &mockStore{addErr: errors.New("connection lost")}
	idx := New(store, Config{}, testLogger())

	_, err := idx.AddFile(context.Background(), path)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "connection lost") {
		t.Errorf("error should wrap store error: %v", err)
	}
}

func TestAddDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "file a content")
	writeFile(t, dir, "b.md", "file b content")
	writeFile(t, dir, "skip.bin", "binary")
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o750); err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, filepath.Join("sub", "c.go"), "package c")

	store := &mockStore{}
	idx := New(store, Config{}, testLogger())

	result, err := idx.AddDirectory(context.Background(), dir)
	if err != nil {
		t.Fatalf("AddDirectory failed: %v", err)
	}

	if result.FilesAdded != 3 {
		t.Errorf("FilesAdded = %d, want 3", result.FilesAdded)
	}
	if result.FilesSkipped != 1 {
		t.Errorf("FilesSkipped = %d, want 1", result.FilesSkipped)
	}
	if result.FilesFailed != 0 {
		t.Errorf("FilesFailed = %d, want 0", result.FilesFailed)
	}
	if result.ChunksAdded != len(store.added) {
		t.Errorf("ChunksAdded = %d, stored %d", result.ChunksAdded, len(store.added))
	}
	if result.Duration <= 0 {
		t.Error("duration should be recorded")
	}
}

func TestAddDirectoryHonorsGitignore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".gitignore", "ignored.txt\nvendor/\n")
	writeFile(t, dir, "kept.txt", "kept content")
	writeFile(t, dir, "ignored.txt", "ignored content")
	if err := os.MkdirAll(filepath.Join(dir, "vendor"), 0o750); err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, filepath.Join("vendor", "dep.go"), "package dep")

	store := &mockStore{}
	idx := New(store, Config{}, testLogger())

	result, err := idx.AddDirectory(context.Background(), dir)
	if err != nil {
		t.Fatalf("AddDirectory failed: %v", err)
	}

	if result.FilesAdded != 1 {
		t.Errorf("FilesAdded = %d, want 1 (only kept.txt)", result.FilesAdded)
	}
	for _, doc := range store.added {
		if strings.Contains(doc.Metadata["source"], "ignored") || strings.Contains(doc.Metadata["source"], "vendor") {
			t.Errorf("ignored file was indexed: %s", doc.Metadata["source"])
		}
	}
}

func TestAddDirectoryContinuesAfterStoreFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "content a")
	writeFile(t, dir, "b.txt", "content b")

	store := &mockStore{addErr: errors.New("store down")}
	idx := New(store, Config{}, testLogger())

	result, err := idx.AddDirectory(context.Background(), dir)
	if err != nil {
		t.Fatalf("AddDirectory should not abort on per-file failure: %v", err)
	}
	if result.FilesFailed != 2 {
		t.Errorf("FilesFailed = %d, want 2", result.FilesFailed)
	}
	if result.FilesAdded != 0 {
		t.Errorf("FilesAdded = %d, want 0", result.FilesAdded)
	}
}

func TestAddDirectoryCancellation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "content")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	idx := New(&mockStore{}, Config{}, testLogger())
	_, err := idx.AddDirectory(ctx, dir)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestCustomExtensions(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "data.csv", "a,b,c")

	store := &mockStore{}
	idx := New(store, Config{Extensions: []string{".csv"}}, testLogger())

	if _, err := idx.AddFile(context.Background(), path); err != nil {
		t.Fatalf("AddFile with custom extension failed: %v", err)
	}

	// The default set no longer applies.
	txtPath := writeFile(t, dir, "note.txt", "text")
	if _, err := idx.AddFile(context.Background(), txtPath); err == nil {
		t.Error("expected .txt to be rejected with custom extensions")
	}
}

func TestWriterLock(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.txt", "locked indexing")
	lockPath := filepath.Join(dir, "index.lock")

	store := &mockStore{}
	idx := New(store, Config{LockPath: lockPath}, testLogger())

	if _, err := idx.AddFile(context.Background(), path); err != nil {
		t.Fatalf("AddFile with lock failed: %v", err)
	}
	if len(store.added) != 1 {
		t.Errorf("expected 1 stored document, got %d", len(store.added))
	}

	// The lock is released afterwards, so a second run succeeds.
	if _, err := idx.AddFile(context.Background(), path); err != nil {
		t.Fatalf("second AddFile failed, lock not released: %v", err)
	}
}

func TestRemoveAndList(t *testing.T) {
	store := &mockStore{
		listByType: map[string][]knowledge.Document{
			knowledge.SourceTypeFile: {
				{ID: "kb_aa_0000", Metadata: map[string]string{"source": "/a.txt", "file_ext": ".txt", "file_size": "100"}},
				{ID: "kb_aa_0001", Metadata: map[string]string{"source": "/a.txt", "file_ext": ".txt", "file_size": "100"}},
				{ID: "kb_bb_0000", Metadata: map[string]string{"source": "/b.md", "file_ext": ".md", "file_size": "50"}},
			},
		},
	}
	idx := New(store, Config{}, testLogger())
	ctx := context.Background()

	docs, err := idx.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if len(docs) != 3 {
		t.Errorf("expected 3 documents, got %d", len(docs))
	}

	if err := idx.RemoveDocument(ctx, "kb_aa_0000"); err != nil {
		t.Fatalf("RemoveDocument failed: %v", err)
	}
	if store.deletedIDs[0] != "kb_aa_0000" {
		t.Errorf("wrong ID deleted: %v", store.deletedIDs)
	}

	stats, err := idx.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats["total_chunks"] != 3 {
		t.Errorf("total_chunks = %v, want 3", stats["total_chunks"])
	}
	if stats["total_sources"] != 2 {
		t.Errorf("total_sources = %v, want 2", stats["total_sources"])
	}
	fileTypes := stats["file_types"].(map[string]int)
	if fileTypes[".txt"] != 2 || fileTypes[".md"] != 1 {
		t.Errorf("file_types = %v", fileTypes)
	}
	if stats["total_size"] != int64(150) {
		t.Errorf("total_size = %v, want 150 (per source, not per chunk)", stats["total_size"])
	}
}

func TestListAndStatsIncludeWebSources(t *testing.T) {
	store := &mockStore{
		listByType: map[string][]knowledge.Document{
			knowledge.SourceTypeFile: {
				{ID: "kb_aa_0000", Metadata: map[string]string{"source": "/a.txt", "file_ext": ".txt", "file_size": "100"}},
			},
			knowledge.SourceTypeWeb: {
				{ID: "kb_cc_0000", Metadata: map[string]string{"source": "https://example.com/post"}},
				{ID: "kb_cc_0001", Metadata: map[string]string{"source": "https://example.com/post"}},
			},
		},
	}
	idx := New(store, Config{}, testLogger())
	ctx := context.Background()

	docs, err := idx.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("expected 3 documents across file and web sources, got %d", len(docs))
	}

	stats, err := idx.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats["total_chunks"] != 3 {
		t.Errorf("total_chunks = %v, want 3", stats["total_chunks"])
	}
	if stats["total_sources"] != 2 {
		t.Errorf("total_sources = %v, want 2", stats["total_sources"])
	}
	// Web chunks carry no file metadata; size only counts files.
	if stats["total_size"] != int64(100) {
		t.Errorf("total_size = %v, want 100", stats["total_size"])
	}
}

func TestChunkDocIDStable(t *testing.T) {
	a := chunkDocID("/data/report.txt", 0)
	b := chunkDocID("/data/report.txt", 0)
	if a != b {
		t.Errorf("IDs for the same source and index differ: %q vs %q", a, b)
	}
	if chunkDocID("/data/report.txt", 1) == a {
		t.Error("different chunk indexes must produce different IDs")
	}
	if chunkDocID("/data/other.txt", 0) == a {
		t.Error("different sources must produce different IDs")
	}
}
