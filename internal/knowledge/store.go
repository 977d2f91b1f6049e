package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"
)

// Querier defines the database operations Store depends on.
// Defined here by the consumer so tests can substitute a mock and other
// backends can substitute entirely.
type Querier interface {
	UpsertDocument(ctx context.Context, arg UpsertParams) error
	SearchDocuments(ctx context.Context, arg SearchParams) ([]SearchRow, error)
	CountDocuments(ctx context.Context, filterMetadata []byte) (int64, error)
	DeleteDocument(ctx context.Context, id string) error
	DeleteDocumentsBySource(ctx context.Context, source string) (int64, error)
	ListDocumentsBySourceType(ctx context.Context, sourceType string, limit int32) ([]DocumentRow, error)
}

// Store manages knowledge documents with vector search.
// It generates embeddings on write and ranks by cosine similarity on read.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	queries  Querier
	embedder ai.Embedder
	logger   *slog.Logger
}

// New creates a Store.
//
//	store := knowledge.New(knowledge.NewQueries(pool), embedder, logger)
func New(querier Querier, embedder ai.Embedder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		queries:  querier,
		embedder: embedder,
		logger:   logger,
	}
}

// Add embeds doc.Content and upserts the document.
func (s *Store) Add(ctx context.Context, doc Document) error {
	embedding, err := s.embedText(ctx, doc.Content)
	if err != nil {
		return fmt.Errorf("embedding document %q: %w", doc.ID, err)
	}

	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	createdAt := pgtype.Timestamptz{
		Time:  doc.CreatedAt,
		Valid: !doc.CreatedAt.IsZero(),
	}

	err = s.queries.UpsertDocument(ctx, UpsertParams{
		ID:        doc.ID,
		Content:   doc.Content,
		Embedding: pgvector.NewVector(embedding),
		Metadata:  metadataJSON,
		CreatedAt: createdAt,
	})
	if err != nil {
		return fmt.Errorf("upserting document %q: %w", doc.ID, err)
	}

	s.logger.Debug("added document", "id", doc.ID, "content_length", len(doc.Content))
	return nil
}

// Search performs semantic search, returning ranked results and the total
// number of documents matching the filter. The total lets callers detect
// that more matches exist than were returned.
//
//	out, err := store.Search(ctx, "quarterly revenue",
//	    knowledge.WithTopK(5),
//	    knowledge.WithFilter("source_type", "file"))
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) (SearchOutput, error) {
	cfg := buildSearchConfig(opts)

	// Bounded so a slow embedder or a cold ivfflat index cannot block the
	// caller indefinitely.
	queryCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	queryEmbedding, err := s.embedText(queryCtx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return SearchOutput{}, fmt.Errorf("embedding generation timeout: %w", err)
		}
		return SearchOutput{}, fmt.Errorf("embedding query: %w", err)
	}

	var filterJSON []byte
	if len(cfg.filter) > 0 {
		filterJSON, err = json.Marshal(cfg.filter)
		if err != nil {
			return SearchOutput{}, fmt.Errorf("marshaling filter: %w", err)
		}
	}

	rows, err := s.queries.SearchDocuments(queryCtx, SearchParams{
		QueryEmbedding: pgvector.NewVector(queryEmbedding),
		FilterMetadata: filterJSON,
		Limit:          cfg.topK,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return SearchOutput{}, fmt.Errorf("search query timeout: %w", err)
		}
		return SearchOutput{}, fmt.Errorf("search failed: %w", err)
	}

	total, err := s.queries.CountDocuments(queryCtx, filterJSON)
	if err != nil {
		// The ranked rows are still valid; fall back to what we know.
		s.logger.Warn("counting matches failed, total set to returned rows", "error", err)
		total = int64(len(rows))
	}

	return SearchOutput{
		Results:      s.rowsToResults(rows),
		TotalMatches: total,
	}, nil
}

// Count returns the number of documents matching the filter.
// A nil or empty filter counts all documents.
func (s *Store) Count(ctx context.Context, filter map[string]string) (int, error) {
	var filterJSON []byte
	if len(filter) > 0 {
		var err error
		filterJSON, err = json.Marshal(filter)
		if err != nil {
			return 0, fmt.Errorf("marshaling filter: %w", err)
		}
	}

	count, err := s.queries.CountDocuments(ctx, filterJSON)
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}

	// Overflow protection for 32-bit platforms.
	if count > math.MaxInt {
		return 0, fmt.Errorf("document count %d exceeds platform int capacity", count)
	}

	return int(count), nil
}

// Delete removes a document by ID.
func (s *Store) Delete(ctx context.Context, docID string) error {
	if err := s.queries.DeleteDocument(ctx, docID); err != nil {
		return fmt.Errorf("deleting document %q: %w", docID, err)
	}

	s.logger.Debug("deleted document", "id", docID)
	return nil
}

// DeleteBySource removes every chunk ingested from one source (file path or
// URL). Returns the number of chunks removed.
func (s *Store) DeleteBySource(ctx context.Context, source string) (int64, error) {
	n, err := s.queries.DeleteDocumentsBySource(ctx, source)
	if err != nil {
		return 0, fmt.Errorf("deleting documents for source %q: %w", source, err)
	}

	s.logger.Debug("deleted documents by source", "source", source, "count", n)
	return n, nil
}

// ListBySourceType lists documents by source type without similarity
// calculation, newest first. limit must be in [1, 1000].
func (s *Store) ListBySourceType(ctx context.Context, sourceType string, limit int32) ([]Document, error) {
	const maxListLimit = 1000
	if limit <= 0 || limit > maxListLimit {
		return nil, fmt.Errorf("limit must be between 1 and %d, got %d", maxListLimit, limit)
	}

	validSourceTypes := map[string]struct{}{
		SourceTypeFile: {},
		SourceTypeWeb:  {},
		SourceTypeNote: {},
	}
	if _, ok := validSourceTypes[sourceType]; !ok {
		return nil, fmt.Errorf("invalid sourceType %q, must be one of: file, web, note", sourceType)
	}

	rows, err := s.queries.ListDocumentsBySourceType(ctx, sourceType, limit)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	documents := make([]Document, 0, len(rows))
	for _, row := range rows {
		documents = append(documents, Document{
			ID:        row.ID,
			Content:   row.Content,
			Metadata:  s.parseMetadata(row.ID, row.Metadata),
			CreatedAt: timestamptzTime(row.CreatedAt),
		})
	}
	return documents, nil
}

// rowsToResults converts search rows to business model Results.
func (s *Store) rowsToResults(rows []SearchRow) []Result {
	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		results = append(results, Result{
			Document: Document{
				ID:        row.ID,
				Content:   row.Content,
				Metadata:  s.parseMetadata(row.ID, row.Metadata),
				CreatedAt: timestamptzTime(row.CreatedAt),
			},
			Similarity: row.Similarity,
		})
	}
	return results
}

// parseMetadata unmarshals a metadata column, tolerating malformed rows.
func (s *Store) parseMetadata(docID string, raw []byte) map[string]string {
	var metadata map[string]string
	if err := json.Unmarshal(raw, &metadata); err != nil {
		s.logger.Warn("failed to parse metadata", "document_id", docID, "error", err)
		return make(map[string]string)
	}
	if metadata == nil {
		return make(map[string]string)
	}
	return metadata
}

func timestamptzTime(ts pgtype.Timestamptz) time.Time {
	if ts.Valid {
		return ts.Time
	}
	return time.Time{}
}
