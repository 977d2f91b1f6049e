package knowledge

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"
)

// DBTX is the subset of pgxpool.Pool used by Queries.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UpsertParams holds one document row for insert-or-update.
type UpsertParams struct {
	ID        string
	Content   string
	Embedding pgvector.Vector
	Metadata  []byte
	CreatedAt pgtype.Timestamptz
}

// SearchParams holds one vector search request.
// FilterMetadata nil or empty means unfiltered.
type SearchParams struct {
	QueryEmbedding pgvector.Vector
	FilterMetadata []byte
	Limit          int32
}

// SearchRow is one ranked row returned by SearchDocuments.
type SearchRow struct {
	ID         string
	Content    string
	Metadata   []byte
	CreatedAt  pgtype.Timestamptz
	Similarity float32
}

// DocumentRow is one row returned by listing queries.
type DocumentRow struct {
	ID        string
	Content   string
	Metadata  []byte
	CreatedAt pgtype.Timestamptz
}

// Queries is the pgx implementation of the store's database operations.
// All statements are parameterized; filter JSON is always produced by
// json.Marshal in the Store, never from raw user input.
type Queries struct {
	db DBTX
}

// NewQueries creates a Queries instance over a pool or transaction.
func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

const upsertDocumentSQL = `
INSERT INTO documents (id, content, embedding, metadata, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE
SET content = EXCLUDED.content,
    embedding = EXCLUDED.embedding,
    metadata = EXCLUDED.metadata`

// UpsertDocument inserts or updates a document row.
func (q *Queries) UpsertDocument(ctx context.Context, arg UpsertParams) error {
	_, err := q.db.Exec(ctx, upsertDocumentSQL,
		arg.ID, arg.Content, arg.Embedding, arg.Metadata, arg.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

// Ordering is cosine distance ascending with id as tie-break, so equal-score
// rows come back in a stable order for a fixed snapshot.
const searchDocumentsSQL = `
SELECT id, content, metadata, created_at, 1 - (embedding <=> $1) AS similarity
FROM documents
WHERE ($2::jsonb IS NULL OR metadata @> $2::jsonb)
ORDER BY embedding <=> $1, id
LIMIT $3`

// SearchDocuments performs a cosine similarity search.
func (q *Queries) SearchDocuments(ctx context.Context, arg SearchParams) ([]SearchRow, error) {
	filter := arg.FilterMetadata
	if len(filter) == 0 {
		filter = nil
	}

	rows, err := q.db.Query(ctx, searchDocumentsSQL, arg.QueryEmbedding, filter, arg.Limit)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	defer rows.Close()

	var out []SearchRow
	for rows.Next() {
		var r SearchRow
		if err := rows.Scan(&r.ID, &r.Content, &r.Metadata, &r.CreatedAt, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return out, nil
}

const countDocumentsSQL = `
SELECT count(*) FROM documents
WHERE ($1::jsonb IS NULL OR metadata @> $1::jsonb)`

// CountDocuments counts documents matching the filter (nil counts all).
func (q *Queries) CountDocuments(ctx context.Context, filterMetadata []byte) (int64, error) {
	filter := filterMetadata
	if len(filter) == 0 {
		filter = nil
	}

	var count int64
	if err := q.db.QueryRow(ctx, countDocumentsSQL, filter).Scan(&count); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return count, nil
}

const deleteDocumentSQL = `DELETE FROM documents WHERE id = $1`

// DeleteDocument deletes a document by ID. Deleting a missing ID is a no-op.
func (q *Queries) DeleteDocument(ctx context.Context, id string) error {
	if _, err := q.db.Exec(ctx, deleteDocumentSQL, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

const deleteDocumentsBySourceSQL = `DELETE FROM documents WHERE metadata->>'source' = $1`

// DeleteDocumentsBySource removes every chunk ingested from one source path
// or URL. Returns the number of rows removed.
func (q *Queries) DeleteDocumentsBySource(ctx context.Context, source string) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteDocumentsBySourceSQL, source)
	if err != nil {
		return 0, fmt.Errorf("delete documents by source: %w", err)
	}
	return tag.RowsAffected(), nil
}

const listBySourceTypeSQL = `
SELECT id, content, metadata, created_at
FROM documents
WHERE metadata->>'source_type' = $1
ORDER BY created_at DESC, id
LIMIT $2`

// ListDocumentsBySourceType lists documents by source type, newest first.
func (q *Queries) ListDocumentsBySourceType(ctx context.Context, sourceType string, limit int32) ([]DocumentRow, error) {
	rows, err := q.db.Query(ctx, listBySourceTypeSQL, sourceType, limit)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentRow
	for rows.Next() {
		var r DocumentRow
		if err := rows.Scan(&r.ID, &r.Content, &r.Metadata, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document rows: %w", err)
	}
	return out, nil
}
