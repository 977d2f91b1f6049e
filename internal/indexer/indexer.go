package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/kbcrew/kbcrew/internal/knowledge"
)

// Store defines the storage operations the Indexer needs. Defined here by
// the consumer so tests can substitute a mock; *knowledge.Store satisfies it.
type Store interface {
	Add(ctx context.Context, doc knowledge.Document) error
	Delete(ctx context.Context, docID string) error
	DeleteBySource(ctx context.Context, source string) (int64, error)
	ListBySourceType(ctx context.Context, sourceType string, limit int32) ([]knowledge.Document, error)
}

// defaultExtensions are the file types indexed when none are configured.
var defaultExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".go":   true,
	".py":   true,
	".js":   true,
	".ts":   true,
	".java": true,
	".c":    true,
	".cpp":  true,
	".h":    true,
	".rs":   true,
	".rb":   true,
	".sh":   true,
	".yaml": true,
	".yml":  true,
	".json": true,
	".xml":  true,
	".html": true,
	".css":  true,
	".sql":  true,
}

// DefaultMaxFileSize bounds single-file reads. Oversized files are chunked
// anyway; the cap protects against accidentally indexing binaries or logs.
const DefaultMaxFileSize = 1 << 20 // 1 MiB

// DefaultListLimit bounds ListDocuments so a huge index cannot exhaust
// memory in one query.
const DefaultListLimit = 1000

// lockRetryInterval is how often the writer lock is re-tried while waiting.
const lockRetryInterval = 100 * time.Millisecond

// Config controls indexing behavior. Zero values are replaced by defaults.
type Config struct {
	// Extensions overrides the default supported file extensions.
	Extensions []string

	// ChunkSize and ChunkOverlap configure the text splitter, in runes.
	ChunkSize    int
	ChunkOverlap int

	// MaxFileSize is the largest file read, in bytes.
	MaxFileSize int64

	// LockPath is the writer lock file. Empty disables locking.
	LockPath string
}

// Result summarizes a directory indexing operation.
type Result struct {
	FilesAdded   int
	FilesSkipped int
	FilesFailed  int
	ChunksAdded  int
	TotalSize    int64
	Duration     time.Duration
}

// Indexer builds knowledge base entries from files and directories.
type Indexer struct {
	store      Store
	chunker    Chunker
	extensions map[string]bool
	maxSize    int64
	lockPath   string
	logger     *slog.Logger
}

// New creates an Indexer over the given store.
func New(store Store, cfg Config, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}

	extensions := make(map[string]bool)
	if len(cfg.Extensions) > 0 {
		for _, ext := range cfg.Extensions {
			extensions[strings.ToLower(ext)] = true
		}
	} else {
		for ext := range defaultExtensions {
			extensions[ext] = true
		}
	}

	maxSize := cfg.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	return &Indexer{
		store:      store,
		chunker:    NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		extensions: extensions,
		maxSize:    maxSize,
		lockPath:   cfg.LockPath,
		logger:     logger,
	}
}

// AddFile indexes a single file, replacing any chunks previously indexed
// from the same path. Returns the number of chunks stored.
func (idx *Indexer) AddFile(ctx context.Context, filePath string) (int, error) {
	unlock, err := idx.acquireLock(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return 0, fmt.Errorf("resolving path: %w", err)
	}

	// Reads go through os.Root so symlinks cannot escape the parent
	// directory.
	root, err := os.OpenRoot(filepath.Dir(absPath))
	if err != nil {
		return 0, fmt.Errorf("opening root directory: %w", err)
	}
	defer func() {
		_ = root.Close()
	}()

	fileName := filepath.Base(absPath)
	info, err := root.Stat(fileName)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", fileName, err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%s is a directory, use AddDirectory", filePath)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if !idx.extensions[ext] {
		return 0, fmt.Errorf("unsupported file type %q", ext)
	}
	if info.Size() > idx.maxSize {
		return 0, fmt.Errorf("file %s (%d bytes) exceeds the %d byte limit", fileName, info.Size(), idx.maxSize)
	}

	content, err := root.ReadFile(fileName)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", fileName, err)
	}

	return idx.indexContent(ctx, absPath, string(content), map[string]string{
		"source_type": knowledge.SourceTypeFile,
		"file_name":   fileName,
		"file_ext":    ext,
		"file_size":   fmt.Sprintf("%d", info.Size()),
	})
}

// AddDirectory recursively indexes all supported files under dirPath,
// honoring the directory's .gitignore when present.
func (idx *Indexer) AddDirectory(ctx context.Context, dirPath string) (*Result, error) {
	unlock, err := idx.acquireLock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	start := time.Now()
	result := &Result{}

	absDir, err := filepath.Abs(dirPath)
	if err != nil {
		return nil, fmt.Errorf("resolving directory path: %w", err)
	}

	root, err := os.OpenRoot(absDir)
	if err != nil {
		return nil, fmt.Errorf("opening root directory: %w", err)
	}
	defer func() {
		_ = root.Close()
	}()

	// Malformed .gitignore is ignored rather than failing the walk.
	var gitIgnore *ignore.GitIgnore
	if _, err := os.Stat(filepath.Join(absDir, ".gitignore")); err == nil {
		gitIgnore, _ = ignore.CompileIgnoreFile(filepath.Join(absDir, ".gitignore"))
	}

	walkErr := filepath.Walk(absDir, func(path string, info os.FileInfo, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			result.FilesFailed++
			return nil
		}

		relPath, err := filepath.Rel(absDir, path)
		if err != nil {
			result.FilesFailed++
			return nil
		}

		if gitIgnore != nil && relPath != "." && gitIgnore.MatchesPath(relPath) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			result.FilesSkipped++
			return nil
		}
		if info.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if !idx.extensions[ext] {
			result.FilesSkipped++
			return nil
		}
		if info.Size() > idx.maxSize {
			result.FilesSkipped++
			return nil
		}

		content, err := root.ReadFile(relPath)
		if err != nil {
			result.FilesFailed++
			return nil
		}

		chunks, err := idx.indexContent(ctx, path, string(content), map[string]string{
			"source_type": knowledge.SourceTypeFile,
			"file_name":   filepath.Base(path),
			"file_ext":    ext,
			"file_size":   fmt.Sprintf("%d", info.Size()),
		})
		if err != nil {
			idx.logger.Warn("failed to index file", "path", path, "error", err)
			result.FilesFailed++
			return nil
		}

		result.FilesAdded++
		result.ChunksAdded += chunks
		result.TotalSize += info.Size()
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walking directory: %w", walkErr)
	}

	result.Duration = time.Since(start)
	return result, nil
}

// indexContent splits content into chunks and stores them, replacing any
// chunks previously stored for the same source.
func (idx *Indexer) indexContent(ctx context.Context, source, content string, metadata map[string]string) (int, error) {
	chunks := idx.chunker.Split(content)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("no indexable content in %s", source)
	}

	if _, err := idx.store.DeleteBySource(ctx, source); err != nil {
		return 0, fmt.Errorf("removing stale chunks for %s: %w", source, err)
	}

	indexedAt := time.Now()
	for i, chunk := range chunks {
		docMeta := make(map[string]string, len(metadata)+3)
		for k, v := range metadata {
			docMeta[k] = v
		}
		docMeta["source"] = source
		docMeta["chunk"] = fmt.Sprintf("%d/%d", i+1, len(chunks))
		docMeta["indexed_at"] = indexedAt.Format(time.RFC3339)

		doc := knowledge.Document{
			ID:        chunkDocID(source, i),
			Content:   chunk,
			Metadata:  docMeta,
			CreatedAt: indexedAt,
		}
		if err := idx.store.Add(ctx, doc); err != nil {
			return 0, fmt.Errorf("storing chunk %d of %s: %w", i+1, source, err)
		}
	}

	idx.logger.Debug("indexed source", "source", source, "chunks", len(chunks))
	return len(chunks), nil
}

// ListDocuments returns all indexed documents, local files and web pages
// alike.
func (idx *Indexer) ListDocuments(ctx context.Context) ([]knowledge.Document, error) {
	var docs []knowledge.Document
	for _, sourceType := range []string{knowledge.SourceTypeFile, knowledge.SourceTypeWeb} {
		typed, err := idx.store.ListBySourceType(ctx, sourceType, DefaultListLimit)
		if err != nil {
			return nil, fmt.Errorf("listing %s documents: %w", sourceType, err)
		}
		docs = append(docs, typed...)
	}
	return docs, nil
}

// RemoveDocument removes a single chunk by document ID.
func (idx *Indexer) RemoveDocument(ctx context.Context, docID string) error {
	return idx.store.Delete(ctx, docID)
}

// RemoveSource removes every chunk indexed from a source path or URL.
func (idx *Indexer) RemoveSource(ctx context.Context, source string) (int64, error) {
	return idx.store.DeleteBySource(ctx, source)
}

// Stats summarizes the indexed corpus by file type and size.
func (idx *Indexer) Stats(ctx context.Context) (map[string]any, error) {
	docs, err := idx.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}

	fileTypes := make(map[string]int)
	sources := make(map[string]bool)
	var totalSize int64
	for _, doc := range docs {
		if ext, ok := doc.Metadata["file_ext"]; ok {
			fileTypes[ext]++
		}
		if src, ok := doc.Metadata["source"]; ok && !sources[src] {
			sources[src] = true
			// Size is per source, not per chunk.
			var size int64
			if _, err := fmt.Sscanf(doc.Metadata["file_size"], "%d", &size); err == nil {
				totalSize += size
			}
		}
	}

	return map[string]any{
		"total_chunks":  len(docs),
		"total_sources": len(sources),
		"file_types":    fileTypes,
		"total_size":    totalSize,
	}, nil
}

// acquireLock takes the writer lock, blocking until acquired or ctx ends.
// The returned function releases it. Locking is a no-op when no lock path
// is configured.
func (idx *Indexer) acquireLock(ctx context.Context) (func(), error) {
	if idx.lockPath == "" {
		return func() {}, nil
	}

	lock := flock.New(idx.lockPath)
	locked, err := lock.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return nil, fmt.Errorf("acquiring index lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("index lock %s is held by another process", idx.lockPath)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			idx.logger.Warn("failed to release index lock", "path", idx.lockPath, "error", err)
		}
	}, nil
}

// chunkDocID derives a stable chunk ID from the source and chunk index so
// re-indexing the same source overwrites rather than duplicates.
func chunkDocID(source string, chunk int) string {
	hash := sha256.Sum256([]byte(source))
	return fmt.Sprintf("kb_%s_%04d", hex.EncodeToString(hash[:16]), chunk)
}
