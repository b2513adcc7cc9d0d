// Package index owns chunk records, the file-to-chunk mapping, and index
// statistics. It drives embedding and vector storage on ingest and exposes
// the chunk set to the retrieval orchestrator.
package index

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/phuetz/code-buddy/internal/chunk"
	"github.com/phuetz/code-buddy/internal/embed"
	"github.com/phuetz/code-buddy/internal/store"
)

// Options configures a ChunkIndex.
type Options struct {
	// IndexPath is the persistence directory. Empty disables persistence.
	IndexPath string

	// Include are glob patterns selecting files to index. Empty means all.
	Include []string

	// Exclude are glob patterns removing files from the walk.
	Exclude []string
}

// FileResult reports the outcome of indexing a single file. Per-file
// failures (unreadable, binary) are recoverable: they never abort a batch.
type FileResult struct {
	Path       string `json:"path"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	ChunkCount int    `json:"chunkCount"`
}

// CodebaseResult aggregates an IndexCodebase run.
type CodebaseResult struct {
	Files       []FileResult  `json:"files"`
	TotalFiles  int           `json:"totalFiles"`
	TotalChunks int           `json:"totalChunks"`
	Failed      int           `json:"failed"`
	Duration    time.Duration `json:"duration"`
}

// Stats are derived index counters, recomputed on demand.
type Stats struct {
	TotalChunks int            `json:"totalChunks"`
	TotalFiles  int            `json:"totalFiles"`
	TotalTokens int            `json:"totalTokens"`
	Languages   map[string]int `json:"languages"`
	ChunkTypes  map[string]int `json:"chunkTypes"`
	LastUpdated time.Time      `json:"lastUpdated"`
}

// ChunkIndex owns the chunk set and drives ingest.
type ChunkIndex struct {
	mu        sync.RWMutex
	chunks    map[string]*chunk.Chunk
	fileIndex map[string][]string // path -> chunk ids
	updatedAt time.Time

	vectors  store.VectorStore
	embedder embed.Embedder
	chunker  chunk.Chunker
	opts     Options

	include patternSet
	exclude patternSet

	indexing atomic.Bool
	events   emitter
}

// New creates a ChunkIndex over the given collaborators.
func New(vectors store.VectorStore, embedder embed.Embedder, chunker chunk.Chunker, opts Options) (*ChunkIndex, error) {
	include, err := compilePatterns(opts.Include)
	if err != nil {
		return nil, err
	}
	exclude, err := compilePatterns(opts.Exclude)
	if err != nil {
		return nil, err
	}

	return &ChunkIndex{
		chunks:    make(map[string]*chunk.Chunk),
		fileIndex: make(map[string][]string),
		vectors:   vectors,
		embedder:  embedder,
		chunker:   chunker,
		opts:      opts,
		include:   include,
		exclude:   exclude,
	}, nil
}

// Subscribe registers a progress event callback.
func (ci *ChunkIndex) Subscribe(fn func(Event)) {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	ci.events.subscribe(fn)
}

// buildEmbeddingInput prefixes symbol metadata lines before the raw content
// so identifier names and docs weigh into the embedding.
func buildEmbeddingInput(c *chunk.Chunk) string {
	var b strings.Builder
	if c.Metadata.Name != "" {
		b.WriteString("Name: " + c.Metadata.Name + "\n")
	}
	if c.Metadata.Signature != "" {
		b.WriteString("Signature: " + c.Metadata.Signature + "\n")
	}
	if c.Metadata.DocString != "" {
		b.WriteString("Documentation: " + c.Metadata.DocString + "\n")
	}
	b.WriteString(c.Content)
	return b.String()
}

// IndexFile ingests one file: chunk, embed, store. Re-indexing a path first
// removes every chunk and vector previously stored for it.
func (ci *ChunkIndex) IndexFile(ctx context.Context, path string) FileResult {
	content, err := os.ReadFile(path)
	if err != nil {
		return FileResult{Path: path, Error: fmt.Sprintf("read file: %v", err)}
	}

	if isBinary(content) {
		return FileResult{Path: path, Error: "binary file"}
	}

	if ci.chunker.DetectLanguage(path) == chunk.LanguageText {
		return FileResult{Path: path, Error: "unsupported file type"}
	}

	chunks, err := ci.chunker.ChunkFile(string(content), path)
	if err != nil {
		return FileResult{Path: path, Error: fmt.Sprintf("chunk file: %v", err)}
	}

	// Full replacement: no incremental diffing.
	if err := ci.removeFile(path); err != nil {
		return FileResult{Path: path, Error: fmt.Sprintf("remove stale chunks: %v", err)}
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = buildEmbeddingInput(c)
	}
	embeddings, err := ci.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return FileResult{Path: path, Error: fmt.Sprintf("embed chunks: %v", err)}
	}

	entries := make([]store.VectorEntry, len(chunks))
	for i, c := range chunks {
		c.Embedding = embeddings[i]
		entries[i] = store.VectorEntry{
			ID:     c.ID,
			Vector: embeddings[i],
			Metadata: map[string]string{
				"filePath":  c.FilePath,
				"type":      c.Type,
				"language":  c.Language,
				"startLine": fmt.Sprintf("%d", c.StartLine),
				"name":      c.Metadata.Name,
			},
		}
	}
	if err := ci.vectors.AddBatch(entries); err != nil {
		return FileResult{Path: path, Error: fmt.Sprintf("store vectors: %v", err)}
	}

	ci.mu.Lock()
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ci.chunks[c.ID] = c
		ids[i] = c.ID
	}
	ci.fileIndex[path] = ids
	ci.updatedAt = time.Now()
	ci.mu.Unlock()

	return FileResult{Path: path, Success: true, ChunkCount: len(chunks)}
}

// removeFile deletes all chunks and vectors previously stored for a path.
func (ci *ChunkIndex) removeFile(path string) error {
	ci.mu.Lock()
	ids := ci.fileIndex[path]
	for _, id := range ids {
		delete(ci.chunks, id)
	}
	delete(ci.fileIndex, path)
	ci.mu.Unlock()

	for _, id := range ids {
		if err := ci.vectors.Delete(id); err != nil {
			return err
		}
	}
	return nil
}

// RemoveFile deletes a file's chunks and vectors, for watch-mode deletions.
func (ci *ChunkIndex) RemoveFile(path string) error {
	return ci.removeFile(path)
}

// IndexCodebase walks rootDir sequentially, indexing every file that passes
// the include/exclude patterns. A second call while one is in flight fails
// fast instead of interleaving.
func (ci *ChunkIndex) IndexCodebase(ctx context.Context, rootDir string) (*CodebaseResult, error) {
	if !ci.indexing.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("indexing already in progress")
	}
	defer ci.indexing.Store(false)

	if ci.opts.IndexPath != "" {
		lock, err := newReindexLock(ci.opts.IndexPath)
		if err != nil {
			return nil, err
		}
		if err := lock.TryLock(); err != nil {
			return nil, err
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				slog.Warn("failed to release index lock", slog.String("error", err.Error()))
			}
		}()
	}

	start := time.Now()
	ci.events.emit(Event{Type: EventStart, Path: rootDir})

	files, err := ci.collectFiles(rootDir)
	if err != nil {
		return nil, err
	}
	ci.events.emit(Event{Type: EventFilesFound, Files: len(files)})

	ci.trainEmbedder(files)

	result := &CodebaseResult{TotalFiles: len(files)}
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fr := ci.IndexFile(ctx, path)
		result.Files = append(result.Files, fr)
		if fr.Success {
			result.TotalChunks += fr.ChunkCount
		} else {
			result.Failed++
			slog.Debug("skipped file",
				slog.String("path", fr.Path),
				slog.String("reason", fr.Error))
		}
		ci.events.emit(Event{Type: EventFileProcessed, Path: path, Processed: i + 1, Total: len(files)})
	}

	result.Duration = time.Since(start)
	ci.events.emit(Event{Type: EventComplete, Processed: len(files), Total: len(files)})

	if ci.opts.IndexPath != "" {
		if err := ci.SaveIndex(); err != nil {
			return result, fmt.Errorf("save index: %w", err)
		}
	}

	slog.Info("codebase indexed",
		slog.String("root", rootDir),
		slog.Int("files", result.TotalFiles),
		slog.Int("chunks", result.TotalChunks),
		slog.Int("failed", result.Failed),
		slog.Duration("duration", result.Duration))

	return result, nil
}

// corpusInitializer is implemented by providers that learn statistics from
// the corpus before embedding, such as TF-IDF.
type corpusInitializer interface {
	Initialize(corpus []string)
}

// trainEmbedder feeds the file contents to the embedding provider when it
// learns from the corpus. Unreadable and binary files are skipped; they are
// reported later by the per-file indexing pass.
func (ci *ChunkIndex) trainEmbedder(files []string) {
	init, ok := ci.embedder.(corpusInitializer)
	if !ok {
		if cached, isCached := ci.embedder.(*embed.CachedEmbedder); isCached {
			init, ok = cached.Inner().(corpusInitializer)
		}
	}
	if !ok {
		return
	}

	corpus := make([]string, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil || isBinary(data) {
			continue
		}
		corpus = append(corpus, string(data))
	}
	init.Initialize(corpus)
	slog.Debug("embedder initialized from corpus", slog.Int("documents", len(corpus)))
}

// collectFiles walks the tree and applies include/exclude patterns to
// root-relative slash paths.
func (ci *ChunkIndex) collectFiles(rootDir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, relErr := filepath.Rel(rootDir, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && ci.exclude.matches(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if !ci.ShouldIndex(rel) {
			return nil
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", rootDir, err)
	}

	sort.Strings(files)
	return files, nil
}

// ShouldIndex reports whether a root-relative path passes the include and
// exclude patterns. Watch mode consults this so live reindexing honors the
// same configuration as a full index run.
func (ci *ChunkIndex) ShouldIndex(rel string) bool {
	rel = filepath.ToSlash(rel)
	if ci.exclude.matches(rel) {
		return false
	}
	if len(ci.include) > 0 && !ci.include.matches(rel) {
		return false
	}
	return true
}

// Chunk returns a stored chunk by id.
func (ci *ChunkIndex) Chunk(id string) (*chunk.Chunk, bool) {
	ci.mu.RLock()
	defer ci.mu.RUnlock()
	c, ok := ci.chunks[id]
	return c, ok
}

// Chunks returns a snapshot slice of all stored chunks.
func (ci *ChunkIndex) Chunks() []*chunk.Chunk {
	ci.mu.RLock()
	defer ci.mu.RUnlock()

	out := make([]*chunk.Chunk, 0, len(ci.chunks))
	for _, c := range ci.chunks {
		out = append(out, c)
	}
	return out
}

// Count returns the number of stored chunks.
func (ci *ChunkIndex) Count() int {
	ci.mu.RLock()
	defer ci.mu.RUnlock()
	return len(ci.chunks)
}

// Vectors exposes the underlying vector store to the orchestrator.
func (ci *ChunkIndex) Vectors() store.VectorStore {
	return ci.vectors
}

// Embedder exposes the embedding provider to the orchestrator.
func (ci *ChunkIndex) Embedder() embed.Embedder {
	return ci.embedder
}

// Stats recomputes index statistics from the chunk set. Derived only;
// never a source of truth.
func (ci *ChunkIndex) Stats() Stats {
	ci.mu.RLock()
	defer ci.mu.RUnlock()

	stats := Stats{
		TotalChunks: len(ci.chunks),
		TotalFiles:  len(ci.fileIndex),
		Languages:   make(map[string]int),
		ChunkTypes:  make(map[string]int),
		LastUpdated: ci.updatedAt,
	}
	for _, c := range ci.chunks {
		stats.Languages[c.Language]++
		stats.ChunkTypes[c.Type]++
		stats.TotalTokens += len(embed.Tokenize(c.Content))
	}
	return stats
}

// Clear destroys the whole index: chunks, file map, and vector store.
func (ci *ChunkIndex) Clear() error {
	ci.mu.Lock()
	ci.chunks = make(map[string]*chunk.Chunk)
	ci.fileIndex = make(map[string][]string)
	ci.updatedAt = time.Now()
	ci.mu.Unlock()

	if err := ci.vectors.Clear(); err != nil {
		return err
	}
	if ci.opts.IndexPath != "" {
		return ci.SaveIndex()
	}
	return nil
}

// Close flushes persistence and releases the vector store.
func (ci *ChunkIndex) Close() error {
	if ci.opts.IndexPath != "" {
		if err := ci.SaveIndex(); err != nil {
			slog.Warn("failed to save index on close", slog.String("error", err.Error()))
		}
	}
	return ci.vectors.Close()
}
