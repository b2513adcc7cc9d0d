package index

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/phuetz/code-buddy/internal/chunk"
	"github.com/phuetz/code-buddy/internal/store"
)

// Persisted index layout under IndexPath. The vector store writes its own
// file alongside these.
const (
	chunksFileName    = "chunks.json"
	fileIndexFileName = "file-index.json"
	statsFileName     = "stats.json"
)

// SaveIndex writes chunk records (without embeddings), the file-to-chunk-id
// map, and stats to the index directory, then flushes the vector store.
func (ci *ChunkIndex) SaveIndex() error {
	dir := ci.opts.IndexPath
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	ci.mu.RLock()
	chunks := make([]*chunk.Chunk, 0, len(ci.chunks))
	for _, c := range ci.chunks {
		chunks = append(chunks, c)
	}
	fileIndex := make(map[string][]string, len(ci.fileIndex))
	for path, ids := range ci.fileIndex {
		fileIndex[path] = append([]string(nil), ids...)
	}
	ci.mu.RUnlock()

	sort.Slice(chunks, func(i, j int) bool { return chunks[i].ID < chunks[j].ID })

	if err := writeJSON(filepath.Join(dir, chunksFileName), chunks); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, fileIndexFileName), fileIndex); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, statsFileName), ci.Stats()); err != nil {
		return err
	}

	if p, ok := ci.vectors.(store.Persistent); ok {
		if err := p.Save(); err != nil {
			return fmt.Errorf("save vector store: %w", err)
		}
	}
	return nil
}

// LoadIndex restores persisted state into the empty in-memory maps.
// Best-effort: missing or corrupt files are a cold start, logged as a
// warning, never an error.
func (ci *ChunkIndex) LoadIndex() error {
	dir := ci.opts.IndexPath
	if dir == "" {
		return nil
	}

	var chunks []*chunk.Chunk
	if ok := readJSON(filepath.Join(dir, chunksFileName), &chunks); ok {
		ci.mu.Lock()
		for _, c := range chunks {
			ci.chunks[c.ID] = c
		}
		ci.mu.Unlock()
	}

	var fileIndex map[string][]string
	if ok := readJSON(filepath.Join(dir, fileIndexFileName), &fileIndex); ok {
		ci.mu.Lock()
		for path, ids := range fileIndex {
			ci.fileIndex[path] = ids
		}
		ci.updatedAt = time.Now()
		ci.mu.Unlock()
	}

	if p, ok := ci.vectors.(store.Persistent); ok {
		if err := p.Load(); err != nil {
			return fmt.Errorf("load vector store: %w", err)
		}
	}
	return nil
}

// writeJSON atomically writes v as JSON (temp file + rename).
func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

// readJSON reads and decodes a JSON file, reporting success. Missing files
// are silent; corrupt files log a warning. Both mean "no index found".
func readJSON(path string, v any) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("failed to read index file",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		slog.Warn("corrupt index file, starting cold",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return false
	}
	return true
}
