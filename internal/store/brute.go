package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/phuetz/code-buddy/internal/embed"
)

// DefaultFlushInterval is how often a dirty brute-force store is flushed
// to disk when persistence is configured.
const DefaultFlushInterval = 30 * time.Second

// BruteForceStore is an exact vector store backed by a map. Search is a full
// linear scan with cosine similarity; results are exact, which keeps it the
// reference backend below a few thousand vectors.
type BruteForceStore struct {
	mu         sync.RWMutex
	dimensions int
	entries    map[string]VectorEntry

	// persistence
	path    string
	dirty   bool
	stopCh  chan struct{}
	flushWG sync.WaitGroup
	closed  bool
}

// NewBruteForceStore creates a brute-force store for vectors of the given
// dimension. When path is non-empty the store persists to that file and
// flushes dirty state roughly every DefaultFlushInterval.
func NewBruteForceStore(dimensions int, path string) *BruteForceStore {
	s := &BruteForceStore{
		dimensions: dimensions,
		entries:    make(map[string]VectorEntry),
		path:       path,
	}

	if path != "" {
		s.stopCh = make(chan struct{})
		s.flushWG.Add(1)
		go s.flushLoop()
	}

	return s
}

// flushLoop periodically writes dirty state to disk until Close.
func (s *BruteForceStore) flushLoop() {
	defer s.flushWG.Done()
	ticker := time.NewTicker(DefaultFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.flushIfDirty(); err != nil {
				slog.Warn("vector store flush failed", slog.String("error", err.Error()))
			}
		case <-s.stopCh:
			return
		}
	}
}

// Add inserts or replaces a single entry.
func (s *BruteForceStore) Add(entry VectorEntry) error {
	if len(entry.Vector) != s.dimensions {
		return ErrDimensionMismatch{Expected: s.dimensions, Got: len(entry.Vector)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	s.entries[entry.ID] = entry
	s.dirty = true
	return nil
}

// AddBatch inserts or replaces multiple entries.
// Dimensions are validated up front so a bad batch changes nothing.
func (s *BruteForceStore) AddBatch(entries []VectorEntry) error {
	for _, e := range entries {
		if len(e.Vector) != s.dimensions {
			return ErrDimensionMismatch{Expected: s.dimensions, Got: len(e.Vector)}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	for _, e := range entries {
		s.entries[e.ID] = e
	}
	if len(entries) > 0 {
		s.dirty = true
	}
	return nil
}

// Search scans all entries, applies the metadata filter, and returns the k
// most cosine-similar entries in non-increasing score order.
func (s *BruteForceStore) Search(query []float32, k int, filter Filter) ([]VectorResult, error) {
	if len(query) != s.dimensions {
		return nil, ErrDimensionMismatch{Expected: s.dimensions, Got: len(query)}
	}
	if k <= 0 {
		return []VectorResult{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	results := make([]VectorResult, 0, len(s.entries))
	for _, entry := range s.entries {
		if filter != nil && !filter.Matches(entry.Metadata) {
			continue
		}
		score, err := embed.CosineSimilarity(query, entry.Vector)
		if err != nil {
			return nil, err
		}
		results = append(results, VectorResult{
			ID:       entry.ID,
			Score:    score,
			Metadata: entry.Metadata,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Delete removes an entry by id.
func (s *BruteForceStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	if _, ok := s.entries[id]; ok {
		delete(s.entries, id)
		s.dirty = true
	}
	return nil
}

// DeleteByFilter removes every entry matching all filter pairs and returns
// the number removed.
func (s *BruteForceStore) DeleteByFilter(filter Filter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, fmt.Errorf("store is closed")
	}

	removed := 0
	for id, entry := range s.entries {
		if filter.Matches(entry.Metadata) {
			delete(s.entries, id)
			removed++
		}
	}
	if removed > 0 {
		s.dirty = true
	}
	return removed, nil
}

// Count returns the number of stored entries.
func (s *BruteForceStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear removes all entries.
func (s *BruteForceStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	s.entries = make(map[string]VectorEntry)
	s.dirty = true
	return nil
}

// Dimensions returns the store's vector dimension.
func (s *BruteForceStore) Dimensions() int {
	return s.dimensions
}

// Save writes all entries to the configured path as JSON.
// Uses atomic save (temp file + rename).
func (s *BruteForceStore) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saveLocked()
}

func (s *BruteForceStore) saveLocked() error {
	if s.path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	vectors := make([]VectorEntry, 0, len(s.entries))
	for _, e := range s.entries {
		vectors = append(vectors, e)
	}
	sort.Slice(vectors, func(i, j int) bool { return vectors[i].ID < vectors[j].ID })

	data, err := json.Marshal(persistedStore{Version: persistVersion, Vectors: vectors})
	if err != nil {
		return fmt.Errorf("encode vectors: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write vectors file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename vectors file: %w", err)
	}
	return nil
}

// flushIfDirty saves when there are unpersisted changes.
func (s *BruteForceStore) flushIfDirty() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty || s.closed {
		return nil
	}
	if err := s.saveLocked(); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

// Load replaces in-memory entries with the persisted file contents.
// A missing or corrupt file is a cold start, not an error.
func (s *BruteForceStore) Load() error {
	if s.path == "" {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read vectors file: %w", err)
	}

	var persisted persistedStore
	if err := json.Unmarshal(data, &persisted); err != nil {
		slog.Warn("corrupt vector store file, starting cold",
			slog.String("path", s.path),
			slog.String("error", err.Error()))
		return nil
	}

	entries := make(map[string]VectorEntry, len(persisted.Vectors))
	for _, e := range persisted.Vectors {
		if len(e.Vector) != s.dimensions {
			// Wrong dimensions in a persisted file is corrupt state, not
			// caller error. Partial loads are worse than an empty store.
			slog.Warn("vector store file dimension mismatch, starting cold",
				slog.String("path", s.path),
				slog.Int("expected", s.dimensions),
				slog.Int("got", len(e.Vector)))
			entries = make(map[string]VectorEntry)
			break
		}
		entries[e.ID] = e
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = entries
	s.dirty = false
	return nil
}

// Close performs a final flush and stops the flush timer. Idempotent.
func (s *BruteForceStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true

	var err error
	if s.dirty {
		err = s.saveLocked()
		s.dirty = false
	}
	s.mu.Unlock()

	if s.stopCh != nil {
		close(s.stopCh)
		s.flushWG.Wait()
	}
	return err
}

var _ VectorStore = (*BruteForceStore)(nil)
