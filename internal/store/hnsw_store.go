package store

import (
	"fmt"
	"log/slog"
	"os"
)

// HNSWStore adapts HNSWIndex to the VectorStore interface so the chunk index
// can run on either backend. Metadata filters are applied after the
// approximate search by over-fetching candidates.
type HNSWStore struct {
	graph *HNSWIndex
	path  string // empty disables persistence
}

// filterOverfetch is how many extra candidates to pull when a metadata
// filter must be applied post-search.
const filterOverfetch = 4

// NewHNSWStore creates an HNSW-backed vector store. When path is non-empty,
// Save and Load use it.
func NewHNSWStore(cfg HNSWConfig, path string) *HNSWStore {
	return &HNSWStore{
		graph: NewHNSWIndex(cfg),
		path:  path,
	}
}

// Graph exposes the underlying index for event subscription and stats.
func (s *HNSWStore) Graph() *HNSWIndex {
	return s.graph
}

// Add inserts or replaces a single entry.
func (s *HNSWStore) Add(entry VectorEntry) error {
	return s.graph.Insert(entry.ID, entry.Vector, entry.Metadata)
}

// AddBatch inserts or replaces multiple entries with progress events.
func (s *HNSWStore) AddBatch(entries []VectorEntry) error {
	return s.graph.InsertBatch(entries)
}

// Search returns the k best approximate matches. With a filter, candidates
// are over-fetched and filtered; fewer than k results may come back.
func (s *HNSWStore) Search(query []float32, k int, filter Filter) ([]VectorResult, error) {
	fetch := k
	if len(filter) > 0 {
		fetch = k * filterOverfetch
	}

	results, err := s.graph.Search(query, fetch)
	if err != nil {
		return nil, err
	}
	if len(filter) == 0 {
		return results, nil
	}

	filtered := make([]VectorResult, 0, k)
	for _, r := range results {
		if filter.Matches(r.Metadata) {
			filtered = append(filtered, r)
			if len(filtered) == k {
				break
			}
		}
	}
	return filtered, nil
}

// Delete removes an entry by id.
func (s *HNSWStore) Delete(id string) error {
	return s.graph.Delete(id)
}

// DeleteByFilter removes every node whose metadata matches all filter pairs.
func (s *HNSWStore) DeleteByFilter(filter Filter) (int, error) {
	s.graph.mu.RLock()
	matched := make([]string, 0)
	for id, node := range s.graph.nodes {
		if filter.Matches(node.Metadata) {
			matched = append(matched, id)
		}
	}
	s.graph.mu.RUnlock()

	for _, id := range matched {
		if err := s.graph.Delete(id); err != nil {
			return 0, fmt.Errorf("delete %q: %w", id, err)
		}
	}
	return len(matched), nil
}

// Count returns the number of stored entries.
func (s *HNSWStore) Count() int {
	return s.graph.Count()
}

// Clear removes all entries.
func (s *HNSWStore) Clear() error {
	return s.graph.Clear()
}

// Save persists the graph to the configured path.
func (s *HNSWStore) Save() error {
	if s.path == "" {
		return nil
	}
	return s.graph.Save(s.path)
}

// Load restores the graph from the configured path.
// A missing or corrupt file is a cold start, not an error.
func (s *HNSWStore) Load() error {
	if s.path == "" {
		return nil
	}
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil
	}
	if err := s.graph.Load(s.path); err != nil {
		slog.Warn("hnsw index unreadable, starting cold",
			slog.String("path", s.path),
			slog.String("error", err.Error()))
	}
	return nil
}

// Close flushes the graph to disk when persistence is configured.
func (s *HNSWStore) Close() error {
	if err := s.Save(); err != nil {
		return err
	}
	return s.graph.Close()
}

var _ VectorStore = (*HNSWStore)(nil)
