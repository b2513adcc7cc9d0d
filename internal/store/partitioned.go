package store

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
)

// PartitionedStore shards a brute-force backend by one metadata key.
// Partitions are created lazily on first write; each gets its own optional
// persistence file under the configured directory. A search whose filter pins
// the partition key targets a single partition, anything else fans out to all
// partitions and merges.
type PartitionedStore struct {
	mu           sync.RWMutex
	dimensions   int
	partitionKey string
	dir          string // empty disables persistence
	parts        map[string]*BruteForceStore
	closed       bool
}

// unpartitionedValue buckets entries missing the partition key.
const unpartitionedValue = "_default"

// NewPartitionedStore creates a store sharded by the given metadata key.
func NewPartitionedStore(dimensions int, partitionKey, dir string) *PartitionedStore {
	return &PartitionedStore{
		dimensions:   dimensions,
		partitionKey: partitionKey,
		dir:          dir,
		parts:        make(map[string]*BruteForceStore),
	}
}

// partitionValue extracts the partition bucket for an entry.
func (s *PartitionedStore) partitionValue(metadata map[string]string) string {
	if v, ok := metadata[s.partitionKey]; ok && v != "" {
		return v
	}
	return unpartitionedValue
}

// partition returns the sub-store for a value, creating it lazily.
// Caller must hold the write lock.
func (s *PartitionedStore) partition(value string) *BruteForceStore {
	if part, ok := s.parts[value]; ok {
		return part
	}

	path := ""
	if s.dir != "" {
		path = filepath.Join(s.dir, "vectors-"+sanitizePartition(value)+".json")
	}
	part := NewBruteForceStore(s.dimensions, path)
	s.parts[value] = part
	return part
}

// sanitizePartition makes a partition value filesystem-safe.
func sanitizePartition(value string) string {
	out := make([]rune, 0, len(value))
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

// Add inserts or replaces a single entry in its partition.
func (s *PartitionedStore) Add(entry VectorEntry) error {
	if len(entry.Vector) != s.dimensions {
		return ErrDimensionMismatch{Expected: s.dimensions, Got: len(entry.Vector)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}
	return s.partition(s.partitionValue(entry.Metadata)).Add(entry)
}

// AddBatch inserts or replaces multiple entries.
func (s *PartitionedStore) AddBatch(entries []VectorEntry) error {
	for _, e := range entries {
		if err := s.Add(e); err != nil {
			return err
		}
	}
	return nil
}

// Search targets the pinned partition when the filter fixes the partition
// key, otherwise fans out to every partition and re-sorts the merged results.
func (s *PartitionedStore) Search(query []float32, k int, filter Filter) ([]VectorResult, error) {
	if len(query) != s.dimensions {
		return nil, ErrDimensionMismatch{Expected: s.dimensions, Got: len(query)}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	if pinned, ok := filter[s.partitionKey]; ok {
		part, exists := s.parts[pinned]
		if !exists {
			return []VectorResult{}, nil
		}
		return part.Search(query, k, filter)
	}

	merged := make([]VectorResult, 0, k*len(s.parts))
	for _, part := range s.parts {
		results, err := part.Search(query, k, filter)
		if err != nil {
			return nil, err
		}
		merged = append(merged, results...)
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].ID < merged[j].ID
	})
	if len(merged) > k {
		merged = merged[:k]
	}
	return merged, nil
}

// Delete removes an entry by id from whichever partition holds it.
func (s *PartitionedStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	for _, part := range s.parts {
		if err := part.Delete(id); err != nil {
			return err
		}
	}
	return nil
}

// DeleteByFilter removes matching entries across partitions.
func (s *PartitionedStore) DeleteByFilter(filter Filter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, fmt.Errorf("store is closed")
	}

	total := 0
	for _, part := range s.parts {
		n, err := part.DeleteByFilter(filter)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// Count returns the number of entries across all partitions.
func (s *PartitionedStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, part := range s.parts {
		total += part.Count()
	}
	return total
}

// PartitionCount returns the number of materialized partitions.
func (s *PartitionedStore) PartitionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.parts)
}

// Clear removes all entries and partitions.
func (s *PartitionedStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	for _, part := range s.parts {
		if err := part.Clear(); err != nil {
			return err
		}
		if err := part.Close(); err != nil {
			return err
		}
	}
	s.parts = make(map[string]*BruteForceStore)
	return nil
}

// Save flushes every partition to disk.
func (s *PartitionedStore) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, part := range s.parts {
		if err := part.Save(); err != nil {
			return err
		}
	}
	return nil
}

// Load materializes partitions from their persistence files. Partition
// values are recovered from the file names, which round-trip for the
// metadata values used here (languages, chunk types).
func (s *PartitionedStore) Load() error {
	if s.dir == "" {
		return nil
	}

	matches, err := filepath.Glob(filepath.Join(s.dir, "vectors-*.json"))
	if err != nil {
		return fmt.Errorf("list partition files: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, path := range matches {
		name := filepath.Base(path)
		value := name[len("vectors-") : len(name)-len(".json")]
		part := s.partition(value)
		if err := part.Load(); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every partition. Idempotent.
func (s *PartitionedStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var firstErr error
	for _, part := range s.parts {
		if err := part.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ VectorStore = (*PartitionedStore)(nil)
var _ Persistent = (*PartitionedStore)(nil)
