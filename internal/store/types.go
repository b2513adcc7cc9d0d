// Package store provides vector storage: a brute-force exact store, a
// metadata-partitioned store, and an approximate HNSW graph index.
package store

import (
	"fmt"
)

// VectorEntry is a stored vector with its metadata.
type VectorEntry struct {
	ID       string            `json:"id"`
	Vector   []float32         `json:"vector"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// VectorResult is a single search result.
type VectorResult struct {
	ID       string            // entry ID
	Score    float64           // similarity; range depends on the store
	Metadata map[string]string // entry metadata
}

// Filter restricts search results to entries whose metadata contains every
// key/value pair exactly.
type Filter map[string]string

// Matches reports whether metadata satisfies all filter pairs.
func (f Filter) Matches(metadata map[string]string) bool {
	for k, v := range f {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

// VectorStore is the id -> (vector, metadata) store with similarity search.
type VectorStore interface {
	// Add inserts or replaces a single entry.
	Add(entry VectorEntry) error

	// AddBatch inserts or replaces multiple entries.
	AddBatch(entries []VectorEntry) error

	// Search returns the k entries most similar to query, best first.
	// A nil filter matches everything. Searching an empty store returns
	// an empty slice.
	Search(query []float32, k int, filter Filter) ([]VectorResult, error)

	// Delete removes an entry by id. Deleting a missing id is a no-op.
	Delete(id string) error

	// DeleteByFilter removes every entry matching all filter pairs and
	// returns the number removed.
	DeleteByFilter(filter Filter) (int, error)

	// Count returns the number of stored entries.
	Count() int

	// Clear removes all entries.
	Clear() error

	// Close flushes pending state and releases resources. Idempotent.
	Close() error
}

// Persistent is implemented by stores with a configured on-disk location.
type Persistent interface {
	// Save writes the current state to disk.
	Save() error

	// Load restores state from disk; missing or corrupt files are a
	// cold start, not an error.
	Load() error
}

// ErrDimensionMismatch indicates a vector whose length does not match the
// store dimension. This is a caller precondition violation, never coerced.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}

// persistVersion tags the on-disk JSON layout of the brute-force store.
const persistVersion = 1

// persistedStore is the brute-force store's on-disk layout.
type persistedStore struct {
	Version int           `json:"version"`
	Vectors []VectorEntry `json:"vectors"`
}
