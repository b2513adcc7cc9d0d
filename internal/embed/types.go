// Package embed provides hand-built embedding providers for code retrieval.
// All providers are deterministic numeric algorithms: no network calls, no
// model downloads, identical vectors across runs and processes.
package embed

import (
	"context"
	"fmt"
	"math"
)

// Common embedding constants.
const (
	// DefaultDimensions is the default embedding dimension for all providers.
	DefaultDimensions = 256

	// DefaultVocabSize is the hash space for the semantic-hash projection.
	DefaultVocabSize = 10000

	// DefaultCacheSize is the default LRU size for the cached embedder.
	DefaultCacheSize = 10000
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates a unit-normalized embedding for a single text.
	// Empty input yields a zero vector, never an error.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Close releases resources.
	Close() error
}

// CosineSimilarity computes dot(a,b) / (|a|*|b|).
// Mismatched lengths are a caller contract violation and return an error.
// A zero-magnitude operand yields 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("cosine similarity: dimension mismatch %d vs %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// normalizeVector normalizes a vector to unit length.
// Zero vectors are returned unchanged (guards division by zero).
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}

// clamp01 clamps a feature value into [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
