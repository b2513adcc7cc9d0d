package embed

import (
	"context"
	"fmt"
	"math"
	"sync"
)

// DefaultProjectionSeed is the seed for the deterministic projection matrix.
const DefaultProjectionSeed = 42.0

// SemanticHashEmbedder generates embeddings by hashing unigram and bigram
// tokens into a deterministic pseudo-random projection matrix. The matrix is
// a pure function of (seed, row, column) computed from a seeded trig formula
// rather than a PRNG, so the same text yields the identical vector across
// runs and processes without any stored state.
type SemanticHashEmbedder struct {
	mu         sync.RWMutex
	dimensions int
	vocabSize  int
	seed       float64

	// rows caches computed projection rows, keyed by hash bucket.
	rows   map[int][]float32
	closed bool
}

// NewSemanticHashEmbedder creates a semantic-hash embedder.
func NewSemanticHashEmbedder(dimensions int) *SemanticHashEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &SemanticHashEmbedder{
		dimensions: dimensions,
		vocabSize:  DefaultVocabSize,
		seed:       DefaultProjectionSeed,
		rows:       make(map[int][]float32),
	}
}

// Embed generates an embedding for a single text.
func (e *SemanticHashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	vector := make([]float32, e.dimensions)

	tokens := e.tokenizeWithBigrams(text)
	if len(tokens) == 0 {
		return vector, nil
	}

	for _, token := range tokens {
		row := e.projectionRow(rollingHash(token) % uint32(e.vocabSize))
		for j, v := range row {
			vector[j] += v
		}
	}

	return normalizeVector(vector), nil
}

// tokenizeWithBigrams produces unigram tokens plus adjacent-pair bigrams.
func (e *SemanticHashEmbedder) tokenizeWithBigrams(text string) []string {
	unigrams := Tokenize(text)
	tokens := make([]string, 0, len(unigrams)*2)
	tokens = append(tokens, unigrams...)
	for i := 0; i+1 < len(unigrams); i++ {
		tokens = append(tokens, unigrams[i]+" "+unigrams[i+1])
	}
	return tokens
}

// projectionRow returns the cached projection row for a hash bucket,
// computing it on first use.
func (e *SemanticHashEmbedder) projectionRow(bucket uint32) []float32 {
	e.mu.RLock()
	row, ok := e.rows[int(bucket)]
	e.mu.RUnlock()
	if ok {
		return row
	}

	row = make([]float32, e.dimensions)
	for j := 0; j < e.dimensions; j++ {
		row[j] = projectionValue(e.seed, int(bucket), j)
	}

	e.mu.Lock()
	e.rows[int(bucket)] = row
	e.mu.Unlock()
	return row
}

// projectionValue is the deterministic "random" projection entry at (i, j).
// The fractional part of a scaled sine product spreads values uniformly in
// [0, 1); shifting into [-1, 1) centers the distribution.
func projectionValue(seed float64, i, j int) float32 {
	v := math.Sin(seed*float64(i+1)*12.9898+float64(j+1)*78.233) * 43758.5453
	frac := v - math.Floor(v)
	return float32(frac*2 - 1)
}

// rollingHash computes a 32-bit multiplicative rolling hash of a token.
func rollingHash(s string) uint32 {
	var h uint32
	for _, c := range s {
		h = h*31 + uint32(c)
	}
	return h
}

// EmbedBatch generates embeddings for multiple texts.
func (e *SemanticHashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed text %d: %w", i, err)
		}
		results[i] = emb
	}
	return results, nil
}

// Dimensions returns the embedding dimension.
func (e *SemanticHashEmbedder) Dimensions() int {
	return e.dimensions
}

// ModelName returns the model identifier.
func (e *SemanticHashEmbedder) ModelName() string {
	return "semantic-hash"
}

// Close releases resources.
func (e *SemanticHashEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

var _ Embedder = (*SemanticHashEmbedder)(nil)
