package embed

import (
	"context"
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"sync"
)

// TFIDFEmbedder generates embeddings from term frequency and inverse document
// frequency statistics over an initialization corpus. Tokens outside the
// learned vocabulary are hashed into the vector so embedding remains total
// even before Initialize is called.
type TFIDFEmbedder struct {
	mu         sync.RWMutex
	dimensions int
	vocab      map[string]int     // token -> vector index
	idf        map[string]float64 // token -> inverse document frequency
	docCount   int
	closed     bool
}

// NewTFIDFEmbedder creates a TF-IDF embedder with the given dimension.
func NewTFIDFEmbedder(dimensions int) *TFIDFEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &TFIDFEmbedder{
		dimensions: dimensions,
		vocab:      make(map[string]int),
		idf:        make(map[string]float64),
	}
}

// Initialize builds the vocabulary and IDF table from a corpus.
// The vocabulary is capped at the embedding dimension, keeping the most
// frequent tokens. IDF = ln(N/(df+1)) + 1.
func (e *TFIDFEmbedder) Initialize(corpus []string) {
	docFreq := make(map[string]int)
	totalFreq := make(map[string]int)

	for _, doc := range corpus {
		seen := make(map[string]bool)
		for _, token := range Tokenize(doc) {
			totalFreq[token]++
			if !seen[token] {
				docFreq[token]++
				seen[token] = true
			}
		}
	}

	// Keep the most frequent tokens, up to one per dimension.
	type tokenCount struct {
		token string
		count int
	}
	ranked := make([]tokenCount, 0, len(totalFreq))
	for token, count := range totalFreq {
		ranked = append(ranked, tokenCount{token, count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].token < ranked[j].token
	})
	if len(ranked) > e.dimensions {
		ranked = ranked[:e.dimensions]
	}

	n := len(corpus)
	vocab := make(map[string]int, len(ranked))
	idf := make(map[string]float64, len(ranked))
	for i, tc := range ranked {
		vocab[tc.token] = i
		idf[tc.token] = math.Log(float64(n)/float64(docFreq[tc.token]+1)) + 1
	}

	e.mu.Lock()
	e.vocab = vocab
	e.idf = idf
	e.docCount = n
	e.mu.Unlock()
}

// Embed generates a TF-IDF embedding for a single text.
func (e *TFIDFEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return nil, fmt.Errorf("embedder is closed")
	}

	vector := make([]float32, e.dimensions)

	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return vector, nil
	}

	tf := make(map[string]int, len(tokens))
	for _, token := range tokens {
		tf[token]++
	}

	for token, count := range tf {
		if idx, ok := e.vocab[token]; ok {
			vector[idx] += float32(float64(count) * e.idf[token])
			continue
		}
		// Unknown tokens hash into the same vector with unit IDF.
		vector[hashTokenIndex(token, e.dimensions)] += float32(count)
	}

	return normalizeVector(vector), nil
}

// hashTokenIndex maps a token to a vector index via md5(token) mod size.
func hashTokenIndex(token string, size int) int {
	sum := md5.Sum([]byte(token))
	return int(binary.BigEndian.Uint64(sum[:8]) % uint64(size))
}

// EmbedBatch generates embeddings for multiple texts.
func (e *TFIDFEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
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

// VocabSize returns the number of tokens in the learned vocabulary.
func (e *TFIDFEmbedder) VocabSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.vocab)
}

// Dimensions returns the embedding dimension.
func (e *TFIDFEmbedder) Dimensions() int {
	return e.dimensions
}

// ModelName returns the model identifier.
func (e *TFIDFEmbedder) ModelName() string {
	return "tfidf"
}

// Close releases resources.
func (e *TFIDFEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

var _ Embedder = (*TFIDFEmbedder)(nil)
