package embed

import (
	"context"
	"fmt"
	"strings"
)

// featureCount is the number of hand-computed code features appended to the
// semantic-hash portion of a code-aware embedding.
const featureCount = 14

// CodeAwareEmbedder combines a semantic-hash embedding over the raw text with
// a small block of structural code features. 80% of the dimensions come from
// the semantic-hash provider, the rest carry the feature block (padded or
// truncated to fit exactly).
type CodeAwareEmbedder struct {
	dimensions int
	semDims    int
	inner      *SemanticHashEmbedder
}

// NewCodeAwareEmbedder creates a code-aware embedder with the given dimension.
func NewCodeAwareEmbedder(dimensions int) *CodeAwareEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	semDims := dimensions * 4 / 5
	return &CodeAwareEmbedder{
		dimensions: dimensions,
		semDims:    semDims,
		inner:      NewSemanticHashEmbedder(semDims),
	}
}

// Embed generates an embedding for a single text.
func (e *CodeAwareEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	sem, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	vector := make([]float32, e.dimensions)
	copy(vector, sem)

	features := codeFeatures(text)
	for i, f := range features {
		idx := e.semDims + i
		if idx >= e.dimensions {
			break
		}
		vector[idx] = float32(f)
	}

	return normalizeVector(vector), nil
}

// codeFeatures computes 14 structural features of a code fragment,
// each clamped to [0,1].
func codeFeatures(text string) []float64 {
	lines := strings.Split(text, "\n")
	lineCount := len(lines)

	var totalLen, maxIndent int
	for _, line := range lines {
		totalLen += len(line)
		indent := 0
		for _, r := range line {
			if r == ' ' {
				indent++
			} else if r == '\t' {
				indent += 4
			} else {
				break
			}
		}
		if indent > maxIndent {
			maxIndent = indent
		}
	}
	avgLineLen := 0.0
	if lineCount > 0 {
		avgLineLen = float64(totalLen) / float64(lineCount)
	}

	chars := len(text)
	density := func(count int) float64 {
		if chars == 0 {
			return 0
		}
		return clamp01(float64(count) * 10 / float64(chars))
	}

	var brackets, comments, stringChars, digits, operators int
	for _, r := range text {
		switch r {
		case '{', '}', '(', ')', '[', ']':
			brackets++
		case '"', '\'', '`':
			stringChars++
		case '+', '-', '*', '/', '%', '=', '<', '>', '&', '|', '!':
			operators++
		}
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "#") ||
			strings.HasPrefix(trimmed, "/*") || strings.HasPrefix(trimmed, "*") {
			comments++
		}
	}

	lower := strings.ToLower(text)
	has := func(keywords ...string) float64 {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return 1
			}
		}
		return 0
	}

	return []float64{
		clamp01(float64(lineCount) / 100),
		clamp01(avgLineLen / 120),
		clamp01(float64(maxIndent) / 40),
		has("func ", "function ", "def ", "fn "),
		has("class ", "struct ", "interface "),
		has("async ", "await ", "go func", "goroutine"),
		has("import ", "require(", "#include", "use "),
		density(brackets),
		clamp01(float64(comments) / float64(lineCount+1)),
		density(stringChars),
		density(digits),
		density(operators),
		has("test", "spec", "assert", "expect"),
		has("error", "err ", "try", "catch", "except", "panic", "recover"),
	}
}

// EmbedBatch generates embeddings for multiple texts.
func (e *CodeAwareEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
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
func (e *CodeAwareEmbedder) Dimensions() int {
	return e.dimensions
}

// ModelName returns the model identifier.
func (e *CodeAwareEmbedder) ModelName() string {
	return "code-aware"
}

// Close releases resources.
func (e *CodeAwareEmbedder) Close() error {
	return e.inner.Close()
}

var _ Embedder = (*CodeAwareEmbedder)(nil)
