package embed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize_SplitsCamelCase(t *testing.T) {
	tokens := Tokenize("getUserById")
	assert.Equal(t, []string{"get", "user", "by", "id"}, tokens)
}

func TestTokenize_SplitsSnakeCase(t *testing.T) {
	tokens := Tokenize("parse_config_file")
	assert.Equal(t, []string{"parse", "config", "file"}, tokens)
}

func TestTokenize_KeepsAcronyms(t *testing.T) {
	tokens := Tokenize("HTTPHandler")
	assert.Equal(t, []string{"http", "handler"}, tokens)
}

func TestTokenize_DropsPunctuation(t *testing.T) {
	tokens := Tokenize("func add(a, b int) int")
	assert.Equal(t, []string{"func", "add", "a", "b", "int", "int"}, tokens)
}

func TestTokenize_EmptyInput(t *testing.T) {
	assert.Empty(t, Tokenize(""))
	assert.Empty(t, Tokenize("  \n\t  "))
}

func TestCosineSimilarity_DimensionMismatch(t *testing.T) {
	_, err := CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0})
	assert.Error(t, err)
}

func TestCosineSimilarity_ZeroVector(t *testing.T) {
	sim, err := CosineSimilarity([]float32{0, 0, 0}, []float32{1, 0, 0})
	assert.NoError(t, err)
	assert.Zero(t, sim)
}

func TestCosineSimilarity_Identical(t *testing.T) {
	v := []float32{0.5, 0.5, 0.1}
	sim, err := CosineSimilarity(v, v)
	assert.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-9)
}

func TestCosineSimilarity_Orthogonal(t *testing.T) {
	sim, err := CosineSimilarity([]float32{1, 0}, []float32{0, 1})
	assert.NoError(t, err)
	assert.InDelta(t, 0.0, sim, 1e-9)
}

func TestNormalizeVector_UnitLength(t *testing.T) {
	v := normalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, float64(v[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(v[1]), 1e-6)
}

func TestNormalizeVector_ZeroVectorUnchanged(t *testing.T) {
	v := normalizeVector([]float32{0, 0, 0})
	assert.Equal(t, []float32{0, 0, 0}, v)
}
