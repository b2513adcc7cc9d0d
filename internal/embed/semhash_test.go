package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemanticHashEmbedder_Dimensions(t *testing.T) {
	e := NewSemanticHashEmbedder(128)
	defer func() { _ = e.Close() }()

	emb, err := e.Embed(context.Background(), "func main() {}")
	require.NoError(t, err)
	assert.Len(t, emb, 128)
	assert.InDelta(t, 1.0, vectorMagnitude(emb), 0.001)
}

func TestSemanticHashEmbedder_DeterministicAcrossInstances(t *testing.T) {
	// The projection matrix is a pure function of (seed, row, column), so
	// two fresh instances must agree exactly.
	e1 := NewSemanticHashEmbedder(64)
	e2 := NewSemanticHashEmbedder(64)
	defer func() { _ = e1.Close() }()
	defer func() { _ = e2.Close() }()

	text := "func getUserById(id string) (*User, error)"
	a, err := e1.Embed(context.Background(), text)
	require.NoError(t, err)
	b, err := e2.Embed(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSemanticHashEmbedder_BigramsAffectVector(t *testing.T) {
	// Same unigrams in different order produce different bigrams.
	e := NewSemanticHashEmbedder(64)
	defer func() { _ = e.Close() }()

	ctx := context.Background()
	a, err := e.Embed(ctx, "read file config")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "config file read")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSemanticHashEmbedder_EmptyTextYieldsZeroVector(t *testing.T) {
	e := NewSemanticHashEmbedder(32)
	defer func() { _ = e.Close() }()

	emb, err := e.Embed(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 32), emb)
}

func TestProjectionValue_InRange(t *testing.T) {
	for i := 0; i < 50; i++ {
		for j := 0; j < 20; j++ {
			v := projectionValue(DefaultProjectionSeed, i, j)
			assert.GreaterOrEqual(t, v, float32(-1))
			assert.Less(t, v, float32(1))
		}
	}
}

func TestRollingHash_Deterministic(t *testing.T) {
	assert.Equal(t, rollingHash("token"), rollingHash("token"))
	assert.NotEqual(t, rollingHash("token"), rollingHash("nekot"))
}
