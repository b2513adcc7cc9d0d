package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeAwareEmbedder_Dimensions(t *testing.T) {
	e := NewCodeAwareEmbedder(256)
	defer func() { _ = e.Close() }()

	emb, err := e.Embed(context.Background(), "func main() {}")
	require.NoError(t, err)
	assert.Len(t, emb, 256)
	assert.InDelta(t, 1.0, vectorMagnitude(emb), 0.001)
}

func TestCodeAwareEmbedder_FeatureBlockDistinguishesCodeFromProse(t *testing.T) {
	e := NewCodeAwareEmbedder(256)
	defer func() { _ = e.Close() }()

	ctx := context.Background()
	code, err := e.Embed(ctx, "func add(a, b int) int {\n\treturn a + b\n}")
	require.NoError(t, err)
	prose, err := e.Embed(ctx, "the quick brown fox jumps over the lazy dog")
	require.NoError(t, err)

	assert.NotEqual(t, code, prose)
}

func TestCodeFeatures_CountAndRange(t *testing.T) {
	features := codeFeatures("func add(a, b int) int {\n\t// sum\n\treturn a + b\n}")
	require.Len(t, features, featureCount)
	for i, f := range features {
		assert.GreaterOrEqual(t, f, 0.0, "feature %d", i)
		assert.LessOrEqual(t, f, 1.0, "feature %d", i)
	}
}

func TestCodeFeatures_KeywordFlags(t *testing.T) {
	features := codeFeatures("func TestAdd(t *testing.T) { if err != nil { panic(err) } }")
	assert.Equal(t, 1.0, features[3], "function keyword flag")
	assert.Equal(t, 1.0, features[12], "test keyword flag")
	assert.Equal(t, 1.0, features[13], "error keyword flag")
}

func TestCodeFeatures_EmptyText(t *testing.T) {
	features := codeFeatures("")
	require.Len(t, features, featureCount)
	for i, f := range features {
		assert.GreaterOrEqual(t, f, 0.0, "feature %d", i)
		assert.LessOrEqual(t, f, 1.0, "feature %d", i)
	}
}
