package embed

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder counts inner Embed calls.
type countingEmbedder struct {
	inner Embedder
	calls atomic.Int64
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls.Add(1)
	return c.inner.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls.Add(int64(len(texts)))
	return c.inner.EmbedBatch(ctx, texts)
}

func (c *countingEmbedder) Dimensions() int    { return c.inner.Dimensions() }
func (c *countingEmbedder) ModelName() string  { return c.inner.ModelName() }
func (c *countingEmbedder) Close() error       { return c.inner.Close() }

func TestCachedEmbedder_HitSkipsInner(t *testing.T) {
	counter := &countingEmbedder{inner: NewSemanticHashEmbedder(32)}
	cached := NewCachedEmbedder(counter, 10)
	defer func() { _ = cached.Close() }()

	ctx := context.Background()
	a, err := cached.Embed(ctx, "func main() {}")
	require.NoError(t, err)
	b, err := cached.Embed(ctx, "func main() {}")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, int64(1), counter.calls.Load())
}

func TestCachedEmbedder_BatchPartialCache(t *testing.T) {
	counter := &countingEmbedder{inner: NewSemanticHashEmbedder(32)}
	cached := NewCachedEmbedder(counter, 10)
	defer func() { _ = cached.Close() }()

	ctx := context.Background()
	_, err := cached.Embed(ctx, "alpha")
	require.NoError(t, err)

	results, err := cached.EmbedBatch(ctx, []string{"alpha", "beta", "gamma"})
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.Len(t, r, 32)
	}

	// alpha was cached, only beta and gamma hit the inner embedder.
	assert.Equal(t, int64(3), counter.calls.Load())
}

func TestCachedEmbedder_EmptyBatch(t *testing.T) {
	cached := NewCachedEmbedder(NewSemanticHashEmbedder(32), 10)
	defer func() { _ = cached.Close() }()

	results, err := cached.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCachedEmbedder_InnerExposesProvider(t *testing.T) {
	tfidf := NewTFIDFEmbedder(32)
	cached := NewCachedEmbedder(tfidf, 10)
	defer func() { _ = cached.Close() }()

	inner, ok := cached.Inner().(*TFIDFEmbedder)
	require.True(t, ok)
	assert.Same(t, tfidf, inner)
}

func TestNewEmbedder_Providers(t *testing.T) {
	for _, provider := range []string{ProviderTFIDF, ProviderSemanticHash, ProviderCodeAware} {
		e, err := NewEmbedder(Options{Provider: provider, Dimensions: 64})
		require.NoError(t, err, provider)
		assert.Equal(t, 64, e.Dimensions(), provider)
		require.NoError(t, e.Close())
	}
}

func TestNewEmbedder_UnknownProvider(t *testing.T) {
	_, err := NewEmbedder(Options{Provider: "word2vec"})
	assert.Error(t, err)
}
