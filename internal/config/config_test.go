package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cberrors "github.com/phuetz/code-buddy/internal/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "code", cfg.Embeddings.Provider)
	assert.Equal(t, 256, cfg.Embeddings.Dimensions)
	assert.Equal(t, "hybrid", cfg.Search.Strategy)
	assert.Equal(t, "hnsw", cfg.Store.Backend)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Contains(t, cfg.Paths.Exclude, "**/node_modules/**")
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default().Embeddings, cfg.Embeddings)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	content := `
embeddings:
  provider: tfidf
  dimensions: 128
search:
  strategy: semantic
  top_k: 5
store:
  backend: brute
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "tfidf", cfg.Embeddings.Provider)
	assert.Equal(t, 128, cfg.Embeddings.Dimensions)
	assert.Equal(t, "semantic", cfg.Search.Strategy)
	assert.Equal(t, 5, cfg.Search.TopK)
	assert.Equal(t, "brute", cfg.Store.Backend)

	// Untouched sections keep their defaults.
	assert.Equal(t, 10000, cfg.Embeddings.CacheSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
}

func TestLoad_InvalidYAMLFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("{not yaml"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cberrors.New(cberrors.ErrCodeConfigInvalid, "", nil)))
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	content := "embeddings:\n  provider: tfidf\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644))

	t.Setenv("CODEBUDDY_EMBED_PROVIDER", "semhash")
	t.Setenv("CODEBUDDY_STORE_BACKEND", "partitioned")
	t.Setenv("CODEBUDDY_TELEMETRY", "false")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "semhash", cfg.Embeddings.Provider)
	assert.Equal(t, "partitioned", cfg.Store.Backend)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoad_DotEnvFileIsApplied(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("CODEBUDDY_SEARCH_STRATEGY=corrective\n"), 0o644))

	// godotenv does not overwrite variables already set, so clear it first.
	t.Setenv("CODEBUDDY_SEARCH_STRATEGY", "")
	require.NoError(t, os.Unsetenv("CODEBUDDY_SEARCH_STRATEGY"))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "corrective", cfg.Search.Strategy)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.Embeddings.Provider = "word2vec" }},
		{"zero dimensions", func(c *Config) { c.Embeddings.Dimensions = 0 }},
		{"unknown backend", func(c *Config) { c.Store.Backend = "faiss" }},
		{"unknown strategy", func(c *Config) { c.Search.Strategy = "magic" }},
		{"zero top_k", func(c *Config) { c.Search.TopK = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var coded *cberrors.CodedError
			require.ErrorAs(t, err, &coded)
			assert.Equal(t, cberrors.ErrCodeConfigInvalid, coded.Code)
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	cfg := Default()
	cfg.Embeddings.Provider = "semhash"
	cfg.Search.TopK = 25
	require.NoError(t, cfg.Save(dir))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "semhash", loaded.Embeddings.Provider)
	assert.Equal(t, 25, loaded.Search.TopK)
}
