package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phuetz/code-buddy/internal/chunk"
	"github.com/phuetz/code-buddy/internal/embed"
	"github.com/phuetz/code-buddy/internal/store"
)

func newTestIndex(t *testing.T, opts Options) *ChunkIndex {
	t.Helper()
	ci, err := New(
		store.NewBruteForceStore(32, ""),
		embed.NewSemanticHashEmbedder(32),
		chunk.NewBlockChunker(),
		opts,
	)
	require.NoError(t, err)
	return ci
}

func writeTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestChunkIndex_IndexCodebase(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"main.go":   "func a() {\n\treturn\n}\n\nfunc b() {\n\treturn\n}\n",
		"util.py":   "def helper():\n    pass\n",
		"image.bin": string([]byte{0x89, 0x50, 0x4e, 0x47, 0x00, 0x01}),
	})

	ci := newTestIndex(t, Options{})
	defer func() { _ = ci.Close() }()

	result, err := ci.IndexCodebase(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalFiles)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 3, result.TotalChunks)
	assert.Equal(t, 3, ci.Count())
	assert.Equal(t, ci.Count(), ci.Vectors().Count())
}

func TestChunkIndex_ExcludePatternsSkipDirectories(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"main.go":             "func a() {}\n",
		"vendor/dep/dep.go":   "func vendored() {}\n",
		"node_modules/x/x.js": "module.exports = 1\n",
	})

	ci := newTestIndex(t, Options{
		Exclude: []string{"**/vendor/**", "**/node_modules/**"},
	})
	defer func() { _ = ci.Close() }()

	result, err := ci.IndexCodebase(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalFiles)
	assert.Equal(t, 1, ci.Count())
}

func TestChunkIndex_ShouldIndex(t *testing.T) {
	ci, err := New(
		store.NewBruteForceStore(32, ""),
		embed.NewSemanticHashEmbedder(32),
		chunk.NewBlockChunker(),
		Options{
			Include: []string{"**/*.go"},
			Exclude: []string{"**/*.min.js", "**/vendor/**"},
		},
	)
	require.NoError(t, err)
	defer func() { _ = ci.Close() }()

	assert.True(t, ci.ShouldIndex("main.go"))
	assert.True(t, ci.ShouldIndex(filepath.Join("pkg", "util.go")))
	assert.False(t, ci.ShouldIndex("app.min.js"))
	assert.False(t, ci.ShouldIndex("vendor/dep/dep.go"))
	assert.False(t, ci.ShouldIndex("notes.md"))
}

func TestChunkIndex_ReindexReplacesFileChunks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.go")
	writeTree(t, dir, map[string]string{
		"main.go": "func a() {}\n\nfunc b() {}\n\nfunc c() {}\n",
	})

	ci := newTestIndex(t, Options{})
	defer func() { _ = ci.Close() }()

	fr := ci.IndexFile(context.Background(), path)
	require.True(t, fr.Success)
	assert.Equal(t, 3, fr.ChunkCount)

	// Shrink the file: stale chunks and vectors must be gone after reindex.
	require.NoError(t, os.WriteFile(path, []byte("func a() {}\n"), 0o644))
	fr = ci.IndexFile(context.Background(), path)
	require.True(t, fr.Success)
	assert.Equal(t, 1, fr.ChunkCount)
	assert.Equal(t, 1, ci.Count())
	assert.Equal(t, 1, ci.Vectors().Count())
}

func TestChunkIndex_IndexFileFailures(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"photo.xyz": "not indexable\n",
	})

	ci := newTestIndex(t, Options{})
	defer func() { _ = ci.Close() }()

	fr := ci.IndexFile(context.Background(), filepath.Join(dir, "missing.go"))
	assert.False(t, fr.Success)
	assert.Contains(t, fr.Error, "read file")

	fr = ci.IndexFile(context.Background(), filepath.Join(dir, "photo.xyz"))
	assert.False(t, fr.Success)
	assert.Equal(t, "unsupported file type", fr.Error)
}

func TestChunkIndex_RemoveFile(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"main.go": "func a() {}\n",
		"b.go":    "func b() {}\n",
	})

	ci := newTestIndex(t, Options{})
	defer func() { _ = ci.Close() }()

	_, err := ci.IndexCodebase(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, 2, ci.Count())

	require.NoError(t, ci.RemoveFile(filepath.Join(dir, "main.go")))
	assert.Equal(t, 1, ci.Count())
	assert.Equal(t, 1, ci.Vectors().Count())

	// Removing an unknown path is a noop.
	require.NoError(t, ci.RemoveFile(filepath.Join(dir, "ghost.go")))
	assert.Equal(t, 1, ci.Count())
}

func TestChunkIndex_ProgressEvents(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"a.go": "func a() {}\n",
		"b.go": "func b() {}\n",
	})

	ci := newTestIndex(t, Options{})
	defer func() { _ = ci.Close() }()

	var types []EventType
	var found int
	ci.Subscribe(func(ev Event) {
		types = append(types, ev.Type)
		if ev.Type == EventFilesFound {
			found = ev.Files
		}
	})

	_, err := ci.IndexCodebase(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, []EventType{
		EventStart,
		EventFilesFound,
		EventFileProcessed,
		EventFileProcessed,
		EventComplete,
	}, types)
	assert.Equal(t, 2, found)
}

func TestChunkIndex_PersistRoundTrip(t *testing.T) {
	srcDir := t.TempDir()
	indexDir := t.TempDir()
	writeTree(t, srcDir, map[string]string{
		"main.go": "func handleRequest() {\n\treturn\n}\n",
	})

	open := func() *ChunkIndex {
		ci, err := New(
			store.NewBruteForceStore(32, filepath.Join(indexDir, "vectors.json")),
			embed.NewSemanticHashEmbedder(32),
			chunk.NewBlockChunker(),
			Options{IndexPath: indexDir},
		)
		require.NoError(t, err)
		return ci
	}

	ci := open()
	_, err := ci.IndexCodebase(context.Background(), srcDir)
	require.NoError(t, err)
	wantStats := ci.Stats()
	require.NoError(t, ci.Close())

	reopened := open()
	defer func() { _ = reopened.Close() }()
	require.NoError(t, reopened.LoadIndex())

	assert.Equal(t, wantStats.TotalChunks, reopened.Count())
	assert.Equal(t, wantStats.TotalFiles, reopened.Stats().TotalFiles)
	assert.Equal(t, reopened.Count(), reopened.Vectors().Count())

	for _, c := range reopened.Chunks() {
		assert.Equal(t, "handleRequest", c.Metadata.Name)
	}
}

func TestChunkIndex_Stats(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"main.go": "func a() {}\n",
		"app.py":  "def b():\n    pass\n",
	})

	ci := newTestIndex(t, Options{})
	defer func() { _ = ci.Close() }()

	_, err := ci.IndexCodebase(context.Background(), dir)
	require.NoError(t, err)

	stats := ci.Stats()
	assert.Equal(t, 2, stats.TotalChunks)
	assert.Equal(t, 2, stats.TotalFiles)
	assert.Equal(t, 1, stats.Languages["go"])
	assert.Equal(t, 1, stats.Languages["python"])
	assert.Positive(t, stats.TotalTokens)
	assert.False(t, stats.LastUpdated.IsZero())
}

func TestChunkIndex_Clear(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"main.go": "func a() {}\n"})

	ci := newTestIndex(t, Options{})
	defer func() { _ = ci.Close() }()

	_, err := ci.IndexCodebase(context.Background(), dir)
	require.NoError(t, err)
	require.Positive(t, ci.Count())

	require.NoError(t, ci.Clear())
	assert.Zero(t, ci.Count())
	assert.Zero(t, ci.Vectors().Count())
}

func TestChunkIndex_TrainsCorpusEmbedder(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"main.go": "func process() {\n\treturn\n}\n",
	})

	tfidf := embed.NewTFIDFEmbedder(32)
	ci, err := New(
		store.NewBruteForceStore(32, ""),
		embed.NewCachedEmbedder(tfidf, 100),
		chunk.NewBlockChunker(),
		Options{},
	)
	require.NoError(t, err)
	defer func() { _ = ci.Close() }()

	require.Zero(t, tfidf.VocabSize())
	_, err = ci.IndexCodebase(context.Background(), dir)
	require.NoError(t, err)
	assert.Positive(t, tfidf.VocabSize())
}
