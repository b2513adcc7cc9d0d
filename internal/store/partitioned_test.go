package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionedStore_LazyPartitionCreation(t *testing.T) {
	s := NewPartitionedStore(2, "language", "")
	defer func() { _ = s.Close() }()

	assert.Zero(t, s.PartitionCount())

	require.NoError(t, s.Add(entry("a", []float32{1, 0}, map[string]string{"language": "go"})))
	require.NoError(t, s.Add(entry("b", []float32{0, 1}, map[string]string{"language": "python"})))
	require.NoError(t, s.Add(entry("c", []float32{1, 1}, nil)))

	assert.Equal(t, 3, s.PartitionCount())
	assert.Equal(t, 3, s.Count())
}

func TestPartitionedStore_PinnedSearchTargetsOnePartition(t *testing.T) {
	s := NewPartitionedStore(2, "language", "")
	defer func() { _ = s.Close() }()

	require.NoError(t, s.AddBatch([]VectorEntry{
		entry("go1", []float32{1, 0}, map[string]string{"language": "go"}),
		entry("py1", []float32{1, 0}, map[string]string{"language": "python"}),
	}))

	results, err := s.Search([]float32{1, 0}, 10, Filter{"language": "go"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "go1", results[0].ID)

	// Unknown partition value: empty results, not an error.
	results, err = s.Search([]float32{1, 0}, 10, Filter{"language": "rust"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestPartitionedStore_FanOutMergesAndSorts(t *testing.T) {
	s := NewPartitionedStore(2, "language", "")
	defer func() { _ = s.Close() }()

	require.NoError(t, s.AddBatch([]VectorEntry{
		entry("far", []float32{0, 1}, map[string]string{"language": "go"}),
		entry("close", []float32{1, 0}, map[string]string{"language": "python"}),
		entry("mid", []float32{0.7, 0.3}, map[string]string{"language": "ruby"}),
	}))

	results, err := s.Search([]float32{1, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "close", results[0].ID)
	assert.Equal(t, "mid", results[1].ID)
}

func TestPartitionedStore_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	s := NewPartitionedStore(2, "language", dir)
	require.NoError(t, s.AddBatch([]VectorEntry{
		entry("go1", []float32{1, 0}, map[string]string{"language": "go"}),
		entry("py1", []float32{0, 1}, map[string]string{"language": "python"}),
	}))
	require.NoError(t, s.Save())
	require.NoError(t, s.Close())

	reopened := NewPartitionedStore(2, "language", dir)
	defer func() { _ = reopened.Close() }()
	require.NoError(t, reopened.Load())
	assert.Equal(t, 2, reopened.Count())
	assert.Equal(t, 2, reopened.PartitionCount())
}

func TestPartitionedStore_ClearRemovesPartitions(t *testing.T) {
	s := NewPartitionedStore(2, "language", "")
	defer func() { _ = s.Close() }()

	require.NoError(t, s.Add(entry("a", []float32{1, 0}, map[string]string{"language": "go"})))
	require.NoError(t, s.Clear())
	assert.Zero(t, s.Count())
	assert.Zero(t, s.PartitionCount())
}
