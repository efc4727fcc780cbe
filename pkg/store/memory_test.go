package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kheld/ragdex/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNodes() []models.Node {
	return []models.Node{
		{ID: "n1", DocID: "d1", Source: "a.txt", Text: "cats and kittens", Index: 0, Embedding: []float32{1, 0, 0}},
		{ID: "n2", DocID: "d1", Source: "a.txt", Text: "dogs and puppies", Index: 1, Embedding: []float32{0, 1, 0}},
		{ID: "n3", DocID: "d2", Source: "b.txt", Text: "cats mostly", Index: 0, Embedding: []float32{0.9, 0.1, 0}},
	}
}

func TestMemoryStoreQueryRanking(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Add(ctx, testNodes()))

	results, err := s.Query(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "n1", results[0].ID)
	assert.Equal(t, "n3", results[1].ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestMemoryStoreTopKBounds(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Add(ctx, testNodes()))

	results, err := s.Query(ctx, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestMemoryStoreRejectsMissingEmbedding(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	err := s.Add(ctx, []models.Node{{ID: "bad", Text: "no vector"}})
	assert.Error(t, err)
}

func TestMemoryStoreDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Add(ctx, testNodes()))

	_, err := s.Query(ctx, []float32{1, 0}, 1)
	assert.Error(t, err)
}

func TestMemoryStoreDeleteByDoc(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Add(ctx, testNodes()))

	require.NoError(t, s.DeleteByDoc(ctx, "d1"))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	results, err := s.Query(ctx, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "n3", results[0].ID)
}

func TestMemoryStorePersistRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.json")

	s := NewMemoryStore()
	require.NoError(t, s.Add(ctx, testNodes()))
	require.NoError(t, s.Persist(path))

	reopened, err := OpenMemoryStore(path)
	require.NoError(t, err)

	count, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	results, err := reopened.Query(ctx, []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "n2", results[0].ID)
	assert.Equal(t, "dogs and puppies", results[0].Text)
}

func TestOpenMemoryStoreMissingFile(t *testing.T) {
	_, err := OpenMemoryStore("/nonexistent/index.json")
	assert.Error(t, err)
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float32
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cosineSimilarity(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, got, 1e-6)
		})
	}
}
