package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookrag/internal/domain"
)

func passage(id string, vec ...float64) domain.Passage {
	return domain.Passage{ID: id, Content: "passage " + id, Embedding: vec}
}

func TestInitRejectsInvalidDimension(t *testing.T) {
	s := NewStore()
	assert.Error(t, s.Init(0))
	assert.Error(t, s.Init(-3))
	assert.NoError(t, s.Init(2))
}

func TestUpsertRejectsDimensionMismatch(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Init(2))
	err := s.Upsert([]domain.Passage{passage("a", 1, 0, 0)})
	assert.Error(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestSearchOrdersByDescendingSimilarity(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Init(2))
	require.NoError(t, s.Upsert([]domain.Passage{
		passage("far", 0, 1),
		passage("near", 1, 0),
		passage("mid", 1, 1),
	}))

	results, err := s.Search(context.Background(), []float64{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "near", results[0].Passage.ID)
	assert.Equal(t, "mid", results[1].Passage.ID)
	assert.Equal(t, "far", results[2].Passage.ID)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
	assert.GreaterOrEqual(t, results[1].Score, results[2].Score)
}

func TestSearchTiesKeepInsertionOrder(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Init(2))
	require.NoError(t, s.Upsert([]domain.Passage{
		passage("first", 1, 0),
		passage("second", 1, 0),
		passage("third", 1, 0),
	}))

	results, err := s.Search(context.Background(), []float64{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "first", results[0].Passage.ID)
	assert.Equal(t, "second", results[1].Passage.ID)
	assert.Equal(t, "third", results[2].Passage.ID)
}

func TestSearchCapsAtTopK(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Init(2))
	require.NoError(t, s.Upsert([]domain.Passage{
		passage("a", 1, 0),
		passage("b", 0, 1),
		passage("c", 1, 1),
	}))

	results, err := s.Search(context.Background(), []float64{1, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearchEmptyStoreReturnsEmpty(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Init(2))
	results, err := s.Search(context.Background(), []float64{1, 0}, 4)
	require.NoError(t, err)
	assert.Empty(t, results)
}
