package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lexerrors "github.com/Aman-CERP/lexmind/internal/errors"
)

var planeVectors = [][]float32{
	{1, 0, 0},
	{0, 1, 0},
	{1, 1, 0},
	{0, 0, 0}, // failed embedding
	{-1, 0, 0},
}

func TestFlatIndex_SearchOrdersByCosine(t *testing.T) {
	// Given: vectors around the x axis
	idx := NewFlatIndex(3)
	require.NoError(t, idx.Add(context.Background(), planeVectors))

	// When: searching along x
	hits, err := idx.Search(context.Background(), []float32{2, 0, 0}, 5)
	require.NoError(t, err)

	// Then: exact cosine, descending; tie at 0 broken by position
	require.Len(t, hits, 5)
	assert.Equal(t, 0, hits[0].Position)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Equal(t, 2, hits[1].Position)
	assert.InDelta(t, 0.7071, hits[1].Score, 1e-4)
	assert.Equal(t, 1, hits[2].Position)
	assert.Equal(t, 3, hits[3].Position)
	assert.Equal(t, 0.0, hits[3].Score)
	assert.Equal(t, 4, hits[4].Position)
	assert.InDelta(t, -1.0, hits[4].Score, 1e-6)
}

func TestFlatIndex_KBounds(t *testing.T) {
	idx := NewFlatIndex(3)
	require.NoError(t, idx.Add(context.Background(), planeVectors))

	hits, err := idx.Search(context.Background(), []float32{1, 0, 0}, 50)
	require.NoError(t, err)
	assert.Len(t, hits, len(planeVectors))

	hits, err = idx.Search(context.Background(), []float32{1, 0, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestFlatIndex_Empty(t *testing.T) {
	idx := NewFlatIndex(3)
	hits, err := idx.Search(context.Background(), []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestFlatIndex_DimensionMismatch(t *testing.T) {
	idx := NewFlatIndex(3)

	err := idx.Add(context.Background(), [][]float32{{1, 2}})
	require.Error(t, err)
	assert.Equal(t, lexerrors.ErrCodeDimensionMismatch, lexerrors.GetCode(err))

	_, err = idx.Search(context.Background(), []float32{1}, 1)
	assert.ErrorIs(t, err, lexerrors.ErrDimensionMismatch)
}

func TestHNSWIndex_FindsNearest(t *testing.T) {
	idx := NewHNSWIndex(HNSWConfig{Dimensions: 3})
	require.NoError(t, idx.Add(context.Background(), planeVectors))

	hits, err := idx.Search(context.Background(), []float32{0, 1, 0.1}, 2)
	require.NoError(t, err)

	require.NotEmpty(t, hits)
	assert.Equal(t, 1, hits[0].Position)
	assert.Equal(t, 5, idx.Len())
	for _, h := range hits {
		assert.NotEqual(t, 3, h.Position, "zero vectors are never graph candidates")
	}
}

func TestHNSWIndex_ZeroQuery(t *testing.T) {
	idx := NewHNSWIndex(HNSWConfig{Dimensions: 3})
	require.NoError(t, idx.Add(context.Background(), planeVectors))

	hits, err := idx.Search(context.Background(), []float32{0, 0, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestNewVectorIndex(t *testing.T) {
	flat, err := NewVectorIndex("", 8)
	require.NoError(t, err)
	assert.IsType(t, &FlatIndex{}, flat)

	h, err := NewVectorIndex(DenseBackendHNSW, 8)
	require.NoError(t, err)
	assert.Equal(t, 8, h.Dimensions())

	_, err = NewVectorIndex("faiss", 8)
	assert.Error(t, err)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 0}))
	assert.Equal(t, 0.0, Cosine([]float32{1}, []float32{1, 0}))
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-3, 0}), 1e-9)
}
