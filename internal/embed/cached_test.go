package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedEmbedder_EmbedHitsCache(t *testing.T) {
	inner := &countingEmbedder{}
	c := NewCachedEmbedder(inner, 8)
	ctx := context.Background()

	first, err := c.Embed(ctx, "Zession")
	require.NoError(t, err)
	second, err := c.Embed(ctx, "Zession")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedEmbedder_BatchSendsOnlyMisses(t *testing.T) {
	inner := &countingEmbedder{}
	c := NewCachedEmbedder(inner, 8)
	ctx := context.Background()

	_, err := c.Embed(ctx, "Zession")
	require.NoError(t, err)

	vecs, err := c.EmbedBatch(ctx, []string{"Zession", "Abtretung", "Notar"})
	require.NoError(t, err)

	require.Len(t, vecs, 3)
	assert.Equal(t, float32(len("Abtretung")), vecs[1][0])
	assert.Equal(t, 3, inner.texts, "one single call plus two misses")
}

func TestCachedEmbedder_ErrorsAreNotCached(t *testing.T) {
	inner := &countingEmbedder{failBatch: true}
	c := NewCachedEmbedder(inner, 8)

	_, err := c.Embed(context.Background(), "x")
	require.Error(t, err)

	inner.failBatch = false
	_, err = c.Embed(context.Background(), "x")
	require.NoError(t, err)
}

func TestCachedEmbedder_Passthrough(t *testing.T) {
	inner := &countingEmbedder{}
	c := NewCachedEmbedder(inner, 0)
	assert.Equal(t, 3, c.Dimensions())
	assert.Equal(t, "counting", c.ModelName())
	assert.Same(t, inner, c.Inner())
}
