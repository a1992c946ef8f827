package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder wraps StaticEmbedder and counts backend calls.
type countingEmbedder struct {
	*StaticEmbedder
	embedCalls int
	batchCalls int
	batchTexts []string
}

func newCountingEmbedder() *countingEmbedder {
	return &countingEmbedder{StaticEmbedder: NewStaticEmbedder()}
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.embedCalls++
	return c.StaticEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.batchCalls++
	c.batchTexts = append([]string(nil), texts...)
	return c.StaticEmbedder.EmbedBatch(ctx, texts)
}

func TestCachedEmbedder_RepeatHitsCache(t *testing.T) {
	inner := newCountingEmbedder()
	c := NewCachedEmbedder(inner, 16)

	first, err := c.Embed(context.Background(), "prefer composition over inheritance")
	require.NoError(t, err)
	second, err := c.Embed(context.Background(), "prefer composition over inheritance")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.embedCalls)
}

func TestCachedEmbedder_BatchOnlyMissesReachBackend(t *testing.T) {
	inner := newCountingEmbedder()
	c := NewCachedEmbedder(inner, 16)

	_, err := c.Embed(context.Background(), "alpha")
	require.NoError(t, err)

	vecs, err := c.EmbedBatch(context.Background(), []string{"alpha", "beta", "gamma"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	assert.Equal(t, 1, inner.batchCalls)
	assert.Equal(t, []string{"beta", "gamma"}, inner.batchTexts)
}

func TestCachedEmbedder_AllCachedSkipsBackend(t *testing.T) {
	inner := newCountingEmbedder()
	c := NewCachedEmbedder(inner, 16)

	_, err := c.EmbedBatch(context.Background(), []string{"one", "two"})
	require.NoError(t, err)
	_, err = c.EmbedBatch(context.Background(), []string{"one", "two"})
	require.NoError(t, err)

	assert.Equal(t, 1, inner.batchCalls)
}

func TestCachedEmbedder_Eviction(t *testing.T) {
	inner := newCountingEmbedder()
	c := NewCachedEmbedder(inner, 1)

	_, err := c.Embed(context.Background(), "first")
	require.NoError(t, err)
	_, err = c.Embed(context.Background(), "second")
	require.NoError(t, err)
	// "first" was evicted by "second".
	_, err = c.Embed(context.Background(), "first")
	require.NoError(t, err)

	assert.Equal(t, 3, inner.embedCalls)
}

func TestCachedEmbedder_Passthrough(t *testing.T) {
	inner := newCountingEmbedder()
	c := NewCachedEmbedder(inner, 0)

	assert.Equal(t, StaticDimensions, c.Dimensions())
	assert.Equal(t, "static", c.ModelName())
	assert.True(t, c.Available(context.Background()))
	require.NoError(t, c.Close())
	assert.False(t, c.Available(context.Background()))
}
