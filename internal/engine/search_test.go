package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	guideerr "github.com/Aman-CERP/guidemcp/internal/errors"
)

func TestSearch_Basic(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.Update(context.Background())
	require.NoError(t, err)

	results, err := env.engine.Search(context.Background(), "express ideas in code", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	top := results[0]
	assert.Equal(t, "P.1", top.ID)
	assert.Equal(t, "P", top.Category)
	assert.NotEmpty(t, top.Summary)
	assert.GreaterOrEqual(t, top.Score, float32(0))
	assert.LessOrEqual(t, top.Score, float32(1))
}

func TestSearch_ScoresNonIncreasing(t *testing.T) {
	env := newTestEnv(t)
	writeCorpus(t, env.corpus, corpusThreeRules)
	_, err := env.engine.Update(context.Background())
	require.NoError(t, err)

	results, err := env.engine.Search(context.Background(), "intent", 10)
	require.NoError(t, err)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestSearch_LimitClamped(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.Update(context.Background())
	require.NoError(t, err)

	results, err := env.engine.Search(context.Background(), "code", 100)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(results), env.cfg.Search.MaxLimit)

	// Zero means the default, not zero results.
	results, err = env.engine.Search(context.Background(), "code", 0)
	require.NoError(t, err)
	assert.NotEmpty(t, results)
	assert.LessOrEqual(t, len(results), env.cfg.Search.DefaultLimit)
}

func TestSearch_EmptyQuery(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.Search(context.Background(), "   ", 5)
	require.Error(t, err)
	assert.Equal(t, guideerr.ErrCodeQueryEmpty, guideerr.GetCode(err))
}

func TestSearch_NoGeneration(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.Search(context.Background(), "anything", 5)
	require.Error(t, err)
	assert.Equal(t, guideerr.ErrCodeRepoState, guideerr.GetCode(err))
}

// constantEmbedder maps every text to the same vector, forcing every search
// hit to score identically.
type constantEmbedder struct{}

func (constantEmbedder) Embed(context.Context, string) ([]float32, error) {
	v := make([]float32, 8)
	v[0] = 1
	return v, nil
}

func (c constantEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := c.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (constantEmbedder) Dimensions() int                { return 8 }
func (constantEmbedder) ModelName() string              { return "constant" }
func (constantEmbedder) Available(context.Context) bool { return true }
func (constantEmbedder) Close() error                   { return nil }

func TestSearch_EqualScoresOrderedByID(t *testing.T) {
	env := newTestEnv(t)
	// Document order deliberately differs from ID order.
	writeCorpus(t, env.corpus, `# <a name="s-philosophy"></a>P: Philosophy

### <a name="rp-c"></a>P.3: Third rule

Body three.

### <a name="rp-a"></a>P.1: First rule

Body one.

### <a name="rp-b"></a>P.2: Second rule

Body two.
`)

	e, err := New(env.cfg, env.engine.Family(), constantEmbedder{}, env.syncer, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	_, err = e.Update(context.Background())
	require.NoError(t, err)

	results, err := e.Search(context.Background(), "rule", 10)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// All hits tie, so ordering falls through to the ID comparison.
	assert.Equal(t, results[0].Score, results[1].Score)
	assert.Equal(t, results[1].Score, results[2].Score)
	assert.Equal(t, []string{"P.1", "P.2", "P.3"},
		[]string{results[0].ID, results[1].ID, results[2].ID})
}

func TestSearch_CachedRepeat(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.Update(context.Background())
	require.NoError(t, err)

	first, err := env.engine.Search(context.Background(), "standard", 5)
	require.NoError(t, err)
	second, err := env.engine.Search(context.Background(), "standard", 5)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSearchCacheKey_RevisionBound(t *testing.T) {
	a := searchCacheKey("query", 10, "rev1")
	b := searchCacheKey("query", 10, "rev2")
	c := searchCacheKey("query", 5, "rev1")
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, a, searchCacheKey("query", 10, "rev1"))
}

func TestSummarize(t *testing.T) {
	short := "A short body."
	assert.Equal(t, short, summarize(short, 300))

	long := strings.Repeat("word ", 100)
	got := summarize(long, 50)
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.LessOrEqual(t, len([]rune(got)), 51)
	assert.NotContains(t, got, "  ")

	multi := "First line.\n\nSecond   line with    gaps."
	assert.Equal(t, "First line. Second line with gaps.", summarize(multi, 300))
}

func TestSummarize_WordBoundary(t *testing.T) {
	text := "alpha beta gamma delta"
	got := summarize(text, 12)
	// Cut falls inside "gamma", so the summary ends after "beta".
	assert.Equal(t, "alpha beta…", got)
}
