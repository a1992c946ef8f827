package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/guidemcp/internal/config"
	"github.com/Aman-CERP/guidemcp/internal/embed"
	guideerr "github.com/Aman-CERP/guidemcp/internal/errors"
	"github.com/Aman-CERP/guidemcp/internal/gitsync"
	"github.com/Aman-CERP/guidemcp/internal/store"
)

// scriptedSyncer returns a fixed sync result; the corpus files themselves
// are written directly by the tests.
type scriptedSyncer struct {
	mu       sync.Mutex
	revision string
	changed  bool
	err      error
	calls    int
}

func (s *scriptedSyncer) Sync(_ context.Context, _, _ string) (gitsync.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return gitsync.Result{}, s.err
	}
	return gitsync.Result{Revision: s.revision, Changed: s.changed}, nil
}

func (s *scriptedSyncer) set(revision string, changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revision = revision
	s.changed = changed
}

const corpusTwoRules = `# <a name="s-philosophy"></a>P: Philosophy

### <a name="rp-direct"></a>P.1: Express ideas directly in code

Compilers don't read comments. Code should say what it means.

### <a name="rp-what"></a>P.2: Write in ISO Standard C++

Portability matters for long-lived guideline corpora.
`

const corpusThreeRules = corpusTwoRules + `
### <a name="rp-early"></a>P.3: Express intent

State intent explicitly so maintainers and tools can check it.
`

type testEnv struct {
	engine *Engine
	syncer *scriptedSyncer
	corpus string
	cfg    *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dataDir := t.TempDir()
	corpus := t.TempDir()
	writeCorpus(t, corpus, corpusTwoRules)

	cfg := config.Default()
	cfg.DataDir = dataDir
	cfg.Embeddings.BatchSize = 2
	cfg.Embeddings.Workers = 2

	family := config.FamilyConfig{
		Key:      "cpp",
		Name:     "C++ Core Guidelines",
		Upstream: "https://example.com/corpus.git",
		Grammar:  config.GrammarCppCore,
		Checkout: corpus,
	}

	syncer := &scriptedSyncer{revision: "rev1", changed: true}
	embedder := embed.NewCachedEmbedder(embed.NewStaticEmbedder(), 64)

	e, err := New(cfg, family, embedder, syncer, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	return &testEnv{engine: e, syncer: syncer, corpus: corpus, cfg: cfg}
}

func writeCorpus(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "CppCoreGuidelines.md"), []byte(content), 0o644))
}

func TestUpdate_FreshBuild(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.engine.Update(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Updated)
	assert.Equal(t, "rev1", res.Revision)
	assert.Equal(t, 2, res.GuidelineCount)

	rec, err := env.engine.Get("P.1")
	require.NoError(t, err)
	assert.Equal(t, "Express ideas directly in code", rec.Title)
	assert.NotEmpty(t, rec.Anchor)
	assert.Contains(t, rec.RawMarkdown, rec.Title)
}

func TestUpdate_IdempotentWhenUnchanged(t *testing.T) {
	env := newTestEnv(t)

	first, err := env.engine.Update(context.Background())
	require.NoError(t, err)

	env.syncer.set("rev1", false)
	second, err := env.engine.Update(context.Background())
	require.NoError(t, err)

	assert.False(t, second.Updated)
	assert.Equal(t, first.Revision, second.Revision)
	assert.Equal(t, first.GuidelineCount, second.GuidelineCount)
}

func TestUpdate_UnchangedWithoutGenerationStillBuilds(t *testing.T) {
	env := newTestEnv(t)
	env.syncer.set("rev1", false)

	res, err := env.engine.Update(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Updated)
	assert.Equal(t, 2, res.GuidelineCount)
}

func TestUpdate_AddAndRemoveAcrossGenerations(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.Update(context.Background())
	require.NoError(t, err)

	// Upstream adds P.3.
	writeCorpus(t, env.corpus, corpusThreeRules)
	env.syncer.set("rev2", true)

	res, err := env.engine.Update(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Updated)
	assert.Equal(t, 3, res.GuidelineCount)

	_, err = env.engine.Get("P.3")
	require.NoError(t, err)

	// Upstream removes P.2 and P.3 again.
	writeCorpus(t, env.corpus, `### <a name="rp-direct"></a>P.1: Express ideas directly in code

Only rule left.
`)
	env.syncer.set("rev3", true)

	res, err = env.engine.Update(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.GuidelineCount)

	_, err = env.engine.Get("P.2")
	require.Error(t, err)
	assert.True(t, guideerr.IsNotFound(err))

	results, err := env.engine.Search(context.Background(), "standard", 10)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "P.2", r.ID, "removed guideline must not surface in search")
	}
}

func TestUpdate_ParseFailureKeepsActiveGeneration(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.Update(context.Background())
	require.NoError(t, err)

	// Upstream breaks: duplicate IDs reject the whole rebuild.
	writeCorpus(t, env.corpus, `### <a name="a"></a>P.1: First

Body.

### <a name="b"></a>P.1: Duplicate

Body.
`)
	env.syncer.set("rev2", true)

	_, err = env.engine.Update(context.Background())
	require.Error(t, err)
	assert.Equal(t, guideerr.ErrCodeParseFailed, guideerr.GetCode(err))

	// Old generation still serves.
	rec, err := env.engine.Get("P.2")
	require.NoError(t, err)
	assert.Equal(t, "Write in ISO Standard C++", rec.Title)
}

func TestUpdate_SyncFailurePropagates(t *testing.T) {
	env := newTestEnv(t)
	env.syncer.err = guideerr.NetworkError("could not resolve host", nil)

	_, err := env.engine.Update(context.Background())
	require.Error(t, err)
	assert.True(t, guideerr.IsRetryable(err))
}

func TestGet_BeforeAnyGeneration(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.Get("P.1")
	require.Error(t, err)
	assert.Equal(t, guideerr.ErrCodeRepoState, guideerr.GetCode(err))
}

func TestGet_EmptyID(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.Get("  ")
	require.Error(t, err)
	assert.Equal(t, guideerr.ErrCodeInvalidInput, guideerr.GetCode(err))
}

func TestListCategory(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.Update(context.Background())
	require.NoError(t, err)

	cat, refs, err := env.engine.ListCategory("P")
	require.NoError(t, err)
	assert.Equal(t, "P", cat.Key)
	assert.Equal(t, "Philosophy", cat.DisplayName)
	assert.Equal(t, 2, cat.GuidelineCount)
	require.Len(t, refs, cat.GuidelineCount)
	assert.Equal(t, "P.1", refs[0].ID)
	assert.Equal(t, "P.2", refs[1].ID)
}

func TestListCategory_UnknownKey(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.Update(context.Background())
	require.NoError(t, err)

	_, _, err = env.engine.ListCategory("ZZ")
	require.Error(t, err)
	assert.True(t, guideerr.IsNotFound(err))
}

func TestListCategory_CountMatchesMembers(t *testing.T) {
	env := newTestEnv(t)
	writeCorpus(t, env.corpus, corpusThreeRules)
	_, err := env.engine.Update(context.Background())
	require.NoError(t, err)

	cat, refs, err := env.engine.ListCategory("P")
	require.NoError(t, err)
	assert.Equal(t, len(refs), cat.GuidelineCount)
	assert.Equal(t, 3, cat.GuidelineCount)
}

func TestStart_LoadsPersistedGeneration(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.Update(context.Background())
	require.NoError(t, err)
	require.NoError(t, env.engine.Close())

	// A fresh engine over the same data dir serves without an update.
	embedder := embed.NewCachedEmbedder(embed.NewStaticEmbedder(), 64)
	restarted, err := New(env.cfg, env.engine.Family(), embedder, env.syncer, nil)
	require.NoError(t, err)
	defer func() { _ = restarted.Close() }()

	require.NoError(t, restarted.Start(context.Background()))

	rec, err := restarted.Get("P.1")
	require.NoError(t, err)
	assert.Equal(t, "Express ideas directly in code", rec.Title)

	results, err := restarted.Search(context.Background(), "express ideas", 5)
	require.NoError(t, err)
	assert.NotEmpty(t, results)
	// Sync was never invoked by Start.
	assert.Equal(t, 1, env.syncer.calls)
}

func TestStart_RefusesVectorsFromAnotherBuild(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.Update(context.Background())
	require.NoError(t, err)
	require.NoError(t, env.engine.Close())

	// Simulate a rebuild that died after writing the vector index but
	// before publishing the matching records: same IDs, same count, but
	// vectors embedded from different text under a different revision.
	embedder := embed.NewStaticEmbedder()
	vs, err := store.NewHNSWStore(store.VectorStoreConfig{Dimensions: embedder.Dimensions()})
	require.NoError(t, err)
	defer func() { _ = vs.Close() }()

	for i, id := range []string{"P.1", "P.2"} {
		vec, err := embedder.Embed(context.Background(),
			fmt.Sprintf("unrelated corpus text %d", i))
		require.NoError(t, err)
		require.NoError(t, vs.Add(context.Background(), []string{id}, [][]float32{vec}))
	}
	vs.SetRevision("rev2")
	indexDir := env.engine.Family().IndexDir(env.cfg.DataDir)
	require.NoError(t, vs.Save(filepath.Join(indexDir, "vectors.hnsw")))

	restarted, err := New(env.cfg, env.engine.Family(),
		embed.NewCachedEmbedder(embed.NewStaticEmbedder(), 64), env.syncer, nil)
	require.NoError(t, err)
	defer func() { _ = restarted.Close() }()

	err = restarted.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, guideerr.ErrCodeCorruptIndex, guideerr.GetCode(err))

	// The mismatched pair must not serve; the next update rebuilds.
	_, err = restarted.Get("P.1")
	require.Error(t, err)
}

func TestStart_NoPersistedState(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.engine.Start(context.Background()))

	_, err := env.engine.Get("P.1")
	require.Error(t, err)
}

func TestConcurrentReadsDuringUpdate(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.Update(context.Background())
	require.NoError(t, err)

	writeCorpus(t, env.corpus, corpusThreeRules)
	env.syncer.set("rev2", true)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				cat, refs, err := env.engine.ListCategory("P")
				if err != nil {
					t.Errorf("read during update failed: %v", err)
					return
				}
				// A reader sees a whole generation: the count always
				// matches the member list it was returned with.
				if cat.GuidelineCount != len(refs) {
					t.Errorf("torn read: count %d, members %d",
						cat.GuidelineCount, len(refs))
					return
				}
				if cat.GuidelineCount != 2 && cat.GuidelineCount != 3 {
					t.Errorf("unexpected guideline count %d", cat.GuidelineCount)
					return
				}
			}
		}()
	}

	_, err = env.engine.Update(context.Background())
	close(stop)
	wg.Wait()
	require.NoError(t, err)

	cat, _, err := env.engine.ListCategory("P")
	require.NoError(t, err)
	assert.Equal(t, 3, cat.GuidelineCount)
}

func TestUpdate_ContextDeadline(t *testing.T) {
	env := newTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The scripted syncer ignores the context, so force a slow path by
	// asserting only that a canceled build surfaces as an error and leaves
	// no generation behind.
	env.cfg.Update.BuildTimeout = config.Duration(time.Nanosecond)
	e2, err := New(env.cfg, env.engine.Family(),
		embed.NewStaticEmbedder(), env.syncer, nil)
	require.NoError(t, err)
	defer func() { _ = e2.Close() }()

	_, err = e2.Update(ctx)
	if err == nil {
		t.Skip("build completed before the deadline fired")
	}
	_, getErr := e2.Get("P.1")
	assert.Error(t, getErr, "failed update must not publish a generation")
}
