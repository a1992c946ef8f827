package mcp

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/guidemcp/internal/config"
	"github.com/Aman-CERP/guidemcp/internal/embed"
	"github.com/Aman-CERP/guidemcp/internal/engine"
	"github.com/Aman-CERP/guidemcp/internal/gitsync"
)

type fakeSyncer struct {
	mu       sync.Mutex
	revision string
	changed  bool
}

func (f *fakeSyncer) Sync(_ context.Context, _, _ string) (gitsync.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return gitsync.Result{Revision: f.revision, Changed: f.changed}, nil
}

const testCorpus = `# <a name="s-philosophy"></a>P: Philosophy

### <a name="rp-direct"></a>P.1: Express ideas directly in code

Compilers don't read comments.

### <a name="rp-what"></a>P.2: Write in ISO Standard C++

Portability matters.
`

func newTestServer(t *testing.T) *Server {
	t.Helper()

	corpus := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(corpus, "CppCoreGuidelines.md"), []byte(testCorpus), 0o644))

	cfg := config.Default()
	cfg.DataDir = t.TempDir()

	family := config.FamilyConfig{
		Key:      "cpp",
		Name:     "C++ Core Guidelines",
		Upstream: "https://example.com/corpus.git",
		Grammar:  config.GrammarCppCore,
		Checkout: corpus,
	}

	eng, err := engine.New(cfg, family,
		embed.NewStaticEmbedder(),
		&fakeSyncer{revision: "rev1", changed: true}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	s, err := NewServer(eng, nil)
	require.NoError(t, err)
	return s
}

func TestUpdateHandler(t *testing.T) {
	s := newTestServer(t)

	_, out, err := s.updateHandler(context.Background(), nil, UpdateInput{})
	require.NoError(t, err)
	assert.True(t, out.Updated)
	assert.Equal(t, "rev1", out.Revision)
	assert.Equal(t, 2, out.GuidelineCount)
}

func TestSearchHandler(t *testing.T) {
	s := newTestServer(t)
	_, _, err := s.updateHandler(context.Background(), nil, UpdateInput{})
	require.NoError(t, err)

	_, out, err := s.searchHandler(context.Background(), nil,
		SearchInput{Query: "express ideas", Limit: 5})
	require.NoError(t, err)
	require.NotEmpty(t, out.Results)
	assert.LessOrEqual(t, len(out.Results), 5)
	assert.NotEmpty(t, out.Results[0].Summary)
}

func TestSearchHandler_EmptyQuery(t *testing.T) {
	s := newTestServer(t)

	_, _, err := s.searchHandler(context.Background(), nil, SearchInput{Query: "  "})
	require.Error(t, err)
	var me *MCPError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, ErrCodeInvalidParams, me.Code)
}

func TestGetHandler(t *testing.T) {
	s := newTestServer(t)
	_, _, err := s.updateHandler(context.Background(), nil, UpdateInput{})
	require.NoError(t, err)

	_, out, err := s.getHandler(context.Background(), nil, GetInput{GuidelineID: "P.1"})
	require.NoError(t, err)
	assert.Equal(t, "P.1", out.ID)
	assert.Equal(t, "rp-direct", out.Anchor)
	assert.Equal(t, "P", out.Category)
	assert.Contains(t, out.RawMarkdown, out.Title)
}

func TestGetHandler_NotFound(t *testing.T) {
	s := newTestServer(t)
	_, _, err := s.updateHandler(context.Background(), nil, UpdateInput{})
	require.NoError(t, err)

	_, _, err = s.getHandler(context.Background(), nil, GetInput{GuidelineID: "P.99"})
	require.Error(t, err)
	var me *MCPError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, ErrCodeNotFound, me.Code)
}

func TestGetHandler_MissingID(t *testing.T) {
	s := newTestServer(t)

	_, _, err := s.getHandler(context.Background(), nil, GetInput{})
	require.Error(t, err)
	var me *MCPError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, ErrCodeInvalidParams, me.Code)
}

func TestListCategoryHandler(t *testing.T) {
	s := newTestServer(t)
	_, _, err := s.updateHandler(context.Background(), nil, UpdateInput{})
	require.NoError(t, err)

	_, out, err := s.listCategoryHandler(context.Background(), nil,
		ListCategoryInput{Category: "P"})
	require.NoError(t, err)
	assert.Equal(t, "P", out.Category.Key)
	assert.Equal(t, "Philosophy", out.Category.DisplayName)
	assert.Equal(t, 2, out.Category.GuidelineCount)
	assert.Len(t, out.Guidelines, out.Category.GuidelineCount)
}

func TestListCategoryHandler_Unknown(t *testing.T) {
	s := newTestServer(t)
	_, _, err := s.updateHandler(context.Background(), nil, UpdateInput{})
	require.NoError(t, err)

	_, _, err = s.listCategoryHandler(context.Background(), nil,
		ListCategoryInput{Category: "ZZ"})
	require.Error(t, err)
	var me *MCPError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, ErrCodeNotFound, me.Code)
}

func TestSearchHandler_BeforeFirstUpdate(t *testing.T) {
	s := newTestServer(t)

	_, _, err := s.searchHandler(context.Background(), nil, SearchInput{Query: "code"})
	require.Error(t, err)
	var me *MCPError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, ErrCodeUpdateFailed, me.Code)
}
