package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/guidemcp/internal/config"
	"github.com/Aman-CERP/guidemcp/internal/embed"
	guideerr "github.com/Aman-CERP/guidemcp/internal/errors"
	"github.com/Aman-CERP/guidemcp/internal/gitsync"
	"github.com/Aman-CERP/guidemcp/internal/guideline"
	"github.com/Aman-CERP/guidemcp/internal/store"
)

// UpdateResult is the outcome of one update attempt.
type UpdateResult struct {
	// Updated reports whether a new generation was published.
	Updated bool `json:"updated"`

	// Revision is the corpus commit of the active generation.
	Revision string `json:"commit"`

	// GuidelineCount is the record count of the active generation.
	GuidelineCount int `json:"guideline_count"`
}

// Engine serves one corpus family. Reads go lock-free through the active
// generation pointer; updates are serialized by a per-engine mutex plus a
// process file lock on the index directory.
type Engine struct {
	family    config.FamilyConfig
	checkout  string
	indexDir  string
	updateCfg config.UpdateConfig
	searchCfg config.SearchConfig
	batchSize int
	workers   int

	syncer   gitsync.Syncer
	grammar  guideline.Grammar
	embedder embed.Embedder
	logger   *slog.Logger

	records  *store.RecordStore
	fileLock *flock.Flock

	mu     sync.Mutex
	active atomic.Pointer[Generation]

	// Advisory result cache; keys embed the generation revision, so entries
	// from superseded generations become unreachable after a swap.
	searchCache *lru.Cache[string, []SearchResult]
}

// New creates an engine for one family. It opens the family's record store
// but does not load or build a generation; call Start for that.
func New(cfg *config.Config, family config.FamilyConfig, embedder embed.Embedder, syncer gitsync.Syncer, logger *slog.Logger) (*Engine, error) {
	grammar, err := guideline.ForName(family.Grammar)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	indexDir := family.IndexDir(cfg.DataDir)
	records, err := store.OpenRecordStore(filepath.Join(indexDir, "records.db"))
	if err != nil {
		return nil, guideerr.New(guideerr.ErrCodeCorruptIndex,
			fmt.Sprintf("open record store for family %q", family.Key), err)
	}

	e := &Engine{
		family:    family,
		checkout:  family.CheckoutPath(cfg.DataDir),
		indexDir:  indexDir,
		updateCfg: cfg.Update,
		searchCfg: cfg.Search,
		batchSize: cfg.Embeddings.BatchSize,
		workers:   cfg.Embeddings.Workers,
		syncer:    syncer,
		grammar:   grammar,
		embedder:  embedder,
		logger:    logger.With(slog.String("family", family.Key)),
		records:   records,
		fileLock:  flock.New(filepath.Join(indexDir, ".lock")),
	}

	if cfg.Search.CacheSize > 0 {
		e.searchCache, _ = lru.New[string, []SearchResult](cfg.Search.CacheSize)
	}

	return e, nil
}

// Family returns the family configuration the engine serves.
func (e *Engine) Family() config.FamilyConfig {
	return e.family
}

// Start loads the persisted generation, if one exists for the current
// embedding model. Failure to load is not fatal: the engine starts empty
// and the first update builds from scratch.
func (e *Engine) Start(ctx context.Context) error {
	meta, ok, err := e.records.Meta(ctx)
	if err != nil {
		return guideerr.New(guideerr.ErrCodeCorruptIndex, "read build metadata", err)
	}
	if !ok {
		e.logger.Info("no persisted generation, first update will build one")
		return nil
	}
	if meta.Model != e.embedder.ModelName() {
		e.logger.Warn("persisted generation was built with a different model, ignoring",
			slog.String("persisted", meta.Model),
			slog.String("configured", e.embedder.ModelName()))
		return nil
	}

	records, err := e.records.LoadRecords(ctx)
	if err != nil {
		return guideerr.New(guideerr.ErrCodeCorruptIndex, "load persisted records", err)
	}

	vs, err := store.NewHNSWStore(store.VectorStoreConfig{Dimensions: meta.Dimensions})
	if err != nil {
		return guideerr.New(guideerr.ErrCodeCorruptIndex, "create vector store", err)
	}
	if err := vs.Load(e.vectorPath()); err != nil {
		_ = vs.Close()
		return guideerr.New(guideerr.ErrCodeCorruptIndex, "load persisted vector index", err)
	}
	if vs.Count() != len(records) {
		_ = vs.Close()
		return guideerr.New(guideerr.ErrCodeCorruptIndex,
			fmt.Sprintf("vector index holds %d entries for %d records", vs.Count(), len(records)), nil)
	}
	// A vector file from a different build than the record store means a
	// rebuild died between writing the two. Refuse the pair rather than
	// serve records against foreign vectors.
	if vs.Revision() != meta.Revision {
		_ = vs.Close()
		return guideerr.New(guideerr.ErrCodeCorruptIndex,
			fmt.Sprintf("vector index built from revision %s, records from %s",
				shortRevision(vs.Revision()), shortRevision(meta.Revision)), nil)
	}

	gen := newGeneration(meta.Revision, meta.BuiltAt, records, vs)
	e.active.Store(gen)
	e.logger.Info("loaded persisted generation",
		slog.String("revision", shortRevision(meta.Revision)),
		slog.Int("guidelines", gen.Count()))
	return nil
}

// Update runs the full pipeline: sync, parse, embed, publish. When the
// upstream has not moved and a generation is active, it short-circuits
// without parsing or embedding. Any failure leaves the active generation
// untouched.
func (e *Engine) Update(ctx context.Context) (UpdateResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	syncCtx, cancel := context.WithTimeout(ctx, e.updateCfg.SyncTimeout.Std())
	res, err := e.syncer.Sync(syncCtx, e.family.Upstream, e.checkout)
	cancel()
	if err != nil {
		return UpdateResult{}, err
	}

	if !res.Changed {
		if gen := e.active.Load(); gen != nil && gen.Revision == res.Revision {
			e.logger.Info("corpus unchanged",
				slog.String("revision", shortRevision(res.Revision)))
			return UpdateResult{
				Updated:        false,
				Revision:       gen.Revision,
				GuidelineCount: gen.Count(),
			}, nil
		}
		// No usable generation for this revision: rebuild anyway.
	}

	buildCtx, cancelBuild := context.WithTimeout(ctx, e.updateCfg.BuildTimeout.Std())
	defer cancelBuild()
	return e.rebuild(buildCtx, res.Revision)
}

// rebuild parses, embeds, persists, and publishes a new generation.
// Caller holds e.mu.
func (e *Engine) rebuild(ctx context.Context, revision string) (UpdateResult, error) {
	locked, err := e.fileLock.TryLock()
	if err != nil {
		return UpdateResult{}, guideerr.New(guideerr.ErrCodeIndexLocked,
			"acquire index lock", err)
	}
	if !locked {
		return UpdateResult{}, guideerr.New(guideerr.ErrCodeIndexLocked,
			fmt.Sprintf("another process is indexing family %q", e.family.Key), nil)
	}
	defer func() { _ = e.fileLock.Unlock() }()

	started := time.Now()
	e.logger.Info("rebuilding generation",
		slog.String("revision", shortRevision(revision)))

	records, err := e.grammar.Parse(e.checkout)
	if err != nil {
		return UpdateResult{}, err
	}
	if len(records) == 0 {
		return UpdateResult{}, guideerr.ParseError(
			fmt.Sprintf("grammar %q produced no records", e.grammar.Name()), nil)
	}

	vs, err := buildVectorIndex(ctx, e.embedder, records, e.batchSize, e.workers)
	if err != nil {
		return UpdateResult{}, err
	}

	builtAt := time.Now()
	vs.SetRevision(revision)
	if err := vs.Save(e.vectorPath()); err != nil {
		_ = vs.Close()
		return UpdateResult{}, guideerr.New(guideerr.ErrCodeIndexFailed,
			"persist vector index", err)
	}
	meta := store.BuildMeta{
		Revision:   revision,
		BuiltAt:    builtAt,
		Model:      e.embedder.ModelName(),
		Dimensions: e.embedder.Dimensions(),
	}
	if err := e.records.Publish(ctx, records, meta); err != nil {
		_ = vs.Close()
		return UpdateResult{}, guideerr.New(guideerr.ErrCodeIndexFailed,
			"persist records", err)
	}

	gen := newGeneration(revision, builtAt, records, vs)
	e.active.Store(gen)

	e.logger.Info("generation published",
		slog.String("revision", shortRevision(revision)),
		slog.Int("guidelines", gen.Count()),
		slog.Duration("took", time.Since(started)))

	return UpdateResult{
		Updated:        true,
		Revision:       revision,
		GuidelineCount: gen.Count(),
	}, nil
}

// Get returns the record with the given ID from the active generation.
func (e *Engine) Get(id string) (guideline.Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return guideline.Record{}, guideerr.ValidationError("guideline_id must not be empty", nil)
	}

	gen := e.active.Load()
	if gen == nil {
		return guideline.Record{}, e.noGenerationError()
	}

	r, ok := gen.Record(id)
	if !ok {
		return guideline.Record{}, guideerr.NotFoundError(
			fmt.Sprintf("no guideline with id %q", id))
	}
	return r, nil
}

// ListCategory returns category metadata and its members sorted by ID.
// Unknown keys are an error, not an empty listing: the category set derives
// from existing records, so "known but empty" cannot occur.
func (e *Engine) ListCategory(key string) (guideline.Category, []GuidelineRef, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return guideline.Category{}, nil, guideerr.ValidationError("category must not be empty", nil)
	}

	gen := e.active.Load()
	if gen == nil {
		return guideline.Category{}, nil, e.noGenerationError()
	}

	cat, refs, ok := gen.Category(key)
	if !ok {
		return guideline.Category{}, nil, guideerr.NotFoundError(
			fmt.Sprintf("no category %q", key)).
			WithDetail("known_categories", strings.Join(gen.CategoryKeys(), ", "))
	}
	return cat, refs, nil
}

// Close releases the engine's resources. The active generation stays
// readable by holders of the pointer until they drop it.
func (e *Engine) Close() error {
	return e.records.Close()
}

func (e *Engine) vectorPath() string {
	return filepath.Join(e.indexDir, "vectors.hnsw")
}

func (e *Engine) noGenerationError() *guideerr.GuideError {
	return guideerr.New(guideerr.ErrCodeRepoState,
		fmt.Sprintf("no guideline index for family %q yet, run update_guidelines", e.family.Key), nil)
}

func shortRevision(rev string) string {
	if len(rev) > 8 {
		return rev[:8]
	}
	return rev
}
