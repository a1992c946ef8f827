package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver (no CGO)

	"github.com/Aman-CERP/guidemcp/internal/guideline"
)

// RecordStore persists guideline records and build metadata for one family
// in a SQLite database. It lets a restart serve the last good build without
// re-parsing or re-embedding the corpus.
type RecordStore struct {
	db   *sql.DB
	path string
}

// BuildMeta describes the build a record set belongs to.
type BuildMeta struct {
	// Revision is the corpus commit hash the build was made from.
	Revision string

	// BuiltAt is when the build was published.
	BuiltAt time.Time

	// GuidelineCount is the number of records in the build.
	GuidelineCount int

	// Model is the embedding model the vectors were computed with.
	Model string

	// Dimensions is the embedding dimension of the vector index.
	Dimensions int
}

// OpenRecordStore opens (or creates) the record database at path.
func OpenRecordStore(path string) (*RecordStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single writer; the engine serializes publishes anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// WAL must be set via PRAGMA, modernc.org/sqlite ignores DSN params.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	s := &RecordStore{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *RecordStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS guidelines (
		id            TEXT PRIMARY KEY,
		title         TEXT NOT NULL,
		category_key  TEXT NOT NULL,
		category_name TEXT NOT NULL,
		anchor        TEXT NOT NULL,
		source_file   TEXT NOT NULL,
		raw_markdown  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_guidelines_category ON guidelines(category_key);

	CREATE TABLE IF NOT EXISTS meta (
		id              INTEGER PRIMARY KEY CHECK (id = 1),
		revision        TEXT NOT NULL,
		built_at        TEXT NOT NULL,
		guideline_count INTEGER NOT NULL,
		model           TEXT NOT NULL,
		dimensions      INTEGER NOT NULL
	);`
	_, err := s.db.Exec(schema)
	return err
}

// Publish replaces the stored record set and metadata in one transaction.
// Readers either see the previous build or the new one, never a mix.
func (s *RecordStore) Publish(ctx context.Context, records []guideline.Record, meta BuildMeta) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin publish: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM guidelines"); err != nil {
		return fmt.Errorf("clear guidelines: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO guidelines (id, title, category_key, category_name, anchor, source_file, raw_markdown)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.Title, r.CategoryKey, r.CategoryName,
			r.Anchor, r.SourceFile, r.RawMarkdown); err != nil {
			return fmt.Errorf("insert guideline %s: %w", r.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO meta (id, revision, built_at, guideline_count, model, dimensions)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			revision = excluded.revision,
			built_at = excluded.built_at,
			guideline_count = excluded.guideline_count,
			model = excluded.model,
			dimensions = excluded.dimensions`,
		meta.Revision, meta.BuiltAt.UTC().Format(time.RFC3339),
		len(records), meta.Model, meta.Dimensions); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}

	return tx.Commit()
}

// LoadRecords returns all stored records ordered by ID.
func (s *RecordStore) LoadRecords(ctx context.Context) ([]guideline.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, category_key, category_name, anchor, source_file, raw_markdown
		FROM guidelines ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query guidelines: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []guideline.Record
	for rows.Next() {
		var r guideline.Record
		if err := rows.Scan(&r.ID, &r.Title, &r.CategoryKey, &r.CategoryName,
			&r.Anchor, &r.SourceFile, &r.RawMarkdown); err != nil {
			return nil, fmt.Errorf("scan guideline: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Meta returns the stored build metadata. ok is false when no build has
// ever been published.
func (s *RecordStore) Meta(ctx context.Context) (BuildMeta, bool, error) {
	var meta BuildMeta
	var builtAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT revision, built_at, guideline_count, model, dimensions
		FROM meta WHERE id = 1`).
		Scan(&meta.Revision, &builtAt, &meta.GuidelineCount, &meta.Model, &meta.Dimensions)
	if errors.Is(err, sql.ErrNoRows) {
		return BuildMeta{}, false, nil
	}
	if err != nil {
		return BuildMeta{}, false, fmt.Errorf("query meta: %w", err)
	}

	if t, perr := time.Parse(time.RFC3339, builtAt); perr == nil {
		meta.BuiltAt = t
	}
	return meta, true, nil
}

// Close closes the database.
func (s *RecordStore) Close() error {
	return s.db.Close()
}
