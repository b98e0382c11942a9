package history

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/marketlog/internal/core"
	_ "modernc.org/sqlite"
)

//go:embed migrations/001_initial_schema.sql
var migrationV1 string

// unknownMax marks that no Load has established the stored version count.
const unknownMax = -1

// SQLiteStore implements core.HistoryStore with SQLite storage.
type SQLiteStore struct {
	fileLock
	dbPath string
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex
	// loadedMax is the highest stored version seen by the last Load or Save.
	// Save refuses to overwrite rows appended by someone else since then.
	loadedMax int
}

// SQLiteStoreOption configures the store.
type SQLiteStoreOption func(*SQLiteStore)

// WithSQLiteLogger sets the logger used to report recovered corruption.
func WithSQLiteLogger(logger *slog.Logger) SQLiteStoreOption {
	return func(s *SQLiteStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSQLiteLockTTL sets the lock TTL.
func WithSQLiteLockTTL(ttl time.Duration) SQLiteStoreOption {
	return func(s *SQLiteStore) {
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// WithSQLiteClock overrides the time source used for fresh documents.
func WithSQLiteClock(now func() time.Time) SQLiteStoreOption {
	return func(s *SQLiteStore) {
		s.now = now
	}
}

// NewSQLiteStore opens (creating if needed) the history database at dbPath.
func NewSQLiteStore(dbPath string, opts ...SQLiteStoreOption) (*SQLiteStore, error) {
	s := &SQLiteStore{
		fileLock:  newFileLock(dbPath),
		dbPath:    dbPath,
		logger:    slog.Default(),
		now:       time.Now,
		loadedMax: unknownMax,
	}
	for _, opt := range opts {
		opt(s)
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s.db = db

	if err := s.migrate(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("running migrations: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// migrate runs pending migrations.
func (s *SQLiteStore) migrate() error {
	var version int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		// Table doesn't exist yet.
		version = 0
	}

	if version < 1 {
		if _, err := s.db.Exec(migrationV1); err != nil {
			return fmt.Errorf("applying migration v1: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Load reads the document. Rows that cannot be decoded discard the whole
// history, as with the JSON store; they are replaced by the next Save.
func (s *SQLiteStore) Load(ctx context.Context) (*core.HistoryDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readDocument(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("history corrupt, starting empty", "path", s.dbPath, "error", err)
		s.loadedMax = s.storedMax(ctx)
		return core.NewHistoryDocument(s.now()), nil
	}

	s.loadedMax = len(doc.Versions)
	if len(doc.Versions) > 0 {
		s.loadedMax = doc.Versions[len(doc.Versions)-1].Version
	}
	warnOnNumbering(s.logger, doc)
	return doc, nil
}

func (s *SQLiteStore) readDocument(ctx context.Context) (*core.HistoryDocument, error) {
	doc := core.NewHistoryDocument(s.now())

	var updatedAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT updated_at, latest_headline FROM history_meta WHERE id = 1",
	).Scan(&updatedAt, &doc.LatestHeadline)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("reading meta: %w", err)
	default:
		if doc.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
			return nil, fmt.Errorf("parsing updated_at: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT version, tag, model, created_at, headline, analysis, differences
		FROM versions ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("querying versions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rec       core.VersionRecord
			createdAt string
			diffsJSON string
		)
		if err := rows.Scan(&rec.Version, &rec.Tag, &rec.Model, &createdAt,
			&rec.Headline, &rec.Analysis, &diffsJSON); err != nil {
			return nil, fmt.Errorf("scanning version: %w", err)
		}
		if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at of version %d: %w", rec.Version, err)
		}
		if err := json.Unmarshal([]byte(diffsJSON), &rec.Differences); err != nil {
			return nil, fmt.Errorf("decoding differences of version %d: %w", rec.Version, err)
		}
		doc.Versions = append(doc.Versions, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating versions: %w", err)
	}

	doc.Normalize()
	return doc, nil
}

func (s *SQLiteStore) storedMax(ctx context.Context) int {
	var max int
	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM versions").Scan(&max); err != nil {
		return unknownMax
	}
	return max
}

// Save rewrites the document in one transaction. If rows were appended by
// another writer since this store last loaded, nothing is written and a
// VERSION_CONFLICT error is returned.
func (s *SQLiteStore) Save(ctx context.Context, doc *core.HistoryDocument) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.ErrPersistence(core.CodeWriteFailed, "beginning transaction").WithCause(err)
	}
	defer func() { _ = tx.Rollback() }()

	var current int
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM versions").Scan(&current); err != nil {
		return core.ErrPersistence(core.CodeWriteFailed, "reading stored version").WithCause(err)
	}
	if s.loadedMax != unknownMax && current != s.loadedMax {
		return core.ErrPersistence(core.CodeVersionConflict,
			fmt.Sprintf("history moved from version %d to %d since it was loaded", s.loadedMax, current)).
			WithDetail("loaded", s.loadedMax).
			WithDetail("stored", current)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM versions"); err != nil {
		return core.ErrPersistence(core.CodeWriteFailed, "clearing versions").WithCause(err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO versions (version, tag, model, created_at, headline, analysis, differences)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return core.ErrPersistence(core.CodeWriteFailed, "preparing insert").WithCause(err)
	}
	defer stmt.Close()

	last := 0
	for _, v := range doc.Versions {
		diffs := v.Differences
		if diffs == nil {
			diffs = []string{}
		}
		diffsJSON, err := json.Marshal(diffs)
		if err != nil {
			return core.ErrPersistence(core.CodeWriteFailed, "marshaling differences").WithCause(err)
		}
		if _, err := stmt.ExecContext(ctx, v.Version, v.Tag, v.Model,
			v.CreatedAt.Format(time.RFC3339Nano), v.Headline, v.Analysis, string(diffsJSON)); err != nil {
			return core.ErrPersistence(core.CodeWriteFailed,
				fmt.Sprintf("inserting version %d", v.Version)).WithCause(err)
		}
		last = v.Version
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO history_meta (id, updated_at, latest_headline) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			updated_at = excluded.updated_at,
			latest_headline = excluded.latest_headline`,
		doc.UpdatedAt.Format(time.RFC3339Nano), doc.LatestHeadline)
	if err != nil {
		return core.ErrPersistence(core.CodeWriteFailed, "updating meta").WithCause(err)
	}

	if err := tx.Commit(); err != nil {
		return core.ErrPersistence(core.CodeWriteFailed, "committing history").WithCause(err)
	}
	s.loadedMax = last
	return nil
}

// Location returns the database path.
func (s *SQLiteStore) Location() string {
	return s.dbPath
}

// Verify that SQLiteStore implements the history ports.
var (
	_ core.HistoryStore  = (*SQLiteStore)(nil)
	_ core.HistoryLocker = (*SQLiteStore)(nil)
)
