package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/hugo-lorenzo-mato/marketlog/internal/core"
	"github.com/hugo-lorenzo-mato/marketlog/internal/fsutil"
)

// JSONStore implements core.HistoryStore with a single JSON file.
type JSONStore struct {
	fileLock
	path       string
	backupPath string
	logger     *slog.Logger
	now        func() time.Time

	// discarded is set when Load threw away an unreadable file. The next
	// Save then leaves the backup alone: it holds the last good history.
	discarded atomic.Bool
}

// JSONStoreOption configures the store.
type JSONStoreOption func(*JSONStore)

// NewJSONStore creates a JSON history store at path.
func NewJSONStore(path string, opts ...JSONStoreOption) *JSONStore {
	s := &JSONStore{
		fileLock:   newFileLock(path),
		path:       path,
		backupPath: path + ".bak",
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithBackupPath sets the backup file path.
func WithBackupPath(path string) JSONStoreOption {
	return func(s *JSONStore) {
		if path != "" {
			s.backupPath = path
		}
	}
}

// WithLockTTL sets the lock TTL.
func WithLockTTL(ttl time.Duration) JSONStoreOption {
	return func(s *JSONStore) {
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// WithLogger sets the logger used to report recovered corruption.
func WithLogger(logger *slog.Logger) JSONStoreOption {
	return func(s *JSONStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for fresh documents.
func WithClock(now func() time.Time) JSONStoreOption {
	return func(s *JSONStore) {
		s.now = now
	}
}

// Load returns the persisted document. A missing, unreadable or structurally
// invalid file yields a fresh empty document: prior versions are discarded,
// not repaired. The previous good copy, if any, stays in the backup file.
func (s *JSONStore) Load(ctx context.Context) (*core.HistoryDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("history unreadable, starting empty",
				"path", s.path, "backup", s.backupPath, "error", err)
			s.discarded.Store(true)
		}
		return core.NewHistoryDocument(s.now()), nil
	}

	doc, err := decodeDocument(data)
	if err != nil {
		s.logger.Warn("history corrupt, starting empty",
			"path", s.path, "backup", s.backupPath, "error", err)
		s.discarded.Store(true)
		return core.NewHistoryDocument(s.now()), nil
	}

	s.discarded.Store(false)
	warnOnNumbering(s.logger, doc)
	return doc, nil
}

// Save writes the whole document atomically. The file it replaces is kept
// as the backup, unless Load discarded it as corrupt.
func (s *JSONStore) Save(ctx context.Context, doc *core.HistoryDocument) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return core.ErrPersistence(core.CodeWriteFailed, "creating history directory").WithCause(err)
	}

	if s.Exists() && !s.discarded.Load() {
		if err := s.createBackup(); err != nil {
			return core.ErrPersistence(core.CodeWriteFailed, "creating backup").WithCause(err)
		}
	}

	out := doc.Clone()
	out.Normalize()
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return core.ErrPersistence(core.CodeWriteFailed, "marshaling history").WithCause(err)
	}

	if err := fsutil.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return core.ErrPersistence(core.CodeWriteFailed, "writing history file").WithCause(err)
	}
	s.discarded.Store(false)
	return nil
}

// decodeDocument validates shape before decoding: the document must be an
// object and versions must be an array.
func decodeDocument(data []byte) (*core.HistoryDocument, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil || top == nil {
		return nil, fmt.Errorf("document is not a JSON object")
	}

	rawVersions, ok := top["versions"]
	if !ok {
		return nil, fmt.Errorf("versions field missing")
	}
	var items []json.RawMessage
	if err := json.Unmarshal(rawVersions, &items); err != nil || items == nil {
		return nil, fmt.Errorf("versions is not an array")
	}

	var doc core.HistoryDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding history: %w", err)
	}
	doc.Normalize()
	return &doc, nil
}

// warnOnNumbering reports records whose number does not match their
// position. They are kept: renumbering would edit appended records.
func warnOnNumbering(logger *slog.Logger, doc *core.HistoryDocument) {
	for i, v := range doc.Versions {
		if v.Version != i+1 {
			logger.Warn("history version out of sequence",
				"position", i+1, "version", v.Version)
			return
		}
	}
}

func (s *JSONStore) createBackup() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(s.backupPath, data, 0o644)
}

// Exists checks if the history file exists.
func (s *JSONStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Location returns the history file path.
func (s *JSONStore) Location() string {
	return s.path
}

// BackupPath returns the backup file path.
func (s *JSONStore) BackupPath() string {
	return s.backupPath
}

// Verify that JSONStore implements the history ports.
var (
	_ core.HistoryStore  = (*JSONStore)(nil)
	_ core.HistoryLocker = (*JSONStore)(nil)
)
