package history

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/marketlog/internal/core"
)

// Supported backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// StoreOptions configures store creation.
type StoreOptions struct {
	// LockTTL is the duration after which a lock is considered stale.
	// If zero, the backend's default is used.
	LockTTL time.Duration

	// BackupPath overrides "<path>.bak" for the JSON backend.
	BackupPath string

	Logger *slog.Logger
}

// NewStore creates the history store for backend at path. An empty backend
// selects JSON.
func NewStore(backend, path string, opts StoreOptions) (core.HistoryStore, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendJSON:
		return NewJSONStore(path,
			WithBackupPath(opts.BackupPath),
			WithLockTTL(opts.LockTTL),
			WithLogger(opts.Logger),
		), nil
	case BackendSQLite:
		// Ensure path has .db extension for SQLite
		if !strings.HasSuffix(path, ".db") {
			path = strings.TrimSuffix(path, filepath.Ext(path)) + ".db"
		}
		return NewSQLiteStore(path,
			WithSQLiteLockTTL(opts.LockTTL),
			WithSQLiteLogger(opts.Logger),
		)
	default:
		return nil, core.ErrConfig(core.CodeInvalidConfig,
			fmt.Sprintf("unknown history backend %q", backend))
	}
}

// Closeable is an optional interface for stores that need cleanup.
type Closeable interface {
	Close() error
}

// CloseStore safely closes a store if it implements Closeable.
func CloseStore(s core.HistoryStore) error {
	if closeable, ok := s.(Closeable); ok {
		return closeable.Close()
	}
	return nil
}
