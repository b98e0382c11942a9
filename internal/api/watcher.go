package api

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 100 * time.Millisecond

// historyWatcher calls onChange when the history file (or a sibling
// sharing its name, such as a SQLite WAL) is written, replaced or removed.
// The directory is watched rather than the file because atomic writes
// replace the inode.
type historyWatcher struct {
	watcher  *fsnotify.Watcher
	base     string
	onChange func()
	logger   *slog.Logger

	mu            sync.Mutex
	debounceTimer *time.Timer
}

func newHistoryWatcher(path string, onChange func(), logger *slog.Logger) (*historyWatcher, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &historyWatcher{
		watcher:  w,
		base:     filepath.Base(path),
		onChange: onChange,
		logger:   logger,
	}, nil
}

// Run dispatches events until ctx is done, then closes the watcher.
func (h *historyWatcher) Run(ctx context.Context) error {
	defer h.close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-h.watcher.Events:
			if !ok {
				return nil
			}
			if h.relevant(event) {
				h.scheduleChange()
			}
		case err, ok := <-h.watcher.Errors:
			if !ok {
				return nil
			}
			h.logger.Warn("history watcher error", "error", err)
			// Events may have been dropped.
			h.scheduleChange()
		}
	}
}

func (h *historyWatcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return false
	}
	name := filepath.Base(event.Name)
	if strings.HasSuffix(name, ".lock") {
		return false
	}
	return strings.HasPrefix(name, h.base)
}

// scheduleChange coalesces the burst of events one save produces. The
// cache is dropped immediately so no stale read follows the event.
func (h *historyWatcher) scheduleChange() {
	h.onChange()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.debounceTimer != nil {
		h.debounceTimer.Stop()
	}
	h.debounceTimer = time.AfterFunc(watchDebounce, h.onChange)
}

func (h *historyWatcher) close() {
	h.mu.Lock()
	if h.debounceTimer != nil {
		h.debounceTimer.Stop()
	}
	h.mu.Unlock()
	h.watcher.Close()
}
