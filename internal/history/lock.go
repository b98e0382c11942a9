package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/hugo-lorenzo-mato/marketlog/internal/core"
)

// lockInfo represents lock file contents.
type lockInfo struct {
	PID        int       `json:"pid"`
	Hostname   string    `json:"hostname"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// fileLock is a PID lock file shared by both stores.
type fileLock struct {
	lockPath string
	lockTTL  time.Duration
}

func newFileLock(path string) fileLock {
	return fileLock{lockPath: path + ".lock", lockTTL: time.Hour}
}

// AcquireLock takes the single-writer lock for a run. A lock older than the
// TTL, or whose owner process is gone, is treated as stale and replaced.
func (s *fileLock) AcquireLock(_ context.Context) error {
	dir := filepath.Dir(s.lockPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating lock directory: %w", err)
	}

	if data, err := os.ReadFile(s.lockPath); err == nil {
		var info lockInfo
		if err := json.Unmarshal(data, &info); err == nil {
			if time.Since(info.AcquiredAt) < s.lockTTL && processExists(info.PID) {
				return core.ErrPersistence(core.CodeLockHeld,
					fmt.Sprintf("history locked by PID %d since %s", info.PID, info.AcquiredAt.Format(time.RFC3339))).
					WithDetail("pid", info.PID)
			}
		}
		// Stale or unreadable lock.
		os.Remove(s.lockPath)
	}

	hostname, _ := os.Hostname()
	data, err := json.Marshal(lockInfo{
		PID:        os.Getpid(),
		Hostname:   hostname,
		AcquiredAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("marshaling lock info: %w", err)
	}

	f, err := os.OpenFile(s.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return core.ErrPersistence(core.CodeLockHeld, "lock file created by another process")
		}
		return fmt.Errorf("creating lock file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		os.Remove(s.lockPath)
		return fmt.Errorf("writing lock file: %w", err)
	}
	return nil
}

// ReleaseLock removes the lock if this process owns it.
func (s *fileLock) ReleaseLock(_ context.Context) error {
	data, err := os.ReadFile(s.lockPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading lock file: %w", err)
	}

	var info lockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return fmt.Errorf("parsing lock info: %w", err)
	}
	if info.PID != os.Getpid() {
		return core.ErrPersistence(core.CodeLockRelease, "lock owned by different process")
	}
	return os.Remove(s.lockPath)
}

// LockPath returns the lock file path.
func (s *fileLock) LockPath() string {
	return s.lockPath
}

// processExists checks if a process is running.
func processExists(pid int) bool {
	// Windows reports no access when signaling the current process; treat that as existing.
	if runtime.GOOS == "windows" && pid == os.Getpid() {
		return true
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// On Unix, FindProcess always succeeds, so we send signal 0.
	return process.Signal(syscall.Signal(0)) == nil
}
