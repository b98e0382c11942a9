//go:build windows

package fsutil

import (
	"os"
	"path/filepath"
)

// WriteFileAtomic replaces path with data so readers see either the old
// or the new content, never a partial file.
// On Windows, we use a write-rename pattern since renameio doesn't support Windows.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, data, perm); err != nil {
		return err
	}

	// Rename is atomic on Windows when source and target share a volume.
	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return err
	}

	return nil
}
