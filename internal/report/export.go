package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hugo-lorenzo-mato/marketlog/internal/core"
	"github.com/hugo-lorenzo-mato/marketlog/internal/fsutil"
)

// Export writes RenderHistory(doc) to path, creating parent directories.
func Export(doc *core.HistoryDocument, path string) error {
	content, err := RenderHistory(doc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return core.ErrPersistence(core.CodeWriteFailed, "creating export directory").WithCause(err)
	}
	if err := fsutil.WriteFileAtomic(path, []byte(content), 0o644); err != nil {
		return core.ErrPersistence(core.CodeWriteFailed, fmt.Sprintf("writing export %s", path)).WithCause(err)
	}
	return nil
}
