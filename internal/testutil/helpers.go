package testutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/hugo-lorenzo-mato/marketlog/internal/core"
)

// ErrTest is a generic test error.
var ErrTest = errors.New("test error")

// FixedTime is the reference clock used by fixtures.
var FixedTime = time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC)

// Clock returns a func that always reports t.
func Clock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// TempFile creates a temporary file with content.
func TempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return path
}

// NewHistory builds a document with n sequential versions, one hour apart.
func NewHistory(n int) *core.HistoryDocument {
	doc := core.NewHistoryDocument(FixedTime)
	for i := 1; i <= n; i++ {
		at := FixedTime.Add(time.Duration(i) * time.Hour)
		doc.Append(core.VersionRecord{
			Version:     i,
			Tag:         at.Format(core.TagDateLayout),
			Model:       core.DefaultModel,
			CreatedAt:   at,
			Headline:    fmt.Sprintf("Headline %d", i),
			Analysis:    fmt.Sprintf("Point %d\nShared context", i),
			Differences: []string{fmt.Sprintf("New point: Point %d", i)},
		}, at)
	}
	return doc
}

var uuidRe = regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)

// ScrubUUIDs removes UUIDs from output.
func ScrubUUIDs(s string) string {
	return uuidRe.ReplaceAllString(s, "[UUID]")
}
