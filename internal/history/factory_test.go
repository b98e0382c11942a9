package history

import (
	"path/filepath"
	"testing"

	"github.com/hugo-lorenzo-mato/marketlog/internal/core"
)

func TestNewStore(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		backend  string
		path     string
		wantType string
		wantLoc  string
	}{
		{"", filepath.Join(dir, "a.json"), "json", filepath.Join(dir, "a.json")},
		{"json", filepath.Join(dir, "b.json"), "json", filepath.Join(dir, "b.json")},
		{"SQLite", filepath.Join(dir, "c.json"), "sqlite", filepath.Join(dir, "c.db")},
		{"sqlite", filepath.Join(dir, "d.db"), "sqlite", filepath.Join(dir, "d.db")},
	}

	for _, tt := range tests {
		t.Run(tt.backend+"/"+filepath.Base(tt.path), func(t *testing.T) {
			store, err := NewStore(tt.backend, tt.path, StoreOptions{})
			if err != nil {
				t.Fatalf("NewStore() error = %v", err)
			}
			defer CloseStore(store)

			switch tt.wantType {
			case "json":
				if _, ok := store.(*JSONStore); !ok {
					t.Errorf("store type = %T, want *JSONStore", store)
				}
			case "sqlite":
				if _, ok := store.(*SQLiteStore); !ok {
					t.Errorf("store type = %T, want *SQLiteStore", store)
				}
			}
			if store.Location() != tt.wantLoc {
				t.Errorf("Location() = %q, want %q", store.Location(), tt.wantLoc)
			}
			if _, ok := store.(core.HistoryLocker); !ok {
				t.Error("store should support locking")
			}
		})
	}
}

func TestNewStore_UnknownBackend(t *testing.T) {
	_, err := NewStore("postgres", "x", StoreOptions{})
	if !core.IsCategory(err, core.ErrCatConfig) {
		t.Errorf("error = %v, want config error", err)
	}
}

func TestCloseStore_NonCloseable(t *testing.T) {
	if err := CloseStore(NewJSONStore("x.json")); err != nil {
		t.Errorf("CloseStore() error = %v", err)
	}
}
