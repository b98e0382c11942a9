package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestReadFileScoped_ReadsFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(p, []byte("hello"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	b, err := ReadFileScoped(p)
	if err != nil {
		t.Fatalf("ReadFileScoped error: %v", err)
	}
	if string(b) != "hello" {
		t.Fatalf("unexpected content: %q", string(b))
	}
}

func TestReadFileScoped_RejectsInvalidPath(t *testing.T) {
	for _, p := range []string{"", ".", string(filepath.Separator)} {
		if _, err := ReadFileScoped(p); err == nil {
			t.Fatalf("expected error for %q", p)
		}
	}
}

func TestWriteFileAtomic_ReplacesContent(t *testing.T) {
	p := filepath.Join(t.TempDir(), "history.json")
	if err := WriteFileAtomic(p, []byte("old"), 0o644); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFileAtomic(p, []byte("new"), 0o644); err != nil {
		t.Fatalf("second write: %v", err)
	}

	b, err := ReadFileScoped(p)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(b) != "new" {
		t.Fatalf("content = %q, want %q", b, "new")
	}

	entries, err := os.ReadDir(filepath.Dir(p))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the target file, found %d entries", len(entries))
	}
}

func TestWriteFileAtomic_MissingDirectory(t *testing.T) {
	p := filepath.Join(t.TempDir(), "missing", "history.json")
	if err := WriteFileAtomic(p, []byte("x"), 0o644); err == nil {
		t.Fatal("expected error when parent directory does not exist")
	}
}

func TestWriteFileKeepMode_CreatesPrivateFile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Skipping permission test on Windows - Unix permissions not supported")
	}
	p := filepath.Join(t.TempDir(), "nested", ".marketlog.yaml")

	if err := WriteFileKeepMode(p, []byte("log:\n  level: info\n")); err != nil {
		t.Fatalf("WriteFileKeepMode error: %v", err)
	}
	info, err := os.Stat(p)
	if err != nil {
		t.Fatalf("Stat error: %v", err)
	}
	if info.Mode().Perm() != os.FileMode(0o600) {
		t.Fatalf("expected perms 0600, got %v", info.Mode().Perm())
	}

	entries, err := os.ReadDir(filepath.Dir(p))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the target file, found %d entries", len(entries))
	}
}

func TestWriteFileKeepMode_PreservesPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Skipping permission test on Windows - Unix permissions not supported")
	}
	p := filepath.Join(t.TempDir(), ".marketlog.yaml")
	if err := os.WriteFile(p, []byte("original"), 0o640); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	if err := os.Chmod(p, 0o640); err != nil {
		t.Fatalf("Chmod error: %v", err)
	}

	if err := WriteFileKeepMode(p, []byte("updated")); err != nil {
		t.Fatalf("WriteFileKeepMode error: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if string(b) != "updated" {
		t.Fatalf("content = %q, want %q", b, "updated")
	}
	info, err := os.Stat(p)
	if err != nil {
		t.Fatalf("Stat error: %v", err)
	}
	if info.Mode().Perm() != os.FileMode(0o640) {
		t.Fatalf("expected perms 0640, got %v", info.Mode().Perm())
	}
}

func TestWriteFileKeepMode_FailsWhenParentIsFile(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	if err := WriteFileKeepMode(filepath.Join(blocker, "config.yaml"), []byte("content")); err == nil {
		t.Fatal("expected error when the parent path is a file")
	}
}
