package localstate

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if got := s.Get("missing"); got != "" {
		t.Fatalf("missing key = %q, want empty", got)
	}
	if err := s.Set("a", "1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set("b", "two"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := s.Get("a"); got != "1" {
		t.Fatalf("Get(a) = %q", got)
	}

	// A new store over the same file sees the persisted state.
	s2, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := s2.Get("b"); got != "two" {
		t.Fatalf("persisted Get(b) = %q", got)
	}

	if err := s2.Delete("b"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	s3, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen after delete: %v", err)
	}
	if got := s3.Get("b"); got != "" {
		t.Fatalf("deleted key survived: %q", got)
	}
}

func TestFileStoreCorruptFileStartsOver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore on corrupt file: %v", err)
	}
	if got := s.Get("anything"); got != "" {
		t.Fatalf("corrupt file yielded data: %q", got)
	}
	if err := s.Set("a", "1"); err != nil {
		t.Fatalf("Set after corrupt load: %v", err)
	}
}

func TestFileStoreCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "state.json")
	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := s.Set("k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("state file not created: %v", err)
	}
}

func TestMemStore(t *testing.T) {
	s := NewMem()
	if err := s.Set("k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := s.Get("k"); got != "v" {
		t.Fatalf("Get = %q", got)
	}
	if err := s.Delete("k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got := s.Get("k"); got != "" {
		t.Fatalf("Get after delete = %q", got)
	}
}
