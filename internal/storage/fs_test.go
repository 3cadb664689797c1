package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/inkpad/internal/apperr"
)

func tempWorkspace(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempWorkspace(t)
	content := "# Hello\nWorld\n"
	if err := s.WriteText("note.md", content); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	got, err := s.ReadText("note.md")
	if err != nil {
		t.Fatalf("ReadText: %v", err)
	}
	if got != content {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempWorkspace(t)
	if err := s.WriteText("a/b/c.md", "deep"); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	got, err := s.ReadText("a/b/c.md")
	if err != nil {
		t.Fatalf("ReadText: %v", err)
	}
	if got != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestReadMissingIsIOError(t *testing.T) {
	s := tempWorkspace(t)
	_, err := s.ReadText("missing.md")
	if !errors.Is(err, apperr.ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist cause, got %v", err)
	}
}

func TestListEntries_DirectoriesFirst(t *testing.T) {
	s := tempWorkspace(t)
	_ = s.WriteText("b.md", "b")
	_ = s.WriteText("A.mmd", "flowchart TD")
	_ = s.WriteText("readme.txt", "text")
	_ = s.WriteText("zdir/inner.md", "x")
	_ = s.WriteText("adir/inner.md", "x")

	items, err := s.ListEntries("")
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.Name
	}
	want := []string{"adir", "zdir", "A.mmd", "b.md", "readme.txt"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}
	if !items[2].Editable || items[4].Editable {
		t.Errorf("editable flags wrong: %+v", items)
	}
	if items[0].Extension != "" || items[3].Extension != ".md" {
		t.Errorf("extensions wrong: %+v", items)
	}
}

func TestListEntries_Subdir(t *testing.T) {
	s := tempWorkspace(t)
	_ = s.WriteText("sub/x.md", "x")
	items, err := s.ListEntries("sub")
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(items) != 1 || items[0].Path != "sub/x.md" {
		t.Errorf("items = %+v", items)
	}
}

func TestCreateEmpty(t *testing.T) {
	s := tempWorkspace(t)
	p, err := s.CreateEmpty("", "diagram")
	if err != nil {
		t.Fatalf("CreateEmpty: %v", err)
	}
	if p != "diagram.md" {
		t.Errorf("path = %q, want diagram.md", p)
	}
	got, err := s.ReadText(p)
	if err != nil || got != "" {
		t.Errorf("ReadText = %q, %v", got, err)
	}

	p, err = s.CreateEmpty("", "flow.mmd")
	if err != nil || p != "flow.mmd" {
		t.Errorf("CreateEmpty mmd = %q, %v", p, err)
	}
}

func TestCreateEmpty_AlreadyExists(t *testing.T) {
	s := tempWorkspace(t)
	_ = s.WriteText("taken.md", "content")
	_, err := s.CreateEmpty("", "taken.md")
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	got, _ := s.ReadText("taken.md")
	if got != "content" {
		t.Errorf("existing file was modified: %q", got)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempWorkspace(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.ReadText(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.WriteText(p, "x"); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
	if _, err := s.CreateEmpty("..", "escape.md"); err == nil {
		t.Error("expected error creating outside root")
	}
}

func TestAtomicWriteNoLeftovers(t *testing.T) {
	s := tempWorkspace(t)
	_ = s.WriteText("atomic.md", "original content")
	if err := s.WriteText("atomic.md", "updated content"); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	got, _ := s.ReadText("atomic.md")
	if got != "updated content" {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.root, ".inkpad-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "inkpad-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
