package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/inkpad/internal/apperr"
	"github.com/starford/inkpad/internal/models"
)

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to workspace directory
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute workspace root.
func (f *FS) Root() string {
	return f.root
}

// safePath resolves a relative path against the workspace root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" || rel == "." || rel == "/" {
		return f.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes workspace root: %s", rel)
	}
	return abs, nil
}

func (f *FS) rel(abs string) string {
	r, err := filepath.Rel(f.root, abs)
	if err != nil {
		return abs
	}
	return filepath.ToSlash(r)
}

// ListEntries returns the children of dir sorted directories first, then by name.
func (f *FS) ListEntries(dir string) ([]models.Entry, error) {
	base, err := f.safePath(dir)
	if err != nil {
		return nil, apperr.Wrap("list", dir, apperr.ErrIO, err)
	}
	dirents, err := os.ReadDir(base)
	if err != nil {
		return nil, apperr.Wrap("list", dir, apperr.ErrIO, err)
	}
	out := make([]models.Entry, 0, len(dirents))
	for _, d := range dirents {
		if strings.HasPrefix(d.Name(), ".inkpad-tmp-") {
			continue
		}
		info, err := d.Info()
		if err != nil {
			// Entry vanished between ReadDir and Info.
			continue
		}
		ext := ""
		if !d.IsDir() {
			ext = filepath.Ext(d.Name())
		}
		out = append(out, models.Entry{
			Name:         d.Name(),
			Path:         f.rel(filepath.Join(base, d.Name())),
			IsDirectory:  d.IsDir(),
			Extension:    ext,
			Editable:     !d.IsDir() && IsEditable(ext),
			ModifiedTime: info.ModTime(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsDirectory != out[j].IsDirectory {
			return out[i].IsDirectory
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// ReadText returns the content of a workspace file.
func (f *FS) ReadText(path string) (string, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return "", apperr.Wrap("read", path, apperr.ErrIO, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", apperr.Wrap("read", path, apperr.ErrIO, err)
	}
	return string(data), nil
}

// WriteText atomically writes content: tmp file → fsync → rename.
func (f *FS) WriteText(path, text string) error {
	abs, err := f.safePath(path)
	if err != nil {
		return apperr.Wrap("write", path, apperr.ErrIO, err)
	}
	if abs == f.root {
		return apperr.Wrap("write", path, apperr.ErrIO, errors.New("storage: cannot write workspace root"))
	}
	if err := writeAtomic(abs, []byte(text)); err != nil {
		return apperr.Wrap("write", path, apperr.ErrIO, err)
	}
	return nil
}

func writeAtomic(abs string, content []byte) error {
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".inkpad-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// CreateEmpty creates an empty document. Names without an .md or .mmd
// extension get .md appended.
func (f *FS) CreateEmpty(dir, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", apperr.Wrap("create", name, apperr.ErrIO, fmt.Errorf("storage: invalid file name %q", name))
	}
	if !strings.HasSuffix(name, ".md") && !strings.HasSuffix(name, ".mmd") {
		name += ".md"
	}
	base, err := f.safePath(dir)
	if err != nil {
		return "", apperr.Wrap("create", name, apperr.ErrIO, err)
	}
	abs := filepath.Join(base, name)
	rel := f.rel(abs)

	fh, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", apperr.Wrap("create", rel, apperr.ErrAlreadyExists, err)
		}
		return "", apperr.Wrap("create", rel, apperr.ErrIO, err)
	}
	if err := fh.Close(); err != nil {
		return "", apperr.Wrap("create", rel, apperr.ErrIO, err)
	}
	return rel, nil
}
