// Package watch reports changes under the workspace root.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/inkpad/internal/storage"
)

// EventCallback is called for every relevant change. kind is one of
// "created", "updated", "deleted"; path is slash-separated and relative to
// the workspace root.
type EventCallback func(kind string, path string)

// Watch starts an fsnotify watcher on root and reports changes to directories
// and editor documents until ctx is cancelled. New directories are added to
// the watch list as they appear.
func Watch(ctx context.Context, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	emit := func(kind, abs string) {
		rel, err := filepath.Rel(root, abs)
		if err != nil || cb == nil {
			return
		}
		cb(kind, filepath.ToSlash(rel))
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			absPath := ev.Name
			name := filepath.Base(absPath)
			if strings.HasPrefix(name, ".") {
				// Hidden entries, including in-progress atomic writes.
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					}
					emit("created", absPath)
					announceDir(root, absPath, cb)
					continue
				}
			}

			switch {
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// Rename fires on the old path; the new one arrives as Create.
				emit("deleted", absPath)

			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				if !storage.IsEditable(filepath.Ext(absPath)) {
					if ev.Op&fsnotify.Create != 0 {
						emit("created", absPath)
					}
					continue
				}
				kind := "updated"
				if ev.Op&fsnotify.Create != 0 {
					kind = "created"
				}
				logger.Debug("watcher: changed", slog.String("path", absPath), slog.String("op", kind))
				emit(kind, absPath)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// announceDir reports documents that already exist in a newly created
// directory, since they were written before the directory was watched.
func announceDir(root, dir string, cb EventCallback) {
	if cb == nil {
		return
	}
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || path == dir {
			return nil
		}
		if d.IsDir() || storage.IsEditable(filepath.Ext(path)) {
			if rel, relErr := filepath.Rel(root, path); relErr == nil {
				cb("created", filepath.ToSlash(rel))
			}
		}
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return w.Add(path)
		}
		return nil
	})
}
