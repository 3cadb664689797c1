// Package storage is the filesystem service the editor reads and writes documents through.
package storage

import "github.com/starford/inkpad/internal/models"

// Provider is the interface for workspace file operations. Paths are relative
// to the workspace root and use forward slashes.
type Provider interface {
	// ListEntries returns the direct children of dir, directories first.
	ListEntries(dir string) ([]models.Entry, error)
	// ReadText returns the UTF-8 content of the file at path.
	ReadText(path string) (string, error)
	// WriteText atomically replaces the content of the file at path.
	WriteText(path, text string) error
	// CreateEmpty creates an empty file named name inside dir and returns its path.
	// It fails with apperr.ErrAlreadyExists when the target exists.
	CreateEmpty(dir, name string) (string, error)
}

// EditorExtensions lists the file extensions the editor opens.
var EditorExtensions = []string{".md", ".mmd", ".mermaid"}

// IsEditable reports whether ext is one of EditorExtensions.
func IsEditable(ext string) bool {
	for _, e := range EditorExtensions {
		if e == ext {
			return true
		}
	}
	return false
}
