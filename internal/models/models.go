// Package models defines the domain types shared across inkpad packages.
package models

import "time"

// Entry is one item of a workspace directory listing.
type Entry struct {
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	IsDirectory  bool      `json:"is_directory"`
	Extension    string    `json:"extension"`
	Editable     bool      `json:"editable"`
	ModifiedTime time.Time `json:"modified_time"`
}

// Snapshot is an immutable recorded version of a document's content.
type Snapshot struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Content   string    `json:"content"`
}

// Size returns the content length in bytes.
func (s Snapshot) Size() int {
	return len(s.Content)
}

// DocumentInfo is the externally visible state of an open document.
type DocumentInfo struct {
	Path     string `json:"path"`
	Title    string `json:"title"`
	Content  string `json:"content,omitempty"`
	Dirty    bool   `json:"dirty"`
	Active   bool   `json:"active"`
	Checksum string `json:"checksum"`
}
