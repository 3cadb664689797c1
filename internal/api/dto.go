package api

import (
	"time"

	"github.com/starford/inkpad/internal/editorservice"
	"github.com/starford/inkpad/internal/models"
	"github.com/starford/inkpad/internal/render"
)

// CreateFileRequest is the request body for creating a workspace document.
type CreateFileRequest struct {
	Dir  string `json:"dir" example:"diagrams"`
	Name string `json:"name" example:"flow" validate:"required"`
}

// OpenDocumentRequest is the request body for opening a document.
type OpenDocumentRequest struct {
	Path string `json:"path" example:"notes/hello.md" validate:"required"`
}

// UpdateContentRequest is the request body for replacing document content.
type UpdateContentRequest struct {
	Content string `json:"content" example:"# Hello\nWorld"`
}

// SaveAsRequest is the request body for saving under a new path.
type SaveAsRequest struct {
	Source      string `json:"source" example:"notes/hello.md"`
	Destination string `json:"destination" example:"notes/copy.md"`
	Content     string `json:"content" example:"# Hello"`
}

// AutosaveRequest is the request body for changing autosave.
type AutosaveRequest struct {
	Enabled    bool  `json:"enabled"`
	IntervalMS int64 `json:"interval_ms" example:"2000"`
}

// RestoreRequest is the request body for restoring a saved version.
type RestoreRequest struct {
	SnapshotID string `json:"snapshot_id" validate:"required"`
	Confirm    bool   `json:"confirm"`
}

// ThemeRequest is the request body for theme changes.
type ThemeRequest struct {
	Theme string `json:"theme" example:"dark" validate:"required"`
}

// ZoomRequest is the request body for zoom controls.
type ZoomRequest struct {
	Direction string `json:"direction" example:"in" enums:"in,out" validate:"required"`
}

// WheelRequest is the request body for scroll gestures.
type WheelRequest struct {
	DeltaY   float64 `json:"delta_y" example:"-100"`
	Modifier bool    `json:"modifier"`
}

// PointerRequest is the request body for pointer gestures.
type PointerRequest struct {
	Phase  string  `json:"phase" example:"down" enums:"down,move,up,leave" validate:"required"`
	Button int     `json:"button"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// EntryListResponse wraps a directory listing.
type EntryListResponse struct {
	Entries []models.Entry `json:"entries" validate:"required"`
}

// SnapshotDTO is one saved version with its size in bytes.
type SnapshotDTO struct {
	ID        string    `json:"id" validate:"required"`
	Timestamp time.Time `json:"timestamp" validate:"required"`
	Size      int       `json:"size" example:"42"`
	Content   string    `json:"content"`
}

// HistoryResponse wraps the saved versions of a document.
type HistoryResponse struct {
	Path      string        `json:"path" validate:"required"`
	Snapshots []SnapshotDTO `json:"snapshots" validate:"required"`
}

func toSnapshotDTOs(snaps []models.Snapshot) []SnapshotDTO {
	out := make([]SnapshotDTO, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, SnapshotDTO{ID: s.ID, Timestamp: s.Timestamp, Size: s.Size(), Content: s.Content})
	}
	return out
}

// PreviewResponse is the current preview state.
type PreviewResponse struct {
	Busy     bool             `json:"busy"`
	Theme    render.Theme     `json:"theme"`
	Artifact *render.Artifact `json:"artifact"`
}

// SessionResponse is the externally visible session (aliased from the domain layer).
type SessionResponse = editorservice.SessionState
