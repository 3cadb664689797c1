package editorservice

import (
	"fmt"

	"github.com/starford/inkpad/internal/checksum"
	"github.com/starford/inkpad/internal/session"
	"github.com/starford/inkpad/internal/sse"
)

// DocumentEvent is the payload of document.* events.
type DocumentEvent struct {
	Path     string `json:"path"`
	Active   bool   `json:"active"`
	Dirty    bool   `json:"dirty"`
	Checksum string `json:"checksum,omitempty"`
	Error    string `json:"error,omitempty"`
}

var documentEventTypes = map[session.EventType]string{
	session.EventOpened:     sse.TypeDocumentOpened,
	session.EventActivated:  sse.TypeDocumentActivated,
	session.EventChanged:    sse.TypeDocumentChanged,
	session.EventSaved:      sse.TypeDocumentSaved,
	session.EventSaveFailed: sse.TypeDocumentSaveFailed,
	session.EventClosed:     sse.TypeDocumentClosed,
	session.EventRestored:   sse.TypeDocumentRestored,
}

// onSessionEvent forwards session changes to clients and feeds the active
// document's text to the render pipeline.
func (s *Service) onSessionEvent(e session.Event) {
	payload := DocumentEvent{Path: e.Identity, Active: e.Active, Dirty: e.Dirty}
	if e.Type != session.EventClosed {
		payload.Checksum = checksum.Text(e.Content)
	}
	if e.Err != nil {
		payload.Error = e.Err.Error()
	}
	if typ, ok := documentEventTypes[e.Type]; ok {
		s.pub.Publish(sse.Event{Type: typ, Data: payload})
	}

	switch e.Type {
	case session.EventOpened, session.EventActivated, session.EventChanged, session.EventRestored:
		if e.Active || e.Identity == "" {
			s.pipeline.Submit(e.Identity, e.Content)
		}
	case session.EventSaved:
		if !e.Silent {
			s.pub.Notify("success", fmt.Sprintf("Saved %s", e.Identity))
		}
	case session.EventSaveFailed:
		if !e.Silent {
			s.pub.Notify("error", fmt.Sprintf("Save failed: %v", e.Err))
		}
	}
}
