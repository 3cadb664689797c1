// Package editorservice composes the session, history, preview and export
// components behind one API used by the HTTP and MCP transports.
package editorservice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/inkpad/internal/apperr"
	"github.com/starford/inkpad/internal/export"
	"github.com/starford/inkpad/internal/history"
	"github.com/starford/inkpad/internal/models"
	"github.com/starford/inkpad/internal/render"
	"github.com/starford/inkpad/internal/session"
	"github.com/starford/inkpad/internal/settings"
	"github.com/starford/inkpad/internal/sse"
	"github.com/starford/inkpad/internal/storage"
	"github.com/starford/inkpad/internal/viewport"
)

// Publisher receives live events. *sse.Broker satisfies it.
type Publisher interface {
	Publish(sse.Event)
	PublishEntryEvent(kind, path string)
	Notify(level, message string)
}

type nopPublisher struct{}

func (nopPublisher) Publish(sse.Event)                {}
func (nopPublisher) PublishEntryEvent(string, string) {}
func (nopPublisher) Notify(string, string)            {}

// SessionState is the externally visible session.
type SessionState struct {
	Documents        []models.DocumentInfo `json:"documents"`
	Active           string                `json:"active"`
	AutosaveEnabled  bool                  `json:"autosave_enabled"`
	AutosaveInterval int64                 `json:"autosave_interval_ms"`
}

// Deps are the collaborators of a Service.
type Deps struct {
	Files     storage.Provider
	Session   *session.Manager
	History   *history.Store
	Settings  *settings.Store
	Pipeline  *render.Pipeline
	Viewport  *viewport.Controller
	Exporter  *export.Engine
	Publisher Publisher
	Logger    *slog.Logger
}

// Service coordinates the editor components.
type Service struct {
	files    storage.Provider
	session  *session.Manager
	history  *history.Store
	settings *settings.Store
	pipeline *render.Pipeline
	viewport *viewport.Controller
	exporter *export.Engine
	pub      Publisher
	logger   *slog.Logger
}

// New wires the components together: session changes feed the render
// pipeline and the publisher, and finished renders are published when they
// still belong to the active document.
func New(d Deps) *Service {
	s := &Service{
		files:    d.Files,
		session:  d.Session,
		history:  d.History,
		settings: d.Settings,
		pipeline: d.Pipeline,
		viewport: d.Viewport,
		exporter: d.Exporter,
		pub:      d.Publisher,
		logger:   d.Logger,
	}
	if s.pub == nil {
		s.pub = nopPublisher{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.viewport == nil {
		s.viewport = viewport.New()
	}
	if s.exporter == nil {
		s.exporter = export.New(nil)
	}
	s.session.Subscribe(s.onSessionEvent)
	s.pipeline.Subscribe(s.onRendered)
	return s
}

// ListEntries lists a workspace directory.
func (s *Service) ListEntries(_ context.Context, dir string) ([]models.Entry, error) {
	return s.files.ListEntries(dir)
}

// CreateFile creates an empty document and opens it.
func (s *Service) CreateFile(ctx context.Context, dir, name string) (models.DocumentInfo, error) {
	p, err := s.files.CreateEmpty(dir, name)
	if err != nil {
		s.notifyError(err)
		return models.DocumentInfo{}, err
	}
	s.pub.PublishEntryEvent("created", p)
	return s.Open(ctx, p)
}

// Session returns the open documents and the autosave state.
func (s *Service) Session() SessionState {
	st := SessionState{Documents: s.session.Documents()}
	if a, ok := s.session.Active(); ok {
		st.Active = a.Path
	}
	enabled, iv := s.session.Autosave()
	st.AutosaveEnabled = enabled
	st.AutosaveInterval = iv.Milliseconds()
	return st
}

// Open opens or activates a document.
func (s *Service) Open(ctx context.Context, path string) (models.DocumentInfo, error) {
	info, err := s.session.Open(ctx, path)
	if err != nil {
		s.notifyError(err)
		return models.DocumentInfo{}, err
	}
	return info, nil
}

// Document returns an open document including its content.
func (s *Service) Document(_ context.Context, path string) (models.DocumentInfo, error) {
	return s.session.Get(path)
}

// Activate switches the active document.
func (s *Service) Activate(_ context.Context, path string) error {
	return s.session.Activate(path)
}

// Update replaces the active document's content.
func (s *Service) Update(_ context.Context, path, content string) (models.DocumentInfo, error) {
	if !s.session.UpdateContent(path, content) {
		if _, err := s.session.Get(path); err != nil {
			return models.DocumentInfo{}, err
		}
		return models.DocumentInfo{}, apperr.Wrap("update", path, apperr.ErrNotOpen, fmt.Errorf("editorservice: %q is not the active document", path))
	}
	return s.session.Get(path)
}

// Close closes a document; discard confirms dropping unsaved changes.
func (s *Service) Close(ctx context.Context, path string, discard bool) error {
	confirm := session.ConfirmFunc(func(context.Context, string) bool { return discard })
	return s.session.Close(ctx, path, confirm)
}

// Save writes a document to disk.
func (s *Service) Save(ctx context.Context, path string, silent bool) (models.DocumentInfo, error) {
	if err := s.session.Save(ctx, path, silent); err != nil {
		return models.DocumentInfo{}, err
	}
	return s.session.Get(path)
}

// SaveAs writes content to destination and makes it the active document.
// An empty destination is treated as a cancelled pick.
func (s *Service) SaveAs(ctx context.Context, source, destination, content string) (models.DocumentInfo, bool, error) {
	dest, err := s.session.SaveAs(ctx, source, content, session.FixedDestination(destination))
	if err != nil {
		s.notifyError(err)
		return models.DocumentInfo{}, false, err
	}
	if dest == "" {
		return models.DocumentInfo{}, false, nil
	}
	s.pub.PublishEntryEvent("updated", dest)
	info, err := s.session.Get(dest)
	return info, true, err
}

// SetAutosave changes and persists the autosave configuration.
func (s *Service) SetAutosave(ctx context.Context, enabled bool, interval time.Duration) (SessionState, error) {
	next := s.settings.Get()
	next.AutosaveEnabled = enabled
	if interval > 0 {
		next.AutosaveInterval = int(interval.Milliseconds())
	}
	if _, err := s.UpdateSettings(ctx, next); err != nil {
		return SessionState{}, err
	}
	return s.Session(), nil
}

// History lists saved versions of a document, newest first.
func (s *Service) History(ctx context.Context, path string) []models.Snapshot {
	return s.history.List(ctx, path)
}

// ClearHistory drops every saved version of a document.
func (s *Service) ClearHistory(ctx context.Context, path string) {
	s.history.Clear(ctx, path)
}

// Restore replaces the active document's content with a saved version.
func (s *Service) Restore(ctx context.Context, path, snapshotID string, confirm bool) (models.DocumentInfo, error) {
	active, ok := s.session.Active()
	if !ok || active.Path != path {
		return models.DocumentInfo{}, apperr.Wrap("restore", path, apperr.ErrNotOpen, fmt.Errorf("editorservice: %q is not the active document", path))
	}
	snap, ok := s.history.Find(ctx, path, snapshotID)
	if !ok {
		return models.DocumentInfo{}, apperr.Wrap("restore", snapshotID, apperr.ErrNotFound, fmt.Errorf("editorservice: no version %q", snapshotID))
	}
	c := session.ConfirmFunc(func(context.Context, string) bool { return confirm })
	if err := s.session.RestoreVersion(ctx, snap, c); err != nil {
		return models.DocumentInfo{}, err
	}
	return s.session.Get(path)
}

// Settings returns the settings with the API key masked.
func (s *Service) Settings() settings.Settings {
	return s.settings.Get().Masked()
}

// UpdateSettings validates, persists and applies new settings.
// A masked API key echoed back by a client keeps the stored key.
func (s *Service) UpdateSettings(ctx context.Context, next settings.Settings) (settings.Settings, error) {
	if cur := s.settings.Get(); next.APIKey != "" && next.APIKey == cur.Masked().APIKey {
		next.APIKey = cur.APIKey
	}
	saved, err := s.settings.Update(ctx, next)
	if err != nil {
		return settings.Settings{}, err
	}
	s.session.ScheduleAutosave(time.Duration(saved.AutosaveInterval) * time.Millisecond)
	s.session.SetAutosave(saved.AutosaveEnabled)
	return saved.Masked(), nil
}

// AppTheme returns the persisted light/dark preference.
func (s *Service) AppTheme() string {
	return s.settings.AppTheme()
}

// SetAppTheme persists the light/dark preference.
func (s *Service) SetAppTheme(ctx context.Context, theme string) error {
	return s.settings.SetAppTheme(ctx, theme)
}

// Shutdown stops autosave timers and pending renders.
func (s *Service) Shutdown() {
	s.session.Shutdown()
	s.pipeline.Close()
}

func (s *Service) notifyError(err error) {
	s.pub.Notify("error", err.Error())
}
