// Package session owns the set of open documents, the active pointer, dirty
// tracking, and the save, autosave and restore protocol.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/starford/inkpad/internal/apperr"
	"github.com/starford/inkpad/internal/checksum"
	"github.com/starford/inkpad/internal/models"
	"github.com/starford/inkpad/internal/parser"
)

// DefaultAutosaveInterval is the quiet period after the last edit before an
// autosave fires.
const DefaultAutosaveInterval = 2 * time.Second

type document struct {
	identity string
	content  string
	dirty    bool
	revision uint64

	autosave    *time.Timer
	autosaveGen uint64

	saving       bool
	queued       *saveCall
	queuedSilent bool
	// retired is set once a save-as replaced the document; its pending
	// saves no longer write.
	retired bool
}

type saveCall struct {
	done chan struct{}
	err  error
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithAutosave sets the initial autosave state.
func WithAutosave(enabled bool, interval time.Duration) Option {
	return func(m *Manager) {
		m.autosaveEnabled = enabled
		if interval > 0 {
			m.autosaveInterval = interval
		}
	}
}

// Manager is the single writer of document files and their history.
type Manager struct {
	files   Files
	history Recorder
	logger  *slog.Logger

	mu               sync.Mutex
	docs             map[string]*document
	order            []string
	active           string
	autosaveEnabled  bool
	autosaveInterval time.Duration
	observers        []Observer
	shutdown         bool

	// emitMu keeps observer delivery in the order changes were applied.
	emitMu sync.Mutex
	// writeMu serialises file writes. It is never acquired while mu is held.
	writeMu sync.Mutex
}

// New creates an empty session.
func New(files Files, history Recorder, opts ...Option) *Manager {
	m := &Manager{
		files:            files,
		history:          history,
		logger:           slog.Default(),
		docs:             make(map[string]*document),
		autosaveInterval: DefaultAutosaveInterval,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Subscribe registers an observer for session events.
func (m *Manager) Subscribe(o Observer) {
	m.mu.Lock()
	m.observers = append(m.observers, o)
	m.mu.Unlock()
}

// unlockAndEmit releases mu and delivers events before any later change can
// deliver its own.
func (m *Manager) unlockAndEmit(events ...Event) {
	observers := m.observers
	m.emitMu.Lock()
	m.mu.Unlock()
	defer m.emitMu.Unlock()
	for _, e := range events {
		for _, o := range observers {
			o(e)
		}
	}
}

// Open activates identity, loading it first when it is not already open.
func (m *Manager) Open(ctx context.Context, identity string) (models.DocumentInfo, error) {
	m.mu.Lock()
	if d, ok := m.docs[identity]; ok {
		m.switchActiveLocked(identity)
		info := m.infoLocked(d)
		m.unlockAndEmit(m.eventLocked(EventActivated, d))
		return info, nil
	}
	m.mu.Unlock()

	content, err := m.files.ReadText(identity)
	if err != nil {
		m.logger.Error("open failed", slog.String("path", identity), slog.String("error", err.Error()))
		return models.DocumentInfo{}, apperr.Wrap("open", identity, apperr.ErrIO, err)
	}

	m.mu.Lock()
	typ := EventActivated
	d, ok := m.docs[identity]
	if !ok {
		// Another open may have won the race while the file was read.
		d = &document{identity: identity, content: content}
		m.docs[identity] = d
		m.order = append(m.order, identity)
		typ = EventOpened
	}
	m.switchActiveLocked(identity)
	info := m.infoLocked(d)
	m.unlockAndEmit(m.eventLocked(typ, d))
	return info, nil
}

// Activate makes an open document the active one.
func (m *Manager) Activate(identity string) error {
	m.mu.Lock()
	d, ok := m.docs[identity]
	if !ok {
		m.mu.Unlock()
		return notOpen("activate", identity)
	}
	m.switchActiveLocked(identity)
	m.unlockAndEmit(m.eventLocked(EventActivated, d))
	return nil
}

// UpdateContent replaces the active document's text and marks it dirty. It
// reports false, changing nothing, when identity is not the active document.
func (m *Manager) UpdateContent(identity, content string) bool {
	m.mu.Lock()
	d, ok := m.docs[identity]
	if !ok || m.active != identity {
		m.mu.Unlock()
		return false
	}
	if d.content == content {
		m.mu.Unlock()
		return true
	}
	d.content = content
	d.dirty = true
	d.revision++
	m.armAutosaveLocked(d)
	m.unlockAndEmit(m.eventLocked(EventChanged, d))
	return true
}

// Close removes a document from the session. Unsaved changes are discarded
// only when c approves; otherwise apperr.ErrDiscardDenied is returned and
// nothing changes.
func (m *Manager) Close(ctx context.Context, identity string, c Confirmer) error {
	m.mu.Lock()
	d, ok := m.docs[identity]
	if !ok {
		m.mu.Unlock()
		return notOpen("close", identity)
	}
	dirty := d.dirty
	m.mu.Unlock()

	if dirty {
		prompt := fmt.Sprintf("%s has unsaved changes. Close anyway?", identity)
		if c == nil || !c.Confirm(ctx, prompt) {
			return apperr.Wrap("close", identity, apperr.ErrDiscardDenied, fmt.Errorf("session: unsaved changes kept"))
		}
	}

	m.mu.Lock()
	if m.docs[identity] != d {
		m.mu.Unlock()
		return nil
	}
	stopTimer(d)
	delete(m.docs, identity)
	m.order = slices.DeleteFunc(m.order, func(id string) bool { return id == identity })

	events := []Event{{Type: EventClosed, Identity: identity}}
	if m.active == identity {
		m.active = ""
		next := ""
		if n := len(m.order); n > 0 {
			next = m.order[n-1]
		}
		m.switchActiveLocked(next)
		if nd, ok := m.docs[next]; ok {
			events = append(events, m.eventLocked(EventActivated, nd))
		} else {
			events = append(events, Event{Type: EventActivated})
		}
	}
	m.unlockAndEmit(events...)
	return nil
}

// RestoreVersion replaces the active document's content with snap after c
// approves. The document is left dirty until saved.
func (m *Manager) RestoreVersion(ctx context.Context, snap models.Snapshot, c Confirmer) error {
	m.mu.Lock()
	d, ok := m.docs[m.active]
	if !ok {
		m.mu.Unlock()
		return notOpen("restore", snap.ID)
	}
	m.mu.Unlock()

	prompt := "Restore this version? Unsaved changes will be replaced."
	if c == nil || !c.Confirm(ctx, prompt) {
		return apperr.Wrap("restore", d.identity, apperr.ErrDiscardDenied, fmt.Errorf("session: restore declined"))
	}

	m.mu.Lock()
	if m.docs[d.identity] != d || m.active != d.identity {
		m.mu.Unlock()
		return notOpen("restore", d.identity)
	}
	d.content = snap.Content
	d.dirty = true
	d.revision++
	m.armAutosaveLocked(d)
	m.unlockAndEmit(m.eventLocked(EventRestored, d))
	return nil
}

// Documents lists open documents in the order they were opened.
func (m *Manager) Documents() []models.DocumentInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.DocumentInfo, 0, len(m.order))
	for _, id := range m.order {
		info := m.infoLocked(m.docs[id])
		info.Content = ""
		out = append(out, info)
	}
	return out
}

// Active returns the active document.
func (m *Manager) Active() (models.DocumentInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[m.active]
	if !ok {
		return models.DocumentInfo{}, false
	}
	return m.infoLocked(d), true
}

// Get returns an open document.
func (m *Manager) Get(identity string) (models.DocumentInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[identity]
	if !ok {
		return models.DocumentInfo{}, notOpen("get", identity)
	}
	return m.infoLocked(d), nil
}

// Shutdown stops every pending autosave. Later timers never fire.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdown = true
	for _, d := range m.docs {
		stopTimer(d)
	}
}

// switchActiveLocked moves the active pointer, moving the autosave timer
// with it.
func (m *Manager) switchActiveLocked(identity string) {
	if m.active == identity {
		return
	}
	if old, ok := m.docs[m.active]; ok {
		stopTimer(old)
	}
	m.active = identity
	if d, ok := m.docs[identity]; ok {
		m.armAutosaveLocked(d)
	}
}

func (m *Manager) infoLocked(d *document) models.DocumentInfo {
	return models.DocumentInfo{
		Path:     d.identity,
		Title:    parser.Title(d.identity, d.content),
		Content:  d.content,
		Dirty:    d.dirty,
		Active:   m.active == d.identity,
		Checksum: checksum.Text(d.content),
	}
}

func (m *Manager) eventLocked(t EventType, d *document) Event {
	return Event{
		Type:     t,
		Identity: d.identity,
		Content:  d.content,
		Active:   m.active == d.identity,
		Dirty:    d.dirty,
	}
}

func notOpen(op, identity string) error {
	return apperr.Wrap(op, identity, apperr.ErrNotOpen, fmt.Errorf("session: %q is not open", identity))
}
