package session

import (
	"context"
	"log/slog"
	"time"
)

// ScheduleAutosave sets the autosave quiet period and re-arms the active
// document's timer with it.
func (m *Manager) ScheduleAutosave(interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if interval > 0 {
		m.autosaveInterval = interval
	}
	if d, ok := m.docs[m.active]; ok {
		m.armAutosaveLocked(d)
	}
}

// SetAutosave turns autosave on or off.
func (m *Manager) SetAutosave(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autosaveEnabled = enabled
	d, ok := m.docs[m.active]
	if !ok {
		return
	}
	if enabled {
		m.armAutosaveLocked(d)
	} else {
		stopTimer(d)
	}
}

// Autosave reports the current autosave state.
func (m *Manager) Autosave() (bool, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.autosaveEnabled, m.autosaveInterval
}

// armAutosaveLocked (re)starts d's single autosave timer. Only the active
// dirty document has one.
func (m *Manager) armAutosaveLocked(d *document) {
	stopTimer(d)
	if m.shutdown || !m.autosaveEnabled || !d.dirty || m.active != d.identity {
		return
	}
	d.autosaveGen++
	gen := d.autosaveGen
	d.autosave = time.AfterFunc(m.autosaveInterval, func() { m.fireAutosave(d, gen) })
}

func (m *Manager) fireAutosave(d *document, gen uint64) {
	m.mu.Lock()
	live := !m.shutdown && m.docs[d.identity] == d && d.autosaveGen == gen &&
		m.active == d.identity && d.dirty
	if live {
		d.autosave = nil
	}
	m.mu.Unlock()
	if !live {
		return
	}
	if err := m.Save(context.Background(), d.identity, true); err != nil {
		m.logger.Warn("autosave failed", slog.String("path", d.identity), slog.String("error", err.Error()))
	}
}

func stopTimer(d *document) {
	if d.autosave != nil {
		d.autosave.Stop()
		d.autosave = nil
	}
	d.autosaveGen++
}
