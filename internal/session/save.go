package session

import (
	"context"
	"log/slog"
	"path"
	"slices"

	"github.com/starford/inkpad/internal/apperr"
)

// UntitledName is suggested for documents that have never been saved.
const UntitledName = "untitled.md"

// Save writes the document's current content. At most one write per
// document is in flight; requests made meanwhile share a single follow-up
// write of the newest content. silent only suppresses user notification of
// a failure, the error is still returned.
func (m *Manager) Save(ctx context.Context, identity string, silent bool) error {
	m.mu.Lock()
	d, ok := m.docs[identity]
	if !ok {
		m.mu.Unlock()
		return notOpen("save", identity)
	}
	if d.saving {
		if d.queued == nil {
			d.queued = &saveCall{done: make(chan struct{})}
			d.queuedSilent = silent
		} else {
			d.queuedSilent = d.queuedSilent && silent
		}
		call := d.queued
		m.mu.Unlock()
		select {
		case <-call.done:
			return call.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	d.saving = true
	m.mu.Unlock()

	next, nextSilent, err := m.write(ctx, d, silent)
	if next != nil {
		go m.drain(d, next, nextSilent)
	}
	return err
}

// drain runs queued saves until none remain.
func (m *Manager) drain(d *document, call *saveCall, silent bool) {
	for call != nil {
		next, nextSilent, err := m.write(context.Background(), d, silent)
		call.err = err
		close(call.done)
		call, silent = next, nextSilent
	}
}

// write performs one save of d. It returns the queued follow-up, if any; the
// saving flag stays set while one is pending. A retired document is not
// written and its callers get ErrNotOpen.
func (m *Manager) write(ctx context.Context, d *document, silent bool) (*saveCall, bool, error) {
	m.writeMu.Lock()
	m.mu.Lock()
	if d.retired {
		next, nextSilent := d.queued, d.queuedSilent
		d.queued = nil
		d.saving = next != nil
		m.mu.Unlock()
		m.writeMu.Unlock()
		return next, nextSilent, notOpen("save", d.identity)
	}
	content, rev := d.content, d.revision
	m.mu.Unlock()

	err := m.files.WriteText(d.identity, content)
	if err != nil {
		err = apperr.Wrap("save", d.identity, apperr.ErrIO, err)
		m.logger.Error("save failed", slog.String("path", d.identity), slog.Bool("silent", silent), slog.String("error", err.Error()))
	} else {
		m.history.Record(context.WithoutCancel(ctx), d.identity, content)
	}

	m.mu.Lock()
	m.writeMu.Unlock()
	if err == nil && d.revision == rev {
		d.dirty = false
	}
	next, nextSilent := d.queued, d.queuedSilent
	d.queued = nil
	if next == nil {
		d.saving = false
	}
	ev := m.eventLocked(EventSaved, d)
	ev.Content = content
	ev.Silent = silent
	if err != nil {
		ev.Type = EventSaveFailed
		ev.Err = err
	}
	m.unlockAndEmit(ev)
	return next, nextSilent, err
}

// SaveAs asks p for a destination, writes content there and makes the new
// location the active, clean document. The entry for source, if open, is
// replaced in place. A cancelled pick returns "" and no error.
func (m *Manager) SaveAs(ctx context.Context, source, content string, p DestinationPicker) (string, error) {
	suggested := UntitledName
	if source != "" {
		suggested = path.Base(source)
	}
	dest, ok, err := p.PickDestination(ctx, suggested)
	if err != nil {
		return "", apperr.Wrap("save as", suggested, apperr.ErrIO, err)
	}
	if !ok || dest == "" {
		return "", nil
	}

	// An in-flight save of dest finishes before this write, and the replaced
	// entries are retired before any of their queued saves can run.
	m.writeMu.Lock()
	if err := m.files.WriteText(dest, content); err != nil {
		m.writeMu.Unlock()
		err = apperr.Wrap("save as", dest, apperr.ErrIO, err)
		m.logger.Error("save as failed", slog.String("path", dest), slog.String("error", err.Error()))
		return "", err
	}
	m.history.Record(context.WithoutCancel(ctx), dest, content)

	m.mu.Lock()
	m.writeMu.Unlock()
	nd := &document{identity: dest, content: content}
	var events []Event
	if existing, ok := m.docs[dest]; ok && dest != source {
		stopTimer(existing)
		existing.retired = true
		delete(m.docs, dest)
		m.order = slices.DeleteFunc(m.order, func(id string) bool { return id == dest })
		events = append(events, Event{Type: EventClosed, Identity: dest})
	}
	if old, ok := m.docs[source]; ok && source != "" {
		stopTimer(old)
		old.retired = true
		delete(m.docs, source)
		m.order[slices.Index(m.order, source)] = dest
		if source != dest {
			events = append(events, Event{Type: EventClosed, Identity: source})
		}
	} else {
		m.order = append(m.order, dest)
	}
	m.docs[dest] = nd
	if m.active == source {
		m.active = ""
	}
	m.switchActiveLocked(dest)

	saved := m.eventLocked(EventSaved, nd)
	events = append(events, saved, m.eventLocked(EventActivated, nd))
	m.unlockAndEmit(events...)
	return dest, nil
}
