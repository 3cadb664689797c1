package session

// EventType names a session change.
type EventType string

const (
	EventOpened     EventType = "document.opened"
	EventActivated  EventType = "document.activated"
	EventChanged    EventType = "document.changed"
	EventSaved      EventType = "document.saved"
	EventSaveFailed EventType = "document.save_failed"
	EventClosed     EventType = "document.closed"
	EventRestored   EventType = "document.restored"
)

// Event describes one change to the session. Content is the document's
// current text; for EventActivated with an empty Identity no document is
// active.
type Event struct {
	Type     EventType
	Identity string
	Content  string
	Active   bool
	Dirty    bool
	Silent   bool
	Err      error
}

// Observer receives events in the order the changes were applied. Observers
// run synchronously and must not call mutating Manager methods.
type Observer func(Event)
