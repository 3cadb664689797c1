// Package history keeps a capped, per-document list of saved content versions.
//
// History is best-effort: persistence failures are logged and swallowed so
// that they never block the save that triggered them.
package history

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/starford/inkpad/internal/checksum"
	"github.com/starford/inkpad/internal/models"
	"github.com/starford/inkpad/internal/store"
)

// DefaultLimit is the number of versions kept per document.
const DefaultLimit = 50

// Store records and lists snapshots keyed by document identity.
type Store struct {
	db     *store.DB
	limit  int
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLimit overrides DefaultLimit.
func WithLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithLogger sets the logger used for swallowed persistence errors.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Store on top of db.
func New(db *store.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		limit:  DefaultLimit,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the storage key for a document's history.
func Key(identity string) string {
	return "history_" + identity
}

// Record pushes content to the front of identity's history unless the newest
// entry already holds identical content. It reports whether an entry was added.
func (s *Store) Record(ctx context.Context, identity, content string) bool {
	if identity == "" {
		return false
	}
	id, err := uuid.NewV7()
	if err != nil {
		s.logger.Error("history: generate id failed", slog.String("path", identity), slog.String("error", err.Error()))
		return false
	}
	added, err := s.db.AppendSnapshot(ctx, Key(identity), store.SnapshotRow{
		ID:        id.String(),
		Checksum:  checksum.Text(content),
		Content:   content,
		CreatedAt: s.now(),
	}, s.limit)
	if err != nil {
		s.logger.Error("history: record failed", slog.String("path", identity), slog.String("error", err.Error()))
		return false
	}
	if added {
		s.logger.Debug("history: recorded", slog.String("path", identity))
	}
	return added
}

// List returns identity's snapshots newest first; empty when none were recorded
// or the history cannot be read.
func (s *Store) List(ctx context.Context, identity string) []models.Snapshot {
	if identity == "" {
		return []models.Snapshot{}
	}
	rows, err := s.db.ListSnapshots(ctx, Key(identity))
	if err != nil {
		s.logger.Error("history: load failed", slog.String("path", identity), slog.String("error", err.Error()))
		return []models.Snapshot{}
	}
	out := make([]models.Snapshot, len(rows))
	for i, r := range rows {
		out[i] = models.Snapshot{ID: r.ID, Timestamp: r.CreatedAt, Content: r.Content}
	}
	return out
}

// Find returns the snapshot with the given id from identity's history.
func (s *Store) Find(ctx context.Context, identity, id string) (models.Snapshot, bool) {
	for _, snap := range s.List(ctx, identity) {
		if snap.ID == id {
			return snap, true
		}
	}
	return models.Snapshot{}, false
}

// Clear discards all history for identity.
func (s *Store) Clear(ctx context.Context, identity string) {
	if identity == "" {
		return
	}
	if err := s.db.DeleteSnapshots(ctx, Key(identity)); err != nil {
		s.logger.Error("history: clear failed", slog.String("path", identity), slog.String("error", err.Error()))
	}
}
