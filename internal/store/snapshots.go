package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SnapshotRow represents a row in the snapshots table.
type SnapshotRow struct {
	ID        string
	Checksum  string
	Content   string
	CreatedAt time.Time
}

// AppendSnapshot inserts row under docKey and trims the list to the newest
// keep entries, within one transaction. The insert is skipped when the newest
// entry already carries row.Checksum; the returned bool reports whether a row
// was inserted.
func (db *DB) AppendSnapshot(ctx context.Context, docKey string, row SnapshotRow, keep int) (bool, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var latest string
	err = tx.QueryRowContext(ctx,
		`SELECT checksum FROM snapshots WHERE doc_key = ? ORDER BY seq DESC LIMIT 1`, docKey).Scan(&latest)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("store: latest checksum: %w", err)
	}
	if latest == row.Checksum {
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (doc_key, id, checksum, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, docKey, row.ID, row.Checksum, row.Content, row.CreatedAt.UTC())
	if err != nil {
		return false, fmt.Errorf("store: insert snapshot: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM snapshots
		WHERE doc_key = ? AND seq NOT IN (
			SELECT seq FROM snapshots WHERE doc_key = ? ORDER BY seq DESC LIMIT ?
		)
	`, docKey, docKey, keep)
	if err != nil {
		return false, fmt.Errorf("store: trim snapshots: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("store: commit: %w", err)
	}
	return true, nil
}

// ListSnapshots returns the snapshots under docKey, newest first.
func (db *DB) ListSnapshots(ctx context.Context, docKey string) ([]SnapshotRow, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, checksum, content, created_at FROM snapshots
		WHERE doc_key = ? ORDER BY seq DESC
	`, docKey)
	if err != nil {
		return nil, fmt.Errorf("store: list snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotRow
	for rows.Next() {
		var r SnapshotRow
		if err := rows.Scan(&r.ID, &r.Checksum, &r.Content, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan snapshot: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteSnapshots removes every snapshot under docKey.
func (db *DB) DeleteSnapshots(ctx context.Context, docKey string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM snapshots WHERE doc_key = ?`, docKey); err != nil {
		return fmt.Errorf("store: delete snapshots: %w", err)
	}
	return nil
}
