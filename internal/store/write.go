package store

import (
	"context"
	"fmt"

	"github.com/roach88/sortie/internal/ir"
)

// Save upserts the profile's progress record.
// Uses ON CONFLICT(profile) DO UPDATE so the write is create-or-replace in a
// single statement; the row is never observed half-written.
func (s *Store) Save(ctx context.Context, record ir.PersistedProgress) error {
	body, err := EncodeProgress(record)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	hash, err := ir.SnapshotHash(record)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO progress
		(profile, revision, schema_version, snapshot_hash, body)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(profile) DO UPDATE SET
			revision       = excluded.revision,
			schema_version = excluded.schema_version,
			snapshot_hash  = excluded.snapshot_hash,
			body           = excluded.body
	`,
		s.profile,
		record.Revision,
		ir.SchemaVersion,
		hash,
		string(body),
	)
	if err != nil {
		return classify("save progress", err)
	}
	return nil
}

// Clear deletes the profile's progress record.
// Deleting a missing record is not an error.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM progress WHERE profile = ?`, s.profile); err != nil {
		return classify("clear progress", err)
	}
	return nil
}
