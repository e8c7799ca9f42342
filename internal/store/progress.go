package store

import (
	"context"

	"github.com/roach88/sortie/internal/ir"
)

// DefaultProfile is the profile used when none is configured.
const DefaultProfile = "default"

// ProgressStore persists the single progress record of one profile.
// Implementations: *Store (SQLite), *memstore.Store, *filestore.Store,
// *s3store.Store and *pgstore.Store.
type ProgressStore interface {
	// Load returns the stored record, or ErrNotFound.
	Load(ctx context.Context) (ir.PersistedProgress, error)

	// Save upserts the record.
	Save(ctx context.Context, record ir.PersistedProgress) error

	// Clear deletes the record. Clearing an absent record succeeds.
	Clear(ctx context.Context) error
}
