// Package store provides durable storage for sortie progress records.
//
// Every backend implements ProgressStore: a single logical record per player
// profile, addressed by one fixed key, upserted wholesale.
//
//   - Load returns ErrNotFound when no save exists
//   - Save is create-or-replace
//   - Clear removes the record; clearing a missing record is not an error
//
// # Error Classification
//
// Backends wrap driver errors so callers can classify them with errors.Is:
//   - ErrStoreUnavailable: the medium cannot be opened, read or written
//   - ErrQuotaExceeded: the write was rejected for capacity reasons
//   - ErrInvalidRecord: the stored bytes do not decode to a progress record
//
// # Record Format
//
// Records are JSON objects (see EncodeProgress). The schema is additive:
// unknown fields are ignored on load, missing fields take their defaults.
//
// # Backends
//
// This package implements the SQLite backend (the default driver). Other
// backends live in subpackages: memstore, filestore, s3store and pgstore.
//
// SQLite configuration:
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
