package store

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors shared by every backend.
var (
	// ErrNotFound indicates no progress record exists for the profile.
	ErrNotFound = errors.New("progress not found")

	// ErrStoreUnavailable indicates the underlying medium could not be used.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrQuotaExceeded indicates the write was rejected for capacity reasons.
	ErrQuotaExceeded = errors.New("store quota exceeded")

	// ErrInvalidRecord indicates stored data is not a valid progress record.
	ErrInvalidRecord = errors.New("invalid progress record")
)

// Unavailable wraps err as ErrStoreUnavailable for the given operation.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// QuotaExceeded wraps err as ErrQuotaExceeded for the given operation.
func QuotaExceeded(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrQuotaExceeded, err)
}

// IsPersistenceFailure reports whether err is one of the recoverable
// persistence errors that the engine degrades to "progress not saved".
func IsPersistenceFailure(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, ErrQuotaExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
