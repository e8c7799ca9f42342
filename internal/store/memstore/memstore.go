// Package memstore provides an in-memory ProgressStore.
//
// The record is held in its encoded form so every Load goes through the same
// decoder as the durable backends. Fault injection hooks (FailWith, Hold,
// WithQuota) let tests drive the engine's persistence failure paths.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/sortie/internal/ir"
	"github.com/roach88/sortie/internal/store"
)

var _ store.ProgressStore = (*Store)(nil)

// Store is an in-memory single-slot progress store. Safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	data  []byte
	quota int
	fail  error
	gate  chan struct{}

	saves  int
	clears int
}

// Option configures a Store.
type Option func(*Store)

// WithQuota rejects saves whose encoded record exceeds n bytes.
// Zero disables the limit.
func WithQuota(n int) Option {
	return func(s *Store) {
		s.quota = n
	}
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the stored record, or store.ErrNotFound.
func (s *Store) Load(ctx context.Context) (ir.PersistedProgress, error) {
	if err := ctx.Err(); err != nil {
		return ir.PersistedProgress{}, err
	}

	s.mu.Lock()
	data, fail := s.data, s.fail
	s.mu.Unlock()

	if fail != nil {
		return ir.PersistedProgress{}, store.Unavailable("load progress", fail)
	}
	if data == nil {
		return ir.PersistedProgress{}, fmt.Errorf("load progress: %w", store.ErrNotFound)
	}
	p, err := store.DecodeProgress(data)
	if err != nil {
		return ir.PersistedProgress{}, fmt.Errorf("load progress: %w", err)
	}
	return p, nil
}

// Save replaces the stored record.
func (s *Store) Save(ctx context.Context, record ir.PersistedProgress) error {
	if err := s.wait(ctx); err != nil {
		return err
	}

	body, err := store.EncodeProgress(record)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return store.Unavailable("save progress", s.fail)
	}
	if s.quota > 0 && len(body) > s.quota {
		return store.QuotaExceeded("save progress", fmt.Errorf("record is %d bytes, quota is %d", len(body), s.quota))
	}
	s.data = body
	s.saves++
	return nil
}

// Clear removes the stored record.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.wait(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return store.Unavailable("clear progress", s.fail)
	}
	s.data = nil
	s.clears++
	return nil
}

// FailWith makes every subsequent operation fail with err wrapped as
// store.ErrStoreUnavailable. FailWith(nil) restores normal operation.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

// Hold blocks Save and Clear until the returned release func is called.
// Loads are not affected.
func (s *Store) Hold() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gate = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.gate == gate {
				s.gate = nil
			}
			s.mu.Unlock()
			close(gate)
		})
	}
}

// Seed stores record as if it had been saved, without counting a write.
func (s *Store) Seed(record ir.PersistedProgress) error {
	body, err := store.EncodeProgress(record)
	if err != nil {
		return err
	}
	s.SeedRaw(body)
	return nil
}

// SeedRaw stores raw bytes as the record. Used to plant corrupt or
// forward-versioned saves.
func (s *Store) SeedRaw(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), data...)
}

// Raw returns a copy of the encoded record, or nil when empty.
func (s *Store) Raw() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil
	}
	return append([]byte(nil), s.data...)
}

// Saves returns the number of successful saves.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Clears returns the number of successful clears.
func (s *Store) Clears() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clears
}

func (s *Store) wait(ctx context.Context) error {
	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()
	if gate == nil {
		return ctx.Err()
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
