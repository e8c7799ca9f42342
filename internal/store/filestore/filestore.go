// Package filestore persists progress as one JSON file per profile.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/roach88/sortie/internal/ir"
	"github.com/roach88/sortie/internal/store"
)

var _ store.ProgressStore = (*Store)(nil)

// Store writes <dir>/<profile>.json. Saves go to a temp file in the same
// directory which is synced and renamed over the record, so a reader never
// observes a partial write.
type Store struct {
	mu   sync.Mutex
	dir  string
	path string
}

// Open returns a Store rooted at dir, creating the directory if needed.
func Open(dir, profile string) (*Store, error) {
	if profile == "" {
		profile = store.DefaultProfile
	}
	if err := validateProfile(profile); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, store.Unavailable("create progress dir", err)
	}
	return &Store{dir: dir, path: filepath.Join(dir, profile+".json")}, nil
}

// Path returns the file the record lives in.
func (s *Store) Path() string {
	return s.path
}

// Load reads and decodes the record.
func (s *Store) Load(ctx context.Context) (ir.PersistedProgress, error) {
	if err := ctx.Err(); err != nil {
		return ir.PersistedProgress{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return ir.PersistedProgress{}, fmt.Errorf("load progress: %w", store.ErrNotFound)
	}
	if err != nil {
		return ir.PersistedProgress{}, classify("load progress", err)
	}
	p, err := store.DecodeProgress(data)
	if err != nil {
		return ir.PersistedProgress{}, fmt.Errorf("load progress %s: %w", s.path, err)
	}
	return p, nil
}

// Save atomically replaces the record.
func (s *Store) Save(ctx context.Context, record ir.PersistedProgress) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := store.EncodeProgress(record)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return classify("save progress", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		return classify("save progress", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return classify("save progress", err)
	}
	if err := tmp.Close(); err != nil {
		return classify("save progress", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return classify("save progress", err)
	}
	return nil
}

// Clear removes the record file.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return classify("clear progress", err)
	}
	return nil
}

func validateProfile(profile string) error {
	if strings.TrimSpace(profile) == "" {
		return fmt.Errorf("empty profile name")
	}
	if strings.ContainsAny(profile, `/\`) || strings.Contains(profile, "..") {
		return fmt.Errorf("invalid profile name %q", profile)
	}
	return nil
}

func classify(op string, err error) error {
	if errors.Is(err, syscall.ENOSPC) || errors.Is(err, syscall.EDQUOT) {
		return store.QuotaExceeded(op, err)
	}
	return store.Unavailable(op, err)
}
