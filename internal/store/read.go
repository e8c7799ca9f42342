package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/sortie/internal/ir"
)

// Load returns the profile's progress record.
// Returns ErrNotFound if the profile has never been saved or was cleared.
func (s *Store) Load(ctx context.Context) (ir.PersistedProgress, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `
		SELECT body FROM progress WHERE profile = ?
	`, s.profile).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.PersistedProgress{}, fmt.Errorf("load progress %q: %w", s.profile, ErrNotFound)
	}
	if err != nil {
		return ir.PersistedProgress{}, classify("load progress", err)
	}

	p, err := DecodeProgress([]byte(body))
	if err != nil {
		return ir.PersistedProgress{}, fmt.Errorf("load progress %q: %w", s.profile, err)
	}
	return p, nil
}

// Profiles lists every profile with a stored record, in name order.
func (s *Store) Profiles(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT profile FROM progress ORDER BY profile COLLATE BINARY ASC`)
	if err != nil {
		return nil, classify("list profiles", err)
	}
	defer rows.Close()

	profiles := []string{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, classify("scan profile", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate profiles", err)
	}
	return profiles, nil
}
