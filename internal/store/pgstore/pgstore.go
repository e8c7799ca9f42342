// Package pgstore persists progress in PostgreSQL using a pgx connection pool.
package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roach88/sortie/internal/ir"
	"github.com/roach88/sortie/internal/store"
)

var _ store.ProgressStore = (*Store)(nil)

const schema = `CREATE TABLE IF NOT EXISTS sortie_progress (
	profile        TEXT PRIMARY KEY,
	revision       BIGINT NOT NULL,
	schema_version INTEGER NOT NULL,
	snapshot_hash  TEXT NOT NULL,
	body           JSONB NOT NULL
)`

// Store is the PostgreSQL ProgressStore. One table holds every profile.
type Store struct {
	Pool    *pgxpool.Pool
	profile string
}

// Open connects to dsn, ensures the table exists and returns a Store for profile.
func Open(ctx context.Context, dsn, profile string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("postgres DSN required")
	}
	if profile == "" {
		profile = store.DefaultProfile
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	cfg.MaxConns = 4
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, store.Unavailable("connect postgres", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, store.Unavailable("ping postgres", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, store.Unavailable("ensure progress table", err)
	}
	return &Store{Pool: pool, profile: profile}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s == nil || s.Pool == nil {
		return nil
	}
	s.Pool.Close()
	return nil
}

// Load returns the profile's record.
func (s *Store) Load(ctx context.Context) (ir.PersistedProgress, error) {
	var body string
	err := s.Pool.QueryRow(ctx, `SELECT body::text FROM sortie_progress WHERE profile = $1`, s.profile).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return ir.PersistedProgress{}, fmt.Errorf("load progress %q: %w", s.profile, store.ErrNotFound)
	}
	if err != nil {
		return ir.PersistedProgress{}, classify("load progress", err)
	}
	p, err := store.DecodeProgress([]byte(body))
	if err != nil {
		return ir.PersistedProgress{}, fmt.Errorf("load progress %q: %w", s.profile, err)
	}
	return p, nil
}

// Save upserts the profile's record.
func (s *Store) Save(ctx context.Context, record ir.PersistedProgress) error {
	body, err := store.EncodeProgress(record)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	hash, err := ir.SnapshotHash(record)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO sortie_progress (profile, revision, schema_version, snapshot_hash, body)
		VALUES ($1, $2, $3, $4, $5::jsonb)
		ON CONFLICT (profile) DO UPDATE SET
			revision       = EXCLUDED.revision,
			schema_version = EXCLUDED.schema_version,
			snapshot_hash  = EXCLUDED.snapshot_hash,
			body           = EXCLUDED.body
	`, s.profile, record.Revision, ir.SchemaVersion, hash, string(body))
	if err != nil {
		return classify("save progress", err)
	}
	return nil
}

// Clear deletes the profile's record.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.Pool.Exec(ctx, `DELETE FROM sortie_progress WHERE profile = $1`, s.profile); err != nil {
		return classify("clear progress", err)
	}
	return nil
}

// SQLSTATE codes treated as capacity failures.
const (
	codeDiskFull                = "53100"
	codeProgramLimitExceeded    = "54000"
	codeInsufficientResources   = "53000"
	codeConfigurationLimitError = "53400"
)

func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeDiskFull, codeProgramLimitExceeded, codeInsufficientResources, codeConfigurationLimitError:
			return store.QuotaExceeded(op, err)
		}
	}
	return store.Unavailable(op, err)
}
