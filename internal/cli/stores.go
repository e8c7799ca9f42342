package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roach88/sortie/internal/config"
	"github.com/roach88/sortie/internal/store"
	"github.com/roach88/sortie/internal/store/filestore"
	"github.com/roach88/sortie/internal/store/memstore"
	"github.com/roach88/sortie/internal/store/pgstore"
	"github.com/roach88/sortie/internal/store/s3store"
)

// openStore opens the progress store selected by cfg.Store. The returned
// func releases the store's resources.
func openStore(ctx context.Context, cfg config.Config) (store.ProgressStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store {
	case config.DriverSQLite:
		path := cfg.SQLitePath()
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, store.Unavailable("create data dir", err)
		}
		s, err := store.Open(path, store.WithProfile(cfg.Profile))
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	case config.DriverFile:
		s, err := filestore.Open(cfg.SaveDir(), cfg.Profile)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil

	case config.DriverMemory:
		return memstore.New(), noop, nil

	case config.DriverS3:
		s, err := s3store.New(ctx, s3store.Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			PathStyle:       cfg.S3.PathStyle,
			Prefix:          cfg.S3.Prefix,
			Profile:         cfg.Profile,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil

	case config.DriverPostgres:
		s, err := pgstore.Open(ctx, cfg.Postgres.DSN, cfg.Profile)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store)
}
