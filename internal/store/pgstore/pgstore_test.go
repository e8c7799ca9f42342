package pgstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sortie/internal/ir"
	"github.com/roach88/sortie/internal/store"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"disk full", &pgconn.PgError{Code: "53100"}, store.ErrQuotaExceeded},
		{"program limit", &pgconn.PgError{Code: "54000"}, store.ErrQuotaExceeded},
		{"unique violation", &pgconn.PgError{Code: "23505"}, store.ErrStoreUnavailable},
		{"wrapped", fmt.Errorf("exec: %w", &pgconn.PgError{Code: "53100"}), store.ErrQuotaExceeded},
		{"plain", errors.New("connection reset"), store.ErrStoreUnavailable},
		{"deadline", context.DeadlineExceeded, context.DeadlineExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classify("save progress", tt.err), tt.want)
		})
	}
}

func TestOpen_RequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), "", "")
	assert.Error(t, err)
}

func TestClose_Nil(t *testing.T) {
	var s *Store
	assert.NoError(t, s.Close())
}

// TestIntegration runs against a live server when SORTIE_TEST_POSTGRES_DSN is set.
func TestIntegration(t *testing.T) {
	dsn := os.Getenv("SORTIE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("SORTIE_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, dsn, "pgstore-integration")
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Clear(ctx))

	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)

	rec := ir.PersistedProgress{
		SchemaVersion: ir.SchemaVersion,
		Revision:      2,
		RunState:      ir.NewRunState("1"),
		Options:       ir.DefaultOptions(),
		CompletedRuns: 5,
	}
	rec.SelectedSquad = []string{"a", "b"}
	require.NoError(t, s.Save(ctx, rec))
	rec.Revision = 3
	require.NoError(t, s.Save(ctx, rec))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	require.NoError(t, s.Clear(ctx))
}
