package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sortie/internal/ir"
)

func sampleRecord() ir.PersistedProgress {
	return ir.PersistedProgress{
		SchemaVersion: ir.SchemaVersion,
		Revision:      7,
		RunState: ir.RunState{
			SelectedSquad:    []string{"a", "b"},
			CurrentMissionID: "2a",
			CompletedPath:    []string{"1"},
			CumulativeScore:  1000,
			LastOutcome: &ir.MissionOutcome{
				Completed:   true,
				Score:       1000,
				Hits:        12,
				Accuracy:    75,
				Time:        "02:30",
				Rank:        ir.RankA,
				SquadStatus: map[string]bool{"a": true, "b": false},
				Bonuses:     []string{"no-damage"},
			},
		},
		Options:       ir.DefaultOptions(),
		CompletedRuns: 2,
	}
}

func TestLoad_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Load(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	record := sampleRecord()

	require.NoError(t, s.Save(ctx, record))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, record, got)
}

func TestSave_Upserts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := sampleRecord()
	require.NoError(t, s.Save(ctx, first))

	second := first.Clone()
	second.Revision = 8
	second.CompletedPath = append(second.CompletedPath, "2a")
	second.CumulativeScore = 2500
	require.NoError(t, s.Save(ctx, second))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, got)

	var rows int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM progress").Scan(&rows))
	assert.Equal(t, 1, rows, "single-slot save")
}

func TestClear(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sampleRecord()))
	require.NoError(t, s.Clear(ctx))

	_, err := s.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	// clearing again is fine
	assert.NoError(t, s.Clear(ctx))
}

func TestProfiles_AreIsolated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	ctx := context.Background()

	alpha, err := Open(path, WithProfile("alpha"))
	require.NoError(t, err)
	defer alpha.Close()
	beta, err := Open(path, WithProfile("beta"))
	require.NoError(t, err)
	defer beta.Close()

	record := sampleRecord()
	require.NoError(t, alpha.Save(ctx, record))

	_, err = beta.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, beta.Save(ctx, ir.PersistedProgress{RunState: ir.NewRunState("1")}))
	require.NoError(t, beta.Clear(ctx))

	got, err := alpha.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, record, got)

	profiles, err := alpha.Profiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, profiles)
}

func TestLoad_IgnoresUnknownFields(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	body := `{"currentMissionId":"1","completedPath":[],"selectedSquad":["a","b"],` +
		`"cumulativeScore":0,"completedRuns":1,"options":{"musicVolume":10},"screen":"briefing","futureField":{"x":1}}`
	_, err := s.db.Exec(`INSERT INTO progress (profile, revision, schema_version, snapshot_hash, body) VALUES (?, 0, 1, '', ?)`,
		DefaultProfile, body)
	require.NoError(t, err)

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got.SelectedSquad)
	assert.Equal(t, 1, got.CompletedRuns)
	assert.Equal(t, 10, got.Options.MusicVolume)
	assert.Equal(t, ir.DefaultOptions().SFXVolume, got.Options.SFXVolume)

	// re-save drops the unrecognized fields but keeps every defined one
	require.NoError(t, s.Save(ctx, got))
	again, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, got, again)

	var stored string
	require.NoError(t, s.db.QueryRow("SELECT body FROM progress").Scan(&stored))
	assert.NotContains(t, stored, "futureField")
}

func TestLoad_CorruptBody(t *testing.T) {
	s := openTestStore(t)

	_, err := s.db.Exec(`INSERT INTO progress (profile, revision, schema_version, snapshot_hash, body) VALUES (?, 0, 1, '', 'not json')`,
		DefaultProfile)
	require.NoError(t, err)

	_, err = s.Load(context.Background())
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestSave_StoresSnapshotHash(t *testing.T) {
	s := openTestStore(t)
	record := sampleRecord()
	require.NoError(t, s.Save(context.Background(), record))

	var hash string
	var revision int64
	require.NoError(t, s.db.QueryRow("SELECT snapshot_hash, revision FROM progress").Scan(&hash, &revision))
	assert.Equal(t, ir.MustSnapshotHash(record), hash)
	assert.Equal(t, int64(7), revision)
}

func TestSave_AfterClose(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "closed.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	err = s.Save(context.Background(), sampleRecord())
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}
