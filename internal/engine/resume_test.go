package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sortie/internal/ir"
	"github.com/roach88/sortie/internal/store/memstore"
	sortietest "github.com/roach88/sortie/internal/testutil"
)

func saved(mutate func(*ir.PersistedProgress)) ir.PersistedProgress {
	p := ir.PersistedProgress{
		SchemaVersion: ir.SchemaVersion,
		Revision:      10,
		RunState:      ir.NewRunState("1"),
		Options:       ir.DefaultOptions(),
		CompletedRuns: 2,
	}
	mutate(&p)
	return p
}

func TestResumeRun_DerivesPhase(t *testing.T) {
	tests := []struct {
		name   string
		record ir.PersistedProgress
		want   Phase
	}{
		{"fresh", saved(func(*ir.PersistedProgress) {}), PhaseAwaitingSquad},
		{"squad only", saved(func(p *ir.PersistedProgress) {
			p.SelectedSquad = []string{"a", "b"}
		}), PhaseBriefing},
		{"path", saved(func(p *ir.PersistedProgress) {
			p.SelectedSquad = []string{"a", "b"}
			p.CompletedPath = []string{"1"}
		}), PhasePathChoice},
		{"path after choosing", saved(func(p *ir.PersistedProgress) {
			p.SelectedSquad = []string{"a", "b"}
			p.CompletedPath = []string{"1", "2a"}
			p.CurrentMissionID = "3"
		}), PhasePathChoice},
		{"final completed", saved(func(p *ir.PersistedProgress) {
			p.SelectedSquad = []string{"a", "b"}
			p.CompletedPath = []string{"1", "2a", "3", "5a"}
		}), PhaseRunComplete},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(t)
			require.NoError(t, e.ResumeRun(tt.record))
			assert.Equal(t, tt.want, e.Phase())

			p := e.Progress()
			assert.Equal(t, tt.record.RunState, p.RunState)
			assert.Equal(t, 2, p.CompletedRuns)
		})
	}
}

func TestResumeRun_PathLandsInPathChoice(t *testing.T) {
	e, _ := newTestEngine(t)
	require.NoError(t, e.ResumeRun(saved(func(p *ir.PersistedProgress) {
		p.SelectedSquad = []string{"c", "d"}
		p.CompletedPath = []string{"1"}
		p.CumulativeScore = 900
	})))

	assert.Equal(t, PhasePathChoice, e.Phase())
	assert.Equal(t, []string{"2a", "2b"}, e.AvailableChoices())
	require.NoError(t, e.ChoosePath("2b"))
	win(t, e, 100)
	assert.Equal(t, int64(1000), e.State().CumulativeScore)
}

func TestResumeRun_EmptyCurrentMissionDefaultsToEntry(t *testing.T) {
	e, _ := newTestEngine(t)
	require.NoError(t, e.ResumeRun(saved(func(p *ir.PersistedProgress) {
		p.CurrentMissionID = ""
	})))
	assert.Equal(t, "1", e.State().CurrentMissionID)
}

func TestResumeRun_RejectsInconsistentRecord(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ir.PersistedProgress)
		want   string
	}{
		{"broken chain", func(p *ir.PersistedProgress) { p.CompletedPath = []string{"1", "3"} }, "not a chain"},
		{"wrong start", func(p *ir.PersistedProgress) { p.CompletedPath = []string{"2a"} }, "not a chain"},
		{"unknown mission", func(p *ir.PersistedProgress) { p.CurrentMissionID = "99" }, `"99" is not a mission`},
		{"unknown member", func(p *ir.PersistedProgress) { p.SelectedSquad = []string{"a", "x"} }, "selectedSquad"},
		{"squad size", func(p *ir.PersistedProgress) { p.SelectedSquad = []string{"a"} }, "selectedSquad"},
		{"newer schema", func(p *ir.PersistedProgress) { p.SchemaVersion = 99 }, "newer"},
		{"bad options", func(p *ir.PersistedProgress) { p.Options.MasterVolume = -1 }, "options"},
		{"negative runs", func(p *ir.PersistedProgress) { p.CompletedRuns = -1 }, "completedRuns"},
		{"final before entry", func(p *ir.PersistedProgress) {
			p.SelectedSquad = []string{"a", "b"}
			p.CurrentMissionID = "5a"
		}, `"5a" does not follow`},
		{"skips a mission", func(p *ir.PersistedProgress) {
			p.CompletedPath = []string{"1"}
			p.CurrentMissionID = "3"
		}, `"3" does not follow`},
		{"behind the path", func(p *ir.PersistedProgress) {
			p.CompletedPath = []string{"1", "2a"}
			p.CurrentMissionID = "1"
		}, `"1" does not follow`},
		{"final not back at entry", func(p *ir.PersistedProgress) {
			p.CompletedPath = []string{"1", "2a", "3", "5a"}
			p.CurrentMissionID = "5a"
		}, `"5a" does not follow`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(t)
			require.NoError(t, e.ConfirmSquad([]string{"a", "b"}))
			before := e.Progress()

			err := e.ResumeRun(saved(tt.mutate))
			require.Error(t, err)
			assert.True(t, IsInvalidProgress(err))
			assert.Contains(t, err.Error(), tt.want)

			assert.Equal(t, PhaseBriefing, e.Phase())
			assert.Equal(t, before, e.Progress())
		})
	}
}

func TestResumeRun_AdvancesRevision(t *testing.T) {
	e, ms := newTestEngine(t)
	require.NoError(t, e.ResumeRun(saved(func(p *ir.PersistedProgress) {
		p.SelectedSquad = []string{"a", "b"}
	})))
	flush(t, e)

	stored, err := ms.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(11), stored.Revision)
}

func TestContinue_ResumesSavedRun(t *testing.T) {
	ms := memstore.New()
	require.NoError(t, ms.Seed(saved(func(p *ir.PersistedProgress) {
		p.SelectedSquad = []string{"a", "b"}
		p.CompletedPath = []string{"1"}
	})))
	e := newEngineFor(t, sortietest.ReferenceCampaign(), ms)

	assert.True(t, e.Continue(context.Background()))
	assert.Equal(t, PhasePathChoice, e.Phase())
	assert.Equal(t, 2, e.Progress().CompletedRuns)

	// nothing changed, nothing written
	flush(t, e)
	assert.Zero(t, ms.Saves())

	require.NoError(t, e.ChoosePath("2a"))
	flush(t, e)
	stored, err := ms.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(11), stored.Revision)
	assert.Equal(t, "2a", stored.CurrentMissionID)
}

func TestContinue_FallsBackToFreshRun(t *testing.T) {
	tests := []struct {
		name string
		seed func(*memstore.Store)
	}{
		{"no save", func(*memstore.Store) {}},
		{"corrupt save", func(ms *memstore.Store) { ms.SeedRaw([]byte(`{"completedPath":[1,2`)) }},
		{"inconsistent save", func(ms *memstore.Store) {
			_ = ms.Seed(saved(func(p *ir.PersistedProgress) { p.CompletedPath = []string{"5a"} }))
		}},
		{"final mission queued before the entry", func(ms *memstore.Store) {
			_ = ms.Seed(saved(func(p *ir.PersistedProgress) {
				p.SelectedSquad = []string{"a", "b"}
				p.CurrentMissionID = "5a"
			}))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := memstore.New()
			tt.seed(ms)
			e := newEngineFor(t, sortietest.ReferenceCampaign(), ms)

			assert.False(t, e.Continue(context.Background()))
			assert.Equal(t, PhaseAwaitingSquad, e.Phase())

			p := e.Progress()
			assert.Zero(t, p.CompletedRuns, "nothing kept from a bad record")
			assert.Equal(t, ir.DefaultOptions(), p.Options)
			assert.Equal(t, "1", p.CurrentMissionID)
		})
	}
}

func TestContinue_ReadsOwnWrites(t *testing.T) {
	e, ms := newTestEngine(t)
	release := ms.Hold()
	require.NoError(t, e.ConfirmSquad([]string{"a", "b"}))

	go func() {
		release()
	}()
	assert.True(t, e.Continue(context.Background()))
	assert.Equal(t, PhaseBriefing, e.Phase())
}

func TestDerivePhase(t *testing.T) {
	g := mustGraph(t, sortietest.ReferenceCampaign())

	assert.Equal(t, PhaseAwaitingSquad, DerivePhase(g, ir.NewRunState("1")))
	assert.Equal(t, PhaseBriefing, DerivePhase(g, ir.RunState{SelectedSquad: []string{"a", "b"}}))
	assert.Equal(t, PhasePathChoice, DerivePhase(g, ir.RunState{CompletedPath: []string{"1"}}))
	assert.Equal(t, PhaseRunComplete, DerivePhase(g, ir.RunState{CompletedPath: []string{"1", "2b", "4", "5b"}}))
}
