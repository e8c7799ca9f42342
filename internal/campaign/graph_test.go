package campaign

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sortie/internal/ir"
	"github.com/roach88/sortie/internal/testutil"
)

func mustGraph(t *testing.T, c ir.Campaign) *Graph {
	t.Helper()
	g, err := FromCampaign(c)
	require.NoError(t, err)
	return g
}

func requireIntegrity(t *testing.T, err error, want IntegrityCode) *GraphIntegrityError {
	t.Helper()
	require.Error(t, err)
	var ge *GraphIntegrityError
	require.True(t, errors.As(err, &ge), "expected GraphIntegrityError, got %T: %v", err, err)
	assert.Equal(t, want, ge.Code)
	return ge
}

func TestNew_ReferenceCampaign(t *testing.T) {
	g := mustGraph(t, testutil.ReferenceCampaign())

	assert.Equal(t, "1", g.Entry())
	assert.Equal(t, 7, g.Len())
	assert.Equal(t, []string{"2a", "2b"}, g.SuccessorsOf("1"))
	assert.Equal(t, []string{"3"}, g.SuccessorsOf("2a"))
	assert.Empty(t, g.SuccessorsOf("5a"))
	assert.True(t, g.IsFinal("5a"))
	assert.False(t, g.IsFinal("1"))
	assert.Equal(t, []string{"5a", "5b"}, g.Finals())
}

func TestNew_EveryMissionReachableFromEntry(t *testing.T) {
	for _, c := range []ir.Campaign{
		testutil.ReferenceCampaign(),
		testutil.ReconvergentCampaign(),
		testutil.LinearCampaign(6),
	} {
		t.Run(c.Name, func(t *testing.T) {
			g := mustGraph(t, c)
			reachable := g.ReachableFrom(g.Entry())
			assert.Len(t, reachable, g.Len())
			for _, m := range g.Missions() {
				assert.Contains(t, reachable, m.ID)
			}
		})
	}
}

func TestNew_EdgesMirrorChoices(t *testing.T) {
	g := mustGraph(t, testutil.ReferenceCampaign())

	var fromChoices int
	for _, m := range g.Missions() {
		fromChoices += len(m.NextChoices)
		for _, next := range m.NextChoices {
			assert.Contains(t, g.Edges(), ir.Edge{From: m.ID, To: next})
		}
	}
	assert.Len(t, g.Edges(), fromChoices)
}

func TestNew_DerivesEdgesWhenNil(t *testing.T) {
	c := testutil.ReferenceCampaign()
	g, err := New(c.Missions, nil)
	require.NoError(t, err)
	assert.Equal(t, ir.DeriveEdges(c.Missions), g.Edges())
}

func TestNew_EmptyGraph(t *testing.T) {
	_, err := New(nil, nil)
	requireIntegrity(t, err, ErrCodeEmptyGraph)
}

func TestNew_UndefinedSuccessor(t *testing.T) {
	c := testutil.ReferenceCampaign()
	c.Missions[1].NextChoices = []string{"9"}
	_, err := New(c.Missions, nil)

	ge := requireIntegrity(t, err, ErrCodeUndefinedSuccessor)
	assert.Equal(t, "2a", ge.MissionID)
	assert.Contains(t, ge.Error(), `"9"`)
}

func TestNew_Cycle(t *testing.T) {
	missions := []ir.Mission{
		{ID: "1", Difficulty: 1, NextChoices: []string{"2"}},
		{ID: "2", Difficulty: 1, NextChoices: []string{"3", "4"}},
		{ID: "3", Difficulty: 1, NextChoices: []string{"2"}},
		{ID: "4", Difficulty: 1, IsFinal: true},
	}
	_, err := New(missions, nil)

	ge := requireIntegrity(t, err, ErrCodeCycle)
	assert.ElementsMatch(t, []string{"2", "3"}, ge.Path)
	assert.Contains(t, ge.Error(), "2 -> 3 -> 2")
}

func TestNew_SelfLoop(t *testing.T) {
	missions := []ir.Mission{
		{ID: "1", Difficulty: 1, NextChoices: []string{"1", "2"}},
		{ID: "2", Difficulty: 1, IsFinal: true},
	}
	_, err := New(missions, nil)
	requireIntegrity(t, err, ErrCodeCycle)
}

func TestNew_AmbiguousEntry(t *testing.T) {
	missions := []ir.Mission{
		{ID: "1", Difficulty: 1, NextChoices: []string{"3"}},
		{ID: "2", Difficulty: 1, NextChoices: []string{"3"}},
		{ID: "3", Difficulty: 1, IsFinal: true},
	}
	_, err := New(missions, nil)

	ge := requireIntegrity(t, err, ErrCodeAmbiguousEntry)
	assert.Equal(t, []string{"1", "2"}, ge.Path)
}

func TestNew_FinalWithSuccessors(t *testing.T) {
	missions := []ir.Mission{
		{ID: "1", Difficulty: 1, NextChoices: []string{"2"}, IsFinal: true},
		{ID: "2", Difficulty: 1, IsFinal: true},
	}
	_, err := New(missions, nil)
	requireIntegrity(t, err, ErrCodeFinalHasSuccessors)
}

func TestNew_DeadEnd(t *testing.T) {
	missions := []ir.Mission{
		{ID: "1", Difficulty: 1, NextChoices: []string{"2"}},
		{ID: "2", Difficulty: 1},
	}
	_, err := New(missions, nil)
	requireIntegrity(t, err, ErrCodeDeadEnd)
}

func TestNew_DuplicateMission(t *testing.T) {
	missions := []ir.Mission{
		{ID: "1", Difficulty: 1, IsFinal: true},
		{ID: "1", Difficulty: 2, IsFinal: true},
	}
	_, err := New(missions, nil)
	requireIntegrity(t, err, ErrCodeDuplicateMission)
}

func TestNew_DuplicateChoice(t *testing.T) {
	missions := []ir.Mission{
		{ID: "1", Difficulty: 1, NextChoices: []string{"2", "2"}},
		{ID: "2", Difficulty: 1, IsFinal: true},
	}
	_, err := New(missions, nil)
	requireIntegrity(t, err, ErrCodeDuplicateChoice)
}

func TestNew_InvalidDifficulty(t *testing.T) {
	for _, d := range []int{0, 6} {
		missions := []ir.Mission{{ID: "1", Difficulty: d, IsFinal: true}}
		_, err := New(missions, nil)
		requireIntegrity(t, err, ErrCodeInvalidDifficulty)
	}
}

func TestNew_EdgeMismatch(t *testing.T) {
	c := testutil.ReferenceCampaign()

	t.Run("missing edge", func(t *testing.T) {
		_, err := New(c.Missions, c.Edges[1:])
		requireIntegrity(t, err, ErrCodeEdgeMismatch)
	})

	t.Run("extra edge", func(t *testing.T) {
		edges := append(ir.DeriveEdges(c.Missions), ir.Edge{From: "2a", To: "4"})
		_, err := New(c.Missions, edges)
		requireIntegrity(t, err, ErrCodeEdgeMismatch)
	})

	t.Run("duplicate edge", func(t *testing.T) {
		edges := append(ir.DeriveEdges(c.Missions), c.Edges[0])
		_, err := New(c.Missions, edges)
		requireIntegrity(t, err, ErrCodeEdgeMismatch)
	})

	t.Run("reordered edges accepted", func(t *testing.T) {
		edges := ir.DeriveEdges(c.Missions)
		edges[0], edges[len(edges)-1] = edges[len(edges)-1], edges[0]
		_, err := New(c.Missions, edges)
		require.NoError(t, err)
	})
}

func TestMissionByID(t *testing.T) {
	g := mustGraph(t, testutil.ReferenceCampaign())

	m, err := g.MissionByID("2b")
	require.NoError(t, err)
	assert.Equal(t, "Dust Run", m.Name)

	_, err = g.MissionByID("nope")
	assert.ErrorIs(t, err, ErrMissionNotFound)
}

func TestGraph_IsImmutable(t *testing.T) {
	c := testutil.ReferenceCampaign()
	g := mustGraph(t, c)

	c.Missions[0].NextChoices[0] = "mutated"
	succ := g.SuccessorsOf("1")
	succ[0] = "mutated"
	m, err := g.MissionByID("1")
	require.NoError(t, err)
	m.NextChoices[1] = "mutated"

	assert.Equal(t, []string{"2a", "2b"}, g.SuccessorsOf("1"))
}

func TestPredecessorsOf_Reconvergent(t *testing.T) {
	g := mustGraph(t, testutil.ReconvergentCampaign())
	assert.Equal(t, []string{"2a", "2b"}, g.PredecessorsOf("3"))
	assert.Empty(t, g.PredecessorsOf("1"))
}

func TestIsValidChain(t *testing.T) {
	g := mustGraph(t, testutil.ReferenceCampaign())

	assert.True(t, g.IsValidChain(nil))
	assert.True(t, g.IsValidChain([]string{"1"}))
	assert.True(t, g.IsValidChain([]string{"1", "2a", "3", "5a"}))
	assert.False(t, g.IsValidChain([]string{"2a"}), "must start at entry")
	assert.False(t, g.IsValidChain([]string{"1", "3"}), "skips a step")
	assert.False(t, g.IsValidChain([]string{"1", "2a", "1"}), "duplicate")
	assert.False(t, g.IsValidChain([]string{"1", "2a", "4"}), "crosses branches")
}

func TestIntegrityCodeOf(t *testing.T) {
	_, err := New(nil, nil)
	code, ok := IntegrityCodeOf(err)
	assert.True(t, ok)
	assert.Equal(t, ErrCodeEmptyGraph, code)
	assert.True(t, IsIntegrityError(err))

	_, ok = IntegrityCodeOf(errors.New("other"))
	assert.False(t, ok)
}
