package testutil

import (
	"fmt"

	"github.com/roach88/sortie/internal/ir"
)

// ReferenceCampaign returns the branching campaign used throughout the tests:
//
//	1 -> 2a -> 3 -> 5a (final)
//	  -> 2b -> 4 -> 5b (final)
//
// Roster: four members (a, b, c, d). Team size 2. Three unlock tiers.
func ReferenceCampaign() ir.Campaign {
	missions := []ir.Mission{
		{ID: "1", Name: "First Light", Difficulty: 1, NextChoices: []string{"2a", "2b"}, Environment: "orbit"},
		{ID: "2a", Name: "Ion Storm", Difficulty: 2, NextChoices: []string{"3"}, Environment: "nebula"},
		{ID: "2b", Name: "Dust Run", Difficulty: 2, NextChoices: []string{"4"}, Environment: "desert"},
		{ID: "3", Name: "Ghost Fleet", Difficulty: 3, NextChoices: []string{"5a"}, Environment: "nebula"},
		{ID: "4", Name: "Sandglass", Difficulty: 3, NextChoices: []string{"5b"}, Environment: "desert"},
		{ID: "5a", Name: "Crown of Ash", Difficulty: 5, IsFinal: true, Environment: "core"},
		{ID: "5b", Name: "Last Oasis", Difficulty: 4, IsFinal: true, Environment: "core"},
	}
	return ir.Campaign{
		Name:      "reference",
		TeamSize:  ir.DefaultTeamSize,
		StatRange: ir.DefaultStatRange,
		Missions:  missions,
		Edges:     ir.DeriveEdges(missions),
		Roster:    ReferenceRoster(),
		Unlocks:   ReferenceUnlocks(),
	}
}

// ReferenceRoster returns the four-member test roster.
func ReferenceRoster() []ir.Member {
	return []ir.Member{
		{ID: "a", Name: "Ace", Role: "striker", Stats: ir.Stats{Attack: 5, Defense: 2, Support: 1}},
		{ID: "b", Name: "Bastion", Role: "tank", Stats: ir.Stats{Attack: 2, Defense: 5, Support: 2}},
		{ID: "c", Name: "Cipher", Role: "support", Stats: ir.Stats{Attack: 1, Defense: 2, Support: 5}},
		{ID: "d", Name: "Drift", Role: "scout", Stats: ir.Stats{Attack: 3, Defense: 3, Support: 3}},
	}
}

// ReferenceUnlocks returns three New-Game-Plus tiers.
func ReferenceUnlocks() []ir.UnlockTier {
	return []ir.UnlockTier{
		{Tier: 1, Name: "Veteran Paint", Description: "Alternate hull colors"},
		{Tier: 2, Name: "Hard Mode", Description: "Enemies hit harder"},
		{Tier: 3, Name: "Ace Pilots", Description: "Squad starts with bonus stats"},
	}
}

// ReconvergentCampaign returns a campaign where two branches share a successor:
//
//	1 -> 2a -> 3 (final)
//	  -> 2b -> 3
func ReconvergentCampaign() ir.Campaign {
	c := ReferenceCampaign()
	c.Name = "reconvergent"
	c.Missions = []ir.Mission{
		{ID: "1", Name: "Split", Difficulty: 1, NextChoices: []string{"2a", "2b"}},
		{ID: "2a", Name: "Left", Difficulty: 2, NextChoices: []string{"3"}},
		{ID: "2b", Name: "Right", Difficulty: 2, NextChoices: []string{"3"}},
		{ID: "3", Name: "Join", Difficulty: 3, IsFinal: true},
	}
	c.Edges = ir.DeriveEdges(c.Missions)
	return c
}

// LinearCampaign returns n missions m1 -> m2 -> ... -> mn with mn final.
func LinearCampaign(n int) ir.Campaign {
	c := ReferenceCampaign()
	c.Name = fmt.Sprintf("linear-%d", n)
	c.Missions = make([]ir.Mission, n)
	for i := 0; i < n; i++ {
		m := ir.Mission{
			ID:         fmt.Sprintf("m%d", i+1),
			Name:       fmt.Sprintf("Mission %d", i+1),
			Difficulty: min(i+1, ir.MaxDifficulty),
		}
		if i == n-1 {
			m.IsFinal = true
		} else {
			m.NextChoices = []string{fmt.Sprintf("m%d", i+2)}
		}
		c.Missions[i] = m
	}
	c.Edges = ir.DeriveEdges(c.Missions)
	return c
}

// Outcome returns a victorious outcome with the given score.
func Outcome(score int64) ir.MissionOutcome {
	return ir.MissionOutcome{
		Completed: true,
		Score:     score,
		Hits:      12,
		Accuracy:  75,
		Time:      "02:30",
		Rank:      ir.RankA,
	}
}

// Failure returns a failed outcome with the given score.
func Failure(score int64) ir.MissionOutcome {
	o := Outcome(score)
	o.Completed = false
	o.Rank = ir.RankD
	return o
}
