// Package unlock derives New-Game-Plus rewards from the lifetime count of
// completed runs. Tiers are capped, not cyclic: runs beyond the highest
// configured tier earn nothing new.
package unlock

import (
	"fmt"
	"slices"

	"github.com/roach88/sortie/internal/ir"
)

// Unlock is an earned reward tier.
type Unlock = ir.UnlockTier

// Policy maps completed-run counts to unlock tiers.
type Policy struct {
	tiers []Unlock // sorted by Tier ascending
}

// NewPolicy builds a policy from configured tiers.
// Tiers must be >= 1 and unique.
func NewPolicy(tiers []Unlock) (*Policy, error) {
	sorted := slices.Clone(tiers)
	slices.SortFunc(sorted, func(a, b Unlock) int { return a.Tier - b.Tier })
	for i, t := range sorted {
		if t.Tier < 1 {
			return nil, fmt.Errorf("unlock %q: tier %d must be >= 1", t.Name, t.Tier)
		}
		if i > 0 && sorted[i-1].Tier == t.Tier {
			return nil, fmt.Errorf("unlock tier %d defined more than once", t.Tier)
		}
	}
	return &Policy{tiers: sorted}, nil
}

// UnlocksThrough returns every tier earned after completedRuns runs,
// ordered by tier.
func (p *Policy) UnlocksThrough(completedRuns int) []Unlock {
	out := []Unlock{}
	for _, t := range p.tiers {
		if t.Tier > completedRuns {
			break
		}
		out = append(out, t)
	}
	return out
}

// NewlyUnlocked returns the tier earned by exactly the completedRuns-th run.
func (p *Policy) NewlyUnlocked(completedRuns int) (Unlock, bool) {
	for _, t := range p.tiers {
		if t.Tier == completedRuns {
			return t, true
		}
	}
	return Unlock{}, false
}

// Max returns the highest configured tier, or 0 when none are configured.
func (p *Policy) Max() int {
	if len(p.tiers) == 0 {
		return 0
	}
	return p.tiers[len(p.tiers)-1].Tier
}

// Tiers returns all configured tiers ordered by tier.
func (p *Policy) Tiers() []Unlock {
	return slices.Clone(p.tiers)
}
