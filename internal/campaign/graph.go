package campaign

import (
	"fmt"
	"slices"

	"github.com/roach88/sortie/internal/ir"
)

// Graph is the immutable campaign graph.
//
// INVARIANTS (checked by New):
//   - the graph is a DAG rooted at a single entry mission
//   - every mission is reachable from the entry
//   - final missions have no successors; non-final missions have at least one
//   - edges mirror the union of all NextChoices exactly
type Graph struct {
	missions map[string]ir.Mission
	order    []string // declaration order
	edges    []ir.Edge
	preds    map[string][]string
	entry    string
}

// FromCampaign builds the graph for a compiled campaign.
func FromCampaign(c ir.Campaign) (*Graph, error) {
	return New(c.Missions, c.Edges)
}

// New validates missions and edges and builds the graph.
//
// If edges is nil it is derived from NextChoices. A non-nil edge list must
// mirror NextChoices exactly (order-insensitive).
func New(missions []ir.Mission, edges []ir.Edge) (*Graph, error) {
	if len(missions) == 0 {
		return nil, integrityErr(ErrCodeEmptyGraph, "", "campaign defines no missions")
	}

	g := &Graph{
		missions: make(map[string]ir.Mission, len(missions)),
		order:    make([]string, 0, len(missions)),
		preds:    make(map[string][]string, len(missions)),
	}

	for _, m := range missions {
		if _, dup := g.missions[m.ID]; dup {
			return nil, integrityErr(ErrCodeDuplicateMission, m.ID, "mission id defined more than once")
		}
		if m.Difficulty < ir.MinDifficulty || m.Difficulty > ir.MaxDifficulty {
			return nil, integrityErr(ErrCodeInvalidDifficulty, m.ID,
				"difficulty %d outside %d..%d", m.Difficulty, ir.MinDifficulty, ir.MaxDifficulty)
		}
		m.NextChoices = slices.Clone(m.NextChoices)
		g.missions[m.ID] = m
		g.order = append(g.order, m.ID)
	}

	succ := make(successorGraph, len(missions))
	for _, id := range g.order {
		m := g.missions[id]
		seen := make(map[string]bool, len(m.NextChoices))
		for _, next := range m.NextChoices {
			if _, ok := g.missions[next]; !ok {
				return nil, integrityErr(ErrCodeUndefinedSuccessor, id, "successor %q is not defined", next)
			}
			if seen[next] {
				return nil, integrityErr(ErrCodeDuplicateChoice, id, "successor %q listed twice", next)
			}
			seen[next] = true
			g.preds[next] = append(g.preds[next], id)
		}
		switch {
		case m.IsFinal && len(m.NextChoices) > 0:
			return nil, integrityErr(ErrCodeFinalHasSuccessors, id, "final mission lists %d successors", len(m.NextChoices))
		case !m.IsFinal && len(m.NextChoices) == 0:
			return nil, integrityErr(ErrCodeDeadEnd, id, "non-final mission has no successors")
		}
		succ[id] = m.NextChoices
	}

	derived := ir.DeriveEdges(missions)
	if edges == nil {
		g.edges = derived
	} else {
		if err := mirrorEdges(edges, derived); err != nil {
			return nil, err
		}
		g.edges = slices.Clone(edges)
	}

	if cycles := findCycles(g.order, succ); len(cycles) > 0 {
		e := integrityErr(ErrCodeCycle, cycles[0][0], "campaign graph contains a cycle: %s", formatCycle(cycles[0]))
		e.Path = cycles[0]
		return nil, e
	}

	var roots []string
	for _, id := range g.order {
		if len(g.preds[id]) == 0 {
			roots = append(roots, id)
		}
	}
	switch {
	case len(roots) == 0:
		return nil, integrityErr(ErrCodeNoEntry, "", "every mission has a predecessor")
	case len(roots) > 1:
		e := integrityErr(ErrCodeAmbiguousEntry, roots[1], "%d missions have no incoming edges: %v", len(roots), roots)
		e.Path = roots
		return nil, e
	}
	g.entry = roots[0]

	return g, nil
}

// mirrorEdges checks that edges and derived hold the same set of links.
func mirrorEdges(edges, derived []ir.Edge) error {
	want := make(map[ir.Edge]bool, len(derived))
	for _, e := range derived {
		want[e] = true
	}
	got := make(map[ir.Edge]bool, len(edges))
	for _, e := range edges {
		if !want[e] {
			return integrityErr(ErrCodeEdgeMismatch, e.From, "edge %s -> %s has no matching choice", e.From, e.To)
		}
		if got[e] {
			return integrityErr(ErrCodeEdgeMismatch, e.From, "edge %s -> %s listed twice", e.From, e.To)
		}
		got[e] = true
	}
	for _, e := range derived {
		if !got[e] {
			return integrityErr(ErrCodeEdgeMismatch, e.From, "choice %s -> %s has no edge", e.From, e.To)
		}
	}
	return nil
}

// Entry returns the id of the single root mission.
func (g *Graph) Entry() string {
	return g.entry
}

// Len returns the number of missions.
func (g *Graph) Len() int {
	return len(g.order)
}

// Has reports whether id names a mission.
func (g *Graph) Has(id string) bool {
	_, ok := g.missions[id]
	return ok
}

// MissionByID returns the mission with the given id.
// Returns an error wrapping ErrMissionNotFound for unknown ids.
func (g *Graph) MissionByID(id string) (ir.Mission, error) {
	m, ok := g.missions[id]
	if !ok {
		return ir.Mission{}, fmt.Errorf("%w: %q", ErrMissionNotFound, id)
	}
	m.NextChoices = slices.Clone(m.NextChoices)
	return m, nil
}

// SuccessorsOf returns the ordered successor ids of a mission.
// Final and unknown missions yield an empty slice.
func (g *Graph) SuccessorsOf(id string) []string {
	m, ok := g.missions[id]
	if !ok || len(m.NextChoices) == 0 {
		return []string{}
	}
	return slices.Clone(m.NextChoices)
}

// PredecessorsOf returns the missions that list id as a successor,
// in declaration order.
func (g *Graph) PredecessorsOf(id string) []string {
	return slices.Clone(g.preds[id])
}

// IsFinal reports whether id is a final mission.
func (g *Graph) IsFinal(id string) bool {
	return g.missions[id].IsFinal
}

// Missions returns all missions in declaration order.
func (g *Graph) Missions() []ir.Mission {
	out := make([]ir.Mission, 0, len(g.order))
	for _, id := range g.order {
		m := g.missions[id]
		m.NextChoices = slices.Clone(m.NextChoices)
		out = append(out, m)
	}
	return out
}

// Edges returns the directed edges used for path visualization.
func (g *Graph) Edges() []ir.Edge {
	return slices.Clone(g.edges)
}

// Finals returns the ids of all final missions in declaration order.
func (g *Graph) Finals() []string {
	var finals []string
	for _, id := range g.order {
		if g.missions[id].IsFinal {
			finals = append(finals, id)
		}
	}
	return finals
}

// ReachableFrom returns every mission reachable from id (including id),
// in breadth-first order.
func (g *Graph) ReachableFrom(id string) []string {
	if !g.Has(id) {
		return nil
	}
	seen := map[string]bool{id: true}
	queue := []string{id}
	var out []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		out = append(out, cur)
		for _, next := range g.missions[cur].NextChoices {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return out
}

// IsValidChain reports whether path starts at the entry mission, has no
// duplicates, and each step follows a NextChoices edge.
func (g *Graph) IsValidChain(path []string) bool {
	if len(path) == 0 {
		return true
	}
	if path[0] != g.entry {
		return false
	}
	seen := map[string]bool{path[0]: true}
	for i := 1; i < len(path); i++ {
		if seen[path[i]] || !slices.Contains(g.missions[path[i-1]].NextChoices, path[i]) {
			return false
		}
		seen[path[i]] = true
	}
	return true
}
