package engine

import (
	"github.com/roach88/sortie/internal/campaign"
	"github.com/roach88/sortie/internal/ir"
)

// AvailableChoices returns the missions playable next from state.
//
// With nothing completed only the entry mission is available. Otherwise the
// successors of the last completed mission are returned in declaration
// order, minus any already completed. When two branches reconverge on a
// shared successor, completing either predecessor makes it available.
func AvailableChoices(graph *campaign.Graph, state ir.RunState) []string {
	last, ok := state.LastCompleted()
	if !ok {
		return []string{graph.Entry()}
	}
	out := []string{}
	for _, id := range graph.SuccessorsOf(last) {
		if !state.HasCompleted(id) {
			out = append(out, id)
		}
	}
	return out
}
