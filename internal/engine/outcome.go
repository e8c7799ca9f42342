package engine

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/sortie/internal/ir"
)

// validateOutcome checks the shape of an outcome from the gameplay engine.
// Internal consistency (score vs hits vs rank) is not checked.
func validateOutcome(o ir.MissionOutcome, squad []string) *TransitionError {
	var problems []string
	if o.Score < 0 {
		problems = append(problems, fmt.Sprintf("score %d is negative", o.Score))
	}
	if o.Hits < 0 {
		problems = append(problems, fmt.Sprintf("hits %d is negative", o.Hits))
	}
	if o.Accuracy < 0 || o.Accuracy > 100 {
		problems = append(problems, fmt.Sprintf("accuracy %d outside 0..100", o.Accuracy))
	}
	if !o.Rank.Valid() {
		problems = append(problems, fmt.Sprintf("rank %q is not one of S, A, B, C, D", o.Rank))
	}
	inSquad := make(map[string]bool, len(squad))
	for _, id := range squad {
		inSquad[id] = true
	}
	for id := range o.SquadStatus {
		if !inSquad[id] {
			problems = append(problems, fmt.Sprintf("squadStatus names %q, who is not in the squad", id))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	// map iteration above is unordered
	slices.Sort(problems)
	return newTransitionError(ErrCodeInvalidOutcome, "%s", strings.Join(problems, "; "))
}

// validateOptions checks option ranges.
func validateOptions(o ir.Options) *TransitionError {
	var problems []string
	for name, v := range map[string]int{
		"masterVolume": o.MasterVolume,
		"musicVolume":  o.MusicVolume,
		"sfxVolume":    o.SFXVolume,
	} {
		if v < 0 || v > 100 {
			problems = append(problems, fmt.Sprintf("%s %d outside 0..100", name, v))
		}
	}
	if strings.TrimSpace(o.Difficulty) == "" {
		problems = append(problems, "difficulty is empty")
	}
	if len(problems) == 0 {
		return nil
	}
	slices.Sort(problems)
	return newTransitionError(ErrCodeInvalidOptions, "%s", strings.Join(problems, "; "))
}
