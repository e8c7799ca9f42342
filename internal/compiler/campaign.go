package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/sortie/internal/ir"
)

// CompileCampaign parses a CUE value into a Campaign.
// Uses the CUE SDK's Go API directly.
//
// The value is the root of a campaign definition:
//
//	campaign: {name: "Nightfall", teamSize: 2}
//	mission: "1": {name: "First Light", difficulty: 1, next: ["2a", "2b"]}
//	member: ace: {name: "Ace", stats: {attack: 5, defense: 2, support: 1}}
//	unlock: [{tier: 1, name: "Veteran Paint", description: "..."}]
//
// Missions keep declaration order; the first mission is not required to be
// the entry, the graph finds it. Graph integrity is checked by
// campaign.FromCampaign, roster rules by Validate.
func CompileCampaign(v cue.Value) (*ir.Campaign, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	c := &ir.Campaign{
		TeamSize:  ir.DefaultTeamSize,
		StatRange: ir.DefaultStatRange,
	}

	header := v.LookupPath(cue.ParsePath("campaign"))
	if !header.Exists() {
		return nil, &CompileError{
			Field:   "campaign",
			Message: "campaign block is required",
			Pos:     v.Pos(),
		}
	}
	name, err := requiredString(header, "name")
	if err != nil {
		return nil, err
	}
	c.Name = name

	if teamSize, ok, err := optionalInt(header, "teamSize"); err != nil {
		return nil, err
	} else if ok {
		c.TeamSize = teamSize
	}

	if rangeVal := header.LookupPath(cue.ParsePath("statRange")); rangeVal.Exists() {
		if c.StatRange.Min, err = requiredInt(rangeVal, "min"); err != nil {
			return nil, err
		}
		if c.StatRange.Max, err = requiredInt(rangeVal, "max"); err != nil {
			return nil, err
		}
	}

	c.Missions, err = parseMissions(v)
	if err != nil {
		return nil, err
	}
	if len(c.Missions) == 0 {
		return nil, &CompileError{
			Field:   "mission",
			Message: "at least one mission is required",
			Pos:     v.Pos(),
		}
	}
	c.Edges = ir.DeriveEdges(c.Missions)

	c.Roster, err = parseMembers(v)
	if err != nil {
		return nil, err
	}

	c.Unlocks, err = parseUnlocks(v)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// parseMissions reads the mission struct in declaration order.
func parseMissions(v cue.Value) ([]ir.Mission, error) {
	missionsVal := v.LookupPath(cue.ParsePath("mission"))
	if !missionsVal.Exists() {
		return nil, nil
	}

	iter, err := missionsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var missions []ir.Mission
	for iter.Next() {
		mv := iter.Value()
		m := ir.Mission{ID: normalizeID(iter.Label())}

		if m.Name, err = requiredString(mv, "name"); err != nil {
			return nil, err
		}
		if m.Difficulty, err = requiredInt(mv, "difficulty"); err != nil {
			return nil, err
		}
		if m.Description, err = optionalString(mv, "description"); err != nil {
			return nil, err
		}
		if m.Environment, err = optionalString(mv, "environment"); err != nil {
			return nil, err
		}

		next, err := stringList(mv, "next")
		if err != nil {
			return nil, err
		}
		for i := range next {
			next[i] = normalizeID(next[i])
		}
		m.NextChoices = next

		finalVal := mv.LookupPath(cue.ParsePath("final"))
		if finalVal.Exists() {
			final, err := finalVal.Bool()
			if err != nil {
				return nil, formatCUEError(err)
			}
			m.IsFinal = final
		}

		if mapVal := mv.LookupPath(cue.ParsePath("map")); mapVal.Exists() {
			if m.Map.X, err = requiredInt(mapVal, "x"); err != nil {
				return nil, err
			}
			if m.Map.Y, err = requiredInt(mapVal, "y"); err != nil {
				return nil, err
			}
		}

		missions = append(missions, m)
	}
	return missions, nil
}

// parseMembers reads the member struct in declaration order.
func parseMembers(v cue.Value) ([]ir.Member, error) {
	membersVal := v.LookupPath(cue.ParsePath("member"))
	if !membersVal.Exists() {
		return nil, nil
	}

	iter, err := membersVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var roster []ir.Member
	for iter.Next() {
		mv := iter.Value()
		m := ir.Member{ID: normalizeID(iter.Label())}

		if m.Name, err = requiredString(mv, "name"); err != nil {
			return nil, err
		}
		if m.Role, err = optionalString(mv, "role"); err != nil {
			return nil, err
		}
		if m.Description, err = optionalString(mv, "description"); err != nil {
			return nil, err
		}

		statsVal := mv.LookupPath(cue.ParsePath("stats"))
		if !statsVal.Exists() {
			return nil, &CompileError{
				Field:   "member." + m.ID + ".stats",
				Message: "stats are required",
				Pos:     mv.Pos(),
			}
		}
		if m.Stats.Attack, err = requiredInt(statsVal, "attack"); err != nil {
			return nil, err
		}
		if m.Stats.Defense, err = requiredInt(statsVal, "defense"); err != nil {
			return nil, err
		}
		if m.Stats.Support, err = requiredInt(statsVal, "support"); err != nil {
			return nil, err
		}

		roster = append(roster, m)
	}
	return roster, nil
}

// parseUnlocks reads the unlock list.
func parseUnlocks(v cue.Value) ([]ir.UnlockTier, error) {
	unlocksVal := v.LookupPath(cue.ParsePath("unlock"))
	if !unlocksVal.Exists() {
		return nil, nil
	}

	iter, err := unlocksVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var unlocks []ir.UnlockTier
	for iter.Next() {
		uv := iter.Value()
		var u ir.UnlockTier
		if u.Tier, err = requiredInt(uv, "tier"); err != nil {
			return nil, err
		}
		if u.Name, err = requiredString(uv, "name"); err != nil {
			return nil, err
		}
		if u.Description, err = optionalString(uv, "description"); err != nil {
			return nil, err
		}
		unlocks = append(unlocks, u)
	}
	return unlocks, nil
}

// normalizeID applies NFC so visually identical ids compare equal.
func normalizeID(id string) string {
	return norm.NFC.String(id)
}

func requiredString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{
			Field:   field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func requiredInt(v cue.Value, field string) (int, error) {
	n, ok, err := optionalInt(v, field)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, &CompileError{
			Field:   field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	return n, nil
}

// optionalInt reads an integer field. Floats are rejected so scores and
// stats stay exact.
func optionalInt(v cue.Value, field string) (int, bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, false, nil
	}
	switch fv.IncompleteKind() {
	case cue.IntKind:
	case cue.FloatKind, cue.NumberKind:
		return 0, false, &CompileError{
			Field:   field,
			Message: "float values are forbidden, use int instead",
			Pos:     fv.Pos(),
		}
	default:
		return 0, false, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("expected int, got %v", fv.IncompleteKind()),
			Pos:     fv.Pos(),
		}
	}
	n, err := fv.Int64()
	if err != nil {
		return 0, false, formatCUEError(err)
	}
	return int(n), true, nil
}

func stringList(v cue.Value, field string) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	iter, err := fv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
