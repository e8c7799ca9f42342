package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/sortie/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// Campaign header errors (E101-E104)
	ErrCampaignNameEmpty = "E101" // name is required
	ErrInvalidTeamSize   = "E102" // team size must be >= 1
	ErrInvalidStatRange  = "E103" // stat range min > max

	// Roster errors (E110-E119)
	ErrRosterTooSmall    = "E110" // fewer members than the team size
	ErrDuplicateMember   = "E111" // member id declared twice
	ErrMemberNameEmpty   = "E112" // member name is required
	ErrStatOutOfRange    = "E113" // stat outside the campaign stat range
	ErrMissionNameEmpty  = "E114" // mission name is required
	ErrUnlockInvalidTier = "E120" // unlock tier must be >= 1
	ErrUnlockDuplicate   = "E121" // unlock tier declared twice
	ErrUnlockNameEmpty   = "E122" // unlock name is required
)

// ValidationError represents a campaign validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks the campaign header, roster and unlock tiers.
// Returns all errors found (does not fail-fast). Graph integrity is
// checked separately by campaign.FromCampaign.
func Validate(c ir.Campaign) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "campaign.name",
			Message: "name is required and must be non-empty",
			Code:    ErrCampaignNameEmpty,
		})
	}
	if c.TeamSize < 1 {
		errs = append(errs, ValidationError{
			Field:   "campaign.teamSize",
			Message: fmt.Sprintf("team size %d must be at least 1", c.TeamSize),
			Code:    ErrInvalidTeamSize,
		})
	}
	rangeOK := c.StatRange.Min <= c.StatRange.Max
	if !rangeOK {
		errs = append(errs, ValidationError{
			Field:   "campaign.statRange",
			Message: fmt.Sprintf("min %d is greater than max %d", c.StatRange.Min, c.StatRange.Max),
			Code:    ErrInvalidStatRange,
		})
	}

	for _, m := range c.Missions {
		if strings.TrimSpace(m.Name) == "" {
			errs = append(errs, ValidationError{
				Field:   "mission." + m.ID + ".name",
				Message: "name is required and must be non-empty",
				Code:    ErrMissionNameEmpty,
			})
		}
	}

	errs = append(errs, validateRoster(c, rangeOK)...)
	errs = append(errs, validateUnlocks(c.Unlocks)...)
	return errs
}

func validateRoster(c ir.Campaign, checkStats bool) []ValidationError {
	var errs []ValidationError

	if c.TeamSize >= 1 && len(c.Roster) < c.TeamSize {
		errs = append(errs, ValidationError{
			Field:   "member",
			Message: fmt.Sprintf("roster has %d members, team size is %d", len(c.Roster), c.TeamSize),
			Code:    ErrRosterTooSmall,
		})
	}

	seen := make(map[string]bool)
	for _, m := range c.Roster {
		field := "member." + m.ID
		if seen[m.ID] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate member id: %q", m.ID),
				Code:    ErrDuplicateMember,
			})
		}
		seen[m.ID] = true

		if strings.TrimSpace(m.Name) == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: "name is required and must be non-empty",
				Code:    ErrMemberNameEmpty,
			})
		}

		if !checkStats {
			continue
		}
		for _, stat := range []struct {
			name  string
			value int
		}{
			{"attack", m.Stats.Attack},
			{"defense", m.Stats.Defense},
			{"support", m.Stats.Support},
		} {
			if !c.StatRange.Contains(stat.value) {
				errs = append(errs, ValidationError{
					Field:   field + ".stats." + stat.name,
					Message: fmt.Sprintf("%d is outside %d..%d", stat.value, c.StatRange.Min, c.StatRange.Max),
					Code:    ErrStatOutOfRange,
				})
			}
		}
	}
	return errs
}

func validateUnlocks(unlocks []ir.UnlockTier) []ValidationError {
	var errs []ValidationError
	seen := make(map[int]bool)
	for i, u := range unlocks {
		field := fmt.Sprintf("unlock[%d]", i)
		if u.Tier < 1 {
			errs = append(errs, ValidationError{
				Field:   field + ".tier",
				Message: fmt.Sprintf("tier %d must be at least 1", u.Tier),
				Code:    ErrUnlockInvalidTier,
			})
		} else if seen[u.Tier] {
			errs = append(errs, ValidationError{
				Field:   field + ".tier",
				Message: fmt.Sprintf("tier %d declared more than once", u.Tier),
				Code:    ErrUnlockDuplicate,
			})
		}
		seen[u.Tier] = true

		if strings.TrimSpace(u.Name) == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: "name is required and must be non-empty",
				Code:    ErrUnlockNameEmpty,
			})
		}
	}
	return errs
}
