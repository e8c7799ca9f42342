package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/sortie/internal/ir"
	"github.com/roach88/sortie/internal/testutil"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateReferenceCampaign(t *testing.T) {
	assert.Empty(t, Validate(testutil.ReferenceCampaign()))
}

func TestValidateHeader(t *testing.T) {
	c := testutil.ReferenceCampaign()
	c.Name = "  "
	c.TeamSize = 0
	c.StatRange = ir.StatRange{Min: 5, Max: 1}

	errs := Validate(c)
	assert.Equal(t, []string{ErrCampaignNameEmpty, ErrInvalidTeamSize, ErrInvalidStatRange}, codes(errs))
}

func TestValidateRosterTooSmall(t *testing.T) {
	c := testutil.ReferenceCampaign()
	c.TeamSize = 5

	errs := Validate(c)
	assert.Equal(t, []string{ErrRosterTooSmall}, codes(errs))
	assert.Contains(t, errs[0].Message, "4 members")
}

func TestValidateDuplicateMember(t *testing.T) {
	c := testutil.ReferenceCampaign()
	c.Roster = append(c.Roster, c.Roster[0])

	errs := Validate(c)
	assert.Equal(t, []string{ErrDuplicateMember}, codes(errs))
	assert.Equal(t, "member.a", errs[0].Field)
}

func TestValidateStatOutOfRange(t *testing.T) {
	c := testutil.ReferenceCampaign()
	c.Roster[1].Stats.Defense = 6
	c.Roster[2].Stats.Attack = -1

	errs := Validate(c)
	assert.Equal(t, []string{ErrStatOutOfRange, ErrStatOutOfRange}, codes(errs))
	assert.Equal(t, "member.b.stats.defense", errs[0].Field)
	assert.Equal(t, "member.c.stats.attack", errs[1].Field)
}

func TestValidateSkipsStatsWhenRangeInvalid(t *testing.T) {
	c := testutil.ReferenceCampaign()
	c.StatRange = ir.StatRange{Min: 3, Max: 0}

	assert.Equal(t, []string{ErrInvalidStatRange}, codes(Validate(c)))
}

func TestValidateNames(t *testing.T) {
	c := testutil.ReferenceCampaign()
	c.Missions[0].Name = ""
	c.Roster[0].Name = ""
	c.Unlocks[0].Name = ""

	assert.Equal(t, []string{ErrMissionNameEmpty, ErrMemberNameEmpty, ErrUnlockNameEmpty}, codes(Validate(c)))
}

func TestValidateUnlocks(t *testing.T) {
	c := testutil.ReferenceCampaign()
	c.Unlocks = []ir.UnlockTier{
		{Tier: 0, Name: "Zero"},
		{Tier: 1, Name: "One"},
		{Tier: 1, Name: "Again"},
	}

	errs := Validate(c)
	assert.Equal(t, []string{ErrUnlockInvalidTier, ErrUnlockDuplicate}, codes(errs))
	assert.Equal(t, "unlock[2].tier", errs[1].Field)
}

func TestValidationErrorString(t *testing.T) {
	err := ValidationError{Field: "member.a", Message: "duplicate", Code: ErrDuplicateMember}
	assert.Equal(t, "[E111] member.a: duplicate", err.Error())
}
