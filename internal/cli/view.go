package cli

import (
	"fmt"
	"strings"

	"github.com/roach88/sortie/internal/ir"
)

// StatusView is the JSON shape of a run after a command.
type StatusView struct {
	Profile  string               `json:"profile"`
	Phase    string               `json:"phase"`
	Resumed  bool                 `json:"resumed"`
	Session  string               `json:"session"`
	Progress ir.PersistedProgress `json:"progress"`
	Choices  []string             `json:"choices"`
	Unlocks  []ir.UnlockTier      `json:"unlocks"`
}

func (s *Session) view() StatusView {
	choices := s.Engine.AvailableChoices()
	if choices == nil {
		choices = []string{}
	}
	return StatusView{
		Profile:  s.Config.Profile,
		Phase:    s.Engine.Phase().String(),
		Resumed:  s.Resumed,
		Session:  s.Engine.Session(),
		Progress: s.Engine.Progress(),
		Choices:  choices,
		Unlocks:  s.Engine.UnlocksEarned(),
	}
}

// statusText formats v for text output.
func (s *Session) statusText(v StatusView) string {
	var b strings.Builder
	p := v.Progress
	fmt.Fprintf(&b, "Profile:  %s\n", v.Profile)
	fmt.Fprintf(&b, "Phase:    %s\n", v.Phase)
	fmt.Fprintf(&b, "Mission:  %s\n", s.missionLabel(p.CurrentMissionID))
	fmt.Fprintf(&b, "Squad:    %s\n", listOrNone(p.SelectedSquad, ", "))
	fmt.Fprintf(&b, "Path:     %s\n", listOrNone(p.CompletedPath, " -> "))
	fmt.Fprintf(&b, "Score:    %d\n", p.CumulativeScore)
	fmt.Fprintf(&b, "Runs:     %d\n", p.CompletedRuns)
	if len(v.Choices) > 0 {
		labels := make([]string, len(v.Choices))
		for i, id := range v.Choices {
			labels[i] = s.missionLabel(id)
		}
		fmt.Fprintf(&b, "Choices:  %s\n", strings.Join(labels, ", "))
	}
	if len(v.Unlocks) > 0 {
		names := make([]string, len(v.Unlocks))
		for i, u := range v.Unlocks {
			names[i] = u.Name
		}
		fmt.Fprintf(&b, "Unlocks:  %s\n", strings.Join(names, ", "))
	}
	return b.String()
}

func (s *Session) missionLabel(id string) string {
	m, err := s.Campaign.Graph.MissionByID(id)
	if err != nil {
		return id
	}
	return fmt.Sprintf("%s (%s)", id, m.Name)
}

func listOrNone(items []string, sep string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, sep)
}
