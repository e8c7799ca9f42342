package engine

// Phase is the UI-visible state of the engine.
type Phase string

const (
	PhaseAwaitingSquad Phase = "AwaitingSquad"
	PhaseBriefing      Phase = "Briefing"
	PhaseInMission     Phase = "InMission"
	PhaseResults       Phase = "Results"
	PhasePathChoice    Phase = "PathChoice"
	PhaseRunComplete   Phase = "RunComplete"
)

// Phases lists every phase in progression order.
var Phases = []Phase{
	PhaseAwaitingSquad,
	PhaseBriefing,
	PhaseInMission,
	PhaseResults,
	PhasePathChoice,
	PhaseRunComplete,
}

// String implements fmt.Stringer.
func (p Phase) String() string {
	return string(p)
}

// ParsePhase returns the phase named s.
func ParsePhase(s string) (Phase, bool) {
	for _, p := range Phases {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}
