package ir

// Rank grades a mission outcome. Ranks are ordered from highest (S) to lowest (D).
type Rank string

const (
	RankS Rank = "S"
	RankA Rank = "A"
	RankB Rank = "B"
	RankC Rank = "C"
	RankD Rank = "D"
)

// Ranks lists every rank from highest to lowest.
var Ranks = []Rank{RankS, RankA, RankB, RankC, RankD}

// Valid reports whether r is one of the fixed ranks.
func (r Rank) Valid() bool {
	return r.order() >= 0
}

// Better reports whether r ranks strictly higher than other.
func (r Rank) Better(other Rank) bool {
	a, b := r.order(), other.order()
	return a >= 0 && (b < 0 || a < b)
}

func (r Rank) order() int {
	for i, rank := range Ranks {
		if rank == r {
			return i
		}
	}
	return -1
}

// MissionOutcome is the result of one mission, produced by the gameplay engine.
type MissionOutcome struct {
	Completed   bool            `json:"completed"`
	Score       int64           `json:"score"`
	Hits        int             `json:"hits"`
	Accuracy    int             `json:"accuracy"`
	Time        string          `json:"time"`
	Rank        Rank            `json:"rank"`
	SquadStatus map[string]bool `json:"squadStatus,omitempty"` // member id -> alive
	Bonuses     []string        `json:"bonuses,omitempty"`
}

// Clone returns a deep copy of the outcome.
func (o MissionOutcome) Clone() MissionOutcome {
	c := o
	if o.SquadStatus != nil {
		c.SquadStatus = make(map[string]bool, len(o.SquadStatus))
		for k, v := range o.SquadStatus {
			c.SquadStatus[k] = v
		}
	}
	c.Bonuses = cloneStrings(o.Bonuses)
	return c
}

// Options is the player's audio, display and difficulty configuration.
type Options struct {
	MasterVolume int    `json:"masterVolume"`
	MusicVolume  int    `json:"musicVolume"`
	SFXVolume    int    `json:"sfxVolume"`
	Fullscreen   bool   `json:"fullscreen"`
	ScreenShake  bool   `json:"screenShake"`
	Difficulty   string `json:"difficulty"`
}

// DefaultOptions returns the options a fresh profile starts with.
func DefaultOptions() Options {
	return Options{
		MasterVolume: 80,
		MusicVolume:  70,
		SFXVolume:    80,
		ScreenShake:  true,
		Difficulty:   "normal",
	}
}

// RunState is the in-memory progress of the active run.
type RunState struct {
	SelectedSquad    []string        `json:"selectedSquad"`
	CurrentMissionID string          `json:"currentMissionId"`
	CompletedPath    []string        `json:"completedPath"`
	CumulativeScore  int64           `json:"cumulativeScore"`
	LastOutcome      *MissionOutcome `json:"lastOutcome,omitempty"`
}

// NewRunState returns a fresh run positioned at the entry mission.
func NewRunState(entryID string) RunState {
	return RunState{
		SelectedSquad:    []string{},
		CurrentMissionID: entryID,
		CompletedPath:    []string{},
	}
}

// Clone returns a deep copy of the run state.
func (s RunState) Clone() RunState {
	c := s
	c.SelectedSquad = cloneStrings(s.SelectedSquad)
	c.CompletedPath = cloneStrings(s.CompletedPath)
	if c.SelectedSquad == nil {
		c.SelectedSquad = []string{}
	}
	if c.CompletedPath == nil {
		c.CompletedPath = []string{}
	}
	if s.LastOutcome != nil {
		o := s.LastOutcome.Clone()
		c.LastOutcome = &o
	}
	return c
}

// HasCompleted reports whether missionID is already on the completed path.
func (s RunState) HasCompleted(missionID string) bool {
	for _, id := range s.CompletedPath {
		if id == missionID {
			return true
		}
	}
	return false
}

// LastCompleted returns the most recently completed mission id.
func (s RunState) LastCompleted() (string, bool) {
	if len(s.CompletedPath) == 0 {
		return "", false
	}
	return s.CompletedPath[len(s.CompletedPath)-1], true
}

// PersistedProgress is the durable single-slot save record.
// It is a superset of RunState; exactly one exists per profile.
type PersistedProgress struct {
	SchemaVersion int   `json:"schemaVersion"`
	Revision      int64 `json:"revision"`

	RunState

	Options       Options `json:"options"`
	CompletedRuns int     `json:"completedRuns"`
}

// Clone returns a deep copy of the record.
func (p PersistedProgress) Clone() PersistedProgress {
	c := p
	c.RunState = p.RunState.Clone()
	return c
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
