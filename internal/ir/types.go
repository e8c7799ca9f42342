package ir

// Difficulty bounds for a Mission.
const (
	MinDifficulty = 1
	MaxDifficulty = 5
)

// DefaultTeamSize is the squad size used when a campaign does not declare one.
const DefaultTeamSize = 2

// Mission is one playable node of the campaign graph.
// Missions are immutable once the graph is built.
type Mission struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Difficulty  int      `json:"difficulty"`
	NextChoices []string `json:"nextChoices"`
	Environment string   `json:"environment,omitempty"`
	IsFinal     bool     `json:"isFinal"`

	// Map is the mission's position on the campaign map.
	Map MapPoint `json:"map"`
}

// MapPoint locates a mission on the campaign map for path visualization.
type MapPoint struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Edge is a directed link between two missions. The edge list of a campaign
// mirrors the union of all NextChoices exactly.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Stats are a squadron member's three scores.
type Stats struct {
	Attack  int `json:"attack"`
	Defense int `json:"defense"`
	Support int `json:"support"`
}

// StatRange bounds member stats. It is campaign configuration, not a hard limit.
type StatRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// DefaultStatRange matches the reference roster.
var DefaultStatRange = StatRange{Min: 0, Max: 5}

// Contains reports whether v lies within the range, inclusive.
func (r StatRange) Contains(v int) bool {
	return v >= r.Min && v <= r.Max
}

// Member is a selectable squadron member.
type Member struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Role        string `json:"role,omitempty"`
	Description string `json:"description,omitempty"`
	Stats       Stats  `json:"stats"`
}

// UnlockTier is one New-Game-Plus reward, earned once CompletedRuns >= Tier.
type UnlockTier struct {
	Tier        int    `json:"tier"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Campaign is the compiled campaign definition: graph, roster and unlock tiers.
type Campaign struct {
	Name      string       `json:"name"`
	TeamSize  int          `json:"teamSize"`
	StatRange StatRange    `json:"statRange"`
	Missions  []Mission    `json:"missions"`
	Edges     []Edge       `json:"edges"`
	Roster    []Member     `json:"roster"`
	Unlocks   []UnlockTier `json:"unlocks"`
}

// DeriveEdges builds the edge list implied by the missions' NextChoices,
// in mission order then choice order.
func DeriveEdges(missions []Mission) []Edge {
	var edges []Edge
	for _, m := range missions {
		for _, next := range m.NextChoices {
			edges = append(edges, Edge{From: m.ID, To: next})
		}
	}
	return edges
}
