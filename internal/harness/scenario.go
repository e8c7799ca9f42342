package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sortie/internal/engine"
	"github.com/roach88/sortie/internal/ir"
)

// Scenario defines a progression test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Campaign is a directory of CUE campaign files. Empty selects the
	// built-in campaign. Relative paths resolve against the scenario file.
	Campaign string `yaml:"campaign,omitempty"`

	// TeamSize overrides the campaign's squad size when non-zero.
	TeamSize int `yaml:"team_size,omitempty"`

	// Session is the fixed session id. Defaults to "test-session-default".
	Session string `yaml:"session,omitempty"`

	// Seed is a raw save record placed in the store before the flow runs.
	Seed string `yaml:"seed,omitempty"`

	// Flow contains the steps, executed in order.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final engine and store state.
	Assertions []Assertion `yaml:"assertions"`
}

// FlowStep is one engine operation.
type FlowStep struct {
	// Step names the operation (see Step constants).
	Step string `yaml:"step"`

	// Squad is the member list for confirm_squad.
	Squad []string `yaml:"squad,omitempty"`

	// Mission is the choice for choose.
	Mission string `yaml:"mission,omitempty"`

	// Outcome is reported by report, or by the launcher for launch.
	Outcome *Outcome `yaml:"outcome,omitempty"`

	// Options are applied by options.
	Options *Options `yaml:"options,omitempty"`

	// Record is a raw JSON save applied by resume.
	Record string `yaml:"record,omitempty"`

	// Expect specifies the expected step result. If nil the step must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected result of a step.
type ExpectClause struct {
	// Error is the expected transition error code, or "" for success.
	Error string `yaml:"error,omitempty"`

	// Phase is the phase expected after the step.
	Phase string `yaml:"phase,omitempty"`

	// Resumed is the expected return of continue.
	Resumed *bool `yaml:"resumed,omitempty"`
}

// Outcome is a mission outcome in scenario form.
type Outcome struct {
	Completed   bool            `yaml:"completed"`
	Score       int64           `yaml:"score"`
	Hits        int             `yaml:"hits"`
	Accuracy    int             `yaml:"accuracy"`
	Time        string          `yaml:"time"`
	Rank        string          `yaml:"rank"`
	SquadStatus map[string]bool `yaml:"squad_status,omitempty"`
	Bonuses     []string        `yaml:"bonuses,omitempty"`
}

// IR converts the outcome. An empty rank defaults to A for victories and D
// for failures.
func (o Outcome) IR() ir.MissionOutcome {
	rank := ir.Rank(o.Rank)
	if rank == "" {
		rank = ir.RankD
		if o.Completed {
			rank = ir.RankA
		}
	}
	return ir.MissionOutcome{
		Completed:   o.Completed,
		Score:       o.Score,
		Hits:        o.Hits,
		Accuracy:    o.Accuracy,
		Time:        o.Time,
		Rank:        rank,
		SquadStatus: o.SquadStatus,
		Bonuses:     o.Bonuses,
	}
}

// Options are player options in scenario form. Unset fields keep their
// defaults.
type Options struct {
	MasterVolume *int    `yaml:"master_volume,omitempty"`
	MusicVolume  *int    `yaml:"music_volume,omitempty"`
	SFXVolume    *int    `yaml:"sfx_volume,omitempty"`
	Fullscreen   *bool   `yaml:"fullscreen,omitempty"`
	ScreenShake  *bool   `yaml:"screen_shake,omitempty"`
	Difficulty   *string `yaml:"difficulty,omitempty"`
}

// IR applies the set fields over base.
func (o Options) IR(base ir.Options) ir.Options {
	if o.MasterVolume != nil {
		base.MasterVolume = *o.MasterVolume
	}
	if o.MusicVolume != nil {
		base.MusicVolume = *o.MusicVolume
	}
	if o.SFXVolume != nil {
		base.SFXVolume = *o.SFXVolume
	}
	if o.Fullscreen != nil {
		base.Fullscreen = *o.Fullscreen
	}
	if o.ScreenShake != nil {
		base.ScreenShake = *o.ScreenShake
	}
	if o.Difficulty != nil {
		base.Difficulty = *o.Difficulty
	}
	return base
}

// Assertion validates final engine or store state.
type Assertion struct {
	// Type is one of the Assert constants.
	Type string `yaml:"type"`

	// Phase is the expected phase (phase).
	Phase string `yaml:"phase,omitempty"`

	// Expect holds expected record fields by JSON name (progress, stored).
	// Subset match: only listed fields are compared.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Missions is the expected choice list (choices).
	Missions []string `yaml:"missions,omitempty"`

	// Tiers are the expected earned tiers (unlocks).
	Tiers []int `yaml:"tiers,omitempty"`

	// Step and Result select trace events (trace_count).
	Step   string `yaml:"step,omitempty"`
	Result string `yaml:"result,omitempty"`

	// Count is the expected number of matching events (trace_count).
	Count int `yaml:"count,omitempty"`
}

// Step names.
const (
	StepNewRun       = "new_run"
	StepNewGamePlus  = "new_game_plus"
	StepContinue     = "continue"
	StepResume       = "resume"
	StepConfirmSquad = "confirm_squad"
	StepLaunch       = "launch"
	StepReport       = "report"
	StepAck          = "ack"
	StepRetry        = "retry"
	StepChoose       = "choose"
	StepOptions      = "options"
	StepFlush        = "flush"
)

// Assertion type constants.
const (
	AssertPhase      = "phase"
	AssertProgress   = "progress"
	AssertStored     = "stored"
	AssertNoSave     = "no_save"
	AssertChoices    = "choices"
	AssertUnlocks    = "unlocks"
	AssertTraceCount = "trace_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative campaign path is resolved against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if scenario.Campaign != "" && !filepath.IsAbs(scenario.Campaign) {
		scenario.Campaign = filepath.Join(filepath.Dir(path), scenario.Campaign)
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Reject unknown fields so typos like "assertion:" fail loudly.
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.TeamSize < 0 {
		return fmt.Errorf("team_size must be non-negative")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Flow {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, s *FlowStep) error {
	switch s.Step {
	case "":
		return fmt.Errorf("flow[%d]: step is required", index)
	case StepNewRun, StepNewGamePlus, StepContinue, StepLaunch, StepAck, StepRetry, StepFlush:
	case StepConfirmSquad:
		if s.Squad == nil {
			return fmt.Errorf("flow[%d]: squad is required for confirm_squad", index)
		}
	case StepReport:
		if s.Outcome == nil {
			return fmt.Errorf("flow[%d]: outcome is required for report", index)
		}
	case StepChoose:
		if s.Mission == "" {
			return fmt.Errorf("flow[%d]: mission is required for choose", index)
		}
	case StepOptions:
		if s.Options == nil {
			return fmt.Errorf("flow[%d]: options is required for options", index)
		}
	case StepResume:
		if s.Record == "" {
			return fmt.Errorf("flow[%d]: record is required for resume", index)
		}
	default:
		return fmt.Errorf("flow[%d]: unknown step %q", index, s.Step)
	}

	if s.Expect != nil {
		if s.Expect.Phase != "" {
			if _, ok := engine.ParsePhase(s.Expect.Phase); !ok {
				return fmt.Errorf("flow[%d].expect: unknown phase %q", index, s.Expect.Phase)
			}
		}
		if s.Expect.Resumed != nil && s.Step != StepContinue {
			return fmt.Errorf("flow[%d].expect: resumed only applies to continue", index)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertPhase:
		if _, ok := engine.ParsePhase(a.Phase); !ok {
			return fmt.Errorf("assertions[%d]: unknown phase %q", index, a.Phase)
		}
	case AssertProgress, AssertStored:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for %s", index, a.Type)
		}
	case AssertNoSave:
	case AssertChoices:
		if a.Missions == nil {
			return fmt.Errorf("assertions[%d]: missions is required for choices (use [] for none)", index)
		}
	case AssertUnlocks:
		if a.Tiers == nil {
			return fmt.Errorf("assertions[%d]: tiers is required for unlocks (use [] for none)", index)
		}
	case AssertTraceCount:
		if a.Step == "" {
			return fmt.Errorf("assertions[%d]: step is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
