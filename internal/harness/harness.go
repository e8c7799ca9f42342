package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/sortie/internal/campaign"
	"github.com/roach88/sortie/internal/compiler"
	"github.com/roach88/sortie/internal/engine"
	"github.com/roach88/sortie/internal/ir"
	"github.com/roach88/sortie/internal/store"
	"github.com/roach88/sortie/internal/store/memstore"
	"github.com/roach88/sortie/internal/testutil"
	"github.com/roach88/sortie/internal/unlock"
)

// resultError marks a step that failed outside the transition taxonomy.
const resultError = "ERROR"

// Harness is the test execution engine.
// It runs one scenario against a real engine over an in-memory store.
type Harness struct {
	engine *engine.Engine
	store  *memstore.Store

	// pending is the outcome the scripted launcher reports on the next launch.
	pending *ir.MissionOutcome
	doneErr error
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
// 1. Compile the campaign (built-in when the scenario names none)
// 2. Seed a fresh in-memory store
// 3. Execute flow steps with expect validation
// 4. Evaluate assertions against the engine and the store
//
// The returned error covers setup problems only; step and assertion
// mismatches are reported in the result.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	c, err := compiler.Load(scenario.Campaign)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign: %w", err)
	}
	graph, err := campaign.FromCampaign(*c)
	if err != nil {
		return nil, fmt.Errorf("failed to build campaign graph: %w", err)
	}
	policy, err := unlock.NewPolicy(c.Unlocks)
	if err != nil {
		return nil, fmt.Errorf("failed to build unlock policy: %w", err)
	}
	teamSize := c.TeamSize
	if scenario.TeamSize > 0 {
		teamSize = scenario.TeamSize
	}

	ps := memstore.New()
	if scenario.Seed != "" {
		ps.SeedRaw([]byte(scenario.Seed))
	}

	h := &Harness{store: ps}
	eng, err := engine.New(graph, c.Roster, policy, ps,
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		engine.WithTeamSize(teamSize),
		engine.WithSessionGenerator(testutil.NewFixedSessionGenerator(scenario.Session)),
		engine.WithLauncher(engine.LauncherFunc(h.launch)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	h.engine = eng
	defer eng.Close(ctx)

	result := NewResult()
	for i, step := range scenario.Flow {
		h.executeStep(ctx, i, step, result)
	}

	for _, msg := range EvaluateAssertions(ctx, eng, ps, result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// launch is the scripted gameplay engine: it reports the pending outcome
// synchronously, or leaves the mission in flight when there is none.
func (h *Harness) launch(_ context.Context, _ engine.LaunchConfig, done func(ir.MissionOutcome) error) error {
	if h.pending == nil {
		return nil
	}
	o := *h.pending
	h.pending = nil
	h.doneErr = done(o)
	return nil
}

func (h *Harness) executeStep(ctx context.Context, index int, step FlowStep, result *Result) {
	var (
		err     error
		resumed *bool
	)

	switch step.Step {
	case StepNewRun:
		err = h.engine.StartNewRun()
	case StepNewGamePlus:
		err = h.engine.StartNewGamePlus()
	case StepContinue:
		ok := h.engine.Continue(ctx)
		resumed = &ok
	case StepResume:
		var rec ir.PersistedProgress
		rec, err = store.DecodeProgress([]byte(step.Record))
		if err == nil {
			err = h.engine.ResumeRun(rec)
		}
	case StepConfirmSquad:
		err = h.engine.ConfirmSquad(step.Squad)
	case StepLaunch:
		if step.Outcome != nil {
			o := step.Outcome.IR()
			h.pending = &o
		}
		h.doneErr = nil
		err = h.engine.LaunchMission(ctx)
		if err == nil {
			err = h.doneErr
		}
	case StepReport:
		err = h.engine.ReportOutcome(step.Outcome.IR())
	case StepAck:
		err = h.engine.AcknowledgeResults()
	case StepRetry:
		err = h.engine.Retry()
	case StepChoose:
		err = h.engine.ChoosePath(step.Mission)
	case StepOptions:
		err = h.engine.SetOptions(step.Options.IR(h.engine.Progress().Options))
	case StepFlush:
		err = h.engine.Flush(ctx)
	}

	code := resultCode(err)
	progress := h.engine.Progress()
	result.AddTrace(TraceEvent{
		Step:          step.Step,
		Result:        code,
		Phase:         h.engine.Phase().String(),
		Mission:       progress.CurrentMissionID,
		Score:         progress.CumulativeScore,
		CompletedRuns: progress.CompletedRuns,
	})

	label := fmt.Sprintf("flow[%d] %s", index, step.Step)
	if step.Expect == nil {
		if err != nil {
			result.AddError(fmt.Sprintf("%s: unexpected error: %v", label, err))
		}
		return
	}

	want := step.Expect.Error
	switch {
	case want == "" && err != nil:
		result.AddError(fmt.Sprintf("%s: unexpected error: %v", label, err))
	case want != "" && code != want:
		result.AddError(fmt.Sprintf("%s: expected %s, got %s", label, want, code))
	}
	if step.Expect.Phase != "" && h.engine.Phase().String() != step.Expect.Phase {
		result.AddError(fmt.Sprintf("%s: expected phase %s, got %s", label, step.Expect.Phase, h.engine.Phase()))
	}
	if step.Expect.Resumed != nil && resumed != nil && *resumed != *step.Expect.Resumed {
		result.AddError(fmt.Sprintf("%s: expected resumed=%t, got %t", label, *step.Expect.Resumed, *resumed))
	}
}

// resultCode names err for the trace: "ok", a transition code, or ERROR.
func resultCode(err error) string {
	if err == nil {
		return "ok"
	}
	if code, ok := engine.CodeOf(err); ok {
		return string(code)
	}
	return resultError
}
