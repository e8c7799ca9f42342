package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/sortie/internal/ir"
)

// StartNewRun discards the current run and starts a fresh one at the entry
// mission. Options and CompletedRuns are kept. Allowed from any phase.
func (e *Engine) StartNewRun() (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.observe("start_new_run", &err)

	e.beginRun()
	e.persist()
	return nil
}

// StartNewGamePlus resets run-scoped fields like StartNewRun, but through
// the reset path: the stored record is cleared before the fresh one is
// written, so a failure in between leaves no save rather than a torn one.
// Allowed from any phase.
func (e *Engine) StartNewGamePlus() (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.observe("start_new_game_plus", &err)

	e.beginRun()
	e.reset()
	e.logger.Info("new game plus", "completed_runs", e.record.CompletedRuns)
	return nil
}

func (e *Engine) beginRun() {
	e.record.RunState = ir.NewRunState(e.graph.Entry())
	e.attempt++
	e.setPhase(PhaseAwaitingSquad)
}

// ConfirmSquad selects the squad for the run. Allowed in AwaitingSquad and
// Briefing (re-picking before launch).
func (e *Engine) ConfirmSquad(memberIDs []string) (err error) {
	const name = "confirm_squad"
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.observe(name, &err)

	if e.phase != PhaseAwaitingSquad && e.phase != PhaseBriefing {
		return e.reject(name, invalidPhase(e.phase, PhaseAwaitingSquad, PhaseBriefing))
	}
	if te := e.checkSquad(memberIDs); te != nil {
		return e.reject(name, te)
	}

	e.record.SelectedSquad = slices.Clone(memberIDs)
	e.setPhase(PhaseBriefing)
	e.persist()
	return nil
}

func (e *Engine) checkSquad(ids []string) *TransitionError {
	if len(ids) != e.teamSize {
		te := newTransitionError(ErrCodeInvalidSquadSize, "squad has %d members, team size is %d", len(ids), e.teamSize)
		te.Details = map[string]string{"got": fmt.Sprint(len(ids)), "want": fmt.Sprint(e.teamSize)}
		return te
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !e.members[id] {
			te := newTransitionError(ErrCodeUnknownMember, "member %q is not in the roster", id)
			te.Details = map[string]string{"member": id}
			return te
		}
		if seen[id] {
			te := newTransitionError(ErrCodeDuplicateMember, "member %q selected twice", id)
			te.Details = map[string]string{"member": id}
			return te
		}
		seen[id] = true
	}
	return nil
}

// LaunchMission enters InMission for the current mission and, when a
// Launcher is configured, hands it the mission. The run itself does not
// change. If the launcher fails the engine returns to Briefing.
func (e *Engine) LaunchMission(ctx context.Context) (err error) {
	const name = "launch_mission"
	e.mu.Lock()
	if e.phase != PhaseBriefing {
		err = e.reject(name, invalidPhase(e.phase, PhaseBriefing))
		e.metrics.Transition(name, err)
		e.mu.Unlock()
		return err
	}
	e.attempt++
	attempt := e.attempt
	cfg := LaunchConfig{
		MissionID:     e.record.CurrentMissionID,
		Squad:         e.record.SelectedSquad,
		Options:       e.record.Options,
		CompletedPath: e.record.CompletedPath,
	}.clone()
	e.setPhase(PhaseInMission)
	e.logger.Info("mission launched", "mission", cfg.MissionID, "squad", cfg.Squad)
	launcher := e.launcher
	e.mu.Unlock()

	// The launcher runs without the lock so it may report synchronously.
	if launcher != nil {
		done := func(o ir.MissionOutcome) error {
			return e.reportOutcome(attempt, o)
		}
		if lerr := launcher.Launch(ctx, cfg, done); lerr != nil {
			e.mu.Lock()
			if e.attempt == attempt && e.phase == PhaseInMission {
				e.setPhase(PhaseBriefing)
			}
			e.mu.Unlock()
			err = fmt.Errorf("launch mission %s: %w", cfg.MissionID, lerr)
			e.metrics.Transition(name, err)
			return err
		}
	}
	e.metrics.Transition(name, nil)
	return nil
}

// ReportOutcome applies a mission outcome. Allowed in InMission.
//
// A failed mission records the outcome and moves to Results with the run
// otherwise unchanged. A victory appends the mission to the completed path
// and adds the score; completing a final mission also increments
// CompletedRuns, points the run back at the entry mission and moves to
// RunComplete. A victory for a mission already completed fails with
// DUPLICATE_COMPLETION whatever the phase, which catches double reports.
func (e *Engine) ReportOutcome(outcome ir.MissionOutcome) error {
	return e.reportOutcome(0, outcome)
}

// reportOutcome applies outcome; attempt 0 accepts any launch, otherwise the
// launch attempt must still be current.
func (e *Engine) reportOutcome(attempt uint64, outcome ir.MissionOutcome) (err error) {
	const name = "report_outcome"
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.observe(name, &err)

	mission := e.record.CurrentMissionID
	if te := validateOutcome(outcome, e.record.SelectedSquad); te != nil {
		te.MissionID = mission
		return e.reject(name, te)
	}
	if outcome.Completed && e.record.HasCompleted(mission) {
		te := newTransitionError(ErrCodeDuplicateCompletion, "mission %q already completed", mission)
		te.MissionID = mission
		return e.reject(name, te)
	}
	if e.phase != PhaseInMission {
		return e.reject(name, invalidPhase(e.phase, PhaseInMission))
	}
	if attempt != 0 && attempt != e.attempt {
		te := newTransitionError(ErrCodeInvalidPhase, "stale outcome from an earlier launch")
		te.MissionID = mission
		return e.reject(name, te)
	}

	o := outcome.Clone()
	e.record.LastOutcome = &o

	if !outcome.Completed {
		e.logger.Info("mission failed", "mission", mission, "score", outcome.Score, "rank", outcome.Rank)
		e.setPhase(PhaseResults)
		e.persist()
		return nil
	}

	e.record.CompletedPath = append(e.record.CompletedPath, mission)
	e.record.CumulativeScore += outcome.Score
	e.logger.Info("mission completed",
		"mission", mission,
		"score", outcome.Score,
		"cumulative_score", e.record.CumulativeScore,
		"rank", outcome.Rank,
	)

	if e.graph.IsFinal(mission) {
		e.record.CompletedRuns++
		e.record.CurrentMissionID = e.graph.Entry()
		e.metrics.CompletedRuns(e.record.CompletedRuns)
		attrs := []any{"completed_runs", e.record.CompletedRuns}
		if u, ok := e.policy.NewlyUnlocked(e.record.CompletedRuns); ok {
			attrs = append(attrs, "unlocked", u.Name)
		}
		e.logger.Info("run complete", attrs...)
		e.setPhase(PhaseRunComplete)
	} else {
		e.setPhase(PhaseResults)
	}
	e.persist()
	return nil
}

// AcknowledgeResults leaves the Results screen: to PathChoice after a
// victory, to Briefing (retry) after a failure.
func (e *Engine) AcknowledgeResults() (err error) {
	const name = "acknowledge_results"
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.observe(name, &err)

	if e.phase != PhaseResults {
		return e.reject(name, invalidPhase(e.phase, PhaseResults))
	}
	if e.record.LastOutcome != nil && e.record.LastOutcome.Completed {
		e.setPhase(PhasePathChoice)
	} else {
		e.setPhase(PhaseBriefing)
	}
	return nil
}

// Retry re-enters Briefing for the same mission after a failure. The
// completed path and score are untouched.
func (e *Engine) Retry() (err error) {
	const name = "retry"
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.observe(name, &err)

	if e.phase != PhaseResults {
		return e.reject(name, invalidPhase(e.phase, PhaseResults))
	}
	if e.record.LastOutcome == nil || e.record.LastOutcome.Completed {
		te := newTransitionError(ErrCodeInvalidPhase, "retry is only offered after a failed mission")
		te.MissionID = e.record.CurrentMissionID
		return e.reject(name, te)
	}
	e.setPhase(PhaseBriefing)
	return nil
}

// ChoosePath picks the next mission. Allowed in PathChoice; missionID must be
// one of AvailableChoices.
func (e *Engine) ChoosePath(missionID string) (err error) {
	const name = "choose_path"
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.observe(name, &err)

	if e.phase != PhasePathChoice {
		return e.reject(name, invalidPhase(e.phase, PhasePathChoice))
	}
	available := AvailableChoices(e.graph, e.record.RunState)
	if !slices.Contains(available, missionID) {
		te := newTransitionError(ErrCodeIllegalChoice, "mission %q is not an available choice", missionID)
		te.MissionID = missionID
		te.Details = map[string]string{"available": fmt.Sprint(available)}
		return e.reject(name, te)
	}

	e.record.CurrentMissionID = missionID
	e.setPhase(PhaseBriefing)
	e.persist()
	return nil
}

// SetOptions replaces the player options. Allowed in any phase.
func (e *Engine) SetOptions(opts ir.Options) (err error) {
	const name = "set_options"
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.observe(name, &err)

	if te := validateOptions(opts); te != nil {
		return e.reject(name, te)
	}
	e.record.Options = opts
	e.persist()
	return nil
}
