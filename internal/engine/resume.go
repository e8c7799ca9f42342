package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/sortie/internal/campaign"
	"github.com/roach88/sortie/internal/ir"
	"github.com/roach88/sortie/internal/store"
)

// ResumeRun restores a persisted record verbatim and derives the phase from
// its data. The record is validated against the graph and roster first; an
// inconsistent record fails with INVALID_PROGRESS and changes nothing.
// Allowed from any phase.
func (e *Engine) ResumeRun(persisted ir.PersistedProgress) (err error) {
	const name = "resume_run"
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.observe(name, &err)

	if err := e.restore(persisted); err != nil {
		return e.reject(name, err)
	}
	e.persist()
	return nil
}

// Continue loads the saved run from the store and resumes it.
//
// A missing, unreadable or inconsistent save is treated as no save at all:
// the engine starts a fresh run with default options and reports false. The
// reason is logged. Continue waits for pending writes first so it reads what
// this engine wrote.
func (e *Engine) Continue(ctx context.Context) (resumed bool) {
	const name = "continue"
	if err := e.writer.flush(ctx); err != nil && !errors.Is(err, ErrClosed) {
		e.logger.Warn("continue: pending writes not flushed", "error", err)
	}
	rec, loadErr := e.writer.store.Load(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	var err error
	defer e.observe(name, &err)

	if loadErr == nil {
		te := e.restore(rec)
		if te == nil {
			// The store already holds exactly this record.
			e.lastHash, _ = ir.SnapshotHash(e.record)
			e.logger.Info("save resumed", "phase", e.phase, "revision", rec.Revision)
			return true
		}
		loadErr = te
	}

	if errors.Is(loadErr, store.ErrNotFound) {
		e.logger.Info("no save found, starting fresh")
	} else {
		e.logger.Warn("save unusable, starting fresh", "error", loadErr)
	}
	e.record = freshRecord(e.graph.Entry())
	e.lastHash = ""
	e.attempt++
	e.setPhase(PhaseAwaitingSquad)
	return false
}

// restore validates rec and installs it. Caller holds e.mu.
func (e *Engine) restore(rec ir.PersistedProgress) *TransitionError {
	rec = rec.Clone()
	if rec.CurrentMissionID == "" {
		rec.CurrentMissionID = e.graph.Entry()
	}
	if rec.SchemaVersion == 0 {
		rec.SchemaVersion = ir.SchemaVersion
	}
	if te := e.checkProgress(rec); te != nil {
		return te
	}

	e.record = rec
	e.clock.AdvanceTo(rec.Revision)
	e.attempt++
	e.setPhase(DerivePhase(e.graph, rec.RunState))
	return nil
}

// checkProgress reports every way rec disagrees with the graph and roster.
func (e *Engine) checkProgress(rec ir.PersistedProgress) *TransitionError {
	var problems []string
	if rec.SchemaVersion > ir.SchemaVersion {
		problems = append(problems, fmt.Sprintf("schemaVersion %d is newer than %d", rec.SchemaVersion, ir.SchemaVersion))
	}
	if !e.graph.Has(rec.CurrentMissionID) {
		problems = append(problems, fmt.Sprintf("currentMissionId %q is not a mission", rec.CurrentMissionID))
	}
	if !e.graph.IsValidChain(rec.CompletedPath) {
		problems = append(problems, fmt.Sprintf("completedPath %v is not a chain from %q", rec.CompletedPath, e.graph.Entry()))
	} else if e.graph.Has(rec.CurrentMissionID) && !e.reachesCurrent(rec.RunState) {
		problems = append(problems, fmt.Sprintf("currentMissionId %q does not follow completedPath %v", rec.CurrentMissionID, rec.CompletedPath))
	}
	if n := len(rec.SelectedSquad); n != 0 {
		if te := e.checkSquad(rec.SelectedSquad); te != nil {
			problems = append(problems, "selectedSquad: "+te.Message)
		}
	}
	if rec.CumulativeScore < 0 {
		problems = append(problems, fmt.Sprintf("cumulativeScore %d is negative", rec.CumulativeScore))
	}
	if rec.CompletedRuns < 0 {
		problems = append(problems, fmt.Sprintf("completedRuns %d is negative", rec.CompletedRuns))
	}
	if te := validateOptions(rec.Options); te != nil {
		problems = append(problems, "options: "+te.Message)
	}
	if len(problems) == 0 {
		return nil
	}
	return newTransitionError(ErrCodeInvalidProgress, "%s", strings.Join(problems, "; "))
}

// reachesCurrent reports whether state's current mission is one the engine
// could have left it on: the entry before anything is completed or after a
// final, otherwise the last completed mission or one of its open choices.
func (e *Engine) reachesCurrent(state ir.RunState) bool {
	current := state.CurrentMissionID
	last, ok := state.LastCompleted()
	switch {
	case !ok:
		return current == e.graph.Entry()
	case e.graph.IsFinal(last):
		return current == e.graph.Entry()
	case current == last:
		return true
	}
	return slices.Contains(AvailableChoices(e.graph, state), current)
}

// DerivePhase reconstructs the most advanced phase state supports:
// RunComplete when the last completed mission is final, PathChoice for any
// other non-empty completed path, Briefing when a squad is selected,
// otherwise AwaitingSquad.
func DerivePhase(graph *campaign.Graph, state ir.RunState) Phase {
	if last, ok := state.LastCompleted(); ok {
		if graph.IsFinal(last) {
			return PhaseRunComplete
		}
		return PhasePathChoice
	}
	if len(state.SelectedSquad) > 0 {
		return PhaseBriefing
	}
	return PhaseAwaitingSquad
}
