package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sortie/internal/engine"
	"github.com/roach88/sortie/internal/ir"
)

// FlyOptions holds flags for the fly command. They describe the outcome the
// mission reports.
type FlyOptions struct {
	*RootOptions
	Failed   bool
	Score    int64
	Hits     int
	Accuracy int
	Time     string
	Rank     string   // default A on victory, D on failure
	Lost     []string // squad members shot down
	Bonuses  []string
}

// FlyResult is the JSON shape of a flown mission.
type FlyResult struct {
	Mission  string            `json:"mission"`
	Outcome  ir.MissionOutcome `json:"outcome"`
	Unlocked *ir.UnlockTier    `json:"unlocked,omitempty"`
	Status   StatusView        `json:"status"`
}

// NewFlyCommand creates the fly command.
func NewFlyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FlyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fly",
		Short: "Fly the current mission",
		Long: `Launch the current mission, report its outcome and acknowledge the
results.

A victory moves on to the path choice, or completes the run on a final
mission. A failure leaves the run ready to retry the same mission.

Examples:
  sortie fly --score 1200 --rank S
  sortie fly --failed --score 300
  sortie fly --score 900 --lost b --bonus no-damage`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFly(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Failed, "failed", false, "report a failed mission")
	cmd.Flags().Int64Var(&opts.Score, "score", 0, "mission score")
	cmd.Flags().IntVar(&opts.Hits, "hits", 0, "hits landed")
	cmd.Flags().IntVar(&opts.Accuracy, "accuracy", 100, "accuracy percentage (0-100)")
	cmd.Flags().StringVar(&opts.Time, "time", "00:00", "mission time")
	cmd.Flags().StringVar(&opts.Rank, "rank", "", "mission rank (S|A|B|C|D)")
	cmd.Flags().StringSliceVar(&opts.Lost, "lost", nil, "squad members lost in the mission")
	cmd.Flags().StringSliceVar(&opts.Bonuses, "bonus", nil, "achievement tags earned")

	return cmd
}

// outcome builds the reported outcome for squad.
func (o *FlyOptions) outcome(squad []string) ir.MissionOutcome {
	rank := ir.Rank(strings.ToUpper(o.Rank))
	if rank == "" {
		rank = ir.RankA
		if o.Failed {
			rank = ir.RankD
		}
	}
	status := make(map[string]bool, len(squad))
	for _, id := range squad {
		status[id] = true
	}
	for _, id := range o.Lost {
		status[id] = false
	}
	return ir.MissionOutcome{
		Completed:   !o.Failed,
		Score:       o.Score,
		Hits:        o.Hits,
		Accuracy:    o.Accuracy,
		Time:        o.Time,
		Rank:        rank,
		SquadStatus: status,
		Bonuses:     o.Bonuses,
	}
}

func runFly(opts *FlyOptions, cmd *cobra.Command) error {
	if opts.Rank != "" && !ir.Rank(strings.ToUpper(opts.Rank)).Valid() {
		return newFormatter(opts.RootOptions, cmd).Fail(flagErr("invalid rank %q: must be one of %v", opts.Rank, ir.Ranks))
	}

	// The launcher stands in for the gameplay engine and reports at once.
	var reportErr error
	launcher := engine.LauncherFunc(func(_ context.Context, lc engine.LaunchConfig, done func(ir.MissionOutcome) error) error {
		reportErr = done(opts.outcome(lc.Squad))
		return nil
	})

	var (
		mission  string
		outcome  ir.MissionOutcome
		unlocked *ir.UnlockTier
	)
	step := func(ctx context.Context, s *Session) error {
		mission = s.Engine.State().CurrentMissionID
		if err := s.Engine.LaunchMission(ctx); err != nil {
			return err
		}
		if reportErr != nil {
			return reportErr
		}
		if last := s.Engine.Progress().LastOutcome; last != nil {
			outcome = *last
		}
		if u, ok := s.Engine.NewlyUnlocked(); ok {
			unlocked = &u
		}
		if s.Engine.Phase() == engine.PhaseResults {
			return s.Engine.AcknowledgeResults()
		}
		return nil
	}

	render := func(s *Session) (string, any) {
		v := s.view()
		var b strings.Builder
		verdict := "victory"
		if !outcome.Completed {
			verdict = "failed"
		}
		fmt.Fprintf(&b, "Mission %s: %s, rank %s, score %d\n", s.missionLabel(mission), verdict, outcome.Rank, outcome.Score)
		if unlocked != nil {
			fmt.Fprintf(&b, "Unlocked: %s - %s\n", unlocked.Name, unlocked.Description)
		}
		b.WriteString("\n")
		b.WriteString(s.statusText(v))
		return b.String(), FlyResult{Mission: mission, Outcome: outcome, Unlocked: unlocked, Status: v}
	}

	return runSession(opts.RootOptions, cmd, launcher, step, render)
}
