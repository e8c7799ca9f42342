package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/sortie/internal/engine"
)

// stepFunc applies one command's transitions to a resumed session.
type stepFunc func(ctx context.Context, s *Session) error

// renderFunc returns the text and JSON forms of a command's result.
type renderFunc func(s *Session) (string, any)

// renderStatus is the default renderFunc.
func renderStatus(s *Session) (string, any) {
	v := s.view()
	return s.statusText(v), v
}

// runSession resumes the active profile, applies step, drains the write
// queue and prints the result. A nil render prints the run status.
func runSession(opts *RootOptions, cmd *cobra.Command, launcher engine.Launcher, step stepFunc, render renderFunc) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts, cmd)

	s, err := openSession(ctx, opts, cmd.ErrOrStderr(), launcher)
	if err != nil {
		return formatter.Fail(err)
	}
	formatter.VerboseLog("Session %s (resumed=%t, store=%s)", s.Engine.Session(), s.Resumed, s.Config.Store)

	var stepErr error
	if step != nil {
		stepErr = step(ctx, s)
	}
	closeErr := s.Close(ctx)
	if stepErr != nil {
		return formatter.Fail(stepErr)
	}
	if closeErr != nil {
		return formatter.Fail(closeErr)
	}

	if render == nil {
		render = renderStatus
	}
	text, data := render(s)
	return formatter.Result(text, data)
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "status",
		Short:         "Show the saved run",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(rootOpts, cmd, nil, nil, nil)
		},
	}
}

// NewNewCommand creates the new command.
func NewNewCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Start a new run",
		Long: `Start a new run at the entry mission.

The squad, completed path and score reset; completed runs and options
are kept.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(rootOpts, cmd, nil, func(_ context.Context, s *Session) error {
				return s.Engine.StartNewRun()
			}, nil)
		},
	}
}

// NewSquadCommand creates the squad command.
func NewSquadCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "squad <member-id>...",
		Short: "Confirm the squad for the run",
		Long: `Confirm the squad. Exactly team-size distinct roster members are
required; the squad can be changed again until the first launch.

Examples:
  sortie squad a b`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(rootOpts, cmd, nil, func(_ context.Context, s *Session) error {
				return s.Engine.ConfirmSquad(args)
			}, nil)
		},
	}
}

// NewChooseCommand creates the choose command.
func NewChooseCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "choose <mission-id>",
		Short:         "Choose the next mission",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(rootOpts, cmd, nil, func(_ context.Context, s *Session) error {
				return s.Engine.ChoosePath(args[0])
			}, nil)
		},
	}
}

// NewNewGamePlusCommand creates the ngplus command.
func NewNewGamePlusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ngplus",
		Short: "Start New Game Plus",
		Long: `Clear the saved run and start over at the entry mission.

Completed runs, earned unlocks and options carry over.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(rootOpts, cmd, nil, func(_ context.Context, s *Session) error {
				return s.Engine.StartNewGamePlus()
			}, nil)
		},
	}
}
