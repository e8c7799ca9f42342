package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sortie/internal/ir"
)

// TierView is one unlock tier and whether the profile has earned it.
type TierView struct {
	ir.UnlockTier
	Earned bool `json:"earned"`
}

// UnlocksView is the JSON shape of the unlocks command.
type UnlocksView struct {
	CompletedRuns int        `json:"completedRuns"`
	Tiers         []TierView `json:"tiers"`
}

// NewUnlocksCommand creates the unlocks command.
func NewUnlocksCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "unlocks",
		Short:         "List New Game Plus unlock tiers",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(rootOpts, cmd, nil, nil, renderUnlocks)
		},
	}
}

func renderUnlocks(s *Session) (string, any) {
	runs := s.Engine.Progress().CompletedRuns
	view := UnlocksView{CompletedRuns: runs, Tiers: []TierView{}}
	for _, t := range s.Campaign.Policy.Tiers() {
		view.Tiers = append(view.Tiers, TierView{UnlockTier: t, Earned: t.Tier <= runs})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Completed runs: %d\n", runs)
	if len(view.Tiers) == 0 {
		b.WriteString("No unlock tiers configured.\n")
	}
	for _, t := range view.Tiers {
		mark := " "
		if t.Earned {
			mark = "x"
		}
		fmt.Fprintf(&b, "[%s] Tier %d  %s - %s\n", mark, t.Tier, t.Name, t.Description)
	}
	return b.String(), view
}

// OptionsFlags holds flags for the options command. Only flags given on the
// command line change the saved options.
type OptionsFlags struct {
	*RootOptions
	Master      int
	Music       int
	SFX         int
	Fullscreen  bool
	ScreenShake bool
	Difficulty  string
}

// NewOptionsCommand creates the options command.
func NewOptionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OptionsFlags{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "options",
		Short: "Show or change player options",
		Long: `Show the player options, or change the ones given as flags.

Examples:
  sortie options
  sortie options --music 40 --screen-shake=false`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(rootOpts, cmd, nil, func(_ context.Context, s *Session) error {
				base := s.Engine.Progress().Options
				updated := opts.apply(cmd, base)
				if updated == base {
					return nil
				}
				return s.Engine.SetOptions(updated)
			}, renderOptions)
		},
	}

	cmd.Flags().IntVar(&opts.Master, "master", 0, "master volume (0-100)")
	cmd.Flags().IntVar(&opts.Music, "music", 0, "music volume (0-100)")
	cmd.Flags().IntVar(&opts.SFX, "sfx", 0, "sound effects volume (0-100)")
	cmd.Flags().BoolVar(&opts.Fullscreen, "fullscreen", false, "fullscreen display")
	cmd.Flags().BoolVar(&opts.ScreenShake, "screen-shake", false, "screen shake effects")
	cmd.Flags().StringVar(&opts.Difficulty, "difficulty", "", "difficulty setting")

	return cmd
}

// apply overlays the flags set on cmd onto base.
func (o *OptionsFlags) apply(cmd *cobra.Command, base ir.Options) ir.Options {
	flags := cmd.Flags()
	if flags.Changed("master") {
		base.MasterVolume = o.Master
	}
	if flags.Changed("music") {
		base.MusicVolume = o.Music
	}
	if flags.Changed("sfx") {
		base.SFXVolume = o.SFX
	}
	if flags.Changed("fullscreen") {
		base.Fullscreen = o.Fullscreen
	}
	if flags.Changed("screen-shake") {
		base.ScreenShake = o.ScreenShake
	}
	if flags.Changed("difficulty") {
		base.Difficulty = o.Difficulty
	}
	return base
}

func renderOptions(s *Session) (string, any) {
	o := s.Engine.Progress().Options
	var b strings.Builder
	fmt.Fprintf(&b, "Master volume: %d\n", o.MasterVolume)
	fmt.Fprintf(&b, "Music volume:  %d\n", o.MusicVolume)
	fmt.Fprintf(&b, "SFX volume:    %d\n", o.SFXVolume)
	fmt.Fprintf(&b, "Fullscreen:    %t\n", o.Fullscreen)
	fmt.Fprintf(&b, "Screen shake:  %t\n", o.ScreenShake)
	fmt.Fprintf(&b, "Difficulty:    %s\n", o.Difficulty)
	return b.String(), o
}
