package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/sortie/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Home     string // overrides SORTIE_HOME
	Profile  string // overrides SORTIE_PROFILE
	Store    string // overrides SORTIE_STORE
	Campaign string // overrides SORTIE_CAMPAIGN_DIR
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the sortie CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "sortie",
		Short: "Sortie - campaign progression engine",
		Long: `Drive a branching mission campaign from the command line.

Each command resumes the saved run for the active profile, applies one
step of progression and saves the result.`,
		SilenceErrors: true, // main reports errors not already printed
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Home, "home", "", "data directory (default ~/.sortie)")
	cmd.PersistentFlags().StringVarP(&opts.Profile, "profile", "p", "", "save profile")
	cmd.PersistentFlags().StringVar(&opts.Store, "store", "", "store driver (sqlite|file|memory|s3|postgres)")
	cmd.PersistentFlags().StringVar(&opts.Campaign, "campaign", "", "campaign directory (default built-in)")

	// Add subcommands
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewGraphCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewNewCommand(opts))
	cmd.AddCommand(NewSquadCommand(opts))
	cmd.AddCommand(NewFlyCommand(opts))
	cmd.AddCommand(NewChooseCommand(opts))
	cmd.AddCommand(NewNewGamePlusCommand(opts))
	cmd.AddCommand(NewUnlocksCommand(opts))
	cmd.AddCommand(NewOptionsCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// loadConfig reads the environment and applies flag overrides.
func (o *RootOptions) loadConfig() (config.Config, error) {
	var cfg config.Config
	if err := config.ParseEnv(&cfg); err != nil {
		return config.Config{}, flagErr("%v", err)
	}
	if o.Home != "" {
		cfg.Home = o.Home
	}
	if o.Profile != "" {
		cfg.Profile = o.Profile
	}
	if o.Store != "" {
		cfg.Store = o.Store
	}
	if o.Campaign != "" {
		cfg.CampaignDir = o.Campaign
	}

	home, err := config.ResolveHome(cfg.Home)
	if err != nil {
		return config.Config{}, &codedError{code: ErrCodeGeneric, exit: ExitCommandError, err: err}
	}
	cfg.Home = home
	if err := cfg.Validate(); err != nil {
		return config.Config{}, flagErr("%v", err)
	}
	return cfg, nil
}

// newLogger returns the diagnostic logger: debug with --verbose, otherwise
// the configured level.
func newLogger(o *RootOptions, cfg config.Config, w io.Writer) *slog.Logger {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// newFormatter builds the formatter for cmd's output streams.
func newFormatter(o *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}
