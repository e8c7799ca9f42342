package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/sortie/internal/campaign"
	"github.com/roach88/sortie/internal/compiler"
	"github.com/roach88/sortie/internal/config"
	"github.com/roach88/sortie/internal/ir"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Campaign string                     `json:"campaign,omitempty"`
	Missions int                        `json:"missions,omitempty"`
	Hash     string                     `json:"hash,omitempty"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [campaign-dir]",
		Short: "Validate a campaign definition",
		Long: `Compile a CUE campaign and run every check the engine relies on:
graph integrity (single entry, no cycles, no dead ends, mirrored edges),
roster and stat ranges, and unlock tiers.

Without an argument the --campaign directory is used, or the built-in
campaign when none is configured.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

// campaignDir picks the campaign directory: argument, flag, then environment.
// Empty selects the built-in campaign.
func (o *RootOptions) campaignDir(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if o.Campaign != "" {
		return o.Campaign, nil
	}
	var cfg config.Config
	if err := config.ParseEnv(&cfg); err != nil {
		return "", flagErr("%v", err)
	}
	return cfg.CampaignDir, nil
}

func runValidate(opts *RootOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	dir, err := opts.campaignDir(args)
	if err != nil {
		return formatter.Fail(err)
	}
	if dir != "" {
		if _, err := os.Stat(dir); err != nil {
			_ = formatter.Error(ErrCodeCampaign, fmt.Sprintf("campaign directory not found: %s", dir), nil)
			// Missing input is a command-level error (exit code 2)
			return NewExitError(ExitCommandError, fmt.Sprintf("campaign directory not found: %s", dir))
		}
		formatter.VerboseLog("Validating campaign in %s", dir)
	} else {
		formatter.VerboseLog("Validating built-in campaign")
	}

	c, err := compiler.Load(dir)
	if err != nil {
		var cErr *compiler.CompileError
		field := "campaign"
		if errors.As(err, &cErr) {
			field = cErr.Field
		}
		return outputValidationErrors(formatter, []compiler.ValidationError{{
			Field:   field,
			Message: err.Error(),
			Code:    ErrCodeCampaign,
		}})
	}

	errs := validateCampaign(*c)
	if len(errs) > 0 {
		return outputValidationErrors(formatter, errs)
	}

	hash, err := ir.CampaignHash(*c)
	if err != nil {
		return formatter.Fail(err)
	}
	result := ValidationResult{Valid: true, Campaign: c.Name, Missions: len(c.Missions), Hash: hash}
	text := fmt.Sprintf("✓ Campaign %q valid (%d missions, %d members, %d unlock tiers)\n  hash %s\n",
		c.Name, len(c.Missions), len(c.Roster), len(c.Unlocks), hash)
	return formatter.Result(text, result)
}

// validateCampaign runs the graph integrity checks followed by the schema
// checks.
func validateCampaign(c ir.Campaign) []compiler.ValidationError {
	var errs []compiler.ValidationError
	if _, err := campaign.FromCampaign(c); err != nil {
		var ge *campaign.GraphIntegrityError
		if errors.As(err, &ge) {
			field := "graph"
			if ge.MissionID != "" {
				field = "mission." + ge.MissionID
			}
			errs = append(errs, compiler.ValidationError{Field: field, Message: ge.Message, Code: string(ge.Code)})
		} else {
			errs = append(errs, compiler.ValidationError{Field: "graph", Message: err.Error(), Code: ErrCodeGraphIntegrity})
		}
	}
	return append(errs, compiler.Validate(c)...)
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %s %s: %s\n", err.Code, err.Field, err.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
