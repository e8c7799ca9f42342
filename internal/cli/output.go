package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/sortie/internal/campaign"
	"github.com/roach88/sortie/internal/engine"
	"github.com/roach88/sortie/internal/store"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Rejected transition, invalid campaign, failed scenarios
	ExitCommandError = 2 // Command error (bad paths, store unreachable, etc.)
)

// Error codes for failures outside the transition taxonomy.
const (
	ErrCodeGeneric        = "E001" // Generic/unknown error
	ErrCodeCampaign       = "E002" // Campaign failed to load or compile
	ErrCodeStore          = "E003" // Progress store unavailable
	ErrCodeQuota          = "E004" // Progress store out of space
	ErrCodeInvalidFlag    = "E005" // Flag value rejected
	ErrCodeGraphIntegrity = "E006" // Campaign graph failed integrity checks
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// codedError pins a CLI error code and exit code onto err.
type codedError struct {
	code string
	exit int
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }

func (e *codedError) Unwrap() error { return e.err }

// campaignErr marks a campaign that failed to load, compile or validate.
func campaignErr(err error) error {
	return &codedError{code: ErrCodeCampaign, exit: ExitFailure, err: err}
}

// flagErr marks a rejected flag or argument value.
func flagErr(format string, args ...any) error {
	return &codedError{code: ErrCodeInvalidFlag, exit: ExitCommandError, err: fmt.Errorf(format, args...)}
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status  string    `json:"status"`            // "ok" or "error"
	Data    any       `json:"data,omitempty"`    // success payload
	Error   *CLIError `json:"error,omitempty"`   // error details
	Session string    `json:"session,omitempty"` // engine session id, when one ran
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "ILLEGAL_CHOICE", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Result outputs text in text mode and data in JSON mode.
func (f *OutputFormatter) Result(text string, data any) error {
	if f.Format == "json" {
		return f.Success(data)
	}
	fmt.Fprint(f.Writer, text)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports err in the configured format and returns the matching
// ExitError. Transition errors keep their own code.
func (f *OutputFormatter) Fail(err error) error {
	code, message, details, exit := classifyError(err)
	if outErr := f.Error(code, message, details); outErr != nil {
		return outErr
	}
	return WrapExitError(exit, code, err)
}

// classifyError maps err onto a CLI error code and exit code.
func classifyError(err error) (code, message string, details any, exit int) {
	var te *engine.TransitionError
	var ge *campaign.GraphIntegrityError
	var ce *codedError
	var exitErr *ExitError
	switch {
	case errors.As(err, &te):
		if len(te.Details) > 0 {
			details = te.Details
		}
		return string(te.Code), te.Message, details, ExitFailure
	case errors.As(err, &ge):
		return ErrCodeGraphIntegrity, ge.Error(), nil, ExitFailure
	case errors.As(err, &ce):
		return ce.code, err.Error(), nil, ce.exit
	case errors.Is(err, store.ErrQuotaExceeded):
		return ErrCodeQuota, err.Error(), nil, ExitCommandError
	case errors.Is(err, store.ErrStoreUnavailable):
		return ErrCodeStore, err.Error(), nil, ExitCommandError
	case errors.As(err, &exitErr):
		return ErrCodeGeneric, err.Error(), nil, exitErr.Code
	default:
		return ErrCodeGeneric, err.Error(), nil, ExitFailure
	}
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
