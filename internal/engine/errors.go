package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrClosed is returned by Flush after Close.
var ErrClosed = errors.New("engine closed")

// TransitionError reports a rejected transition. The engine state is left
// exactly as it was before the call.
type TransitionError struct {
	// Code identifies the error category.
	Code TransitionErrorCode

	// Message is a human-readable description.
	Message string

	// Transition names the rejected call, e.g. "confirm_squad".
	Transition string

	// Phase is the engine phase at the time of the call.
	Phase Phase

	// MissionID identifies the mission involved, if any.
	MissionID string

	// Details contains additional context.
	Details map[string]string
}

// TransitionErrorCode categorizes transition errors.
type TransitionErrorCode string

const (
	// ErrCodeInvalidSquadSize indicates the squad is not exactly the team size.
	ErrCodeInvalidSquadSize TransitionErrorCode = "INVALID_SQUAD_SIZE"

	// ErrCodeUnknownMember indicates a squad id is not in the roster.
	ErrCodeUnknownMember TransitionErrorCode = "UNKNOWN_MEMBER"

	// ErrCodeDuplicateMember indicates a squad lists the same member twice.
	ErrCodeDuplicateMember TransitionErrorCode = "DUPLICATE_MEMBER"

	// ErrCodeIllegalChoice indicates the mission is not an available successor.
	ErrCodeIllegalChoice TransitionErrorCode = "ILLEGAL_CHOICE"

	// ErrCodeDuplicateCompletion indicates a victory for a mission already
	// on the completed path.
	ErrCodeDuplicateCompletion TransitionErrorCode = "DUPLICATE_COMPLETION"

	// ErrCodeInvalidPhase indicates the transition is not allowed from the
	// current phase.
	ErrCodeInvalidPhase TransitionErrorCode = "INVALID_PHASE"

	// ErrCodeInvalidOutcome indicates a mission outcome failed validation.
	ErrCodeInvalidOutcome TransitionErrorCode = "INVALID_OUTCOME"

	// ErrCodeInvalidProgress indicates a persisted record is inconsistent
	// with the campaign graph or roster.
	ErrCodeInvalidProgress TransitionErrorCode = "INVALID_PROGRESS"

	// ErrCodeInvalidOptions indicates options are out of range.
	ErrCodeInvalidOptions TransitionErrorCode = "INVALID_OPTIONS"
)

// Error implements the error interface.
func (e *TransitionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if e.Transition != "" || e.MissionID != "" {
		b.WriteString(" (")
		sep := ""
		if e.Transition != "" {
			fmt.Fprintf(&b, "transition=%s, phase=%s", e.Transition, e.Phase)
			sep = ", "
		}
		if e.MissionID != "" {
			fmt.Fprintf(&b, "%smission=%s", sep, e.MissionID)
		}
		b.WriteString(")")
	}
	return b.String()
}

// CodeOf returns the code of a TransitionError anywhere in err's chain.
func CodeOf(err error) (TransitionErrorCode, bool) {
	var te *TransitionError
	if errors.As(err, &te) {
		return te.Code, true
	}
	return "", false
}

func hasCode(err error, code TransitionErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

// IsInvalidSquadSize reports whether err is an INVALID_SQUAD_SIZE error.
func IsInvalidSquadSize(err error) bool { return hasCode(err, ErrCodeInvalidSquadSize) }

// IsUnknownMember reports whether err is an UNKNOWN_MEMBER error.
func IsUnknownMember(err error) bool { return hasCode(err, ErrCodeUnknownMember) }

// IsIllegalChoice reports whether err is an ILLEGAL_CHOICE error.
func IsIllegalChoice(err error) bool { return hasCode(err, ErrCodeIllegalChoice) }

// IsDuplicateCompletion reports whether err is a DUPLICATE_COMPLETION error.
func IsDuplicateCompletion(err error) bool { return hasCode(err, ErrCodeDuplicateCompletion) }

// IsInvalidPhase reports whether err is an INVALID_PHASE error.
func IsInvalidPhase(err error) bool { return hasCode(err, ErrCodeInvalidPhase) }

// IsInvalidOutcome reports whether err is an INVALID_OUTCOME error.
func IsInvalidOutcome(err error) bool { return hasCode(err, ErrCodeInvalidOutcome) }

// IsInvalidProgress reports whether err is an INVALID_PROGRESS error.
func IsInvalidProgress(err error) bool { return hasCode(err, ErrCodeInvalidProgress) }

func newTransitionError(code TransitionErrorCode, format string, args ...any) *TransitionError {
	return &TransitionError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func invalidPhase(current Phase, allowed ...Phase) *TransitionError {
	names := make([]string, len(allowed))
	for i, p := range allowed {
		names[i] = string(p)
	}
	return &TransitionError{
		Code:    ErrCodeInvalidPhase,
		Message: fmt.Sprintf("not allowed in %s", current),
		Details: map[string]string{"allowed": strings.Join(names, ",")},
	}
}
