package campaign

import (
	"errors"
	"fmt"
)

// ErrMissionNotFound is returned by lookups for ids not in the graph.
var ErrMissionNotFound = errors.New("mission not found")

// IntegrityCode categorizes graph integrity failures.
type IntegrityCode string

const (
	// ErrCodeEmptyGraph indicates the campaign defines no missions.
	ErrCodeEmptyGraph IntegrityCode = "EMPTY_GRAPH"

	// ErrCodeDuplicateMission indicates two missions share an id.
	ErrCodeDuplicateMission IntegrityCode = "DUPLICATE_MISSION"

	// ErrCodeInvalidDifficulty indicates a difficulty rank outside 1..5.
	ErrCodeInvalidDifficulty IntegrityCode = "INVALID_DIFFICULTY"

	// ErrCodeUndefinedSuccessor indicates a NextChoices entry names no mission.
	ErrCodeUndefinedSuccessor IntegrityCode = "UNDEFINED_SUCCESSOR"

	// ErrCodeDuplicateChoice indicates a mission lists the same successor twice.
	ErrCodeDuplicateChoice IntegrityCode = "DUPLICATE_CHOICE"

	// ErrCodeFinalHasSuccessors indicates a final mission with NextChoices.
	ErrCodeFinalHasSuccessors IntegrityCode = "FINAL_HAS_SUCCESSORS"

	// ErrCodeDeadEnd indicates a non-final mission with no successors.
	ErrCodeDeadEnd IntegrityCode = "DEAD_END"

	// ErrCodeEdgeMismatch indicates the edge list does not mirror NextChoices.
	ErrCodeEdgeMismatch IntegrityCode = "EDGE_MISMATCH"

	// ErrCodeCycle indicates the graph is not acyclic.
	ErrCodeCycle IntegrityCode = "CYCLE"

	// ErrCodeNoEntry indicates every mission has a predecessor.
	ErrCodeNoEntry IntegrityCode = "NO_ENTRY"

	// ErrCodeAmbiguousEntry indicates more than one mission has no predecessor.
	ErrCodeAmbiguousEntry IntegrityCode = "AMBIGUOUS_ENTRY"
)

// GraphIntegrityError reports a malformed campaign definition.
type GraphIntegrityError struct {
	Code      IntegrityCode
	MissionID string
	Message   string

	// Path lists the missions involved, e.g. a cycle or the competing entries.
	Path []string
}

// Error implements the error interface.
func (e *GraphIntegrityError) Error() string {
	if e.MissionID != "" {
		return fmt.Sprintf("%s: %s (mission=%s)", e.Code, e.Message, e.MissionID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsIntegrityError reports whether err is a GraphIntegrityError.
// Uses errors.As to handle wrapped errors.
func IsIntegrityError(err error) bool {
	var ge *GraphIntegrityError
	return errors.As(err, &ge)
}

// IntegrityCodeOf extracts the integrity code from err, if any.
func IntegrityCodeOf(err error) (IntegrityCode, bool) {
	var ge *GraphIntegrityError
	if errors.As(err, &ge) {
		return ge.Code, true
	}
	return "", false
}

func integrityErr(code IntegrityCode, missionID, format string, args ...any) *GraphIntegrityError {
	return &GraphIntegrityError{
		Code:      code,
		MissionID: missionID,
		Message:   fmt.Sprintf(format, args...),
	}
}
