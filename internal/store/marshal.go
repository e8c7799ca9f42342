package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/sortie/internal/ir"
)

// EncodeProgress serializes a record for storage.
// Uses json.Encoder with HTML escaping disabled so mission and member ids
// round-trip byte-for-byte.
func EncodeProgress(p ir.PersistedProgress) ([]byte, error) {
	p = normalize(p)
	if p.SchemaVersion == 0 {
		p.SchemaVersion = ir.SchemaVersion
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("encode progress: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return bytes.TrimSpace(buf.Bytes()), nil
}

// DecodeProgress parses a stored record.
//
// Unknown fields are ignored, not rejected. Missing fields take their
// defaults: options fall back to ir.DefaultOptions field by field, slices to
// empty, counters to zero. Shape violations (wrong JSON types, negative
// counters, duplicate ids) fail with ErrInvalidRecord.
func DecodeProgress(data []byte) (ir.PersistedProgress, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return ir.PersistedProgress{}, fmt.Errorf("decode progress: %w: empty record", ErrInvalidRecord)
	}

	p := ir.PersistedProgress{Options: ir.DefaultOptions()}
	if err := json.Unmarshal(data, &p); err != nil {
		return ir.PersistedProgress{}, fmt.Errorf("decode progress: %w: %v", ErrInvalidRecord, err)
	}
	p = normalize(p)

	if err := validateShape(p); err != nil {
		return ir.PersistedProgress{}, fmt.Errorf("decode progress: %w: %v", ErrInvalidRecord, err)
	}
	return p, nil
}

func normalize(p ir.PersistedProgress) ir.PersistedProgress {
	p = p.Clone()
	if p.SchemaVersion == 0 {
		p.SchemaVersion = ir.SchemaVersion
	}
	if p.Options.Difficulty == "" {
		p.Options.Difficulty = ir.DefaultOptions().Difficulty
	}
	return p
}

// validateShape checks field-level invariants that hold regardless of the
// campaign. Graph and roster checks happen in the engine on resume.
func validateShape(p ir.PersistedProgress) error {
	var problems []string
	if p.CumulativeScore < 0 {
		problems = append(problems, fmt.Sprintf("cumulativeScore %d is negative", p.CumulativeScore))
	}
	if p.CompletedRuns < 0 {
		problems = append(problems, fmt.Sprintf("completedRuns %d is negative", p.CompletedRuns))
	}
	if p.Revision < 0 {
		problems = append(problems, fmt.Sprintf("revision %d is negative", p.Revision))
	}
	if dup, ok := firstDuplicate(p.CompletedPath); ok {
		problems = append(problems, fmt.Sprintf("completedPath repeats %q", dup))
	}
	if dup, ok := firstDuplicate(p.SelectedSquad); ok {
		problems = append(problems, fmt.Sprintf("selectedSquad repeats %q", dup))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

func firstDuplicate(ids []string) (string, bool) {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return id, true
		}
		seen[id] = true
	}
	return "", false
}
