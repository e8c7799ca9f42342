package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/sortie/internal/engine"
	"github.com/roach88/sortie/internal/ir"
	"github.com/roach88/sortie/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes the full trace to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s -> %s (phase=%s, mission=%s)\n", ev.Seq, ev.Step, ev.Result, ev.Phase, ev.Mission)
		}
	}
	return buf.String()
}

// Subject is the engine surface assertions read.
type Subject interface {
	Phase() engine.Phase
	Progress() ir.PersistedProgress
	AvailableChoices() []string
	UnlocksEarned() []ir.UnlockTier
	Flush(ctx context.Context) error
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(ctx context.Context, eng Subject, ps store.ProgressStore, result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluate(ctx, eng, ps, result, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func evaluate(ctx context.Context, eng Subject, ps store.ProgressStore, result *Result, a Assertion) error {
	switch a.Type {
	case AssertPhase:
		if got := eng.Phase().String(); got != a.Phase {
			return &AssertionError{Type: a.Type, Expected: a.Phase, Actual: got, Trace: result.Trace}
		}
	case AssertProgress:
		return assertRecord(a, eng.Progress(), result.Trace)
	case AssertStored:
		rec, err := loadStored(ctx, eng, ps)
		if err != nil {
			return &AssertionError{Type: a.Type, Expected: "a stored record", Actual: err.Error(), Trace: result.Trace}
		}
		return assertRecord(a, rec, result.Trace)
	case AssertNoSave:
		_, err := loadStored(ctx, eng, ps)
		if !errors.Is(err, store.ErrNotFound) {
			actual := "a stored record"
			if err != nil {
				actual = err.Error()
			}
			return &AssertionError{Type: a.Type, Expected: "no stored record", Actual: actual, Trace: result.Trace}
		}
	case AssertChoices:
		if got := eng.AvailableChoices(); !slices.Equal(got, a.Missions) {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprint(a.Missions),
				Actual:   fmt.Sprint(got),
				Trace:    result.Trace,
			}
		}
	case AssertUnlocks:
		var got []int
		for _, u := range eng.UnlocksEarned() {
			got = append(got, u.Tier)
		}
		if !slices.Equal(got, a.Tiers) {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprint(a.Tiers),
				Actual:   fmt.Sprint(got),
				Trace:    result.Trace,
			}
		}
	case AssertTraceCount:
		return assertTraceCount(result.Trace, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func loadStored(ctx context.Context, eng Subject, ps store.ProgressStore) (ir.PersistedProgress, error) {
	if err := eng.Flush(ctx); err != nil && !errors.Is(err, engine.ErrClosed) {
		return ir.PersistedProgress{}, err
	}
	return ps.Load(ctx)
}

// assertRecord compares the listed fields of rec by their JSON names.
func assertRecord(a Assertion, rec ir.PersistedProgress, trace []TraceEvent) error {
	actual, err := asJSONMap(rec)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(a.Expect))
	for k := range a.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var mismatches []string
	for _, k := range keys {
		want, err := normalize(a.Expect[k])
		if err != nil {
			return fmt.Errorf("expect.%s: %w", k, err)
		}
		got, ok := actual[k]
		if !ok {
			mismatches = append(mismatches, fmt.Sprintf("%s: missing", k))
			continue
		}
		if !matchValue(got, want) {
			mismatches = append(mismatches, fmt.Sprintf("%s: expected %v, got %v", k, want, got))
		}
	}
	if len(mismatches) > 0 {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprint(a.Expect),
			Actual:   strings.Join(mismatches, "; "),
			Trace:    trace,
		}
	}
	return nil
}

// matchValue compares got against want; objects match on want's keys only.
func matchValue(got, want any) bool {
	wantObj, ok := want.(map[string]any)
	if !ok {
		return reflect.DeepEqual(got, want)
	}
	gotObj, ok := got.(map[string]any)
	if !ok {
		return false
	}
	for k, wv := range wantObj {
		gv, ok := gotObj[k]
		if !ok || !matchValue(gv, wv) {
			return false
		}
	}
	return true
}

func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Step == a.Step && (a.Result == "" || ev.Result == a.Result) {
			count++
		}
	}
	if count != a.Count {
		what := a.Step
		if a.Result != "" {
			what += " -> " + a.Result
		}
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s %d time(s)", what, a.Count),
			Actual:   fmt.Sprintf("%d time(s)", count),
			Trace:    trace,
		}
	}
	return nil
}

// asJSONMap renders v through encoding/json so YAML and Go values compare
// on equal terms.
func asJSONMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
