package harness

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/txbatch/internal/bitvec"
	"github.com/roach88/txbatch/internal/engine"
	"github.com/roach88/txbatch/internal/ir"
	"github.com/roach88/txbatch/internal/store"
)

// AssertionError is returned when an expectation or assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // step index or assertion type
	Expected string
	Actual   string
	Trace    []ir.EventRecord
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nTrace:\n")
		for _, rec := range e.Trace {
			ids := make([]int, len(rec.Transactions))
			for i, tx := range rec.Transactions {
				ids[i] = tx.ReducerID
			}
			fmt.Fprintf(&buf, "  [%d] %s reducers=%v\n", rec.Epoch, rec.Outcome, ids)
		}
	}
	return buf.String()
}

// AssertionContext provides what run-level assertions need beyond the
// result itself.
type AssertionContext struct {
	Ctx      context.Context
	Store    *store.Store
	Scenario *Scenario
	Logger   *slog.Logger
}

// checkExpect compares one step's result against its expectation.
func checkExpect(s *Scenario, index int, want *Expect, res engine.Result, e *bitvec.Engine) []error {
	var failures []error
	fail := func(what, expected, actual string) {
		failures = append(failures, &AssertionError{
			Type:     fmt.Sprintf("steps[%d] (epoch %d) %s", index, res.Epoch, what),
			Expected: expected,
			Actual:   actual,
		})
	}

	if want.Outcome != "" && res.Outcome.String() != want.Outcome {
		detail := res.Outcome.String()
		if err := res.Err(); err != nil {
			detail += ": " + err.Error()
		}
		fail("outcome", want.Outcome, detail)
	}

	if want.Collisions != nil {
		got := make([][2]int, 0, len(res.Collisions()))
		for _, p := range res.Collisions() {
			got = append(got, [2]int{p.I, p.J})
		}
		if !slices.Equal(got, want.Collisions) {
			fail("collisions", fmt.Sprint(want.Collisions), fmt.Sprint(got))
		}
	}

	if want.Bits != nil {
		if got := e.Observe().String(); got != *want.Bits {
			fail("bits", *want.Bits, describeBits(*want.Bits, got))
		}
	}

	if want.Tainted != nil && e.Tainted() != *want.Tainted {
		fail("tainted", fmt.Sprint(*want.Tainted), fmt.Sprint(e.Tainted()))
	}

	if c := want.Crash; c != nil {
		if res.Crash == nil {
			fail("crash", "a crash report", "no crash")
			return failures
		}
		if c.Position != nil && res.Crash.Position != *c.Position {
			fail("crash.position", fmt.Sprint(*c.Position), fmt.Sprint(res.Crash.Position))
		}
		if c.Reducer != "" {
			if idx := s.reducerIndex(c.Reducer); int(res.Crash.ReducerID) != idx {
				fail("crash.reducer", fmt.Sprintf("%s (id %d)", c.Reducer, idx), fmt.Sprintf("id %d", res.Crash.ReducerID))
			}
		}
		if c.RolledBack != nil && res.Crash.RolledBack != *c.RolledBack {
			fail("crash.rolled_back", fmt.Sprint(*c.RolledBack), fmt.Sprint(res.Crash.RolledBack))
		}
		if c.ErrorContains != "" && !strings.Contains(res.Crash.Err.Error(), c.ErrorContains) {
			fail("crash.error", fmt.Sprintf("contains %q", c.ErrorContains), res.Crash.Err.Error())
		}
	}

	return failures
}

// EvaluateAssertions runs every assertion and returns failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %s", i, err))
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertFinalBits:
		return assertFinalBits(result, a)
	case AssertOutcomeCount:
		return assertOutcomeCount(result, a)
	case AssertReducerConflicts:
		return assertReducerConflicts(result, a, actx)
	case AssertReplayDeterministic:
		return assertReplayDeterministic(result, actx)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertFinalBits(result *Result, a Assertion) error {
	if result.FinalBits == a.Bits {
		return nil
	}
	return &AssertionError{
		Type:     AssertFinalBits,
		Expected: a.Bits,
		Actual:   describeBits(a.Bits, result.FinalBits),
		Trace:    result.Trace,
	}
}

func assertOutcomeCount(result *Result, a Assertion) error {
	n := 0
	for _, rec := range result.Trace {
		if rec.Outcome == a.Outcome {
			n++
		}
	}
	if n == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertOutcomeCount,
		Expected: fmt.Sprintf("%d %s step(s)", a.Count, a.Outcome),
		Actual:   fmt.Sprintf("%d", n),
		Trace:    result.Trace,
	}
}

// assertReducerConflicts reads conflict counts back from the store, so it
// also checks that the mirrored index agrees with the run.
func assertReducerConflicts(result *Result, a Assertion, actx *AssertionContext) error {
	if actx == nil || actx.Store == nil || actx.Scenario == nil {
		return fmt.Errorf("%s requires a store", AssertReducerConflicts)
	}
	counts, err := actx.Store.ConflictCounts(actx.Ctx, result.RunID)
	if err != nil {
		return err
	}

	id := actx.Scenario.reducerIndex(a.Reducer)
	got := 0
	for _, c := range counts {
		if c.ReducerID == id {
			got = c.Steps
		}
	}
	if got == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertReducerConflicts,
		Expected: fmt.Sprintf("reducer %s in %d conflicting step(s)", a.Reducer, a.Count),
		Actual:   fmt.Sprintf("%d", got),
		Trace:    result.Trace,
	}
}

func assertReplayDeterministic(result *Result, actx *AssertionContext) error {
	if actx == nil || actx.Scenario == nil || result.Log == nil {
		return fmt.Errorf("%s requires the engine log", AssertReplayDeterministic)
	}
	_, digests, err := Replay(actx.Scenario, result.Log, actx.Logger)
	if err != nil {
		return err
	}
	if slices.Equal(digests, result.Digests) {
		return nil
	}
	return &AssertionError{
		Type:     AssertReplayDeterministic,
		Expected: ir.TraceDigest(result.Digests),
		Actual:   ir.TraceDigest(digests),
		Trace:    result.Trace,
	}
}

// describeBits renders got with the indices where it differs from want.
// Vectors that cannot be compared are rendered as is.
func describeBits(want, got string) string {
	w, err := bitvec.FromString(want)
	if err != nil {
		return got
	}
	g, err := bitvec.FromString(got)
	if err != nil {
		return got
	}
	diff, err := w.Diff(g)
	if err != nil {
		return fmt.Sprintf("%s (%v)", got, err)
	}
	return fmt.Sprintf("%s (differs at %v)", got, diff)
}
