package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/txbatch/internal/ir"
)

// Snapshot renders a result as canonical JSON for golden comparison.
// Run ids are left out so a renamed run does not churn the files.
func Snapshot(name string, result *Result) ([]byte, error) {
	trace := make(ir.Array, len(result.Trace))
	for i, rec := range result.Trace {
		ev := rec.Value()
		if i < len(result.Digests) {
			ev["digest"] = ir.String(result.Digests[i])
		}
		trace[i] = ev
	}

	return ir.MarshalCanonical(ir.Object{
		"scenario_name": ir.String(name),
		"final_bits":    ir.String(result.FinalBits),
		"tainted":       ir.Bool(result.Tainted),
		"trace":         trace,
		"trace_digest":  ir.String(result.TraceDigest()),
	})
}

// RunWithGolden executes a scenario and compares the trace against a golden
// file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check Pass.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
