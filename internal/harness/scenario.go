package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/txbatch/internal/bitvec"
	"github.com/roach88/txbatch/internal/engine"
)

// Scenario defines a bit-vector run: initial state, reducers, inputs, and
// what each step must produce.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Size is the vector length when Initial is empty.
	Size uint `yaml:"size,omitempty"`

	// Initial is the starting vector, index 0 first.
	Initial string `yaml:"initial,omitempty"`

	// CommitMode is "best-effort" (default) or "rollback".
	CommitMode string `yaml:"commit_mode,omitempty"`

	// RunID fixes the run identifier. Defaults to "scenario-<name>".
	RunID string `yaml:"run_id,omitempty"`

	// Reducers are registered in order; their index is their ReducerID.
	Reducers []ReducerDef `yaml:"reducers"`

	// Steps are fed to Engine.Step in order.
	Steps []StepDef `yaml:"steps"`

	// Assertions validate the run as a whole.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ReducerDef describes a reducer proposing a fixed exchange sequence.
type ReducerDef struct {
	Name      string    `yaml:"name"`
	Exchanges [][2]uint `yaml:"exchanges"`

	// When restricts the reducer to these inputs. Empty means every input.
	When []string `yaml:"when,omitempty"`
}

// StepDef is one input plus optional expectations.
type StepDef struct {
	Input  string  `yaml:"input"`
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies what one step must produce. Unset fields are not checked.
type Expect struct {
	Outcome    string       `yaml:"outcome,omitempty"`
	Collisions [][2]int     `yaml:"collisions,omitempty"`
	Bits       *string      `yaml:"bits,omitempty"`
	Tainted    *bool        `yaml:"tainted,omitempty"`
	Crash      *CrashExpect `yaml:"crash,omitempty"`
}

// CrashExpect specifies the crash report of a crashed step.
type CrashExpect struct {
	Position      *int   `yaml:"position,omitempty"`
	Reducer       string `yaml:"reducer,omitempty"`
	RolledBack    *bool  `yaml:"rolled_back,omitempty"`
	ErrorContains string `yaml:"error_contains,omitempty"`
}

// Assertion validates the finished run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Bits is the expected final vector (final_bits).
	Bits string `yaml:"bits,omitempty"`

	// Outcome and Count are used by outcome_count.
	Outcome string `yaml:"outcome,omitempty"`
	Count   int    `yaml:"count,omitempty"`

	// Reducer names the reducer for reducer_conflicts; Count is the
	// expected number of conflicting steps.
	Reducer string `yaml:"reducer,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalBits           = "final_bits"
	AssertOutcomeCount        = "outcome_count"
	AssertReducerConflicts    = "reducer_conflicts"
	AssertReplayDeterministic = "replay_deterministic"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields, fails the CUE schema, or is semantically invalid.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML from memory.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decode catches typos like "reducer:" vs "reducers:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateSchema(doc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("glob scenarios: %w", err)
	}
	slices.Sort(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks the rules the schema cannot express: sizes and
// name references. Out-of-range exchanges are allowed; they crash at
// apply time, which scenarios may want to exercise.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Initial == "" && s.Size == 0 {
		return fmt.Errorf("one of size or initial is required")
	}
	if s.Initial != "" && s.Size != 0 && uint(len(s.Initial)) != s.Size {
		return fmt.Errorf("size %d does not match initial %q", s.Size, s.Initial)
	}
	if _, err := engine.ParseCommitMode(s.CommitMode); err != nil {
		return err
	}
	if len(s.Reducers) == 0 {
		return fmt.Errorf("reducers list is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	seen := make(map[string]bool, len(s.Reducers))
	for i, r := range s.Reducers {
		if r.Name == "" {
			return fmt.Errorf("reducers[%d]: name is required", i)
		}
		if seen[r.Name] {
			return fmt.Errorf("reducers[%d]: duplicate name %q", i, r.Name)
		}
		seen[r.Name] = true
	}

	size := s.size()
	for i, step := range s.Steps {
		e := step.Expect
		if e == nil {
			continue
		}
		if e.Bits != nil && uint(len(*e.Bits)) != size {
			return fmt.Errorf("steps[%d].expect.bits: length %d, vector has %d bits", i, len(*e.Bits), size)
		}
		for _, p := range e.Collisions {
			if p[0] <= p[1] {
				return fmt.Errorf("steps[%d].expect.collisions: pair %v must have i > j", i, p)
			}
		}
		if e.Crash != nil && e.Crash.Reducer != "" && !seen[e.Crash.Reducer] {
			return fmt.Errorf("steps[%d].expect.crash: unknown reducer %q", i, e.Crash.Reducer)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a, seen, size); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion, reducers map[string]bool, size uint) error {
	switch a.Type {
	case AssertFinalBits:
		if uint(len(a.Bits)) != size {
			return fmt.Errorf("assertions[%d]: final_bits needs %d bits, got %q", index, size, a.Bits)
		}
	case AssertOutcomeCount:
		if a.Outcome == "" {
			return fmt.Errorf("assertions[%d]: outcome is required for outcome_count", index)
		}
	case AssertReducerConflicts:
		if !reducers[a.Reducer] {
			return fmt.Errorf("assertions[%d]: unknown reducer %q", index, a.Reducer)
		}
	case AssertReplayDeterministic:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// size returns the vector length.
func (s *Scenario) size() uint {
	if s.Initial != "" {
		return uint(len(s.Initial))
	}
	return s.Size
}

// initialState builds the starting vector.
func (s *Scenario) initialState() (*bitvec.State, error) {
	if s.Initial == "" {
		return bitvec.New(s.Size), nil
	}
	return bitvec.FromString(s.Initial)
}

// runID returns the fixed run id for this scenario.
func (s *Scenario) runID() string {
	if s.RunID != "" {
		return s.RunID
	}
	return "scenario-" + s.Name
}

// reducerIndex returns the registration index of the named reducer.
func (s *Scenario) reducerIndex(name string) int {
	return slices.IndexFunc(s.Reducers, func(r ReducerDef) bool { return r.Name == name })
}

// buildReducers turns the definitions into engine reducers, in order.
func (s *Scenario) buildReducers() []bitvec.Reducer {
	out := make([]bitvec.Reducer, len(s.Reducers))
	for i, def := range s.Reducers {
		tx := bitvec.NewTx()
		for _, x := range def.Exchanges {
			tx.Append(x[0], x[1])
		}
		out[i] = bitvec.OnInputs(tx, def.When...)
	}
	return out
}

// String summarizes the scenario for logs.
func (s *Scenario) String() string {
	names := make([]string, len(s.Reducers))
	for i, r := range s.Reducers {
		names[i] = r.Name
	}
	return fmt.Sprintf("%s (%d bits, reducers [%s], %d steps)", s.Name, s.size(), strings.Join(names, " "), len(s.Steps))
}
