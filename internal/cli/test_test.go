package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestCommand_MissingArgs(t *testing.T) {
	_, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommand_NonExistentDir(t *testing.T) {
	_, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenarios directory not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommand_Empty(t *testing.T) {
	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommand_AllPass(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "conflict", conflictYAML)
	writeScenario(t, dir, "crash", crashYAML)
	writeScenario(t, dir, "disjoint", disjointYAML)

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ conflict\n✓ crash\n✓ disjoint\n")
	assert.Contains(t, out, "Test Summary: 3 passed, 0 failed, 3 total")
}

func TestTestCommand_Failure(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "disjoint", disjointYAML)
	writeScenario(t, dir, "failing", failingYAML)

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, CodeTestFailed, resp.Error.Code)
	assert.Equal(t, 1, resp.Data.Passed)
	assert.Equal(t, 1, resp.Data.Failed)
	assert.Equal(t, "failing", resp.Data.Scenarios[1].Name)
	assert.False(t, resp.Data.Scenarios[1].Pass)
}

func TestTestCommand_LoadErrorIsAFailure(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "broken", "name: broken\nsteps: [\n")

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestCommand_Filter(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "crash", crashYAML)
	writeScenario(t, dir, "failing", failingYAML)

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), "--filter", "cr*", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestTestCommand_InvalidFilter(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "crash", crashYAML)

	_, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), "--filter", "[", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}

func TestTestCommand_GoldenUpdateThenCompare(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "conflict", conflictYAML)
	golden := filepath.Join(t.TempDir(), "golden")

	_, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), "--golden", golden, "--update", dir)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(golden, "conflict.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario_name":"conflict"`)

	_, _, err = execute(NewTestCommand(&RootOptions{Format: "text"}), "--golden", golden, dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(golden, "conflict.golden"), []byte("{}"), 0o644))
	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), "--golden", golden, dir)
	require.Error(t, err)
	assert.Contains(t, out, "golden mismatch")
}

func TestTestCommand_UpdateRequiresGolden(t *testing.T) {
	_, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), "--update", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--update requires --golden")
}
