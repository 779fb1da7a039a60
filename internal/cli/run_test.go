package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/txbatch/internal/store"
)

func TestRunCommand_MissingArg(t *testing.T) {
	_, _, err := execute(NewRunCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestRunCommand_MissingScenario(t *testing.T) {
	_, _, err := execute(NewRunCommand(&RootOptions{Format: "text"}), "/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load scenario")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunCommand_TextOutput(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "conflict", conflictYAML)

	out, _, err := execute(NewRunCommand(&RootOptions{Format: "text"}), path)
	require.NoError(t, err)

	assert.Contains(t, out, "run scenario-conflict (conflict, best-effort)\n")
	assert.Contains(t, out, "  [1] tick conflict reducers=[0 1] pairs=[[1 0]]\n")
	assert.Contains(t, out, "final bits 0000\n")
	assert.Contains(t, out, "trace digest ")
}

func TestRunCommand_JSONOutput(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "crash", crashYAML)

	out, _, err := execute(NewRunCommand(&RootOptions{Format: "json"}), path)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		RunID  string     `json:"run_id"`
		Data   RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "scenario-crash", resp.RunID)
	assert.Equal(t, "0100", resp.Data.FinalBits)
	assert.True(t, resp.Data.Tainted)
	require.Len(t, resp.Data.Steps, 1)
	assert.Equal(t, "crashed", resp.Data.Steps[0].Outcome)
	assert.Equal(t, "position 1: op 0: bitvec: index out of range: exchange(2,9) on 4 bits", resp.Data.Steps[0].Crash)
	assert.Len(t, resp.Data.TraceDigest, 64)
}

func TestRunCommand_CommitModeFlag(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "crash", crashYAML)

	out, _, err := execute(NewRunCommand(&RootOptions{Format: "text"}), "--commit-mode", "rollback", path)
	require.NoError(t, err)
	assert.Contains(t, out, "final bits 1000\n")
	assert.NotContains(t, out, "tainted")
}

func TestRunCommand_InvalidCommitMode(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "crash", crashYAML)

	_, _, err := execute(NewRunCommand(&RootOptions{Format: "text"}), "--commit-mode", "snapshot", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid commit mode")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunCommand_FailedExpectations(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "failing", failingYAML)

	out, _, err := execute(NewRunCommand(&RootOptions{Format: "text"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Expected: 11")
	assert.Contains(t, out, "Error [E_RUN_FAILED]: 1 expectation(s) failed")
}

func TestRunCommand_PersistsToDatabase(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "conflict", conflictYAML)
	dbPath := filepath.Join(dir, "txbatch.db")

	_, _, err := execute(NewRunCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--run-id", "run-a", path)
	require.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	runs, err := st.ListRuns(t.Context())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-a", runs[0].ID)
	assert.Equal(t, "conflict", runs[0].Label)
	assert.Equal(t, 1, runs[0].Steps)
}

func TestRunCommand_DatabaseFromConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "disjoint", disjointYAML)
	dbPath := filepath.Join(dir, "env.db")

	opts := &RootOptions{Format: "text", Config: Config{Database: dbPath}}
	_, _, err := execute(NewRunCommand(opts), path)
	require.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	digests, err := st.Digests(t.Context(), "scenario-disjoint")
	require.NoError(t, err)
	assert.Len(t, digests, 1)
}

func TestRunCommand_VerboseLogsToStderr(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "disjoint", disjointYAML)

	out, errOut, err := execute(NewRunCommand(&RootOptions{Format: "text", Verbose: true}), path)
	require.NoError(t, err)
	assert.Contains(t, errOut, "step committed")
	assert.Contains(t, errOut, "run_id=scenario-disjoint")
	assert.NotContains(t, out, "step committed")
}
