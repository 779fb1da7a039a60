package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordRuns runs each scenario into a fresh database and returns its path.
func recordRuns(t *testing.T, scenarios map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "txbatch.db")
	for name, body := range scenarios {
		path := writeScenario(t, dir, name, body)
		_, _, err := execute(NewRunCommand(&RootOptions{Format: "text"}), "--db", dbPath, path)
		require.NoError(t, err)
	}
	return dbPath
}

func TestTraceCommand_RequiresDatabase(t *testing.T) {
	_, _, err := execute(NewTraceCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a database is required")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTraceCommand_ListRuns(t *testing.T) {
	dbPath := recordRuns(t, map[string]string{"conflict": conflictYAML, "crash": crashYAML})

	out, _, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "scenario-conflict  conflict  best-effort  1 step(s)\n")
	assert.Contains(t, out, "scenario-crash  crash  best-effort  1 step(s)\n")
}

func TestTraceCommand_EmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")

	out, _, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded.")
}

func TestTraceCommand_RunTimeline(t *testing.T) {
	dbPath := recordRuns(t, map[string]string{"conflict": conflictYAML})

	out, _, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--run", "scenario-conflict")
	require.NoError(t, err)
	assert.Contains(t, out, "run scenario-conflict (conflict, best-effort)\n")
	assert.Contains(t, out, "  [1] tick conflict reducers=[0 1] pairs=[[1 0]]\n")
	assert.Contains(t, out, "steps 1: 0 committed, 1 conflict, 0 crashed")
	assert.Contains(t, out, "reducer 0: 1 conflicting step(s), 1 pair(s)")
	assert.Contains(t, out, "reducer 1: 1 conflicting step(s), 1 pair(s)")
}

func TestTraceCommand_RunJSON(t *testing.T) {
	dbPath := recordRuns(t, map[string]string{"crash": crashYAML})

	out, _, err := execute(NewTraceCommand(&RootOptions{Format: "json"}), "--db", dbPath, "--run", "scenario-crash")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Stats.Crashed)
	require.Len(t, resp.Data.Timeline, 1)
	assert.Len(t, resp.Data.Timeline[0].Digest, 64)
	assert.Equal(t, "tick", resp.Data.Timeline[0].Input)
	assert.Contains(t, resp.Data.Timeline[0].Crash, "index out of range")
	assert.Empty(t, resp.Data.Conflicts)
}

func TestTraceCommand_UnknownRun(t *testing.T) {
	dbPath := recordRuns(t, map[string]string{"crash": crashYAML})

	_, _, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--run", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found: nope")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
