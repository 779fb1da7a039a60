package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const disjointYAML = `
name: disjoint
description: two reducers on disjoint indices
initial: "1010"
reducers:
  - name: low
    exchanges: [[0, 1]]
  - name: high
    exchanges: [[2, 3]]
steps:
  - input: tick
    expect:
      outcome: committed
      bits: "0101"
assertions:
  - type: replay_deterministic
`

const conflictYAML = `
name: conflict
description: two reducers share index 1
size: 4
reducers:
  - name: low
    exchanges: [[0, 1]]
  - name: middle
    exchanges: [[1, 2]]
steps:
  - input: tick
    expect:
      outcome: conflict
      collisions: [[1, 0]]
`

const crashYAML = `
name: crash
description: the second transaction is out of range
initial: "1000"
reducers:
  - name: good
    exchanges: [[0, 1]]
  - name: bad
    exchanges: [[2, 9]]
steps:
  - input: tick
    expect:
      outcome: crashed
`

const failingYAML = `
name: failing
description: expects the wrong bits
size: 2
reducers:
  - name: a
    exchanges: [[0, 1]]
steps:
  - input: tick
    expect:
      bits: "11"
`

// writeScenario writes body to dir/name.yaml and returns the path.
func writeScenario(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name+".yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// execute runs cmd with args and returns stdout and stderr.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
