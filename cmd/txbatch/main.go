// Command txbatch runs, tests, replays, and traces transaction batching
// scenarios.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/txbatch/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "txbatch:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
