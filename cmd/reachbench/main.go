// Command reachbench generates, runs and scores the call reachability
// benchmark.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/reachbench/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		if !cli.Reported(err) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(cli.ExitCode(err))
	}
}
