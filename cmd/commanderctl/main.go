// Command commanderctl runs one of a handful of worked Commander
// scenarios from the command line and prints what it produced, the way
// `cue` dispatches subcommands for its own worked examples.
package main

import (
	"fmt"
	"os"

	"github.com/tauloop/commander/cmd/commanderctl/cmd"
)

func main() {
	if err := cmd.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
