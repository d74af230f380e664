package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// NewRootCommand builds the commanderctl command tree: one subcommand per
// worked scenario, each running a Commander and printing what its
// scenario produced.
func NewRootCommand() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "commanderctl",
		Short: "run worked Commander scenarios from the command line",
		Long: `commanderctl runs one of a handful of worked Commander task-tree
scenarios and prints what the scenario produced (a job or handler result,
a cycle count, or a status message).

Each subcommand builds a small Commander program in-process; none of them
read or write files, matching the core's "no I/O of its own" contract —
any I/O a scenario performs is the scenario's own job body, not the core.`,
		SilenceUsage: true,
	}

	persistent := root.PersistentFlags()
	persistent.BoolVarP(&verbose, "verbose", "v", false, "print lifecycle events as they fire")
	bindVerbose(persistent)

	root.AddCommand(
		newEchoCommand(&verbose),
		newFanoutCommand(&verbose),
		newCycleCommand(&verbose),
		newThreadsafeCommand(&verbose),
	)
	return root
}

// bindVerbose exists so the pflag.FlagSet type is exercised directly
// alongside cobra's own flag wrapping, matching how cue's cmd package
// reaches for pflag.FlagSet when a flag needs registration outside of
// cobra's Var helpers.
func bindVerbose(fs *pflag.FlagSet) {
	fs.Lookup("verbose").Usage += " (per-scenario; off by default)"
}
