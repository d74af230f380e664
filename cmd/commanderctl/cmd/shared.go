package cmd

import (
	"context"
	"fmt"

	"github.com/tauloop/commander/commander"
)

// attachVerboseLogging registers a callback on every lifecycle event that
// prints the event name when verbose is set, the same per-run toggle
// every subcommand shares via --verbose.
func attachVerboseLogging(node commander.TaskNode, verbose bool, label string) {
	if !verbose {
		return
	}
	events := []commander.CallbackEvent{
		commander.EventJobStart, commander.EventHandlerStart,
		commander.EventException, commander.EventTerminate,
		commander.EventJobEnd, commander.EventHandlerEnd,
		commander.EventCommanderEnd,
	}
	for _, event := range events {
		event := event
		_ = node.Callbacks().Add(event, commander.CallbackDescriptor{
			Func: func(context.Context, commander.TaskNode, []any, map[string]any) error {
				fmt.Printf("[%s] %s\n", label, event)
				return nil
			},
		})
	}
}
