package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tauloop/commander/commander"
)

func newEchoCommand(verbose *bool) *cobra.Command {
	var value int

	c := &cobra.Command{
		Use:   "echo",
		Short: "run a single job that returns a fixed value",
		RunE: func(cmd *cobra.Command, args []string) error {
			cd := commander.New()
			job := commander.NewJob(commander.AcknowledgeNoBlocking,
				func(context.Context, *commander.Job[int]) (int, error) {
					return value, nil
				})
			attachVerboseLogging(job, *verbose, "echo")

			if _, err := cd.RunAuto(cmd.Context(), job); err != nil {
				return err
			}
			fmt.Printf("job.result = %d\n", job.TypedResult())
			return nil
		},
	}
	c.Flags().IntVar(&value, "value", 42, "value the job returns")
	return c
}
