package cmd

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/tauloop/commander/commander"
)

func newThreadsafeCommand(verbose *bool) *cobra.Command {
	c := &cobra.Command{
		Use:   "threadsafe",
		Short: "submit a job from outside the command's own goroutine via the threadsafe bridge",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cd := commander.New()

			var flag atomic.Bool
			job := commander.NewJob(commander.AcknowledgeNoBlocking,
				func(context.Context, *commander.Job[struct{}]) (struct{}, error) {
					flag.Store(true)
					return struct{}{}, nil
				})
			attachVerboseLogging(job, *verbose, "threadsafe-job")

			runDone := make(chan error, 1)
			go func() { _, err := cd.Run(ctx, false); runDone <- err }()

			for !cd.RunningStatus().Started {
				time.Sleep(time.Millisecond)
			}
			if err := cd.PutJobThreadsafe(ctx, cd, job); err != nil {
				return err
			}
			for !flag.Load() {
				time.Sleep(time.Millisecond)
			}
			cd.Exit("done", nil)

			if err := <-runDone; err != nil {
				return err
			}
			fmt.Println("flag observed, run exited cleanly")
			return nil
		},
	}
	return c
}
