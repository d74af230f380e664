package cmd

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/tauloop/commander/commander"
)

func newCycleCommand(verbose *bool) *cobra.Command {
	var exitAfter int

	c := &cobra.Command{
		Use:   "cycle",
		Short: "run a conditional edge that cycles until a shared counter hits a target, then exits",
		RunE: func(cmd *cobra.Command, args []string) error {
			cd := commander.New()

			var mu sync.Mutex
			count := 0
			step := func() int {
				mu.Lock()
				defer mu.Unlock()
				count++
				return count
			}

			loop := commander.NewHandler(commander.AcknowledgeNoBlocking,
				func(context.Context, *commander.HandlerCoroutine[int]) (int, error) {
					return step(), nil
				})
			exit := commander.NewHandler(commander.AcknowledgeNoBlocking,
				func(context.Context, *commander.HandlerCoroutine[int]) (int, error) {
					mu.Lock()
					defer mu.Unlock()
					return count, nil
				})
			attachVerboseLogging(loop, *verbose, "loop")
			attachVerboseLogging(exit, *verbose, "exit")

			err := commander.AddConditionalEdge(loop,
				func(node commander.TaskNode) any {
					if node.Result().(int) >= exitAfter {
						return "exit"
					}
					return "continue"
				},
				map[any]commander.Startable{"exit": exit, "continue": loop},
			)
			if err != nil {
				return err
			}

			starter := commander.NewJob(commander.AcknowledgeNoBlocking,
				func(_ context.Context, self *commander.Job[int]) (int, error) {
					_, err := self.CallHandler(loop)
					return 0, err
				})

			if _, err := cd.RunAuto(cmd.Context(), starter); err != nil {
				return err
			}
			fmt.Printf("count = %d\n", count)
			return nil
		},
	}
	c.Flags().IntVar(&exitAfter, "exit-after", 5, "number of cycles before routing to the exit handler")
	return c
}
