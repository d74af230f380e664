package cmd

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/tauloop/commander/commander"
)

func newFanoutCommand(verbose *bool) *cobra.Command {
	var count int

	c := &cobra.Command{
		Use:   "fanout",
		Short: "run a job that fans out to N handlers and joins on all of them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cd := commander.New()

			var mu sync.Mutex
			var names []string

			p := commander.NewJob(commander.AcknowledgeNoBlocking,
				func(ctx context.Context, self *commander.Job[[]string]) ([]string, error) {
					handlers := make([]*commander.HandlerCoroutine[string], count)
					for i := range handlers {
						name := fmt.Sprintf("H%d", i+1)
						handlers[i] = commander.NewHandler(commander.AcknowledgeNoBlocking,
							func(ctx context.Context, self *commander.HandlerCoroutine[string]) (string, error) {
								select {
								case <-time.After(5 * time.Millisecond):
								case <-ctx.Done():
									return "", ctx.Err()
								}
								mu.Lock()
								names = append(names, name)
								mu.Unlock()
								return name, nil
							})
						attachVerboseLogging(handlers[i], *verbose, name)
						if _, err := self.CallHandler(handlers[i]); err != nil {
							return nil, err
						}
					}
					for _, h := range handlers {
						if _, err := h.Await(ctx); err != nil {
							return nil, err
						}
					}
					mu.Lock()
					defer mu.Unlock()
					out := make([]string, len(names))
					copy(out, names)
					sort.Strings(out)
					return out, nil
				})
			attachVerboseLogging(p, *verbose, "P")

			if _, err := cd.RunAuto(cmd.Context(), p); err != nil {
				return err
			}
			fmt.Printf("p.result = %v\n", p.TypedResult())
			return nil
		},
	}
	c.Flags().IntVar(&count, "count", 3, "number of handlers to fan out to")
	return c
}
