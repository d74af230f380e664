// Package commander implements an in-process task-flow orchestrator.
//
// A Commander is the root of a tree of TaskNodes. Callers submit Jobs
// (coarse, queue-scheduled units with their own body) and Handlers (fine,
// directly invoked continuations), attach Callbacks to lifecycle events,
// and run the Commander until the tree drains or an explicit exit is
// requested. The Commander owns a FIFO job queue and a loop goroutine
// that starts queued Jobs and handles every body's completion (terminal
// state, terminal callbacks, unlinking from the tree); CallHandler links a
// handler and fires its start callbacks on the calling goroutine. Job and
// Handler bodies themselves run concurrently as separate
// goroutines, matching Go's scheduling model rather than a cooperative
// single-thread coroutine runtime.
//
//	cmd := commander.New()
//	job := commander.NewJob(commander.AcknowledgeNoBlocking, func(ctx context.Context, self *commander.Job[int]) (int, error) {
//	    return 42, nil
//	})
//	result, err := cmd.Run(context.Background(), true, job)
package commander
