package commander

import (
	"context"
	"sync/atomic"
)

// PutJobThreadsafe is PutJob for callers outside the task tree itself —
// typically a goroutine that did not come from a Job or HandlerCoroutine
// body, such as an HTTP handler feeding work into a long-running
// Commander. The extra bookkeeping here (over plain PutJob) keeps
// IsEmpty from returning true while such a caller is between "decided to
// submit" and "the queue actually holds the submission": without it, a
// waitForEmpty Run could drain and return a heartbeat before the
// threadsafe caller's job ever arrives.
func (c *Commander) PutJobThreadsafe(ctx context.Context, parent TaskNode, job Submittable) error {
	atomic.AddInt64(&c.pendingExternal, 1)
	defer atomic.AddInt64(&c.pendingExternal, -1)
	return c.PutJob(parent, job)
}

// CallHandlerThreadsafe is CallHandler for callers outside the task tree,
// with the same IsEmpty-race protection as PutJobThreadsafe.
func (c *Commander) CallHandlerThreadsafe(ctx context.Context, parent TaskNode, h Startable) (TaskNode, error) {
	atomic.AddInt64(&c.pendingExternal, 1)
	defer atomic.AddInt64(&c.pendingExternal, -1)
	return c.CallHandler(parent, h)
}
