package commander

import (
	"context"
	"log/slog"
)

// AcknowledgeNoBlocking is the documentation-discipline marker spec.md §9
// calls a "password decoration": passing anything other than this exact
// string to NewJob/NewHandler logs a deprecation-style warning rather than
// failing, since the core cannot actually verify a body never blocks the
// scheduling goroutine.
const AcknowledgeNoBlocking = "i-will-not-block-the-commander-loop"

// JobTask is the body of a Job. self gives the task access to its own
// node (PutJob, CallHandler, Data, ExitCommander). The
// body MUST NOT block the calling goroutine for the scheduling loop's
// sake (there is no runtime enforcement of this; AcknowledgeNoBlocking is
// a documentation contract, not a guard rail).
type JobTask[R any] func(ctx context.Context, self *Job[R]) (R, error)

// Job is a queued, coarse-grained TaskNode: a class-style unit whose Task
// body is dequeued and run by the Commander loop in FIFO order.
type Job[R any] struct {
	*baseNode

	task   JobTask[R]
	result R

	cancel context.CancelFunc
}

// NewJob constructs a Job from a task body. acknowledge should be
// AcknowledgeNoBlocking; any other value is accepted but logged as a
// deprecation warning (spec.md §9 — the marker is a documentation guard,
// not an authorization mechanism).
func NewJob[R any](acknowledge string, task JobTask[R]) *Job[R] {
	if acknowledge != AcknowledgeNoBlocking {
		slog.Default().Warn("commander: Job created without the acknowledgement marker; task bodies must not block the scheduling goroutine",
			slog.String("hint", "pass commander.AcknowledgeNoBlocking"))
	}
	return &Job[R]{
		baseNode: newBaseNode(newNodeID(), "job"),
		task:     task,
	}
}

// Result returns the value the Task body returned, or nil until State is
// Done.
func (j *Job[R]) Result() any {
	if j.State() != Done {
		return nil
	}
	return j.result
}

// TypedResult returns the Task body's typed return value directly,
// convenient when the caller already knows R.
func (j *Job[R]) TypedResult() R { return j.result }

// PutJob enqueues a child job under this node's Commander, with this node
// as parent. It is a convenience wrapper equivalent to calling the owning
// Commander's PutJob(j, child).
func (j *Job[R]) PutJob(child Submittable) error {
	return j.commander().PutJob(j, child)
}

// CallHandler starts a child handler under this node's Commander, with
// this node as parent.
func (j *Job[R]) CallHandler(h Startable) (TaskNode, error) {
	return j.commander().CallHandler(j, h)
}

// ExitCommander requests Commander shutdown, equivalent to calling the
// owning Commander's Exit(result, nil).
func (j *Job[R]) ExitCommander(result any) {
	j.commander().Exit(result, nil)
}

func (j *Job[R]) startEvent() CallbackEvent { return EventJobStart }
func (j *Job[R]) endEvent() CallbackEvent   { return EventJobEnd }

// runBody executes the Task, recording its result and returning its error.
// It never panics: a panicking Task is returned as a *CommanderError with
// Code "JOB_PANIC" whose Cause is the recovered value when that value is an
// error, mirroring how the dispatcher treats callback panics. The Commander
// then stores the returned error as the exception and sets state Failed.
func (j *Job[R]) runBody(ctx context.Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &CommanderError{Message: "job task panicked", Code: "JOB_PANIC", Cause: asError(rec)}
		}
	}()

	j.result, err = j.task(ctx, j)
	return err
}

// Submittable is implemented by every *Job[R], for any R. It is the
// argument type of PutJob, PutJobThreadsafe, Run, and RunAuto. The
// unexported methods seal the interface to this package's own Job type.
type Submittable interface {
	TaskNode
	internalNode
	startEvent() CallbackEvent
	endEvent() CallbackEvent
	runBody(ctx context.Context) error
}

var _ Submittable = (*Job[any])(nil)

func asError(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return &CommanderError{Message: "panic", Code: "PANIC"}
}
