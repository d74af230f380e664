package commander

import (
	"context"
	"log/slog"
)

// HandlerTask is the body of a HandlerCoroutine. self gives the body access
// to its own node, mirroring JobTask for Job.
type HandlerTask[R any] func(ctx context.Context, self *HandlerCoroutine[R]) (R, error)

// HandlerCoroutine is a fine-grained TaskNode started synchronously by
// CallHandler, as opposed to a Job's asynchronous FIFO dispatch. When
// Reusable is true, a HandlerCoroutine that reaches a terminal state can be
// started again via CallHandler on the same value, restarting it from
// Pending (spec.md §4.3 — this is what lets an edge target be called
// repeatedly across a graph's lifetime instead of being consumed once).
type HandlerCoroutine[R any] struct {
	*baseNode

	task     HandlerTask[R]
	result   R
	Reusable bool

	cancel context.CancelFunc
}

// NewHandler constructs a HandlerCoroutine from a task body. acknowledge
// should be AcknowledgeNoBlocking, exactly as for NewJob.
func NewHandler[R any](acknowledge string, task HandlerTask[R]) *HandlerCoroutine[R] {
	if acknowledge != AcknowledgeNoBlocking {
		slog.Default().Warn("commander: HandlerCoroutine created without the acknowledgement marker; task bodies must not block the scheduling goroutine",
			slog.String("hint", "pass commander.AcknowledgeNoBlocking"))
	}
	return &HandlerCoroutine[R]{
		baseNode: newBaseNode(newNodeID(), "handler"),
		task:     task,
	}
}

// Result returns the value the Task body returned, or nil until State is
// Done.
func (h *HandlerCoroutine[R]) Result() any {
	if h.State() != Done {
		return nil
	}
	return h.result
}

// TypedResult returns the Task body's typed return value directly.
func (h *HandlerCoroutine[R]) TypedResult() R { return h.result }

// PutJob enqueues a child job under this node's Commander, with this node
// as parent.
func (h *HandlerCoroutine[R]) PutJob(child Submittable) error {
	return h.commander().PutJob(h, child)
}

// CallHandler starts a child handler under this node's Commander, with
// this node as parent.
func (h *HandlerCoroutine[R]) CallHandler(next Startable) (TaskNode, error) {
	return h.commander().CallHandler(h, next)
}

// ExitCommander requests Commander shutdown.
func (h *HandlerCoroutine[R]) ExitCommander(result any) {
	h.commander().Exit(result, nil)
}

// Await blocks until the handler reaches a terminal state, then returns its
// typed result and exception (if any). It respects ctx cancellation,
// returning ctx.Err() if ctx is done first.
func (h *HandlerCoroutine[R]) Await(ctx context.Context) (R, error) {
	select {
	case <-h.awaitDone():
		if err := h.Exception(); err != nil {
			var zero R
			return zero, err
		}
		return h.result, nil
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

func (h *HandlerCoroutine[R]) startEvent() CallbackEvent { return EventHandlerStart }
func (h *HandlerCoroutine[R]) endEvent() CallbackEvent   { return EventHandlerEnd }

func (h *HandlerCoroutine[R]) reusable() bool { return h.Reusable }

func (h *HandlerCoroutine[R]) setReusable() { h.Reusable = true }

// restart returns the handler to Pending so CallHandler can dispatch it
// again. Only ever invoked by Commander.CallHandler, and only when
// Reusable is true, the current state is terminal, and the handler's own
// child set is empty — CallHandler checks the last condition itself and
// returns ErrHandlerChildrenOutstanding rather than calling restart if
// children are still linked.
func (h *HandlerCoroutine[R]) restart() {
	h.resetForReuse()
}

func (h *HandlerCoroutine[R]) runBody(ctx context.Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &CommanderError{Message: "handler task panicked", Code: "HANDLER_PANIC", Cause: asError(rec)}
		}
	}()

	h.result, err = h.task(ctx, h)
	return err
}

// Startable is implemented by every *HandlerCoroutine[R], for any R. It is
// the argument type of CallHandler and CallHandlerThreadsafe.
type Startable interface {
	TaskNode
	internalNode
	startEvent() CallbackEvent
	endEvent() CallbackEvent
	runBody(ctx context.Context) error
	reusable() bool
	restart()
	setReusable()
}

var _ Startable = (*HandlerCoroutine[any])(nil)
