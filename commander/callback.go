package commander

import (
	"context"
	"fmt"
	"log/slog"
)

// CallbackEvent identifies a lifecycle transition a TaskNode can fire
// callbacks for. The seven events and their firing order are fixed by
// spec.md §4.4.
type CallbackEvent string

const (
	// EventJobStart fires just after a Job's state becomes Running, before
	// its Task body executes.
	EventJobStart CallbackEvent = "at_job_start"
	// EventHandlerStart fires just after a HandlerCoroutine's state becomes
	// Running, before its body executes.
	EventHandlerStart CallbackEvent = "at_handler_start"
	// EventException fires when a body throws; state has just been set to
	// Failed.
	EventException CallbackEvent = "at_exception"
	// EventTerminate fires on external termination; state has just been
	// set to Terminated.
	EventTerminate CallbackEvent = "at_terminate"
	// EventJobEnd fires after a Job's body returns: with state Done on a
	// normal return, or with state Failed right after at_exception. It does
	// not fire for a terminated Job.
	EventJobEnd CallbackEvent = "at_job_end"
	// EventHandlerEnd fires after a HandlerCoroutine's body returns: with
	// state Done on a normal return, or with state Failed right after
	// at_exception. It does not fire for a terminated handler.
	EventHandlerEnd CallbackEvent = "at_handler_end"
	// EventCommanderEnd fires once, when the Commander loop is about to
	// return.
	EventCommanderEnd CallbackEvent = "at_commander_end"
)

func validCallbackEvent(e CallbackEvent) bool {
	switch e {
	case EventJobStart, EventHandlerStart, EventException, EventTerminate,
		EventJobEnd, EventHandlerEnd, EventCommanderEnd:
		return true
	default:
		return false
	}
}

// CallbackFunc is the uniform shape every callback descriptor wraps. args
// and kwargs are the positional/keyword parameters supplied at
// registration time; taskNode is non-nil only when the descriptor set
// InjectTaskNode.
//
// A callback may perform blocking work; the dispatcher awaits it before
// moving to the next callback for the same event, preserving insertion
// order (spec.md §4.4).
type CallbackFunc func(ctx context.Context, taskNode TaskNode, args []any, kwargs map[string]any) error

// CallbackDescriptor describes one callback registration: the function to
// invoke, its bound parameters, and whether the owning TaskNode should be
// injected as the "task_node" keyword argument.
type CallbackDescriptor struct {
	Func           CallbackFunc
	Args           []any
	Kwargs         map[string]any
	InjectTaskNode bool
}

// CallbackRegistry stores callback descriptors per lifecycle event and
// dispatches them in insertion order. It does no locking of its own, so
// an Add that runs concurrently with a Dispatch on the same registry is a
// data race. The Commander dispatches job start events and every terminal
// event on its loop goroutine, and a handler's start event on the
// goroutine that called CallHandler.
type CallbackRegistry struct {
	byEvent     map[CallbackEvent][]CallbackDescriptor
	logger      *slog.Logger
	onSuppressed func(event CallbackEvent)
}

// NewCallbackRegistry creates an empty registry. Descriptors are added with
// Add, usually through the owning TaskNode's Callbacks().
func NewCallbackRegistry() *CallbackRegistry {
	return &CallbackRegistry{byEvent: make(map[CallbackEvent][]CallbackDescriptor)}
}

func (r *CallbackRegistry) setLogger(l *slog.Logger) { r.logger = l }

func (r *CallbackRegistry) setSuppressedHook(hook func(event CallbackEvent)) {
	r.onSuppressed = hook
}

// Add registers one or more descriptors against event. It returns
// ErrInvalidCallbackEvent if event is not one of the seven recognized
// lifecycle events. A single descriptor and a slice of descriptors are
// both accepted, mirroring spec.md's add_callback_functions contract.
func (r *CallbackRegistry) Add(event CallbackEvent, descriptors ...CallbackDescriptor) error {
	if !validCallbackEvent(event) {
		return fmt.Errorf("%w: %q", ErrInvalidCallbackEvent, event)
	}
	r.byEvent[event] = append(r.byEvent[event], descriptors...)
	return nil
}

// Dispatch invokes every descriptor registered for event, in insertion
// order, against node. A callback that panics or returns an error is
// logged and suppressed: it never alters node's state and never stops
// sibling callbacks from running (spec.md §4.4, §7 class 4).
func (r *CallbackRegistry) Dispatch(ctx context.Context, event CallbackEvent, node TaskNode) {
	for _, d := range r.byEvent[event] {
		r.invokeOne(ctx, event, node, d)
	}
}

func (r *CallbackRegistry) invokeOne(ctx context.Context, event CallbackEvent, node TaskNode, d CallbackDescriptor) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logSuppressed(event, node, fmt.Errorf("callback panicked: %v", rec))
		}
	}()

	var taskNode TaskNode
	if d.InjectTaskNode {
		taskNode = node
	}

	if err := d.Func(ctx, taskNode, d.Args, d.Kwargs); err != nil {
		r.logSuppressed(event, node, err)
	}
}

func (r *CallbackRegistry) logSuppressed(event CallbackEvent, node TaskNode, err error) {
	logger := r.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error("commander: callback failed, suppressed",
		slog.String("event", string(event)),
		slog.String("node_id", node.ID()),
		slog.String("node_kind", node.Kind()),
		slog.String("error", err.Error()),
	)
	if r.onSuppressed != nil {
		r.onSuppressed(event)
	}
}
