package commander

import "errors"

// ErrCommanderAlreadyRunning is returned by Run when Run has already been
// called on the Commander instance, whether its loop is still executing or
// has already returned.
var ErrCommanderAlreadyRunning = errors.New("commander: already running")

// ErrCommanderNotRunning is returned by submission methods (PutJob,
// CallHandler, and their threadsafe counterparts) when called against a
// Commander whose loop has not started or has already returned.
var ErrCommanderNotRunning = errors.New("commander: not running")

// ErrTaskTerminated is the error stored on a TaskNode's Exception slot (and
// returned from Await) when the node was cancelled before its body returned,
// rather than failing or completing normally.
var ErrTaskTerminated = errors.New("commander: task terminated")

// ErrInvalidCallbackEvent is returned by CallbackRegistry.Add when the caller
// registers a descriptor against an event name the CallbackRegistry does
// not recognize.
var ErrInvalidCallbackEvent = errors.New("commander: invalid callback event")

// ErrHandlerNotReusable is returned by CallHandler when a HandlerCoroutine
// with Reusable == false is started again after reaching a terminal state.
var ErrHandlerNotReusable = errors.New("commander: handler is not reusable")

// ErrQueueClosed is returned by JobQueue.Put when the queue has been closed
// by Commander shutdown and no longer accepts new jobs.
var ErrQueueClosed = errors.New("commander: job queue closed")

// ErrRunTimeout is returned by Run/RunAuto when WithRunTimeout's deadline
// elapses before the task tree drains on its own.
var ErrRunTimeout = errors.New("commander: run timeout exceeded")

// ErrBackpressureTimeout is returned by PutJob/PutJobThreadsafe when the
// job queue is bounded, stays full for longer than WithBackpressureTimeout's
// duration, and the Commander's run context has not been cancelled first.
var ErrBackpressureTimeout = errors.New("commander: backpressure timeout exceeded")

// ErrHandlerChildrenOutstanding is returned by CallHandler when a Reusable
// HandlerCoroutine has reached a terminal state but still has unfinished
// children linked under it. Restarting it to Pending in that window would
// let the new cycle inherit child links left over from the old one, so
// CallHandler refuses the restart instead.
var ErrHandlerChildrenOutstanding = errors.New("commander: handler has outstanding children")

// CommanderError is the error type this package builds for a panic
// recovered from a Job or HandlerCoroutine body (Code "JOB_PANIC" or
// "HANDLER_PANIC"; a non-error panic value becomes a Cause with Code
// "PANIC"). It is stored as that node's Exception, and the node ends
// Failed. The Commander loop performs no invariant checks of its own: it
// never produces a CommanderError as Run's return error or as the
// Commander's own Exception.
type CommanderError struct {
	// Message is a human-readable description of the violated invariant.
	Message string

	// Code is a short machine-readable identifier for the failure class.
	Code string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *CommanderError) Error() string {
	if e.Cause != nil {
		return "commander: " + e.Code + ": " + e.Message + ": " + e.Cause.Error()
	}
	return "commander: " + e.Code + ": " + e.Message
}

// Unwrap enables errors.Is/errors.As against Cause.
func (e *CommanderError) Unwrap() error {
	return e.Cause
}
