package emit

import "time"

// Event represents an observability event emitted during a Commander run.
//
// Events provide detailed insight into task tree behavior:
//   - Job/handler start and completion
//   - Lifecycle state transitions
//   - Exceptions and terminations
//   - Commander shutdown
//
// Events are emitted to an Emitter which can:
//   - Log to stdout/stderr
//   - Send to OpenTelemetry
//   - Buffer for later inspection
type Event struct {
	// RunID identifies the Commander instance that emitted this event.
	RunID string

	// Step is the sequential position of this event within the run
	// (1-indexed). Every event the Commander emits, at_commander_end
	// included, takes the next step number.
	Step int

	// NodeID identifies which TaskNode emitted this event. For
	// commander-level events it is the Commander's own ID.
	NodeID string

	// NodeKind is the node flavor ("job", "handler", or "commander") that
	// emitted this event.
	NodeKind string

	// Msg names the lifecycle event, one of the seven CallbackEvent values
	// ("at_job_start", "at_handler_end", ...).
	Msg string

	// Timestamp records when the event was emitted.
	Timestamp time.Time

	// Meta contains additional structured data specific to this event.
	// Common keys:
	//   - "error": exception details, present whenever the node has a stored
	//     exception (at_exception, at_terminate, and the end event that
	//     follows a failure)
	//   - "state": the TaskState string the node transitioned to
	Meta map[string]interface{}
}
