package commander

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// newNodeID mints an opaque unique identifier for a new TaskNode. It is a
// package-level var rather than a plain function so tests can substitute a
// deterministic generator.
var newNodeID = func() string { return uuid.New().String() }

// TaskState is the lifecycle state of a TaskNode. It is monotonic once
// terminal: Done, Failed, and Terminated never transition to anything else.
type TaskState int

const (
	// Pending is the state of a node that has been created but whose body
	// has not yet begun executing.
	Pending TaskState = iota
	// Running is the state of a node whose body is currently executing.
	Running
	// Done is the state of a node whose body returned normally.
	Done
	// Failed is the state of a node whose body raised an uncaught error.
	Failed
	// Terminated is the state of a node cancelled by an ancestor or by
	// exit_commander before its body returned.
	Terminated
)

// String renders the state name for logging and observability events.
func (s TaskState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Done:
		return "done"
	case Failed:
		return "failed"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is one of Done, Failed, or Terminated.
func (s TaskState) Terminal() bool {
	return s == Done || s == Failed || s == Terminated
}

// TaskNode is the common surface of every schedulable unit in a Commander's
// tree: Jobs, HandlerCoroutines, and the Commander itself (the tree root).
//
// Job and HandlerCoroutine are generic over their result type, so the tree
// holds them behind this non-generic interface — callers that need the
// typed result use the generic Job[R]/HandlerCoroutine[R] handle returned
// at submission time; TaskNode.Result returns it boxed as any, matching
// spec.md's "any value" result slot.
type TaskNode interface {
	// ID returns the node's opaque unique identifier.
	ID() string

	// Parent returns the node that created this one, or nil for the
	// Commander root.
	Parent() TaskNode

	// Children returns a snapshot of the node's currently-linked children,
	// in the order they were added. Terminal children that have finished
	// dispatching their terminal-phase callbacks and have no children of
	// their own are already unlinked and will not appear here.
	Children() []TaskNode

	// State returns the node's current lifecycle state.
	State() TaskState

	// Result returns the value produced by the node's body, or nil until
	// the node reaches Done.
	Result() any

	// Exception returns the failure stored on the node, non-nil only when
	// State is Failed or Terminated.
	Exception() error

	// Data returns the opaque slot edge helpers use to thread shared
	// context between nodes. The core never copies or locks this value.
	Data() any

	// SetData assigns the opaque data slot.
	SetData(data any)

	// AncestorChain returns parent, grandparent, ... up to and including
	// the Commander root.
	AncestorChain() []TaskNode

	// Kind identifies the concrete node flavor ("job", "handler", or
	// "commander") for observability and logging.
	Kind() string

	// Callbacks returns the node's CallbackRegistry, on which callbacks are
	// registered with Add.
	Callbacks() *CallbackRegistry
}

// internalNode is the unexported extension every TaskNode implementation in
// this package satisfies. Keeping these methods unexported seals the
// TaskNode interface against external implementations, the same way the
// teacher's engineConfig stays package-private behind the functional
// Option type.
type internalNode interface {
	TaskNode

	setParent(TaskNode)
	setState(TaskState)
	setException(error)
	addChild(TaskNode)
	removeChild(TaskNode)
	bodyDone() bool
	setBodyDone(bool)
	commander() *Commander
	setCommander(*Commander)
	awaitDone() <-chan struct{}
	signalDone()
	markStarted()
	startedAt() time.Time
}

// baseNode implements the bookkeeping shared by Job, HandlerCoroutine, and
// Commander. It is always embedded, never used standalone.
type baseNode struct {
	id   string
	kind string

	mu        sync.RWMutex
	parent    TaskNode
	children  []TaskNode
	state     TaskState
	exception error
	data      any
	bodyEnded bool

	cbs *CallbackRegistry
	cmd *Commander

	doneOnce sync.Once
	doneCh   chan struct{}

	startTime time.Time
}

func newBaseNode(id, kind string) *baseNode {
	return &baseNode{
		id:     id,
		kind:   kind,
		state:  Pending,
		cbs:    NewCallbackRegistry(),
		doneCh: make(chan struct{}),
	}
}

func (n *baseNode) ID() string   { return n.id }
func (n *baseNode) Kind() string { return n.kind }

func (n *baseNode) Parent() TaskNode {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.parent
}

func (n *baseNode) setParent(p TaskNode) {
	n.mu.Lock()
	n.parent = p
	n.mu.Unlock()
}

func (n *baseNode) Children() []TaskNode {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]TaskNode, len(n.children))
	copy(out, n.children)
	return out
}

func (n *baseNode) addChild(c TaskNode) {
	n.mu.Lock()
	n.children = append(n.children, c)
	n.mu.Unlock()
}

func (n *baseNode) removeChild(c TaskNode) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, ch := range n.children {
		if ch.ID() == c.ID() {
			n.children = append(n.children[:i], n.children[i+1:]...)
			return
		}
	}
}

func (n *baseNode) State() TaskState {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state
}

func (n *baseNode) setState(s TaskState) {
	n.mu.Lock()
	n.state = s
	n.mu.Unlock()
}

func (n *baseNode) Exception() error {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.exception
}

func (n *baseNode) setException(err error) {
	n.mu.Lock()
	n.exception = err
	n.mu.Unlock()
}

func (n *baseNode) Data() any {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.data
}

func (n *baseNode) SetData(d any) {
	n.mu.Lock()
	n.data = d
	n.mu.Unlock()
}

func (n *baseNode) bodyDone() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.bodyEnded
}

func (n *baseNode) setBodyDone(v bool) {
	n.mu.Lock()
	n.bodyEnded = v
	n.mu.Unlock()
}

func (n *baseNode) markStarted() {
	n.mu.Lock()
	n.startTime = time.Now()
	n.mu.Unlock()
}

func (n *baseNode) startedAt() time.Time {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.startTime
}

func (n *baseNode) commander() *Commander     { return n.cmd }
func (n *baseNode) setCommander(c *Commander) { n.cmd = c }

func (n *baseNode) Callbacks() *CallbackRegistry { return n.cbs }

func (n *baseNode) awaitDone() <-chan struct{} { return n.doneCh }

func (n *baseNode) signalDone() {
	n.doneOnce.Do(func() { close(n.doneCh) })
}

// resetForReuse restores a terminal node to Pending, clearing the
// completion signal, exception, and body-ended flag. Used only by
// HandlerCoroutine.restart for Reusable handlers. Callers must first
// confirm the node's own child set is empty; CallHandler enforces this
// before restart is ever invoked, so resetForReuse does not check again.
func (n *baseNode) resetForReuse() {
	n.mu.Lock()
	n.state = Pending
	n.exception = nil
	n.bodyEnded = false
	n.doneOnce = sync.Once{}
	n.doneCh = make(chan struct{})
	n.mu.Unlock()
}

func (n *baseNode) AncestorChain() []TaskNode {
	var chain []TaskNode
	for p := n.Parent(); p != nil; p = p.Parent() {
		chain = append(chain, p)
	}
	return chain
}

// Result is the zero-value default; Job[R] and HandlerCoroutine[R]
// override it to box their typed result.
func (n *baseNode) Result() any { return nil }
