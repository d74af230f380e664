package commander

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tauloop/commander/commander/emit"
)

// runnable is the method set shared by Submittable and Startable: every
// TaskNode the Commander can dispatch a body for. It is unexported so the
// set stays closed to Job and HandlerCoroutine.
type runnable interface {
	internalNode
	startEvent() CallbackEvent
	endEvent() CallbackEvent
	runBody(ctx context.Context) error
}

// completion reports a body goroutine's outcome back to the loop.
type completion struct {
	node       internalNode
	endEvt     CallbackEvent
	err        error
	terminated bool
}

type runningEntry struct {
	cancel     context.CancelFunc
	terminated atomic.Bool
}

// Status is a point-in-time snapshot of a Commander's activity, returned
// by RunningStatus.
type Status struct {
	Started bool
	Active  int
	Queued  int
}

// Commander is the root of a task tree: it owns the FIFO job queue, runs
// the scheduling loop, and is itself a TaskNode, so root-level callbacks
// (at_commander_end) can be registered on its Callbacks registry.
//
// A Commander runs once: Run returns ErrCommanderAlreadyRunning if called a
// second time on the same instance, while RunAuto on an already-started
// Commander enqueues its jobs onto that run instead.
type Commander struct {
	*baseNode

	cfg    commanderConfig
	queue  *JobQueue
	logger *slog.Logger

	mu         sync.Mutex
	started    bool
	exitReq    bool
	exitResult any
	exitErr    error
	loopCtx    context.Context

	exitSignal  chan struct{}
	completions chan completion

	runningMu sync.Mutex
	running   map[string]*runningEntry

	active          int64
	pendingExternal int64
	seq             int64

	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// New constructs a Commander. Its loop does not start until Run or RunAuto
// is called.
func New(opts ...Option) *Commander {
	cfg := defaultCommanderConfig()
	for _, opt := range opts {
		// Option funcs in this package never return a non-nil error today;
		// the signature exists so future validating options compose
		// without an API break, matching the teacher's Option contract.
		_ = opt(&cfg)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.idGenerator != nil {
		newNodeID = cfg.idGenerator
	}

	cmd := &Commander{
		baseNode:    newBaseNode(newNodeID(), "commander"),
		cfg:         cfg,
		queue:       NewJobQueue(cfg.queueDepth, cfg.backpressureTimeout),
		logger:      logger,
		exitSignal:  make(chan struct{}, 1),
		completions: make(chan completion, 32),
		running:     make(map[string]*runningEntry),
	}
	cmd.setCommander(cmd)
	cmd.cbs.setLogger(logger)
	cmd.cbs.setSuppressedHook(func(event CallbackEvent) {
		cmd.cfg.metrics.incCallbackSuppressed(cmd.ID(), event)
	})
	return cmd
}

// Run starts the scheduling loop, enqueues initial as children of the
// Commander root, and blocks until the loop returns.
//
// If waitForEmpty is true, the loop exits once the job queue is drained
// and no node is Running (IsEmpty). If waitForEmpty is false, the loop
// runs until ctx is cancelled or Exit is called.
func (c *Commander) Run(ctx context.Context, waitForEmpty bool, initial ...Submittable) (any, error) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return nil, ErrCommanderAlreadyRunning
	}
	c.started = true
	c.mu.Unlock()

	loopCtx := ctx
	var cancel context.CancelFunc
	if c.cfg.runTimeout > 0 {
		loopCtx, cancel = context.WithTimeout(ctx, c.cfg.runTimeout)
	} else {
		loopCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	c.mu.Lock()
	c.loopCtx = loopCtx
	c.mu.Unlock()

	for _, job := range initial {
		if err := c.PutJob(c, job); err != nil {
			return nil, err
		}
	}

	return c.runLoop(loopCtx, waitForEmpty)
}

// RunAuto starts the loop, enqueues initial, and returns once the whole
// task tree has drained. If the Commander is already running, initial is
// enqueued onto the existing run via PutJob and RunAuto returns
// immediately with a nil result, rather than failing with
// ErrCommanderAlreadyRunning.
func (c *Commander) RunAuto(ctx context.Context, initial ...Submittable) (any, error) {
	c.mu.Lock()
	alreadyRunning := c.started
	c.mu.Unlock()

	if alreadyRunning {
		for _, job := range initial {
			if err := c.PutJob(c, job); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}

	return c.Run(ctx, true, initial...)
}

func (c *Commander) runLoop(ctx context.Context, waitForEmpty bool) (any, error) {
	jobsCh := make(chan submission)
	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		defer close(jobsCh)
		for {
			s, ok := c.queue.Take(ctx)
			if !ok {
				return
			}
			select {
			case jobsCh <- s:
			case <-ctx.Done():
				return
			}
		}
	}()

	var timedOut, shuttingDown bool
	doneCh := ctx.Done()

loop:
	for {
		select {
		case s, ok := <-jobsCh:
			if !ok {
				jobsCh = nil // pump stopped (queue closed and drained); stop selecting a closed channel
			} else {
				c.startSubmission(ctx, s.parent, s.job)
			}

		case comp := <-c.completions:
			c.handleCompletion(ctx, comp)

		case <-doneCh:
			shuttingDown = true
			timedOut = errors.Is(ctx.Err(), context.DeadlineExceeded)
			c.beginShutdown()
			doneCh = nil // already fired once; stop selecting it so shutdown drain isn't a busy loop

		case <-c.exitSignal:
			shuttingDown = true
			c.beginShutdown()
		}

		c.cfg.metrics.setQueueDepth(c.ID(), c.queue.Len())

		c.mu.Lock()
		exitReq := c.exitReq
		c.mu.Unlock()

		if (exitReq || shuttingDown) && c.IsEmpty() {
			break loop
		}
		if waitForEmpty && c.IsEmpty() {
			break loop
		}
	}

	c.beginShutdown()
	<-pumpDone
	c.wg.Wait()

	c.dispatch(context.Background(), EventCommanderEnd, c)
	c.setState(Done)

	c.mu.Lock()
	if timedOut {
		c.exitErr = ErrRunTimeout
	}
	result, exitErr := c.exitResult, c.exitErr
	c.mu.Unlock()

	c.signalDone()
	return result, exitErr
}

// beginShutdown closes the job queue and cancels every currently-running
// node's body context. It is safe to call more than once; only the first
// call has effect.
func (c *Commander) beginShutdown() {
	c.shutdownOnce.Do(func() {
		c.queue.Close()
		c.terminateAll()
	})
}

// Exit requests Commander shutdown with result as Run's return value. If
// called more than once, only the first call's result/err is kept.
func (c *Commander) Exit(result any, err error) {
	c.mu.Lock()
	if !c.exitReq {
		c.exitReq = true
		c.exitResult = result
		c.exitErr = err
	}
	c.mu.Unlock()

	select {
	case c.exitSignal <- struct{}{}:
	default:
	}
}

// WaitForExit blocks until the Commander's loop has returned (from any
// goroutine, not just the one that called Run), then returns the same
// value Run returned. Useful when Run is started with `go cmd.Run(...)`.
func (c *Commander) WaitForExit(ctx context.Context) (any, error) {
	select {
	case <-c.awaitDone():
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.exitResult, c.exitErr
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// IsEmpty reports whether the job queue is empty, no node is Running, and
// no threadsafe submission is in flight.
func (c *Commander) IsEmpty() bool {
	return c.queue.Len() == 0 &&
		atomic.LoadInt64(&c.active) == 0 &&
		atomic.LoadInt64(&c.pendingExternal) == 0 &&
		len(c.Children()) == 0
}

// RunningStatus returns a snapshot of the Commander's current activity.
func (c *Commander) RunningStatus() Status {
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	return Status{
		Started: started,
		Active:  int(atomic.LoadInt64(&c.active)),
		Queued:  c.queue.Len(),
	}
}

// PutJob enqueues job to run as a child of parent, dispatched in FIFO
// order by the loop. It returns ErrCommanderNotRunning if the loop has not
// started or has already begun shutting down.
func (c *Commander) PutJob(parent TaskNode, job Submittable) error {
	c.mu.Lock()
	running := c.started && !c.exitReq
	loopCtx := c.loopCtx
	c.mu.Unlock()
	if !running {
		return ErrCommanderNotRunning
	}
	err := c.queue.Put(loopCtx, submission{job: job, parent: parent})
	if errors.Is(err, ErrQueueClosed) {
		return ErrCommanderNotRunning
	}
	return err
}

// CallHandler starts h immediately as a child of parent, bypassing the
// FIFO queue. If h is terminal and Reusable, it is restarted from
// Pending; if terminal and not Reusable, ErrHandlerNotReusable is
// returned.
func (c *Commander) CallHandler(parent TaskNode, h Startable) (TaskNode, error) {
	c.mu.Lock()
	running := c.started && !c.exitReq
	loopCtx := c.loopCtx
	c.mu.Unlock()
	if !running {
		return nil, ErrCommanderNotRunning
	}

	if h.State().Terminal() {
		if !h.reusable() {
			return nil, ErrHandlerNotReusable
		}
		if len(h.Children()) > 0 {
			return nil, ErrHandlerChildrenOutstanding
		}
		if old, ok := h.Parent().(internalNode); ok {
			old.removeChild(h)
			c.finalizeNode(old)
		}
		h.restart()
	}

	c.linkAndStart(loopCtx, parent, h)
	return h, nil
}

func (c *Commander) startSubmission(ctx context.Context, parent TaskNode, job Submittable) {
	c.linkAndStart(ctx, parent, job)
}

func (c *Commander) linkAndStart(ctx context.Context, parent TaskNode, node runnable) {
	node.setCommander(c)
	node.setParent(parent)
	if ip, ok := parent.(internalNode); ok {
		ip.addChild(node)
	}
	node.Callbacks().setLogger(c.logger)
	node.Callbacks().setSuppressedHook(func(event CallbackEvent) {
		c.cfg.metrics.incCallbackSuppressed(c.ID(), event)
	})

	node.markStarted()
	node.setState(Running)
	atomic.AddInt64(&c.active, 1)
	c.cfg.metrics.setRunningTasks(c.ID(), node.Kind(), 1)
	c.dispatch(ctx, node.startEvent(), node)

	bodyCtx, cancel := context.WithCancel(ctx)
	entry := &runningEntry{cancel: cancel}
	c.runningMu.Lock()
	c.running[node.ID()] = entry
	c.runningMu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		err := node.runBody(bodyCtx)

		c.runningMu.Lock()
		delete(c.running, node.ID())
		c.runningMu.Unlock()
		terminated := entry.terminated.Load() || (err != nil && ctx.Err() != nil)
		cancel()

		c.completions <- completion{node: node, endEvt: node.endEvent(), err: err, terminated: terminated}
	}()
}

func (c *Commander) handleCompletion(ctx context.Context, comp completion) {
	node := comp.node
	atomic.AddInt64(&c.active, -1)
	c.cfg.metrics.setRunningTasks(c.ID(), node.Kind(), -1)
	dur := time.Since(node.startedAt())

	switch {
	case comp.terminated:
		node.setState(Terminated)
		node.setException(ErrTaskTerminated)
		c.dispatch(ctx, EventTerminate, node)
		c.cfg.metrics.observeTaskDuration(c.ID(), node.Kind(), "terminated", dur)
	case comp.err != nil:
		node.setState(Failed)
		node.setException(comp.err)
		c.dispatch(ctx, EventException, node)
		c.cfg.metrics.observeTaskDuration(c.ID(), node.Kind(), "failed", dur)
	default:
		node.setState(Done)
		c.cfg.metrics.observeTaskDuration(c.ID(), node.Kind(), "done", dur)
	}

	node.setBodyDone(true)
	node.signalDone()
	if !comp.terminated {
		c.dispatch(ctx, comp.endEvt, node)
	}
	c.finalizeNode(node)
}

// finalizeNode unlinks node from its parent once node is terminal and
// childless, then recurses upward: a parent that becomes childless as a
// result may itself already be terminal and ready to unlink.
func (c *Commander) finalizeNode(node internalNode) {
	if !node.State().Terminal() {
		return
	}
	if len(node.Children()) > 0 {
		return
	}
	parent := node.Parent()
	if parent == nil {
		return
	}
	pi, ok := parent.(internalNode)
	if !ok {
		return
	}
	pi.removeChild(node)
	c.finalizeNode(pi)
}

func (c *Commander) terminateAll() {
	c.runningMu.Lock()
	entries := make([]*runningEntry, 0, len(c.running))
	for _, e := range c.running {
		entries = append(entries, e)
	}
	c.runningMu.Unlock()

	for _, e := range entries {
		e.terminated.Store(true)
		e.cancel()
	}
}

func (c *Commander) dispatch(ctx context.Context, event CallbackEvent, node TaskNode) {
	node.Callbacks().Dispatch(ctx, event, node)
	c.emit(event, node)
}

func (c *Commander) emit(event CallbackEvent, node TaskNode) {
	step := atomic.AddInt64(&c.seq, 1)
	meta := map[string]interface{}{"state": node.State().String()}
	if err := node.Exception(); err != nil {
		meta["error"] = err.Error()
	}
	c.cfg.emitter.Emit(emit.Event{
		RunID:     c.ID(),
		Step:      int(step),
		NodeID:    node.ID(),
		NodeKind:  node.Kind(),
		Msg:       string(event),
		Timestamp: time.Now(),
		Meta:      meta,
	})
}
