package commander

import (
	"log/slog"
	"time"

	"github.com/tauloop/commander/commander/emit"
)

// Option is a functional option for configuring a Commander.
//
// Example:
//
//	cmd := commander.New(
//	    commander.WithQueueDepth(256),
//	    commander.WithEmitter(emit.NewLogEmitter(os.Stdout, true)),
//	)
type Option func(*commanderConfig) error

// commanderConfig collects options before New applies them. The
// indirection mirrors the teacher's engineConfig: it lets WithX functions
// validate without touching the Commander itself until construction.
type commanderConfig struct {
	queueDepth          int
	backpressureTimeout time.Duration
	logger              *slog.Logger
	emitter             emit.Emitter
	metrics             *PrometheusMetrics
	runTimeout          time.Duration
	idGenerator         func() string
}

func defaultCommanderConfig() commanderConfig {
	return commanderConfig{
		queueDepth: 0,
		emitter:    emit.NewNullEmitter(),
	}
}

// WithQueueDepth bounds the FIFO job queue to n pending jobs; PutJob blocks
// once the queue is full until a job is dequeued, the context is
// cancelled, or the queue closes. n <= 0 means unbounded (the default).
func WithQueueDepth(n int) Option {
	return func(cfg *commanderConfig) error {
		cfg.queueDepth = n
		return nil
	}
}

// WithBackpressureTimeout bounds how long a bounded queue's PutJob waits
// for space before giving up with ErrBackpressureTimeout, independent of
// ctx cancellation. d <= 0 (the default) waits on ctx alone. Has no
// effect unless WithQueueDepth also bounds the queue.
func WithBackpressureTimeout(d time.Duration) Option {
	return func(cfg *commanderConfig) error {
		cfg.backpressureTimeout = d
		return nil
	}
}

// WithIDGenerator overrides how TaskNode IDs are minted, replacing the
// uuid.NewString default. It affects every node constructed by this
// process from within New onward (the Commander's own ID included), not
// just nodes belonging to
// this Commander — NewJob/NewHandler mint an ID before any Commander
// exists to scope it to, the same global-hook shape the teacher uses for
// its own ID source override in tests. Most callers want exactly one
// Commander per process and never need this; it exists for deterministic
// IDs in tests and tools.
func WithIDGenerator(gen func() string) Option {
	return func(cfg *commanderConfig) error {
		if gen != nil {
			cfg.idGenerator = gen
		}
		return nil
	}
}

// WithLogger sets the slog.Logger used for suppressed-callback-error
// reporting. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(cfg *commanderConfig) error {
		cfg.logger = l
		return nil
	}
}

// WithEmitter attaches an observability Emitter. Every lifecycle event a
// TaskNode fires is also forwarded here, independent of user-registered
// callbacks. Default is emit.NewNullEmitter().
func WithEmitter(e emit.Emitter) Option {
	return func(cfg *commanderConfig) error {
		if e != nil {
			cfg.emitter = e
		}
		return nil
	}
}

// WithMetrics attaches a PrometheusMetrics collector. When set, the loop
// records queue depth, job/handler durations, and terminal-state counts
// against it.
func WithMetrics(m *PrometheusMetrics) Option {
	return func(cfg *commanderConfig) error {
		cfg.metrics = m
		return nil
	}
}

// WithRunTimeout bounds the Commander's entire Run/RunAuto call: once d
// elapses since the call began, the loop requests termination of every
// running node and returns ErrRunTimeout. This is an additive, whole-run
// bound; it does not give individual Jobs or HandlerCoroutines their own
// timeouts (authors compose that with callbacks and context, same as any
// other cancellation-aware body).
func WithRunTimeout(d time.Duration) Option {
	return func(cfg *commanderConfig) error {
		cfg.runTimeout = d
		return nil
	}
}
