package commander

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics collects Prometheus-compatible metrics for a
// Commander's task tree. All metrics are namespaced "commander".
//
// Metrics exposed:
//
//  1. running_tasks (gauge): tasks currently Running. Labels: run_id, kind.
//  2. queue_depth (gauge): pending jobs waiting in the FIFO queue. Labels: run_id.
//  3. task_duration_ms (histogram): body wall-clock duration. Labels: run_id, kind, state.
//  4. callbacks_suppressed_total (counter): callback panics/errors swallowed. Labels: run_id, event.
//
// Attach with WithMetrics(NewPrometheusMetrics(registry)); the Commander
// loop updates these automatically as nodes transition.
type PrometheusMetrics struct {
	runningTasks        *prometheus.GaugeVec
	queueDepth          *prometheus.GaugeVec
	taskDuration        *prometheus.HistogramVec
	callbacksSuppressed *prometheus.CounterVec

	// Mirrors of the Prometheus vectors above, kept for Snapshot(): reading
	// a *GaugeVec's current value back out requires scraping through the
	// registry, which is overkill for a test or CLI that just wants the
	// numbers. mu guards runningTasksByKind; the rest are atomics.
	mu                       sync.RWMutex
	runningTasksByKind       map[string]int64
	queueDepthValue          int64
	callbacksSuppressedTotal int64
	taskDurationCount        int64
	taskDurationSumMs        int64
}

// NewPrometheusMetrics creates and registers Commander metrics with
// registry. A nil registry uses prometheus.DefaultRegisterer.
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &PrometheusMetrics{
		runningTasksByKind: make(map[string]int64),

		runningTasks: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "commander",
			Name:      "running_tasks",
			Help:      "Current number of Job/HandlerCoroutine nodes in the Running state",
		}, []string{"run_id", "kind"}),

		queueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "commander",
			Name:      "queue_depth",
			Help:      "Number of jobs pending in the FIFO job queue",
		}, []string{"run_id"}),

		taskDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "commander",
			Name:      "task_duration_ms",
			Help:      "Task body wall-clock duration in milliseconds, from body start to terminal state",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 60000},
		}, []string{"run_id", "kind", "state"}),

		callbacksSuppressed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "commander",
			Name:      "callbacks_suppressed_total",
			Help:      "Cumulative count of callback errors/panics swallowed by the dispatcher",
		}, []string{"run_id", "event"}),
	}
}

func (m *PrometheusMetrics) setRunningTasks(runID, kind string, delta float64) {
	if m == nil {
		return
	}
	m.runningTasks.WithLabelValues(runID, kind).Add(delta)

	m.mu.Lock()
	m.runningTasksByKind[kind] += int64(delta)
	m.mu.Unlock()
}

func (m *PrometheusMetrics) setQueueDepth(runID string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(runID).Set(float64(depth))
	atomic.StoreInt64(&m.queueDepthValue, int64(depth))
}

func (m *PrometheusMetrics) observeTaskDuration(runID, kind, state string, d time.Duration) {
	if m == nil {
		return
	}
	m.taskDuration.WithLabelValues(runID, kind, state).Observe(float64(d.Milliseconds()))
	atomic.AddInt64(&m.taskDurationCount, 1)
	atomic.AddInt64(&m.taskDurationSumMs, d.Milliseconds())
}

func (m *PrometheusMetrics) incCallbackSuppressed(runID string, event CallbackEvent) {
	if m == nil {
		return
	}
	m.callbacksSuppressed.WithLabelValues(runID, string(event)).Inc()
	atomic.AddInt64(&m.callbacksSuppressedTotal, 1)
}

// MetricsSnapshot is a point-in-time, non-Prometheus read of a
// PrometheusMetrics collector, for tests and the CLI to assert on or
// print without standing up an HTTP scrape endpoint.
type MetricsSnapshot struct {
	// RunningTasks counts currently-Running nodes by kind ("job",
	// "handler"); negative transients are impossible since a decrement
	// always follows a prior increment for the same node.
	RunningTasks map[string]int64

	// QueueDepth is the most recently recorded pending-job count.
	QueueDepth int64

	// CallbacksSuppressed is the cumulative count of callback
	// panics/errors swallowed by the dispatcher, across all events.
	CallbacksSuppressed int64

	// TaskDurationCount is how many task-body durations have been
	// observed; TaskDurationSumMs is their total, so
	// TaskDurationSumMs/TaskDurationCount gives the mean in milliseconds.
	TaskDurationCount int64
	TaskDurationSumMs int64
}

// Snapshot returns the current values of every metric this collector
// tracks. A nil receiver returns a zero-value snapshot with a non-nil
// empty RunningTasks map, matching every other nil-receiver-safe method
// on PrometheusMetrics.
func (m *PrometheusMetrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{RunningTasks: map[string]int64{}}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	running := make(map[string]int64, len(m.runningTasksByKind))
	for kind, count := range m.runningTasksByKind {
		running[kind] = count
	}

	return MetricsSnapshot{
		RunningTasks:        running,
		QueueDepth:          atomic.LoadInt64(&m.queueDepthValue),
		CallbacksSuppressed: atomic.LoadInt64(&m.callbacksSuppressedTotal),
		TaskDurationCount:   atomic.LoadInt64(&m.taskDurationCount),
		TaskDurationSumMs:   atomic.LoadInt64(&m.taskDurationSumMs),
	}
}
