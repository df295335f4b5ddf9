package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stevedore"

var (
	registerOnce sync.Once

	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "runs_total",
			Help:      "Completed orchestration runs.",
		},
		[]string{"action", "outcome"},
	)
	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "run_duration_seconds",
			Help:      "Orchestration run duration in seconds.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"action"},
	)
	serviceTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "transitions_total",
			Help:      "Service state transitions by target state.",
		},
		[]string{"service", "state"},
	)
	droppedEvents = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "dropped_events_total",
			Help:      "State change events not delivered because a subscriber's buffer was full.",
		},
	)
	serviceRunning = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "running",
			Help:      "1 if the service ended its last run Running, 0 otherwise.",
		},
		[]string{"service"},
	)
	startAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "start_attempts_total",
			Help:      "Start calls issued per service, retries included.",
		},
		[]string{"service"},
	)
	composeCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "compose",
			Name:      "calls_total",
			Help:      "Compose invocations by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)
	composeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "compose",
			Name:      "call_duration_seconds",
			Help:      "Compose invocation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
	healthChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "checks_total",
			Help:      "Health check attempts by kind and result.",
		},
		[]string{"kind", "healthy"},
	)
	networkProvisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "network",
			Name:      "provisions_total",
			Help:      "Network ensure operations by outcome.",
		},
		[]string{"outcome"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// RegisterMetrics registers every collector with the default registry. It
// is safe to call more than once; the Record functions call it themselves.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			runsTotal, runDuration, droppedEvents,
			serviceTransitions, serviceRunning, startAttempts,
			composeCalls, composeDuration,
			healthChecks, networkProvisions,
			httpRequests, httpDuration,
		)
	})
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}

func RecordRun(action string, success bool, duration time.Duration) {
	RegisterMetrics()
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	runsTotal.WithLabelValues(action, outcome).Inc()
	runDuration.WithLabelValues(action).Observe(duration.Seconds())
}

func RecordTransition(service, state string) {
	RegisterMetrics()
	serviceTransitions.WithLabelValues(service, state).Inc()
}

func RecordDroppedEvent() {
	RegisterMetrics()
	droppedEvents.Inc()
}

func SetServiceRunning(service string, running bool) {
	RegisterMetrics()
	v := 0.0
	if running {
		v = 1
	}
	serviceRunning.WithLabelValues(service).Set(v)
}

func RecordStartAttempt(service string) {
	RegisterMetrics()
	startAttempts.WithLabelValues(service).Inc()
}

func RecordComposeCall(operation string, err error, duration time.Duration) {
	RegisterMetrics()
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	composeCalls.WithLabelValues(operation, outcome).Inc()
	composeDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func RecordHealthCheck(kind string, healthy bool) {
	RegisterMetrics()
	healthChecks.WithLabelValues(kind, strconv.FormatBool(healthy)).Inc()
}

func RecordNetworkProvision(outcome string) {
	RegisterMetrics()
	networkProvisions.WithLabelValues(outcome).Inc()
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
