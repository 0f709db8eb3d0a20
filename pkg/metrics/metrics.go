// Package metrics exposes the runtime's own operational counters and
// histograms, adapting the teacher's pkg/metrics/metrics.go pattern
// (namespaced CounterVec/HistogramVec collectors registered once,
// package-level Record* helpers, an ObservationHooks factory for
// components that want start/stop instrumentation without importing
// Prometheus directly) from HTTP/oracle/automation subsystems to this
// runtime's own concerns: callable invocations, output classification,
// address resolution, event fan-out, and context-stack depth.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "entityflow"

var (
	// Registry holds this runtime's Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "inflight_requests",
		Help:      "Current number of in-flight introspection HTTP requests.",
	})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of introspection HTTP requests handled.",
	}, []string{"method", "path", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of introspection HTTP requests.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"method", "path"})

	invocationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "execution",
		Name:      "invocations_total",
		Help:      "Total callable invocations by status.",
	}, []string{"callable", "status"})

	invocationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "execution",
		Name:      "invocation_duration_seconds",
		Help:      "Duration of callable invocations.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
	}, []string{"callable", "status"})

	classificationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "execution",
		Name:      "classifications_total",
		Help:      "Total outputs classified by semantic outcome.",
	}, []string{"classification"})

	addressResolutionFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "address",
		Name:      "resolution_failures_total",
		Help:      "Total address resolution failures by error kind.",
	}, []string{"error_kind"})

	eventFanoutDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "event",
		Name:      "fanout_duration_seconds",
		Help:      "Duration of a single Bus.Emit fan-out, from dispatch to every matched subscriber returning.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
	}, []string{"kind"})

	contextStackDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "event",
		Name:      "context_stack_depth",
		Help:      "Depth of the event scope stack for the most recently observed call chain.",
	})

	retentionDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "retention",
		Name:      "dropped_total",
		Help:      "Total items dropped by the retention sweep, by kind (execution_record|event).",
	}, []string{"kind"})

	observationCollectors sync.Map
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		invocationTotal,
		invocationDuration,
		classificationTotal,
		addressResolutionFailures,
		eventFanoutDuration,
		contextStackDepth,
		retentionDropped,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps an HTTP handler with request-count/duration
// and in-flight gauge instrumentation, used by cmd/entityflowd/httpapi.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, r.URL.Path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, r.URL.Path).Observe(duration.Seconds())
	})
}

// RecordInvocation records one callable invocation's outcome and
// duration.
func RecordInvocation(callable string, success bool, duration time.Duration) {
	if callable == "" {
		callable = "unknown"
	}
	status := "success"
	if !success {
		status = "failure"
	}
	invocationTotal.WithLabelValues(callable, status).Inc()
	invocationDuration.WithLabelValues(callable, status).Observe(duration.Seconds())
}

// RecordClassification records one output's semantic classification
// (pass_through|mutation|creation).
func RecordClassification(classification string) {
	if classification == "" {
		classification = "unknown"
	}
	classificationTotal.WithLabelValues(classification).Inc()
}

// RecordAddressResolutionFailure records a failed address resolution
// by its entityerr.Code.
func RecordAddressResolutionFailure(errorKind string) {
	if errorKind == "" {
		errorKind = "unknown"
	}
	addressResolutionFailures.WithLabelValues(errorKind).Inc()
}

// RecordEventFanout records the wall-clock duration of one Bus.Emit
// fan-out for events of the given kind.
func RecordEventFanout(kind string, duration time.Duration) {
	if kind == "" {
		kind = "unknown"
	}
	eventFanoutDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordContextStackDepth sets the observed event-scope stack depth.
func RecordContextStackDepth(depth int) {
	contextStackDepth.Set(float64(depth))
}

// RecordRetentionSweep records how many execution records and events
// a retention sweep pass dropped.
func RecordRetentionSweep(executionsDropped, eventsDropped int) {
	retentionDropped.WithLabelValues("execution_record").Add(float64(executionsDropped))
	retentionDropped.WithLabelValues("event").Add(float64(eventsDropped))
}

type observationCollector struct {
	gauge *prometheus.GaugeVec
	hist  *prometheus.HistogramVec
}

// ObservationHooks returns a start/complete pair of callbacks backed
// by a lazily-registered gauge+histogram, for components that want
// duration/in-flight instrumentation without importing Prometheus
// directly.
func ObservationHooks(subsystem, name string) (onStart func(resource string), onComplete func(resource string, err error, duration time.Duration)) {
	key := subsystem + ":" + name
	var collector observationCollector
	if entry, ok := observationCollectors.Load(key); ok {
		collector = entry.(observationCollector)
	} else {
		collector = createObservationCollector(subsystem, name)
		observationCollectors.Store(key, collector)
	}
	return func(resource string) {
			collector.gauge.WithLabelValues(resourceLabel(resource)).Inc()
		}, func(resource string, err error, duration time.Duration) {
			label := resourceLabel(resource)
			collector.gauge.WithLabelValues(label).Dec()
			status := "success"
			if err != nil {
				status = "error"
			}
			collector.hist.WithLabelValues(label, status).Observe(duration.Seconds())
		}
}

func createObservationCollector(subsystem, name string) observationCollector {
	gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name + "_in_flight",
		Help:      "Current operations in flight for " + subsystem,
	}, []string{"resource"})
	hist := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name + "_duration_seconds",
		Help:      "Duration of operations for " + subsystem,
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"resource", "status"})
	Registry.MustRegister(gauge, hist)
	return observationCollector{gauge: gauge, hist: hist}
}

func resourceLabel(resource string) string {
	if resource == "" {
		return "unknown"
	}
	return resource
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}
