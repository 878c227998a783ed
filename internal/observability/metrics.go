package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "room_tickets"

// Metrics holds the Prometheus collectors used across the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	readingsAnalyzed   prometheus.Counter
	readingsSkipped    *prometheus.CounterVec
	violationsDetected prometheus.Counter
	ticketsCreated     *prometheus.CounterVec
	detectionsDropped  *prometheus.CounterVec
	readingsDeferred   prometheus.Counter
	transitions        *prometheus.CounterVec
	scanDuration       prometheus.Histogram
	requestCount       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	errorCount         *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		readingsAnalyzed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_analyzed_total",
			Help:      "Sensor readings evaluated by the violation detector.",
		}),
		readingsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_skipped_total",
			Help:      "Readings skipped before evaluation.",
		}, []string{"reason"}),
		violationsDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "violations_detected_total",
			Help:      "Readings classified as a capacity violation.",
		}),
		ticketsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tickets_created_total",
			Help:      "Service tickets created.",
		}, []string{"severity"}),
		detectionsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_suppressed_total",
			Help:      "Violations that did not produce a ticket.",
		}, []string{"reason"}),
		readingsDeferred: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_deferred_total",
			Help:      "Violations left to a later scan because another scan held the room lock.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_transitions_total",
			Help:      "Lifecycle transition attempts.",
		}, []string{"step", "result"}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Duration of a detection scan.",
			Buckets:   prometheus.DefBuckets,
		}),
		requestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served.",
		}, []string{"path", "method", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errorCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "HTTP requests that ended with a domain error.",
		}, []string{"path", "method", "code"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.readingsAnalyzed,
			m.readingsSkipped,
			m.violationsDetected,
			m.ticketsCreated,
			m.detectionsDropped,
			m.readingsDeferred,
			m.transitions,
			m.scanDuration,
			m.requestCount,
			m.requestLatency,
			m.errorCount,
		)
	}
	return m
}

// RecordReadingAnalyzed counts an evaluated reading.
func (m *Metrics) RecordReadingAnalyzed() {
	if m == nil {
		return
	}
	m.readingsAnalyzed.Inc()
}

// RecordReadingSkipped counts a reading dropped before evaluation.
func (m *Metrics) RecordReadingSkipped(reason string) {
	if m == nil {
		return
	}
	m.readingsSkipped.WithLabelValues(reason).Inc()
}

// RecordViolation counts a detected violation.
func (m *Metrics) RecordViolation() {
	if m == nil {
		return
	}
	m.violationsDetected.Inc()
}

// RecordTicketCreated counts a created ticket.
func (m *Metrics) RecordTicketCreated(severity string) {
	if m == nil {
		return
	}
	m.ticketsCreated.WithLabelValues(severity).Inc()
}

// RecordSuppressed counts a violation that did not turn into a ticket.
func (m *Metrics) RecordSuppressed(reason string) {
	if m == nil {
		return
	}
	m.detectionsDropped.WithLabelValues(reason).Inc()
}

// RecordDeferred counts a violation left for a later scan.
func (m *Metrics) RecordDeferred() {
	if m == nil {
		return
	}
	m.readingsDeferred.Inc()
}

// RecordTransition counts a lifecycle step outcome.
func (m *Metrics) RecordTransition(step, result string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(step, result).Inc()
}

// ObserveScan records how long a scan took.
func (m *Metrics) ObserveScan(duration time.Duration) {
	if m == nil {
		return
	}
	m.scanDuration.Observe(duration.Seconds())
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestCount.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestLatency.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errorCount.WithLabelValues(path, method, code).Inc()
}
