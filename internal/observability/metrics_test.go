package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecordsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordReadingAnalyzed()
	m.RecordReadingAnalyzed()
	m.RecordViolation()
	m.RecordTicketCreated("critical")
	m.RecordSuppressed("active_ticket")
	m.RecordDeferred()
	m.RecordTransition("dequeue", "applied")
	m.RecordRequest("/api/v1/scans", "POST", 200, 5*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.readingsAnalyzed))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.violationsDetected))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ticketsCreated.WithLabelValues("critical")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.detectionsDropped.WithLabelValues("active_ticket")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.readingsDeferred))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.transitions.WithLabelValues("dequeue", "applied")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.requestCount.WithLabelValues("/api/v1/scans", "POST", "200")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordReadingAnalyzed()
		m.RecordReadingSkipped("invalid")
		m.RecordViolation()
		m.RecordTicketCreated("high")
		m.RecordSuppressed("active_ticket")
		m.RecordDeferred()
		m.RecordTransition("close", "noop")
		m.ObserveScan(time.Second)
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordError("/", "GET", "NOT_FOUND")
	})
}

func TestErrorLabelsAreGatherable(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.RecordError("/api/v1/tickets/:id", "GET", "NOT_FOUND")
	m.RecordError("/api/v1/tickets/:id", "GET", "NOT_FOUND")
	m.RecordError("/api/v1/tickets/:id/resolve", "POST", "VALIDATION_ERROR")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.errorCount.WithLabelValues("/api/v1/tickets/:id", "GET", "NOT_FOUND")))
	_, err := reg.Gather()
	require.NoError(t, err)
}
