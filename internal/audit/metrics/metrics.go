package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the audit pipeline.
type Metrics struct {
	RecordsWritten    *prometheus.CounterVec
	PersistFailures   prometheus.Counter
	UnknownOperations prometheus.Counter
	PersistDuration   prometheus.Histogram
}

// New registers and returns the audit pipeline metrics. Call once per
// process; Prometheus panics on duplicate registration.
func New() *Metrics {
	return &Metrics{
		RecordsWritten: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "revent_audit_records_written_total",
			Help: "Audit records successfully persisted, by collection",
		}, []string{"collection"}),
		PersistFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "revent_audit_persist_failures_total",
			Help: "Audit record writes dropped because the store rejected them",
		}),
		UnknownOperations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "revent_audit_unknown_operations_total",
			Help: "Change events that classified to the unknown operation label",
		}),
		PersistDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "revent_audit_persist_duration_seconds",
			Help:    "Latency of audit store appends",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncWritten increments the written counter for a collection.
func (m *Metrics) IncWritten(collection string) {
	m.RecordsWritten.WithLabelValues(collection).Inc()
}

// IncPersistFailures increments the dropped-write counter.
func (m *Metrics) IncPersistFailures() {
	m.PersistFailures.Inc()
}

// IncUnknownOperations increments the unknown-label counter.
func (m *Metrics) IncUnknownOperations() {
	m.UnknownOperations.Inc()
}

// ObservePersistDuration records one append latency in seconds.
func (m *Metrics) ObservePersistDuration(seconds float64) {
	m.PersistDuration.Observe(seconds)
}
