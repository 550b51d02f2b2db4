package library

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records borrowing lifecycle outcomes. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	duration    *prometheus.HistogramVec
	transitions *prometheus.CounterVec
	failures    *prometheus.CounterVec
}

// NewMetrics registers the lifecycle metrics on the provided registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lms_lifecycle_duration_seconds",
		Help:    "Duration of borrowing lifecycle operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lms_lifecycle_transitions_total",
		Help: "Successful borrowing lifecycle operations.",
	}, []string{"operation"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lms_lifecycle_failures_total",
		Help: "Failed borrowing lifecycle operations by error code.",
	}, []string{"operation", "code"})
	reg.MustRegister(duration, transitions, failures)
	return &Metrics{
		duration:    duration,
		transitions: transitions,
		failures:    failures,
	}
}

func (m *Metrics) ObserveDuration(op string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(op)).Observe(d.Seconds())
}

func (m *Metrics) IncSuccess(op string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(op)).Inc()
}

func (m *Metrics) IncFailure(op, code string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(op), normalizeLabel(code)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
