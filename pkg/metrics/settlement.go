package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics records ledger and order settlement activity.
type SettlementMetrics struct {
	duration    *prometheus.HistogramVec
	settlements *prometheus.CounterVec
	failures    *prometheus.CounterVec
	points      *prometheus.CounterVec
}

// NewSettlementMetrics registers the settlement metrics on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "settlement_duration_seconds",
		Help:    "Duration of settlement operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_success_total",
		Help: "Successful settlement operations.",
	}, []string{"op"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_failure_total",
		Help: "Failed settlement operations.",
	}, []string{"op"})
	points := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_points_moved_total",
		Help: "Absolute point volume recorded in the ledger.",
	}, []string{"kind"})
	reg.MustRegister(duration, settlements, failures, points)
	return &SettlementMetrics{
		duration:    duration,
		settlements: settlements,
		failures:    failures,
		points:      points,
	}
}

// ObserveDuration records the duration for the named operation.
func (m *SettlementMetrics) ObserveDuration(op string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(op)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named operation.
func (m *SettlementMetrics) IncSuccess(op string) {
	if m == nil || m.settlements == nil {
		return
	}
	m.settlements.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncFailure increments the failure counter for the named operation.
func (m *SettlementMetrics) IncFailure(op string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(op)).Inc()
}

// AddPointsMoved records point volume by transaction kind. Deltas are
// counted as absolute volume.
func (m *SettlementMetrics) AddPointsMoved(kind string, points int) {
	if m == nil || m.points == nil {
		return
	}
	if points < 0 {
		points = -points
	}
	m.points.WithLabelValues(normalizeLabel(kind)).Add(float64(points))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
