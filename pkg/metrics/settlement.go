package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics records the money-moving operations of the platform.
type SettlementMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	amounts  *prometheus.HistogramVec
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
	}, []string{"operation"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_success",
		Help: "Successful settlement operations.",
	}, []string{"operation"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_failure",
		Help: "Failed settlement operations.",
	}, []string{"operation", "reason"})
	amounts := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "settlement_amount",
		Help:    "Amounts moved by settlement operations.",
		Buckets: prometheus.ExponentialBuckets(1, 10, 7),
	}, []string{"operation"})
	reg.MustRegister(duration, success, failure, amounts)
	return &SettlementMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		amounts:  amounts,
	}
}

// ObserveDuration records the duration for the named operation.
func (m *SettlementMetrics) ObserveDuration(operation string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named operation.
func (m *SettlementMetrics) IncSuccess(operation string) {
	if m == nil || m.success == nil {
		return
	}
	m.success.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncFailure increments the failure counter for the named operation and reason.
func (m *SettlementMetrics) IncFailure(operation, reason string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(normalizeLabel(operation), normalizeLabel(reason)).Inc()
}

// ObserveAmount records the monetary amount moved by the named operation.
func (m *SettlementMetrics) ObserveAmount(operation string, amount float64) {
	if m == nil || m.amounts == nil {
		return
	}
	m.amounts.WithLabelValues(normalizeLabel(operation)).Observe(amount)
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
