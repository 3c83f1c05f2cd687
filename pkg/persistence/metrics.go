package persistence

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	opSave   = "save"
	opGet    = "get"
	opDelete = "delete"
	opExists = "exists"
	opList   = "list"
)

// Metrics holds the Prometheus collectors of the persistence service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Operations *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
	Enabled    prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg (skipped when reg is nil).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sticky_persistence_operations_total",
				Help: "Total number of session persistence operations by outcome",
			},
			[]string{"op", "result"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sticky_persistence_operation_duration_seconds",
				Help:    "Duration of session persistence operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		Enabled: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sticky_persistence_enabled",
				Help: "1 when the backing store was ready at the last operation",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(m.Operations, m.Duration, m.Enabled)
	}
	return m
}

func (m *Metrics) observe(op, result string, start time.Time, enabled bool) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(op, result).Inc()
	m.Duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if enabled {
		m.Enabled.Set(1)
	} else {
		m.Enabled.Set(0)
	}
}
