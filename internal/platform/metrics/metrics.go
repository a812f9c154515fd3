package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds process level metrics that are not owned by a feature.
type Metrics struct {
	AuditEventsDropped prometheus.Counter
	AuditEmitFailures  prometheus.Counter
}

// New creates and registers the platform metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AuditEventsDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "kycflow_audit_events_dropped_total",
			Help: "Audit events dropped because the publish buffer was full",
		}),
		AuditEmitFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "kycflow_audit_emit_failures_total",
			Help: "Audit events that could not be handed to the publisher",
		}),
	}
}

func (m *Metrics) IncrementAuditDropped() {
	if m != nil {
		m.AuditEventsDropped.Inc()
	}
}

func (m *Metrics) IncrementAuditEmitFailure() {
	if m != nil {
		m.AuditEmitFailures.Inc()
	}
}

// RegisterGauge exposes a value sampled at scrape time.
func RegisterGauge(reg prometheus.Registerer, name, help string, fn func() float64) {
	promauto.With(reg).NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, fn)
}
