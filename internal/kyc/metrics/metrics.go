package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the onboarding workflow.
type Metrics struct {
	ApplicationsStarted   prometheus.Counter
	StepsCompleted        *prometheus.CounterVec // step
	ValidationFailures    *prometheus.CounterVec // step
	DocumentsRejected     *prometheus.CounterVec // kind
	ApplicationsSubmitted prometheus.Counter
	ApplicationsApproved  prometheus.Counter

	// Time from submission to the deferred approval landing
	ApprovalLag prometheus.Histogram
}

// New registers the workflow metrics with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers with reg, so tests can use a private registry.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ApplicationsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "kycflow_applications_started_total",
			Help: "Total KYC applications started",
		}),
		StepsCompleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kycflow_steps_completed_total",
			Help: "Total accepted step saves by step",
		}, []string{"step"}),
		ValidationFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kycflow_validation_failures_total",
			Help: "Total step saves rejected by validation, by step",
		}, []string{"step"}),
		DocumentsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kycflow_documents_rejected_total",
			Help: "Total uploads rejected for size or type, by document kind",
		}, []string{"kind"}),
		ApplicationsSubmitted: f.NewCounter(prometheus.CounterOpts{
			Name: "kycflow_applications_submitted_total",
			Help: "Total KYC applications submitted",
		}),
		ApplicationsApproved: f.NewCounter(prometheus.CounterOpts{
			Name: "kycflow_applications_approved_total",
			Help: "Total KYC applications approved by the deferred decision",
		}),
		ApprovalLag: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "kycflow_approval_lag_seconds",
			Help:    "Delay between submission and approval",
			Buckets: []float64{1, 5, 10, 15, 30, 60, 120, 300},
		}),
	}
}

func (m *Metrics) IncrementStarted() {
	if m != nil {
		m.ApplicationsStarted.Inc()
	}
}

func (m *Metrics) IncrementStepCompleted(step string) {
	if m != nil {
		m.StepsCompleted.WithLabelValues(step).Inc()
	}
}

func (m *Metrics) IncrementValidationFailure(step string) {
	if m != nil {
		m.ValidationFailures.WithLabelValues(step).Inc()
	}
}

func (m *Metrics) IncrementDocumentRejected(kind string) {
	if m != nil {
		m.DocumentsRejected.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) IncrementSubmitted() {
	if m != nil {
		m.ApplicationsSubmitted.Inc()
	}
}

// ObserveApproval counts an approval and records how long it took.
func (m *Metrics) ObserveApproval(lag time.Duration) {
	if m != nil {
		m.ApplicationsApproved.Inc()
		m.ApprovalLag.Observe(lag.Seconds())
	}
}
