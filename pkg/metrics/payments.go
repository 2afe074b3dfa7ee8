package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OperationInitiate = "initiate"
	OperationCapture  = "capture"
)

// PaymentMetrics records outcomes of the PayPal initiation and capture flows.
type PaymentMetrics struct {
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_payment_duration_seconds",
		Help:    "Duration of payment operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_payment_outcomes_total",
		Help: "Payment operations by outcome (success or error code).",
	}, []string{"operation", "outcome"})
	reg.MustRegister(duration, outcomes)
	return &PaymentMetrics{
		duration: duration,
		outcomes: outcomes,
	}
}

// ObserveDuration records how long the named operation took.
func (p *PaymentMetrics) ObserveDuration(operation string, duration time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncOutcome counts an operation result; outcome is "success" or an error code.
func (p *PaymentMetrics) IncOutcome(operation, outcome string) {
	if p == nil || p.outcomes == nil {
		return
	}
	p.outcomes.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
