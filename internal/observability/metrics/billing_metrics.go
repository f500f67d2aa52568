package metrics

import "github.com/prometheus/client_golang/prometheus"

// BillingMetrics counts domain-level billing activity.
type BillingMetrics struct {
	ReadingsSubmitted *prometheus.CounterVec
	PaymentsRecorded  prometheus.Counter
	ReceiptsRendered  prometheus.Counter
}

// NewBillingMetrics registers billing counters on the shared registry.
func NewBillingMetrics(httpMetrics *HTTPMetrics) *BillingMetrics {
	m := &BillingMetrics{
		ReadingsSubmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_readings_submitted_total",
				Help: "Meter readings submitted, by outcome (created or updated).",
			},
			[]string{"outcome"},
		),
		PaymentsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "billing_payments_recorded_total",
			Help: "Payments recorded against billing records.",
		}),
		ReceiptsRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "billing_receipts_rendered_total",
			Help: "Payment receipt PDFs rendered.",
		}),
	}

	httpMetrics.Registry().MustRegister(m.ReadingsSubmitted, m.PaymentsRecorded, m.ReceiptsRendered)
	return m
}
