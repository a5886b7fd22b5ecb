package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for checkout observations.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// CheckoutMetrics records checkout latency and results.
type CheckoutMetrics struct {
	duration  *prometheus.HistogramVec
	success   prometheus.Counter
	failure   *prometheus.CounterVec
	saleTotal prometheus.Counter
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pos_checkout_duration_seconds",
		Help:    "Duration of checkouts in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	success := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pos_checkout_success_total",
		Help: "Checkouts that recorded a sale.",
	})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_checkout_failure_total",
		Help: "Checkouts that failed, by error code.",
	}, []string{"code"})
	saleTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pos_sales_amount_total",
		Help: "Sum of recorded sale totals.",
	})
	reg.MustRegister(duration, success, failure, saleTotal)
	return &CheckoutMetrics{
		duration:  duration,
		success:   success,
		failure:   failure,
		saleTotal: saleTotal,
	}
}

// ObserveDuration records how long a checkout took.
func (c *CheckoutMetrics) ObserveDuration(outcome string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncSuccess counts a recorded sale and adds its amount.
func (c *CheckoutMetrics) IncSuccess(amount float64) {
	if c == nil || c.success == nil {
		return
	}
	c.success.Inc()
	if amount > 0 {
		c.saleTotal.Add(amount)
	}
}

// IncFailure counts a failed checkout under its error code.
func (c *CheckoutMetrics) IncFailure(code string) {
	if c == nil || c.failure == nil {
		return
	}
	c.failure.WithLabelValues(normalizeLabel(code)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
