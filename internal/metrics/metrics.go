package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	CheckoutAttempts *prometheus.CounterVec
	ChargeLatency    prometheus.Histogram
	Logins           *prometheus.CounterVec
	TokenRefreshes   *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CheckoutAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ecommerce",
			Subsystem: "checkout",
			Name:      "attempts_total",
			Help:      "Checkout attempts by outcome.",
		}, []string{"outcome"}),
		ChargeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ecommerce",
			Subsystem: "checkout",
			Name:      "charge_duration_ms",
			Help:      "Payment gateway charge latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ecommerce",
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		TokenRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ecommerce",
			Subsystem: "auth",
			Name:      "token_refreshes_total",
			Help:      "Refresh-token rotations by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.CheckoutAttempts, m.ChargeLatency, m.Logins, m.TokenRefreshes)
	return m
}

func (m *Metrics) ObserveCharge(start time.Time) {
	m.ChargeLatency.Observe(float64(time.Since(start).Milliseconds()))
}
