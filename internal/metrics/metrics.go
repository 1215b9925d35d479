// Package metrics exposes Prometheus collectors for the market.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "healthy_market"

type Checkout struct {
	submissions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	revenue     prometheus.Counter
	emissions   prometheus.Counter
}

func NewCheckout(reg prometheus.Registerer) *Checkout {
	f := promauto.With(reg)
	return &Checkout{
		submissions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "submissions_total",
			Help:      "Order submissions by outcome.",
		}, []string{"outcome"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "duration_seconds",
			Help:      "Time spent submitting an order.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		revenue: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "revenue_total",
			Help:      "Sum of charged order totals.",
		}),
		emissions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "emissions_kg_total",
			Help:      "Carbon emissions of placed orders in kg CO2e.",
		}),
	}
}

func (c *Checkout) Observe(outcome string, elapsed time.Duration) {
	c.submissions.WithLabelValues(outcome).Inc()
	c.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (c *Checkout) OrderPlaced(total, emissionsKg float64) {
	c.revenue.Add(total)
	c.emissions.Add(emissionsKg)
}

type HTTP struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func NewHTTP(reg prometheus.Registerer) *HTTP {
	f := promauto.With(reg)
	return &HTTP{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

func (h *HTTP) Observe(route, method, status string, elapsed time.Duration) {
	h.requests.WithLabelValues(route, method, status).Inc()
	h.latency.WithLabelValues(route, method).Observe(elapsed.Seconds())
}
