// Package metrics owns the Prometheus collectors of the disburse server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "disburse"

// Metrics groups every collector registered by the server
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec   // method, code
	RequestDuration *prometheus.HistogramVec // method
	RateLimited     *prometheus.CounterVec   // method
	MaturedGrants   prometheus.Gauge
	MaturedAmount   prometheus.Gauge
}

// New creates the collectors on a fresh registry, together with the Go runtime
// and process collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "grpc",
			Name:      "requests_total",
			Help:      "Handled calls by method and status code.",
		}, []string{"method", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "grpc",
			Name:      "request_duration_seconds",
			Help:      "Call latency by method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "grpc",
			Name:      "rate_limited_total",
			Help:      "Calls rejected by the per-caller rate limit.",
		}, []string{"method"}),
		MaturedGrants: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "maturity",
			Name:      "pending_grants",
			Help:      "Matured grants not yet disbursed at the last scan.",
		}),
		MaturedAmount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "maturity",
			Name:      "pending_amount",
			Help:      "Value reserved by matured grants not yet disbursed at the last scan.",
		}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestsTotal,
		m.RequestDuration,
		m.RateLimited,
		m.MaturedGrants,
		m.MaturedAmount,
	)

	return m
}
