// Package metrics exposes the facilitator's Prometheus collectors on a
// private registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Request outcome labels.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusInvalid = "invalid"
	StatusError   = "error"
)

// Metrics holds the facilitator collectors.
type Metrics struct {
	registry *prometheus.Registry

	VerifyRequests        *prometheus.CounterVec
	SettleRequests        *prometheus.CounterVec
	SettleGasUsed         prometheus.Gauge
	SettleTransactionTime prometheus.Histogram
	HTTPRequestDuration   *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry, alongside the standard
// process and Go runtime collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		VerifyRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "b402_verify_requests_total",
			Help: "Total number of verify requests",
		}, []string{"status"}),
		SettleRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "b402_settle_requests_total",
			Help: "Total number of settle requests",
		}, []string{"status"}),
		SettleGasUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "b402_settle_gas_used",
			Help: "Gas used in settle transactions",
		}),
		SettleTransactionTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "b402_settle_transaction_seconds",
			Help: "Time taken for settle transactions",
		}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		}, []string{"method", "route", "status"}),
	}

	registry.MustRegister(
		m.VerifyRequests,
		m.SettleRequests,
		m.SettleGasUsed,
		m.SettleTransactionTime,
		m.HTTPRequestDuration,
	)
	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
