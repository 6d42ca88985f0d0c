// Package metrics holds the Prometheus collectors exported by the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Rate lookup outcomes
const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Metrics contains the collectors for HTTP traffic, rate lookups and conversions
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	RateLookupsTotal        *prometheus.CounterVec
	RateLookupDuration      *prometheus.HistogramVec
	RateRecordsSkippedTotal *prometheus.CounterVec

	ConversionsTotal  *prometheus.CounterVec
	TransactionsTotal *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg. A nil reg gets a
// private registry so tests can create as many instances as they like.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests handled",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		RateLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exchange_rate_lookups_total",
				Help: "Exchange rate resolutions by outcome",
			},
			[]string{"outcome"},
		),
		RateLookupDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "exchange_rate_lookup_duration_seconds",
				Help:    "Time spent resolving an exchange rate, provider call included",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
			},
			[]string{"outcome"},
		),
		RateRecordsSkippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exchange_rate_records_skipped_total",
				Help: "Provider records discarded during resolution",
			},
			[]string{"reason"},
		),
		ConversionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "currency_conversions_total",
				Help: "Currency conversions by result",
			},
			[]string{"result"},
		),
		TransactionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transactions_total",
				Help: "Transaction lifecycle operations",
			},
			[]string{"operation"},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.RateLookupsTotal,
		m.RateLookupDuration,
		m.RateRecordsSkippedTotal,
		m.ConversionsTotal,
		m.TransactionsTotal,
	)

	return m
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
