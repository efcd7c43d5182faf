package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Gateway request metrics
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Gateway request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"class", "status"},
	)

	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Total number of gateway requests by route class",
		},
		[]string{"class", "status"},
	)

	// Loop guard metrics
	GuardRefusalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_guard_refusals_total",
			Help: "Requests refused by the loop guard before reaching the backend",
		},
		[]string{"class"},
	)

	GuardEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_guard_entries",
			Help: "Attempt counter entries currently tracked by the loop guard",
		},
	)

	// Upstream metrics
	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_upstream_duration_seconds",
			Help:    "Backend call latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "status"},
	)

	UpstreamErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_upstream_errors_total",
			Help: "Backend calls that failed at the network level",
		},
	)

	UpstreamRedirectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_upstream_redirects_total",
			Help: "Redirect hops followed manually to preserve the Authorization header",
		},
	)
)
