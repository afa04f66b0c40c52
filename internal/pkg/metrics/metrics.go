package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vectorium_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vectorium_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "route"})

	// SyncOutcomes counts remote sync settlements by store and phase (fulfilled, rejected, stale).
	SyncOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vectorium_sync_outcomes_total",
		Help: "Remote sync settlements by store and outcome",
	}, []string{"store", "outcome"})

	// Orders counts buy/sell attempts by direction and result.
	Orders = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vectorium_orders_total",
		Help: "Buy and sell orders by direction and result",
	}, []string{"direction", "result"})

	InquiriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vectorium_inquiries_total",
		Help: "Form submissions by kind and delivery result",
	}, []string{"kind", "delivered"})
)
