// Package metrics declares the Prometheus instruments shared across the
// service. Everything registers on the default registry and is served by the
// /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersPlaced counts placement attempts by outcome: success, rejected,
	// failed or inconsistent (persisted but not fully decremented).
	OrdersPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orderhub",
		Name:      "orders_placed_total",
		Help:      "Order placement attempts by outcome.",
	}, []string{"outcome"})

	// StockDecrementFailures counts per-line decrement failures after an
	// order was already persisted.
	StockDecrementFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "orderhub",
		Name:      "stock_decrement_failures_total",
		Help:      "Stock decrements that failed after order persistence.",
	})

	// RequestDuration observes HTTP handler latency per route.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "orderhub",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status code.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "code"})
)
