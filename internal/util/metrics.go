package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CartPartsSelectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_parts_selected_total",
		Help: "Total number of part selections added to or replaced in carts",
	}, []string{"action"})

	CartRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_rejections_total",
		Help: "Total number of declined cart additions",
	}, []string{"reason"})

	CartClearedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_cleared_total",
		Help: "Total number of carts cleared",
	})

	CartPricingLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cart_pricing_latency_seconds",
		Help:    "Latency of cart total computation",
		Buckets: prometheus.DefBuckets,
	})

	SessionLockContentionTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "session_lock_contention_total",
		Help: "Total number of requests that could not lock their session",
	})

	OrdersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Total number of orders materialized from carts",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of failed checkouts",
	}, []string{"reason"})

	OrderStatusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Total number of order status changes",
	}, []string{"status"})

	OrderAuditMismatchTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_audit_mismatch_total",
		Help: "Total number of placed orders whose stored items do not add up to the published total",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
