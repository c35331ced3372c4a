package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts requests by route pattern and status.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	OrdersPlaced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_placed_total",
			Help: "Orders committed, by payment method",
		},
		[]string{"payment_method"},
	)

	// OrderPlaceFailures counts rejected or failed placements; reason is invalid_input, unauthenticated or store.
	OrderPlaceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_place_failures_total",
			Help: "Order placements that did not commit, by reason",
		},
		[]string{"reason"},
	)

	OrderAmount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "order_total_minor_units",
			Help:    "Order totals in minor currency units",
			Buckets: prometheus.ExponentialBuckets(100, 4, 10),
		},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Kafka messages written, by topic and result",
		},
		[]string{"topic", "result"},
	)

	// AuditChecks counts reconciliation results: ok, total_mismatch, items_mismatch, missing.
	AuditChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_audit_checks_total",
			Help: "Stored order reconciliation results",
		},
		[]string{"result"},
	)

	CatalogCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_lookups_total",
			Help: "Catalog cache lookups by result",
		},
		[]string{"result"},
	)
)
