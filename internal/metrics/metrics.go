// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viewings_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "viewings_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// ViewingCreates counts creates by outcome: created or replayed.
	ViewingCreates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viewings_creates_total",
			Help: "Viewing create requests by outcome",
		},
		[]string{"result"},
	)

	InvalidCursors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viewings_invalid_cursors_total",
			Help: "Rejected pagination cursors by reason",
		},
		[]string{"reason"},
	)

	MembershipCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viewings_membership_cache_lookups_total",
			Help: "Circle membership cache lookups by result",
		},
		[]string{"result"},
	)
)
