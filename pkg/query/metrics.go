package query

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueryHits tracks reads served from a fresh entry without a fetch
	QueryHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portal_query_hits_total",
			Help: "Total number of query reads served from cache",
		},
	)

	// QueryFetches tracks completed fetches by resource and outcome
	QueryFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_query_fetches_total",
			Help: "Total number of query fetches by resource and outcome",
		},
		[]string{"resource", "outcome"}, // "success", "error"
	)

	// QueryDiscarded tracks fetch results dropped because a newer fetch or
	// an invalidation superseded them
	QueryDiscarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portal_query_discarded_total",
			Help: "Total number of superseded fetch results discarded on arrival",
		},
	)

	// QueryEntries tracks the number of live cache entries
	QueryEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "portal_query_entries",
			Help: "Current number of query cache entries",
		},
	)

	// MutationsTotal tracks mutations by outcome
	MutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_mutations_total",
			Help: "Total number of mutations by outcome",
		},
		[]string{"outcome"},
	)

	// StoreErrors tracks persistence store errors
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_query_store_errors_total",
			Help: "Total number of query store operation errors",
		},
		[]string{"store", "operation"}, // "load", "save", "delete"
	)

	// StoreHits tracks successful hydrations from a store
	StoreHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_query_store_hits_total",
			Help: "Total number of entries hydrated from a store",
		},
		[]string{"store"},
	)
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_query_retries_total",
		Help: "Total number of retry attempts by resource",
	}, []string{"resource"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portal_query_retry_backoff_seconds",
		Help:    "Backoff duration for retries by resource",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30},
	}, []string{"resource"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_query_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by resource",
	}, []string{"resource"})
)
