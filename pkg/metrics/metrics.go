// Package metrics provides the Prometheus registry and endpoint for the portal.
// Client, query and throttle metrics are defined in their respective packages
// (client, query, ratelimit) to keep them modular; gateway metrics live here.
//
// This package also documents every metric the portal exports.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the portal.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gateway metrics.
var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_gateway_requests_total",
		Help: "Total gateway requests by route pattern and status",
	}, []string{"route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portal_gateway_request_duration_seconds",
		Help:    "Gateway request duration in seconds by route pattern",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records gateway request counts and durations. The route label
// is the chi route pattern, so path parameters never become label values.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - portal_requests_total{endpoint, status} (Counter): Backend requests by endpoint and HTTP status
//   - portal_request_duration_seconds{endpoint} (Histogram): Backend request duration by endpoint
//   - portal_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//   - portal_breaker_state (Gauge): Circuit breaker state (0 closed, 1 half-open, 2 open)
//
// Throttle Metrics (pkg/ratelimit):
//   - portal_throttled_responses_total (Counter): 429 responses received from the backend
//   - portal_throttle_blocks_total (Counter): Requests held back locally while throttled
//
// Query Cache Metrics (pkg/query):
//   - portal_query_hits_total (Counter): Reads served from a fresh entry
//   - portal_query_fetches_total{resource, outcome} (Counter): Completed fetches
//   - portal_query_discarded_total (Counter): Superseded results dropped on arrival
//   - portal_query_entries (Gauge): Live cache entries
//   - portal_mutations_total{outcome} (Counter): Mutations by outcome
//   - portal_query_store_errors_total{store, operation} (Counter): Persistence errors
//   - portal_query_store_hits_total{store} (Counter): Entries hydrated from a store
//   - portal_query_retries_total{resource} (Counter): Retry attempts
//   - portal_query_retry_backoff_seconds{resource} (Histogram): Backoff before each retry
//   - portal_query_retry_exhausted_total{resource} (Counter): Fetches that used up their retries
//
// Gateway Metrics (pkg/metrics):
//   - portal_gateway_requests_total{route, status} (Counter): Gateway requests
//   - portal_gateway_request_duration_seconds{route} (Histogram): Gateway latency
//
// Example Prometheus Queries:
//
//   # Query Cache Hit Rate
//   sum(rate(portal_query_hits_total[5m])) /
//   (sum(rate(portal_query_hits_total[5m])) + sum(rate(portal_query_fetches_total[5m])))
//
//   # Backend Error Rate
//   rate(portal_errors_total[5m])
//
//   # P95 Backend Latency
//   histogram_quantile(0.95, rate(portal_request_duration_seconds_bucket[5m]))
//
//   # Breaker Open
//   portal_breaker_state == 2
