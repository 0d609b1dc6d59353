// Package query provides a read-through cache over arbitrary fetchers.
//
// The client implements the caching contract pages rely on:
//
// - Deterministic keys built from a resource name and filter parameters
// - At most one fetch in flight per key; concurrent callers share its result
// - A freshness window (StaleTime) after which reads refetch in the background
// - Bounded retries with exponential backoff and jitter
// - Stale-while-error: a failed refetch keeps the last good value
// - Invalidation after mutations, discarding results of superseded fetches
// - Optional persistence of successful results (Redis or LevelDB)
// - Prometheus metrics for observability
//
// # Basic Usage
//
//	qc := query.New(query.DefaultConfig(), logger)
//	defer qc.Close()
//	go qc.Run(ctx)
//
//	key := query.NewKey("mentors", "expertise", "Data Science")
//	opts := query.DefaultOptions()
//	opts.StaleTime = 5 * time.Minute
//
//	// Non-blocking read: returns the current snapshot and starts a
//	// background fetch when needed.
//	snap := qc.Query(ctx, key, fetchMentors, opts)
//
//	// Blocking read: waits for the fetch it starts or joins.
//	snap, err := qc.Fetch(ctx, key, fetchMentors, opts)
//
// # Mutations
//
//	_, err := qc.Mutate(ctx, createRequest, query.MutationOptions{
//		Invalidate: func(any) []query.Matcher {
//			return []query.Matcher{query.MatchResource("mentorshipRequests")}
//		},
//	})
//
// # Persistence
//
// When Config.Store is set, queries whose options carry a Decode function
// write successful results as JSON records and hydrate new entries from
// them. Hydrated data keeps its original fetch time and is refetched once
// stale.
//
// # Metrics
//
//   - portal_query_hits_total - Reads served from cache
//   - portal_query_fetches_total{resource,outcome} - Completed fetches
//   - portal_query_discarded_total - Superseded results dropped on arrival
//   - portal_query_retries_total{resource} - Retry attempts
//   - portal_query_entries - Live entries
//   - portal_mutations_total{outcome} - Mutations
package query
