package query

import (
	"context"
	"time"
)

// Status is the fetch state of a cache entry.
type Status int

const (
	// StatusIdle means no fetch has been issued yet (e.g. the query is disabled).
	StatusIdle Status = iota
	// StatusLoading means the first fetch is in flight and no data exists.
	StatusLoading
	// StatusError means the last fetch failed after exhausting retries.
	StatusError
	// StatusSuccess means the entry holds data from a successful fetch.
	StatusSuccess
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusError:
		return "error"
	case StatusSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// Fetcher loads the value of a key (or performs a mutation).
type Fetcher func(ctx context.Context) (any, error)

// Options configure a query.
//
// The zero Options is disabled and never retries; start from DefaultOptions.
type Options struct {
	// Enabled gates fetching. A disabled query issues no fetch and a new
	// entry stays idle.
	Enabled bool

	// StaleTime is how long a success stays fresh. Reading a stale entry
	// starts a background refetch.
	StaleTime time.Duration

	// Retry is the number of retries after the first failed attempt.
	Retry int

	// ClearOnError drops the previous value when a fetch fails.
	ClearOnError bool

	// ErrorRetryAfter, when positive, lets a read refetch an error entry
	// older than this. Zero keeps error entries frozen until Refetch or
	// Invalidate.
	ErrorRetryAfter time.Duration

	// Decode restores a persisted value. When set and the cache has a
	// Store, new entries are hydrated from it and successes are saved.
	Decode func(data []byte) (any, error)
}

// DefaultOptions returns an enabled query with no stale time and three retries.
func DefaultOptions() Options {
	return Options{
		Enabled: true,
		Retry:   3,
	}
}

// MutationOptions configure a mutation.
type MutationOptions struct {
	// Retry is the number of retries; mutations are not retried by default.
	Retry int

	// Invalidate returns the entries to mark stale after a success.
	Invalidate func(result any) []Matcher
}

// Snapshot is a point-in-time copy of a cache entry.
type Snapshot struct {
	Key            Key
	Status         Status
	Data           any
	HasData        bool
	Err            error
	UpdatedAt      time.Time
	ErrorUpdatedAt time.Time
	IsFetching     bool
	IsStale        bool
	FetchCount     int
}

// IsLoading reports whether nothing is available yet but a fetch is running.
func (s Snapshot) IsLoading() bool {
	return s.Status == StatusLoading
}

// IsError reports whether the last fetch failed.
func (s Snapshot) IsError() bool {
	return s.Status == StatusError
}

// Result is a typed view of a Snapshot.
type Result[T any] struct {
	Key        Key
	Status     Status
	Data       T
	HasData    bool
	Err        error
	UpdatedAt  time.Time
	IsFetching bool
	IsStale    bool
}

// As converts a snapshot to a typed result. Data of another type is
// reported as absent.
func As[T any](s Snapshot) Result[T] {
	r := Result[T]{
		Key:        s.Key,
		Status:     s.Status,
		Err:        s.Err,
		UpdatedAt:  s.UpdatedAt,
		IsFetching: s.IsFetching,
		IsStale:    s.IsStale,
	}
	if s.HasData {
		if v, ok := s.Data.(T); ok {
			r.Data = v
			r.HasData = true
		}
	}
	return r
}

// entry is the mutable cache record behind a key. All fields are guarded
// by Client.mu.
type entry struct {
	key Key

	status         Status
	data           any
	hasData        bool
	err            error
	updatedAt      time.Time
	errorUpdatedAt time.Time
	fetchCount     int

	staleTime       time.Duration
	errorRetryAfter time.Duration
	invalidated     bool

	// Request sequencing. issued is the sequence of the latest fetch,
	// appliedSeq the latest one whose result was stored; completions at or
	// below discardThrough were superseded by an invalidation.
	fetching       bool
	flight         string
	issued         uint64
	appliedSeq     uint64
	discardThrough uint64

	subs       map[int]func(Snapshot)
	nextSub    int
	lastAccess time.Time
}

func (e *entry) snapshot(now time.Time) Snapshot {
	return Snapshot{
		Key:            e.key,
		Status:         e.status,
		Data:           e.data,
		HasData:        e.hasData,
		Err:            e.err,
		UpdatedAt:      e.updatedAt,
		ErrorUpdatedAt: e.errorUpdatedAt,
		IsFetching:     e.fetching,
		IsStale:        e.isStale(now),
		FetchCount:     e.fetchCount,
	}
}

func (e *entry) isStale(now time.Time) bool {
	if e.invalidated {
		return true
	}
	if !e.hasData {
		return false
	}
	return now.Sub(e.updatedAt) >= e.staleTime
}

// superseded reports whether the in-flight fetch (if any) was issued
// before the last invalidation.
func (e *entry) superseded() bool {
	return e.issued <= e.discardThrough
}

func (e *entry) listeners() []func(Snapshot) {
	if len(e.subs) == 0 {
		return nil
	}
	out := make([]func(Snapshot), 0, len(e.subs))
	for _, fn := range e.subs {
		out = append(out, fn)
	}
	return out
}
