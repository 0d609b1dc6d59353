package query

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Backoff = fastBackoff()
	c := New(cfg, zerolog.Nop())
	t.Cleanup(func() { c.Close() })
	return c
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func freshOptions() Options {
	opts := DefaultOptions()
	opts.StaleTime = time.Hour
	opts.Retry = 0
	return opts
}

func valueFetcher(calls *atomic.Int32, value any) Fetcher {
	return func(ctx context.Context) (any, error) {
		calls.Add(1)
		return value, nil
	}
}

func TestQuery_DeduplicatesConcurrentCallers(t *testing.T) {
	qc := newTestClient(t)
	ctx := context.Background()
	key := NewKey("mentors", "expertise", "Data Science")
	opts := freshOptions()

	var calls atomic.Int32
	gate := make(chan struct{})
	fetch := func(ctx context.Context) (any, error) {
		calls.Add(1)
		<-gate
		return []string{"ada"}, nil
	}

	first := qc.Query(ctx, key, fetch, opts)
	second := qc.Query(ctx, key, fetch, opts)

	if first.Status != StatusLoading || !first.IsFetching {
		t.Errorf("first snapshot = %v fetching=%v, want loading and fetching", first.Status, first.IsFetching)
	}
	if second.Status != StatusLoading {
		t.Errorf("second snapshot status = %v, want loading", second.Status)
	}

	var wg sync.WaitGroup
	results := make([]Snapshot, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = qc.Fetch(ctx, key, fetch, opts)
		}(i)
	}

	close(gate)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("fetcher called %d times, want 1", got)
	}
	for i, snap := range results {
		if snap.Status != StatusSuccess {
			t.Errorf("result[%d] status = %v, want success", i, snap.Status)
		}
	}
}

func TestQuery_EnabledGate(t *testing.T) {
	qc := newTestClient(t)
	ctx := context.Background()
	key := NewKey("mentorshipRequests")

	var calls atomic.Int32
	gate := make(chan struct{})
	fetch := func(ctx context.Context) (any, error) {
		calls.Add(1)
		<-gate
		return []int{1}, nil
	}

	opts := freshOptions()
	opts.Enabled = false

	snap := qc.Query(ctx, key, fetch, opts)
	if snap.Status != StatusIdle || snap.IsFetching {
		t.Errorf("disabled query = %v fetching=%v, want idle", snap.Status, snap.IsFetching)
	}
	snap, err := qc.Fetch(ctx, key, fetch, opts)
	if err != nil || snap.Status != StatusIdle {
		t.Errorf("disabled Fetch() = %v, %v", snap.Status, err)
	}
	if got := calls.Load(); got != 0 {
		t.Fatalf("disabled query issued %d fetches", got)
	}

	opts.Enabled = true
	qc.Query(ctx, key, fetch, opts)
	qc.Query(ctx, key, fetch, opts)
	close(gate)

	snap, err = qc.Fetch(ctx, key, fetch, opts)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if snap.Status != StatusSuccess {
		t.Errorf("status = %v, want success", snap.Status)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("enabling issued %d fetches, want 1", got)
	}
}

func TestFetch_FreshEntryIsServedFromCache(t *testing.T) {
	qc := newTestClient(t)
	ctx := context.Background()
	key := NewKey("galleryTags")

	var calls atomic.Int32
	fetch := valueFetcher(&calls, []string{"reunion"})

	for i := 0; i < 3; i++ {
		snap, err := qc.Fetch(ctx, key, fetch, freshOptions())
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if !reflect.DeepEqual(snap.Data, []string{"reunion"}) {
			t.Errorf("Data = %v", snap.Data)
		}
	}

	if got := calls.Load(); got != 1 {
		t.Errorf("fetcher called %d times, want 1", got)
	}
}

func TestQuery_StaleTime(t *testing.T) {
	qc := newTestClient(t)
	clock := newFakeClock()
	qc.now = clock.Now

	ctx := context.Background()
	key := NewKey("mentors")
	opts := freshOptions()
	opts.StaleTime = 5 * time.Minute

	var calls atomic.Int32
	fetch := valueFetcher(&calls, "v")

	if _, err := qc.Fetch(ctx, key, fetch, opts); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	clock.Advance(4 * time.Minute)
	snap := qc.Query(ctx, key, fetch, opts)
	if snap.IsStale || snap.IsFetching {
		t.Errorf("entry should be fresh after 4m, stale=%v fetching=%v", snap.IsStale, snap.IsFetching)
	}

	clock.Advance(2 * time.Minute)
	snap = qc.Query(ctx, key, fetch, opts)
	if !snap.IsStale {
		t.Error("entry should be stale after 6m")
	}
	if snap.Status != StatusSuccess || !snap.HasData {
		t.Errorf("stale read should keep data, got %v", snap.Status)
	}

	if _, err := qc.Fetch(ctx, key, fetch, opts); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("fetcher called %d times, want 2", got)
	}
}

func TestInvalidate_NextReadRefetchesOnce(t *testing.T) {
	qc := newTestClient(t)
	ctx := context.Background()
	key := NewKey("mentorshipRequests")
	opts := freshOptions()

	var calls atomic.Int32
	if _, err := qc.Fetch(ctx, key, valueFetcher(&calls, "before"), opts); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if n := qc.Invalidate(MatchResource("mentorshipRequests")); n != 1 {
		t.Fatalf("Invalidate() = %d, want 1", n)
	}

	snap, _ := qc.Snapshot(key)
	if !snap.IsStale {
		t.Error("invalidated entry should be stale")
	}

	gate := make(chan struct{})
	refetch := func(ctx context.Context) (any, error) {
		calls.Add(1)
		<-gate
		return "after", nil
	}

	qc.Query(ctx, key, refetch, opts)
	qc.Query(ctx, key, refetch, opts)
	close(gate)

	snap, err := qc.Fetch(ctx, key, refetch, opts)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if snap.Data != "after" {
		t.Errorf("Data = %v, want after", snap.Data)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("fetcher called %d times, want 2 (initial + one refetch)", got)
	}
}

func TestInvalidate_NoMatchersMatchesAll(t *testing.T) {
	qc := newTestClient(t)
	ctx := context.Background()

	var calls atomic.Int32
	for _, key := range []Key{NewKey("mentors"), NewKey("galleryTags"), NewKey("galleryCategories")} {
		if _, err := qc.Fetch(ctx, key, valueFetcher(&calls, 1), freshOptions()); err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
	}

	if n := qc.Invalidate(); n != 3 {
		t.Errorf("Invalidate() = %d, want 3", n)
	}
	if n := qc.Invalidate(MatchKey(NewKey("unknown"))); n != 0 {
		t.Errorf("Invalidate(unknown) = %d, want 0", n)
	}
}

func TestInvalidate_DiscardsSupersededFetch(t *testing.T) {
	qc := newTestClient(t)
	ctx := context.Background()
	key := NewKey("mentors")
	opts := freshOptions()

	startedOld := make(chan struct{})
	releaseOld := make(chan struct{})
	fetchOld := func(ctx context.Context) (any, error) {
		close(startedOld)
		<-releaseOld
		return "old", nil
	}

	oldResult := make(chan Snapshot, 1)
	go func() {
		snap, _ := qc.Fetch(ctx, key, fetchOld, opts)
		oldResult <- snap
	}()
	<-startedOld

	qc.Invalidate(MatchKey(key))

	snap, err := qc.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		return "new", nil
	}, opts)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if snap.Data != "new" {
		t.Fatalf("Data = %v, want new", snap.Data)
	}

	close(releaseOld)

	select {
	case snap := <-oldResult:
		if snap.Data != "new" {
			t.Errorf("waiter of superseded fetch got %v, want new", snap.Data)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("superseded fetch waiter did not return")
	}

	final, _ := qc.Snapshot(key)
	if final.Data != "new" {
		t.Errorf("late arrival overwrote newer data: %v", final.Data)
	}
	if final.FetchCount != 1 {
		t.Errorf("FetchCount = %d, want 1", final.FetchCount)
	}
}

func TestFetch_StaleWhileError(t *testing.T) {
	qc := newTestClient(t)
	ctx := context.Background()
	key := NewKey("mentors")
	opts := freshOptions()

	var calls atomic.Int32
	if _, err := qc.Fetch(ctx, key, valueFetcher(&calls, "v1"), opts); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	boom := errors.New("boom")
	var failures atomic.Int32
	failing := func(ctx context.Context) (any, error) {
		failures.Add(1)
		return nil, boom
	}

	snap, err := qc.Refetch(ctx, key, failing, opts)
	if !errors.Is(err, boom) {
		t.Fatalf("Refetch() error = %v, want boom", err)
	}
	if snap.Status != StatusError {
		t.Errorf("status = %v, want error", snap.Status)
	}
	if !snap.HasData || snap.Data != "v1" {
		t.Errorf("previous value not preserved: %v", snap.Data)
	}
	if snap.ErrorUpdatedAt.IsZero() {
		t.Error("ErrorUpdatedAt should be set")
	}

	// Frozen: reads neither fetch nor clear the error.
	snap, err = qc.Fetch(ctx, key, failing, opts)
	if !errors.Is(err, boom) || snap.Data != "v1" {
		t.Errorf("frozen Fetch() = %v, %v", snap.Data, err)
	}
	qc.Query(ctx, key, failing, opts)
	if got := failures.Load(); got != 1 {
		t.Errorf("failing fetcher called %d times, want 1", got)
	}

	snap, err = qc.Refetch(ctx, key, valueFetcher(&calls, "v2"), opts)
	if err != nil {
		t.Fatalf("Refetch() error = %v", err)
	}
	if snap.Status != StatusSuccess || snap.Data != "v2" || snap.Err != nil {
		t.Errorf("recovered snapshot = %+v", snap)
	}
}

func TestFetch_ClearOnError(t *testing.T) {
	qc := newTestClient(t)
	ctx := context.Background()
	key := NewKey("galleryImages")
	opts := freshOptions()
	opts.ClearOnError = true

	var calls atomic.Int32
	if _, err := qc.Fetch(ctx, key, valueFetcher(&calls, "v1"), opts); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	snap, err := qc.Refetch(ctx, key, func(ctx context.Context) (any, error) {
		return nil, errors.New("down")
	}, opts)
	if err == nil {
		t.Fatal("expected error")
	}
	if snap.HasData || snap.Data != nil {
		t.Errorf("data should be cleared, got %v", snap.Data)
	}
}

func TestQuery_ErrorRetryAfter(t *testing.T) {
	qc := newTestClient(t)
	clock := newFakeClock()
	qc.now = clock.Now

	ctx := context.Background()
	key := NewKey("mentors")
	opts := freshOptions()
	opts.ErrorRetryAfter = time.Minute

	var failures atomic.Int32
	failing := func(ctx context.Context) (any, error) {
		failures.Add(1)
		return nil, errors.New("down")
	}
	if _, err := qc.Fetch(ctx, key, failing, opts); err == nil {
		t.Fatal("expected error")
	}

	clock.Advance(30 * time.Second)
	if _, err := qc.Fetch(ctx, key, failing, opts); err == nil {
		t.Fatal("expected frozen error")
	}
	if got := failures.Load(); got != 1 {
		t.Errorf("failing fetcher called %d times before ErrorRetryAfter, want 1", got)
	}

	clock.Advance(time.Minute)
	var calls atomic.Int32
	snap, err := qc.Fetch(ctx, key, valueFetcher(&calls, "v"), opts)
	if err != nil {
		t.Fatalf("Fetch() after ErrorRetryAfter error = %v", err)
	}
	if snap.Status != StatusSuccess || snap.Data != "v" {
		t.Errorf("snapshot = %+v, want recovered success", snap)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("fetcher called %d times, want 1", got)
	}
}

func TestFetch_RetriesUntilExhausted(t *testing.T) {
	qc := newTestClient(t)
	ctx := context.Background()
	key := NewKey("mentors")
	opts := freshOptions()
	opts.Retry = 2

	var calls atomic.Int32
	down := errors.New("down")
	snap, err := qc.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		calls.Add(1)
		return nil, down
	}, opts)

	if !errors.Is(err, ErrRetryExhausted) || !errors.Is(err, down) {
		t.Errorf("err = %v, want exhausted wrapping down", err)
	}
	if snap.Status != StatusError {
		t.Errorf("status = %v, want error", snap.Status)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestFetch_NonRetryableErrorIsNotRetried(t *testing.T) {
	qc := newTestClient(t)
	opts := freshOptions()
	opts.Retry = 3

	var calls atomic.Int32
	_, err := qc.Fetch(context.Background(), NewKey("mentorProfile", "id", "4"), func(ctx context.Context) (any, error) {
		calls.Add(1)
		return nil, &testRetryableError{retry: false}
	}, opts)

	if err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1", got)
	}
}

func TestFetch_CallerCancellationKeepsFetchRunning(t *testing.T) {
	qc := newTestClient(t)
	key := NewKey("mentors")
	opts := freshOptions()

	done := make(chan Snapshot, 4)
	unsubscribe := qc.Subscribe(key, func(s Snapshot) {
		if !s.IsFetching {
			done <- s
		}
	})
	defer unsubscribe()

	release := make(chan struct{})
	fetch := func(ctx context.Context) (any, error) {
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return "done", nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := qc.Fetch(ctx, key, fetch, opts); !errors.Is(err, context.Canceled) {
		t.Fatalf("Fetch() error = %v, want context.Canceled", err)
	}

	close(release)

	select {
	case snap := <-done:
		if snap.Status != StatusSuccess || snap.Data != "done" {
			t.Errorf("completed snapshot = %v %v", snap.Status, snap.Data)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("fetch did not complete")
	}
}

func TestSubscribe_Notifications(t *testing.T) {
	qc := newTestClient(t)
	ctx := context.Background()
	key := NewKey("galleryCategories")

	var mu sync.Mutex
	var seen []Snapshot
	unsubscribe := qc.Subscribe(key, func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, s)
	})

	var calls atomic.Int32
	if _, err := qc.Fetch(ctx, key, valueFetcher(&calls, "x"), freshOptions()); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	mu.Lock()
	if len(seen) != 2 {
		t.Fatalf("got %d notifications, want 2", len(seen))
	}
	if seen[0].Status != StatusLoading || !seen[0].IsFetching {
		t.Errorf("first notification = %v fetching=%v, want loading", seen[0].Status, seen[0].IsFetching)
	}
	if seen[1].Status != StatusSuccess || seen[1].IsFetching {
		t.Errorf("second notification = %v fetching=%v, want success", seen[1].Status, seen[1].IsFetching)
	}
	mu.Unlock()

	qc.Invalidate(MatchKey(key))
	mu.Lock()
	if len(seen) != 3 || !seen[2].IsStale {
		t.Errorf("invalidation should notify with a stale snapshot, got %d notifications", len(seen))
	}
	mu.Unlock()

	unsubscribe()
	unsubscribe()
	qc.Invalidate(MatchKey(key))

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 3 {
		t.Errorf("notified after unsubscribe: %d notifications", len(seen))
	}
}

func TestMutate_InvalidatesOnSuccess(t *testing.T) {
	qc := newTestClient(t)
	ctx := context.Background()
	key := NewKey("mentorshipRequests", "status", "pending")
	opts := freshOptions()

	var calls atomic.Int32
	fetch := valueFetcher(&calls, "list")
	if _, err := qc.Fetch(ctx, key, fetch, opts); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	var invalidatedWith any
	result, err := qc.Mutate(ctx, func(ctx context.Context) (any, error) {
		return 42, nil
	}, MutationOptions{
		Invalidate: func(result any) []Matcher {
			invalidatedWith = result
			return []Matcher{MatchResource("mentorshipRequests")}
		},
	})
	if err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}
	if result != 42 || invalidatedWith != 42 {
		t.Errorf("result = %v, invalidate saw %v", result, invalidatedWith)
	}

	if _, err := qc.Fetch(ctx, key, fetch, opts); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if _, err := qc.Fetch(ctx, key, fetch, opts); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("fetcher called %d times, want 2", got)
	}
}

func TestMutate_FailureRunsOnceAndKeepsCache(t *testing.T) {
	qc := newTestClient(t)
	ctx := context.Background()
	key := NewKey("mentors")

	var calls atomic.Int32
	if _, err := qc.Fetch(ctx, key, valueFetcher(&calls, "list"), freshOptions()); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	var attempts atomic.Int32
	invalidateCalled := false
	_, err := qc.Mutate(ctx, func(ctx context.Context) (any, error) {
		attempts.Add(1)
		return nil, errors.New("capacity reached")
	}, MutationOptions{
		Invalidate: func(any) []Matcher {
			invalidateCalled = true
			return []Matcher{MatchResource("mentors")}
		},
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("mutation attempts = %d, want 1", got)
	}
	if invalidateCalled {
		t.Error("Invalidate must not run after a failed mutation")
	}
	if snap, _ := qc.Snapshot(key); snap.IsStale {
		t.Error("cache should be untouched")
	}
}

func TestSweep(t *testing.T) {
	qc := newTestClient(t)
	clock := newFakeClock()
	qc.now = clock.Now

	ctx := context.Background()
	opts := freshOptions()
	opts.Enabled = false

	qc.Query(ctx, NewKey("idle"), nil, opts)
	unsubscribe := qc.Subscribe(NewKey("watched"), func(Snapshot) {})

	clock.Advance(5 * time.Minute)
	if n := qc.Sweep(); n != 0 {
		t.Errorf("Sweep() before GCTime = %d, want 0", n)
	}

	clock.Advance(6 * time.Minute)
	if n := qc.Sweep(); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}
	if _, ok := qc.Snapshot(NewKey("idle")); ok {
		t.Error("idle entry should be evicted")
	}
	if _, ok := qc.Snapshot(NewKey("watched")); !ok {
		t.Error("subscribed entry must survive")
	}

	unsubscribe()
	clock.Advance(11 * time.Minute)
	if n := qc.Sweep(); n != 1 {
		t.Errorf("Sweep() after unsubscribe = %d, want 1", n)
	}
}

func TestRemove(t *testing.T) {
	qc := newTestClient(t)
	ctx := context.Background()
	key := NewKey("mentors")

	var calls atomic.Int32
	if _, err := qc.Fetch(ctx, key, valueFetcher(&calls, 1), freshOptions()); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if !qc.Remove(ctx, key) {
		t.Error("Remove() = false, want true")
	}
	if qc.Remove(ctx, key) {
		t.Error("second Remove() = true, want false")
	}
	if _, ok := qc.Snapshot(key); ok {
		t.Error("entry still present")
	}
}

func TestClose_CancelsInFlightFetches(t *testing.T) {
	qc := newTestClient(t)
	ctx := context.Background()
	key := NewKey("mentors")

	settled := make(chan Snapshot, 4)
	qc.Subscribe(key, func(s Snapshot) {
		if !s.IsFetching {
			settled <- s
		}
	})

	started := make(chan struct{})
	qc.Query(ctx, key, func(ctx context.Context) (any, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}, freshOptions())
	<-started

	qc.Close()

	select {
	case snap := <-settled:
		if snap.Status == StatusError {
			t.Errorf("cancelled fetch should be discarded, got error %v", snap.Err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("fetch was not cancelled")
	}

	if _, err := qc.Fetch(ctx, key, nil, freshOptions()); !errors.Is(err, ErrClosed) {
		t.Errorf("Fetch() after Close = %v, want ErrClosed", err)
	}
}

func TestHydrateFromStore(t *testing.T) {
	store, err := NewMemoryLevelDBStore()
	if err != nil {
		t.Fatalf("NewMemoryLevelDBStore() error = %v", err)
	}
	defer store.Close()

	cfg := DefaultConfig()
	cfg.Backoff = fastBackoff()
	cfg.Store = store

	ctx := context.Background()
	key := NewKey("galleryTags")
	opts := freshOptions()
	opts.Decode = func(data []byte) (any, error) {
		var tags []string
		err := json.Unmarshal(data, &tags)
		return tags, err
	}

	first := New(cfg, zerolog.Nop())
	var calls atomic.Int32
	if _, err := first.Fetch(ctx, key, valueFetcher(&calls, []string{"reunion", "sports"}), opts); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	first.Close()

	if _, err := store.Load(ctx, key.String()); err != nil {
		t.Fatalf("record not persisted: %v", err)
	}

	second := New(cfg, zerolog.Nop())
	defer second.Close()

	gate := make(chan struct{})
	defer close(gate)
	staleOpts := opts
	staleOpts.StaleTime = 0

	snap := second.Query(ctx, key, func(ctx context.Context) (any, error) {
		<-gate
		return []string{"fresh"}, nil
	}, staleOpts)

	if snap.Status != StatusSuccess || !snap.HasData {
		t.Fatalf("hydrated snapshot = %v hasData=%v", snap.Status, snap.HasData)
	}
	if !reflect.DeepEqual(snap.Data, []string{"reunion", "sports"}) {
		t.Errorf("hydrated Data = %v", snap.Data)
	}
	if !snap.IsStale || !snap.IsFetching {
		t.Errorf("hydrated data should be stale and refetching, stale=%v fetching=%v", snap.IsStale, snap.IsFetching)
	}
}

func TestAs(t *testing.T) {
	snap := Snapshot{
		Key:     NewKey("mentors"),
		Status:  StatusSuccess,
		Data:    []int{1, 2},
		HasData: true,
	}

	typed := As[[]int](snap)
	if !typed.HasData || len(typed.Data) != 2 || typed.Status != StatusSuccess {
		t.Errorf("As[[]int]() = %+v", typed)
	}

	wrong := As[string](snap)
	if wrong.HasData || wrong.Data != "" {
		t.Errorf("As[string]() = %+v, want no data", wrong)
	}

	empty := As[[]int](Snapshot{Status: StatusLoading})
	if empty.HasData || empty.Data != nil {
		t.Errorf("As() on loading = %+v", empty)
	}
}

func TestStatus_String(t *testing.T) {
	tests := map[Status]string{
		StatusIdle:    "idle",
		StatusLoading: "loading",
		StatusError:   "error",
		StatusSuccess: "success",
		Status(42):    "unknown",
	}
	for status, want := range tests {
		if got := status.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", int(status), got, want)
		}
	}
}
