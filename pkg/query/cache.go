package query

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// ErrClosed is returned by Fetch and Refetch after Close.
var ErrClosed = errors.New("query client closed")

// Config holds the query client configuration.
type Config struct {
	// GCTime is how long an entry without subscribers survives after its
	// last access before Sweep evicts it.
	GCTime time.Duration

	// SweepInterval is the janitor period used by Run.
	SweepInterval time.Duration

	// Backoff between retry attempts.
	Backoff BackoffConfig

	// Store persists successful results of queries that set Options.Decode. Optional.
	Store Store

	// RecordTTL bounds how long persisted records are used for hydration.
	RecordTTL time.Duration
}

// DefaultConfig returns the default query client configuration.
func DefaultConfig() Config {
	return Config{
		GCTime:        10 * time.Minute,
		SweepInterval: time.Minute,
		Backoff:       DefaultBackoffConfig(),
		RecordTTL:     DefaultRecordTTL,
	}
}

// Client is an in-memory query cache. It is safe for concurrent use.
//
// Every key has at most one current fetch in flight; callers asking for a
// key that is already being fetched share that fetch's result. Each fetch
// gets a sequence number and a completion is stored only if it is newer
// than the last stored one and was issued after the last invalidation.
type Client struct {
	mu      sync.Mutex
	entries map[string]*entry
	seq     uint64

	group  singleflight.Group
	cfg    Config
	logger zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	now    func() time.Time
}

// New creates a new query client.
func New(cfg Config, logger zerolog.Logger) *Client {
	defaults := DefaultConfig()
	if cfg.GCTime <= 0 {
		cfg.GCTime = defaults.GCTime
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaults.SweepInterval
	}
	if cfg.Backoff.Multiplier <= 0 {
		cfg.Backoff = defaults.Backoff
	}
	if cfg.RecordTTL <= 0 {
		cfg.RecordTTL = defaults.RecordTTL
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		entries: make(map[string]*entry),
		cfg:     cfg,
		logger:  logger.With().Str("component", "query").Logger(),
		ctx:     ctx,
		cancel:  cancel,
		now:     time.Now,
	}
}

type outcome struct {
	snap      Snapshot
	discarded bool
}

type notification struct {
	snap Snapshot
	fns  []func(Snapshot)
}

func (n notification) fire() {
	for _, fn := range n.fns {
		fn(n.snap)
	}
}

// Query returns the current snapshot of key without blocking. When the
// query is enabled and the entry is idle, invalidated or stale, a
// background fetch is started (or the running one is reused); subscribers
// are notified when it completes. Cancelling ctx does not cancel the fetch.
func (c *Client) Query(ctx context.Context, key Key, fetch Fetcher, opts Options) Snapshot {
	c.hydrate(ctx, key, opts)

	c.mu.Lock()
	now := c.now()
	e := c.touchLocked(key, opts, now)

	started := false
	if opts.Enabled && c.ctx.Err() == nil && c.shouldFetchLocked(e, now) {
		c.startLocked(ctx, e, fetch, opts)
		started = true
	}
	snap := e.snapshot(now)
	c.mu.Unlock()

	if !started && snap.Status == StatusSuccess && !snap.IsFetching {
		QueryHits.Inc()
	}
	return snap
}

// Fetch is like Query but waits for the fetch it starts or joins. The
// returned error is the entry's error when it ends in the error state,
// or ctx.Err() when the caller stops waiting.
func (c *Client) Fetch(ctx context.Context, key Key, fetch Fetcher, opts Options) (Snapshot, error) {
	return c.fetch(ctx, key, fetch, opts, false)
}

// Refetch forces a fetch even if the entry is fresh or frozen in the
// error state. A fetch already in flight for the key is joined instead.
func (c *Client) Refetch(ctx context.Context, key Key, fetch Fetcher, opts Options) (Snapshot, error) {
	return c.fetch(ctx, key, fetch, opts, true)
}

func (c *Client) fetch(ctx context.Context, key Key, fetch Fetcher, opts Options, force bool) (Snapshot, error) {
	c.hydrate(ctx, key, opts)

	for {
		if c.ctx.Err() != nil {
			return c.peek(key), ErrClosed
		}

		c.mu.Lock()
		now := c.now()
		e := c.touchLocked(key, opts, now)

		var ch <-chan singleflight.Result
		switch {
		case !opts.Enabled:
		case e.fetching && !e.superseded():
			// The flight key stays registered until run returns, and run
			// clears e.fetching under c.mu first, so this always joins.
			ch = c.group.DoChan(e.flight, func() (any, error) {
				return outcome{discarded: true}, nil
			})
		case force || c.shouldFetchLocked(e, now):
			ch = c.startLocked(ctx, e, fetch, opts)
		}
		snap := e.snapshot(now)
		c.mu.Unlock()

		if ch == nil {
			if snap.Status == StatusSuccess {
				QueryHits.Inc()
			}
			return snap, snapshotErr(snap)
		}

		select {
		case <-ctx.Done():
			return c.peek(key), ctx.Err()
		case res := <-ch:
			out, _ := res.Val.(outcome)
			if out.discarded {
				// Superseded by an invalidation or removal: wait for the
				// current fetch instead.
				force = false
				continue
			}
			return out.snap, snapshotErr(out.snap)
		}
	}
}

func snapshotErr(s Snapshot) error {
	if s.Status == StatusError {
		return s.Err
	}
	return nil
}

// Subscribe registers fn to be called with a snapshot on every transition
// of key: fetch start, completion and invalidation. Calls happen outside
// the cache lock; start and completion of one fetch are delivered in order
// on the fetch goroutine.
func (c *Client) Subscribe(key Key, fn func(Snapshot)) (unsubscribe func()) {
	c.mu.Lock()
	now := c.now()
	e := c.entryLocked(key, now)
	e.lastAccess = now
	id := e.nextSub
	e.nextSub++
	if e.subs == nil {
		e.subs = make(map[int]func(Snapshot))
	}
	e.subs[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if cur, ok := c.entries[key.String()]; ok && cur == e {
				delete(e.subs, id)
				e.lastAccess = c.now()
			}
		})
	}
}

// Invalidate marks matching entries stale; with no matchers every entry
// matches. The next read of an invalidated entry refetches it, and results
// of fetches issued before the invalidation are discarded on arrival.
// It returns the number of entries invalidated.
func (c *Client) Invalidate(matchers ...Matcher) int {
	c.mu.Lock()
	now := c.now()
	var fired []notification
	count := 0
	for _, e := range c.entries {
		if !matchAny(e.key, matchers) {
			continue
		}
		e.invalidated = true
		e.discardThrough = max(e.discardThrough, e.issued)
		count++
		if fns := e.listeners(); fns != nil {
			fired = append(fired, notification{snap: e.snapshot(now), fns: fns})
		}
	}
	c.mu.Unlock()

	if count > 0 {
		c.logger.Debug().Int("entries", count).Msg("Invalidated query entries")
	}
	for _, n := range fired {
		n.fire()
	}
	return count
}

func matchAny(k Key, matchers []Matcher) bool {
	if len(matchers) == 0 {
		return true
	}
	for _, m := range matchers {
		if m != nil && m(k) {
			return true
		}
	}
	return false
}

// Mutate runs fn once (plus opts.Retry retries) without de-duplication.
// On success the entries returned by opts.Invalidate are invalidated.
func (c *Client) Mutate(ctx context.Context, fn Fetcher, opts MutationOptions) (any, error) {
	result, err := retryWithBackoff(ctx, c.cfg.Backoff, opts.Retry, "mutation", c.logger, fn)
	if err != nil {
		MutationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	MutationsTotal.WithLabelValues("success").Inc()

	if opts.Invalidate != nil {
		if matchers := opts.Invalidate(result); len(matchers) > 0 {
			c.Invalidate(matchers...)
		}
	}
	return result, nil
}

// Snapshot returns the current state of key without touching it.
func (c *Client) Snapshot(key Key) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	if !ok {
		return Snapshot{Key: key}, false
	}
	return e.snapshot(c.now()), true
}

func (c *Client) peek(key Key) Snapshot {
	snap, _ := c.Snapshot(key)
	return snap
}

// Remove drops key from the cache and the store. An in-flight fetch for it
// completes but its result is discarded.
func (c *Client) Remove(ctx context.Context, key Key) bool {
	c.mu.Lock()
	ks := key.String()
	_, ok := c.entries[ks]
	delete(c.entries, ks)
	QueryEntries.Set(float64(len(c.entries)))
	c.mu.Unlock()

	if c.cfg.Store != nil {
		if err := c.cfg.Store.Delete(ctx, ks); err != nil {
			c.logger.Warn().Err(err).Str("key", ks).Msg("Failed to delete persisted query record")
		}
	}
	return ok
}

// Sweep evicts entries that have no subscribers, are not fetching and were
// last accessed more than GCTime ago. It returns the number evicted.
func (c *Client) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	evicted := 0
	for ks, e := range c.entries {
		if len(e.subs) > 0 || e.fetching {
			continue
		}
		if now.Sub(e.lastAccess) < c.cfg.GCTime {
			continue
		}
		delete(c.entries, ks)
		evicted++
	}
	QueryEntries.Set(float64(len(c.entries)))
	return evicted
}

// Run sweeps periodically until ctx is cancelled or the client is closed.
func (c *Client) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				c.logger.Debug().Int("evicted", n).Msg("Swept idle query entries")
			}
		}
	}
}

// Close cancels all in-flight fetches. Their results are discarded.
func (c *Client) Close() error {
	c.cancel()
	return nil
}

func (c *Client) entryLocked(key Key, now time.Time) *entry {
	ks := key.String()
	if e, ok := c.entries[ks]; ok {
		return e
	}
	e := &entry{
		key:        key,
		lastAccess: now,
		// Fetches issued for an earlier entry under this key never apply.
		discardThrough: c.seq,
	}
	c.entries[ks] = e
	QueryEntries.Set(float64(len(c.entries)))
	return e
}

func (c *Client) touchLocked(key Key, opts Options, now time.Time) *entry {
	e := c.entryLocked(key, now)
	e.lastAccess = now
	e.staleTime = opts.StaleTime
	e.errorRetryAfter = opts.ErrorRetryAfter
	return e
}

func (c *Client) shouldFetchLocked(e *entry, now time.Time) bool {
	if e.fetching && !e.superseded() {
		return false
	}
	if e.invalidated {
		return true
	}
	switch e.status {
	case StatusIdle, StatusLoading:
		return true
	case StatusError:
		// Frozen until Refetch or Invalidate unless the entry opted in.
		return e.errorRetryAfter > 0 && now.Sub(e.errorUpdatedAt) >= e.errorRetryAfter
	default:
		return now.Sub(e.updatedAt) >= e.staleTime
	}
}

// startLocked issues a new fetch for e and returns its result channel.
func (c *Client) startLocked(ctx context.Context, e *entry, fetch Fetcher, opts Options) <-chan singleflight.Result {
	c.seq++
	seq := c.seq
	e.issued = seq
	e.fetching = true
	e.flight = e.key.String() + "#" + strconv.FormatUint(seq, 10)
	if !e.hasData {
		e.status = StatusLoading
	}

	c.logger.Debug().
		Str("key", e.key.String()).
		Uint64("seq", seq).
		Msg("Starting fetch")

	key := e.key
	fctx := context.WithoutCancel(ctx)
	// DoChan runs fn on its own goroutine, so holding c.mu here is safe.
	return c.group.DoChan(e.flight, func() (any, error) {
		return c.run(fctx, key, seq, fetch, opts), nil
	})
}

func (c *Client) run(ctx context.Context, key Key, seq uint64, fetch Fetcher, opts Options) outcome {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.ctx, cancel)
	defer stop()

	c.announce(key, seq)
	data, err := retryWithBackoff(ctx, c.cfg.Backoff, opts.Retry, key.Resource, c.logger, fetch)
	return c.complete(ctx, key, seq, data, err, opts)
}

// announce notifies subscribers that the fetch seq started. It runs on the
// flight goroutine so the start is always seen before the completion.
func (c *Client) announce(key Key, seq uint64) {
	c.mu.Lock()
	e, ok := c.entries[key.String()]
	if !ok || e.issued != seq {
		c.mu.Unlock()
		return
	}
	n := notification{snap: e.snapshot(c.now()), fns: e.listeners()}
	c.mu.Unlock()
	n.fire()
}

func (c *Client) complete(ctx context.Context, key Key, seq uint64, data any, fetchErr error, opts Options) outcome {
	label := "success"
	if fetchErr != nil {
		label = "error"
	}
	QueryFetches.WithLabelValues(key.Resource, label).Inc()

	ks := key.String()
	c.mu.Lock()
	now := c.now()
	e, ok := c.entries[ks]
	if !ok {
		c.mu.Unlock()
		QueryDiscarded.Inc()
		return outcome{snap: Snapshot{Key: key}, discarded: true}
	}

	latest := seq == e.issued
	if latest {
		e.fetching = false
		e.flight = ""
	}

	if c.ctx.Err() != nil || seq <= e.discardThrough || seq <= e.appliedSeq {
		snap := e.snapshot(now)
		var n notification
		if latest {
			n = notification{snap: snap, fns: e.listeners()}
		}
		c.mu.Unlock()

		QueryDiscarded.Inc()
		c.logger.Debug().
			Str("key", ks).
			Uint64("seq", seq).
			Msg("Discarded superseded fetch result")
		n.fire()
		return outcome{snap: snap, discarded: true}
	}

	e.appliedSeq = seq
	e.fetchCount++
	e.invalidated = false

	var rec *Record
	if fetchErr == nil {
		e.status = StatusSuccess
		e.data = data
		e.hasData = true
		e.err = nil
		e.updatedAt = now
		if c.cfg.Store != nil && opts.Decode != nil {
			var err error
			if rec, err = newRecord(key, data, now, c.cfg.RecordTTL); err != nil {
				c.logger.Warn().Err(err).Str("key", ks).Msg("Failed to encode query record")
			}
		}
	} else {
		e.status = StatusError
		e.err = fetchErr
		e.errorUpdatedAt = now
		if opts.ClearOnError {
			e.data = nil
			e.hasData = false
		}
	}

	snap := e.snapshot(now)
	n := notification{snap: snap, fns: e.listeners()}
	c.mu.Unlock()

	if fetchErr != nil {
		c.logger.Warn().
			Err(fetchErr).
			Str("key", ks).
			Bool("kept_data", snap.HasData).
			Msg("Query fetch failed")
	}

	n.fire()

	if rec != nil {
		if err := c.cfg.Store.Save(ctx, rec); err != nil {
			c.logger.Warn().Err(err).Str("key", ks).Msg("Failed to persist query record")
		}
	}
	return outcome{snap: snap}
}

// hydrate seeds a new entry from the store. The record keeps its original
// fetch time, so old data is served as stale and refetched.
func (c *Client) hydrate(ctx context.Context, key Key, opts Options) {
	if c.cfg.Store == nil || opts.Decode == nil {
		return
	}

	ks := key.String()
	c.mu.Lock()
	_, exists := c.entries[ks]
	c.mu.Unlock()
	if exists {
		return
	}

	rec, err := c.cfg.Store.Load(ctx, ks)
	if err != nil {
		if !errors.Is(err, ErrRecordMiss) {
			c.logger.Warn().Err(err).Str("key", ks).Msg("Failed to load query record")
		}
		return
	}

	data, err := opts.Decode(rec.Data)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", ks).Msg("Failed to decode query record")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[ks]; exists {
		return
	}
	e := c.entryLocked(key, c.now())
	e.status = StatusSuccess
	e.data = data
	e.hasData = true
	e.updatedAt = rec.UpdatedAt
}
