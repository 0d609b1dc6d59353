package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for throttle tracking.
var (
	throttledResponsesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_throttled_responses_total",
		Help: "Total number of 429 responses received from the backend",
	})

	throttleBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_throttle_blocks_total",
		Help: "Total number of requests held back locally while throttled",
	})
)

// Tracker monitors backend throttling and gates requests.
// Without Redis the state lives in process memory.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger

	mu    sync.Mutex
	local ThrottleState
	now   func() time.Time
}

// NewTracker creates a new throttle tracker. redisClient may be nil.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		logger: logger,
		now:    time.Now,
	}
}

// GetState returns the current throttle state.
func (t *Tracker) GetState(ctx context.Context) (*ThrottleState, error) {
	if t.redis == nil {
		t.mu.Lock()
		state := t.local
		t.mu.Unlock()
		return &state, nil
	}

	blockedMs, err := t.redis.Get(ctx, RedisKeyBlockedUntil).Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get blocked until: %w", err)
	}
	if err == redis.Nil {
		return &ThrottleState{}, nil
	}

	state := &ThrottleState{BlockedUntil: time.UnixMilli(blockedMs)}

	lastMs, err := t.redis.Get(ctx, RedisKeyLastUpdate).Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get last update: %w", err)
	}
	if err == nil {
		state.LastUpdate = time.UnixMilli(lastMs)
	}

	return state, nil
}

// UpdateFromResponse records a throttled response. Responses other than
// 429 are ignored.
func (t *Tracker) UpdateFromResponse(ctx context.Context, statusCode int, headers http.Header) error {
	if statusCode != http.StatusTooManyRequests {
		return nil
	}
	throttledResponsesTotal.Inc()

	now := t.now()
	wait, ok := ParseRetryAfter(headers, now)
	if !ok {
		wait = DefaultRetryAfter
	}

	state := ThrottleState{
		BlockedUntil: now.Add(wait),
		LastUpdate:   now,
	}

	if t.redis == nil {
		t.mu.Lock()
		if state.BlockedUntil.After(t.local.BlockedUntil) {
			t.local = state
		}
		t.mu.Unlock()
	} else if wait > 0 {
		// Keys expire with the window so a stale block can never linger.
		pipe := t.redis.Pipeline()
		pipe.Set(ctx, RedisKeyBlockedUntil, strconv.FormatInt(state.BlockedUntil.UnixMilli(), 10), wait)
		pipe.Set(ctx, RedisKeyLastUpdate, strconv.FormatInt(state.LastUpdate.UnixMilli(), 10), wait)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("store throttle state in redis: %w", err)
		}
	}

	t.logger.Warn().
		Dur("retry_after", wait).
		Time("blocked_until", state.BlockedUntil).
		Msg("Backend throttled requests")

	return nil
}

// ShouldAllowRequest reports whether a request may be sent now. When it
// may not, wait is the remaining throttle window.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (allowed bool, wait time.Duration, err error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, 0, fmt.Errorf("get throttle state: %w", err)
	}

	now := t.now()
	if state.IsBlocked(now) {
		wait = state.TimeUntilReset(now)
		t.logger.Debug().
			Dur("wait_duration", wait).
			Msg("Throttle window open - holding request back")
		throttleBlocksTotal.Inc()
		return false, wait, nil
	}

	return true, 0, nil
}
