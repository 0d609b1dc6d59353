// Package ratelimit tracks backend throttling and gates outbound requests.
// The portal backend answers 429 Too Many Requests with a Retry-After
// header once a client exceeds its request budget; until that deadline
// passes every further request would be rejected as well.
package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Redis keys for throttle state storage.
const (
	RedisKeyBlockedUntil = "portal:throttle:blocked_until"
	RedisKeyLastUpdate   = "portal:throttle:last_update"
)

// Throttle window bounds.
const (
	// DefaultRetryAfter applies when a 429 carries no usable Retry-After header.
	DefaultRetryAfter = 5 * time.Second

	// MaxRetryAfter caps the window so a bogus header cannot stall the client.
	MaxRetryAfter = 5 * time.Minute
)

// ThrottleState represents the current backend throttle state.
// With a Redis client configured it is shared across all client instances.
type ThrottleState struct {
	// BlockedUntil is the instant until which requests must not be sent.
	// Zero when not throttled.
	BlockedUntil time.Time `json:"blocked_until"`

	// LastUpdate is the timestamp when this state was last updated.
	LastUpdate time.Time `json:"last_update"`
}

// IsStale returns true if the state data is older than the given duration.
func (s *ThrottleState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// IsBlocked returns true if requests must be held back at now.
func (s *ThrottleState) IsBlocked(now time.Time) bool {
	return !s.BlockedUntil.IsZero() && now.Before(s.BlockedUntil)
}

// TimeUntilReset returns the duration until requests are allowed again.
// Returns 0 if the window has already passed.
func (s *ThrottleState) TimeUntilReset(now time.Time) time.Duration {
	d := s.BlockedUntil.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// ParseRetryAfter reads the Retry-After header, which is either a number
// of seconds or an HTTP date. The result is clamped to MaxRetryAfter.
// ok is false when the header is missing or unparseable.
func ParseRetryAfter(headers http.Header, now time.Time) (time.Duration, bool) {
	raw := strings.TrimSpace(headers.Get("Retry-After"))
	if raw == "" {
		return 0, false
	}

	var wait time.Duration
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs < 0 {
			return 0, false
		}
		wait = time.Duration(secs) * time.Second
	} else if at, err := http.ParseTime(raw); err == nil {
		wait = at.Sub(now)
		if wait < 0 {
			wait = 0
		}
	} else {
		return 0, false
	}

	if wait > MaxRetryAfter {
		wait = MaxRetryAfter
	}
	return wait, true
}
