package ratelimit

import (
	"net/http"
	"testing"
	"time"
)

func TestThrottleState_IsStale(t *testing.T) {
	tests := []struct {
		name     string
		state    *ThrottleState
		maxAge   time.Duration
		expected bool
	}{
		{
			name:     "fresh state",
			state:    &ThrottleState{LastUpdate: time.Now()},
			maxAge:   5 * time.Minute,
			expected: false,
		},
		{
			name:     "stale state",
			state:    &ThrottleState{LastUpdate: time.Now().Add(-10 * time.Minute)},
			maxAge:   5 * time.Minute,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsStale(tt.maxAge); got != tt.expected {
				t.Errorf("IsStale() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestThrottleState_IsBlocked(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		blockedUntil time.Time
		expected     bool
		expectedWait time.Duration
	}{
		{
			name:         "zero state",
			blockedUntil: time.Time{},
			expected:     false,
		},
		{
			name:         "window open",
			blockedUntil: now.Add(30 * time.Second),
			expected:     true,
			expectedWait: 30 * time.Second,
		},
		{
			name:         "window passed",
			blockedUntil: now.Add(-time.Second),
			expected:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &ThrottleState{BlockedUntil: tt.blockedUntil}
			if got := state.IsBlocked(now); got != tt.expected {
				t.Errorf("IsBlocked() = %v, want %v", got, tt.expected)
			}
			if got := state.TimeUntilReset(now); got != tt.expectedWait {
				t.Errorf("TimeUntilReset() = %v, want %v", got, tt.expectedWait)
			}
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		header   string
		wantWait time.Duration
		wantOK   bool
	}{
		{name: "missing", header: "", wantOK: false},
		{name: "seconds", header: "17", wantWait: 17 * time.Second, wantOK: true},
		{name: "negative", header: "-3", wantOK: false},
		{name: "http date", header: now.Add(2 * time.Minute).Format(http.TimeFormat), wantWait: 2 * time.Minute, wantOK: true},
		{name: "date in the past", header: now.Add(-time.Minute).Format(http.TimeFormat), wantWait: 0, wantOK: true},
		{name: "clamped", header: "86400", wantWait: MaxRetryAfter, wantOK: true},
		{name: "garbage", header: "soon", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := http.Header{}
			if tt.header != "" {
				headers.Set("Retry-After", tt.header)
			}
			wait, ok := ParseRetryAfter(headers, now)
			if ok != tt.wantOK {
				t.Fatalf("ParseRetryAfter() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && wait != tt.wantWait {
				t.Errorf("ParseRetryAfter() = %v, want %v", wait, tt.wantWait)
			}
		})
	}
}
