package client

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

var breakerState = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "portal_breaker_state",
	Help: "Backend circuit breaker state (0 closed, 1 half-open, 2 open)",
})

// BreakerConfig holds configuration for the backend circuit breaker.
type BreakerConfig struct {
	Name string

	// MaxRequests allowed through while half-open.
	MaxRequests uint32

	// Interval after which closed-state counts are reset.
	Interval time.Duration

	// Timeout spent open before probing again.
	Timeout time.Duration

	// FailureThreshold is the failure ratio that trips the breaker once
	// MinRequests have been seen.
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns a default configuration for the circuit breaker.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "portal-backend",
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

func newBreaker(cfg BreakerConfig, logger zerolog.Logger) *gobreaker.CircuitBreaker {
	if cfg.Name == "" {
		cfg = DefaultBreakerConfig()
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			breakerState.Set(float64(to))
			event := logger.Warn()
			if to == gobreaker.StateOpen {
				event = logger.Error()
			}
			event.
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
		// A caller giving up is not a backend failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
}
