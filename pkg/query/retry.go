package query

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

// ErrRetryExhausted wraps the last error once every attempt failed.
var ErrRetryExhausted = errors.New("retry attempts exhausted")

// BackoffConfig holds the backoff between retry attempts.
type BackoffConfig struct {
	// InitialBackoff is the wait before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the wait.
	MaxBackoff time.Duration

	// Multiplier grows the wait after each retry.
	Multiplier float64

	// Jitter is the relative randomization applied to each wait (0.2 = ±20%).
	Jitter float64
}

// DefaultBackoffConfig returns the default backoff: 1s, doubling, capped at 30s, ±20% jitter.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
		Jitter:         0.2,
	}
}

// retryable is implemented by errors that know whether a retry can help
// (client.APIError, client.NetworkError, validation and auth errors).
type retryable interface {
	Retryable() bool
}

// IsRetryable reports whether err may succeed on another attempt.
// Errors that don't say otherwise are retried; cancellation never is.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var r retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return true
}

// retryWithBackoff runs fn up to 1+retries times with exponential backoff.
// It respects context cancellation and adds jitter to prevent thundering herd.
func retryWithBackoff(ctx context.Context, cfg BackoffConfig, retries int, resource string, logger zerolog.Logger, fn Fetcher) (any, error) {
	maxAttempts := 1 + max(retries, 0)

	var lastErr error
	backoff := cfg.InitialBackoff

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Info().
					Str("resource", resource).
					Int("attempt", attempt).
					Msg("Fetch succeeded after retry")
			}
			return result, nil
		}

		lastErr = err

		if !IsRetryable(err) {
			return nil, err
		}

		// If this was the last attempt, don't wait
		if attempt >= maxAttempts {
			break
		}

		retriesTotal.WithLabelValues(resource).Inc()

		wait := applyJitter(backoff, cfg.Jitter)
		retryBackoffSeconds.WithLabelValues(resource).Observe(wait.Seconds())

		logger.Debug().
			Err(err).
			Str("resource", resource).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("Retrying fetch after backoff")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Warn().
				Str("resource", resource).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return nil, fmt.Errorf("retry aborted: %w", ctx.Err())
		case <-timer.C:
		}

		backoff = time.Duration(float64(backoff) * cfg.Multiplier)
		if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}

	if maxAttempts == 1 {
		return nil, lastErr
	}

	retryExhaustedTotal.WithLabelValues(resource).Inc()
	logger.Warn().
		Err(lastErr).
		Str("resource", resource).
		Int("max_attempts", maxAttempts).
		Msg("Retry attempts exhausted")

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, maxAttempts, lastErr)
}

func applyJitter(d time.Duration, jitter float64) time.Duration {
	if jitter <= 0 || d <= 0 {
		return d
	}
	factor := 1 - jitter + rand.Float64()*2*jitter
	return time.Duration(float64(d) * factor)
}
