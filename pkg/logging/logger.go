// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Production raises the floor to info and forces JSON output.
	// Debug events may carry request details that must not reach
	// production log sinks.
	Production bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:      LevelInfo,
		Pretty:     false,
		Production: true,
		Output:     os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	level := parseLevel(cfg.Level)
	if cfg.Production && level < zerolog.InfoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty && !cfg.Production {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()

	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Redact masks a secret for log output, keeping only a short prefix so
// that two values can still be told apart.
func Redact(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "[redacted]"
	}
	return secret[:4] + "…[redacted]"
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging (never enabled in production)
//   - Query cache decisions (hit, stale, dedup join, discarded arrival)
//   - Request flow (endpoint, request id)
//
// Info: Normal operation events
//   - Mutations that invalidated cached queries
//   - Gateway startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Retry attempts
//   - Persistence store errors (cache keeps working in memory)
//   - Throttling by the backend
//
// Error: Error conditions requiring attention
//   - Failed fetches (after retries)
//   - Circuit breaker opened
//   - Configuration errors
//
// Context Fields:
//   - endpoint: normalized backend path ("/mentorship/mentors/{id}/")
//   - status_code: HTTP status code
//   - duration: request duration
//   - error_class: client, server, rate_limit, network
//   - query_key: cache key ("mentors:expertise=Data Science")
//   - request_id: X-Request-ID sent to the backend
//
// Never log: request or response bodies, bearer tokens, e-mail addresses,
// raw query strings (they carry free-text search terms).
