package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Common errors returned by the client.
var (
	// ErrThrottled is wrapped by APIErrors produced locally while the
	// backend's Retry-After window is still open.
	ErrThrottled = errors.New("request throttled")

	// ErrInvalidRequest is returned for requests that cannot be built.
	ErrInvalidRequest = errors.New("invalid request")
)

// ErrorPayload is the structured error body returned by the backend,
// e.g. {"error": "Mentor has reached maximum capacity"} or a field map
// {"goals": ["This field is required."]}.
type ErrorPayload map[string]any

// GenericErrorPayload is used when the backend returned nothing parseable.
func GenericErrorPayload() ErrorPayload {
	return ErrorPayload{"detail": "Network Error"}
}

// Message extracts a human-readable message from the payload.
func (p ErrorPayload) Message() string {
	for _, key := range []string{"error", "detail", "message"} {
		if v, ok := p[key].(string); ok && v != "" {
			return v
		}
	}
	if len(p) == 0 {
		return ""
	}
	// Field errors: pick the first field deterministically.
	fields := p.FieldErrors()
	if len(fields) == 0 {
		return ""
	}
	keys := sortedKeys(fields)
	return fmt.Sprintf("%s: %s", keys[0], fields[keys[0]])
}

// FieldErrors flattens serializer-style field errors into one message per field.
func (p ErrorPayload) FieldErrors() map[string]string {
	out := make(map[string]string)
	for k, v := range p {
		switch val := v.(type) {
		case []any:
			msgs := make([]string, 0, len(val))
			for _, m := range val {
				if s, ok := m.(string); ok {
					msgs = append(msgs, s)
				}
			}
			if len(msgs) > 0 {
				out[k] = strings.Join(msgs, " ")
			}
		case string:
			if k != "error" && k != "detail" && k != "message" {
				out[k] = val
			}
		}
	}
	return out
}

// parsePayload decodes an error body, falling back to the generic shape.
func parsePayload(body []byte) ErrorPayload {
	if len(body) == 0 {
		return GenericErrorPayload()
	}
	var payload ErrorPayload
	if err := json.Unmarshal(body, &payload); err == nil && payload != nil {
		return payload
	}
	// DRF raises a bare ValidationError("msg") as ["msg"].
	var list []any
	if err := json.Unmarshal(body, &list); err == nil {
		msgs := make([]string, 0, len(list))
		for _, m := range list {
			if s, ok := m.(string); ok && s != "" {
				msgs = append(msgs, s)
			}
		}
		if len(msgs) > 0 {
			return ErrorPayload{"detail": strings.Join(msgs, " ")}
		}
	}
	return GenericErrorPayload()
}

// APIError is a structured 4xx/5xx response from the backend.
type APIError struct {
	StatusCode int
	ErrorClass ErrorClass
	Method     string
	Endpoint   string
	Payload    ErrorPayload
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := e.Payload.Message()
	if msg == "" {
		msg = "request failed"
	}
	if e.Err != nil {
		return fmt.Sprintf("api %s error (status %d) %s %s: %s: %v",
			e.ErrorClass, e.StatusCode, e.Method, e.Endpoint, msg, e.Err)
	}
	return fmt.Sprintf("api %s error (status %d) %s %s: %s",
		e.ErrorClass, e.StatusCode, e.Method, e.Endpoint, msg)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Retryable reports whether a caller may retry the request.
func (e *APIError) Retryable() bool {
	return shouldRetry(e.ErrorClass)
}

// NetworkError means no usable response arrived: dial failure, timeout,
// open circuit breaker.
type NetworkError struct {
	Method   string
	Endpoint string
	Timeout  bool
	Err      error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("network error %s %s: timeout: %v", e.Method, e.Endpoint, e.Err)
	}
	return fmt.Sprintf("network error %s %s: %v", e.Method, e.Endpoint, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Retryable reports whether a caller may retry the request.
func (e *NetworkError) Retryable() bool {
	return true
}

// UserMessage returns the text a page should show for err.
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if msg := apiErr.Payload.Message(); msg != "" {
			return msg
		}
		return "Request failed"
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return "Network Error"
	}
	return ""
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassClient:
		// 4xx won't change on retry
		return false
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		return false
	}
}
