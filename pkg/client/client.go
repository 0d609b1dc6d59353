// Package client provides the portal REST client: the single chokepoint for
// outbound HTTP calls to the backend, with throttle tracking, a circuit
// breaker and error normalization. It never retries; retry policy belongs
// to the caller (see pkg/query).
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/alumni-portal-client/pkg/ratelimit"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// Prometheus metrics for backend requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_requests_total",
		Help: "Total backend requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portal_request_duration_seconds",
		Help:    "Backend request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_errors_total",
		Help: "Total backend errors by class",
	}, []string{"class"})
)

// ErrorClass represents a classification of HTTP errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 throttling.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// Default per-method timeouts.
const (
	DefaultReadTimeout  = 10 * time.Second
	DefaultWriteTimeout = 15 * time.Second
)

// errServerStatus marks 5xx responses as failures for the circuit breaker.
var errServerStatus = errors.New("server error status")

// Client is the portal backend client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	throttle   *ratelimit.Tracker
	breaker    *gobreaker.CircuitBreaker
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the single origin for all API calls, e.g. "https://portal.example.org/api".
	BaseURL string

	// UserAgent header sent with every request.
	UserAgent string

	// ReadTimeout applies to GET requests, WriteTimeout to POST/PUT/DELETE.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// SendAuthorization attaches "Authorization: Bearer <token>" when a
	// request carries a session token.
	SendAuthorization bool

	// Redis shares throttle state between processes. Optional.
	Redis *redis.Client

	// Breaker configures the circuit breaker around the transport.
	Breaker BreakerConfig
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL, userAgent string) Config {
	return Config{
		BaseURL:           baseURL,
		UserAgent:         userAgent,
		ReadTimeout:       DefaultReadTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		SendAuthorization: true,
		Breaker:           DefaultBreakerConfig(),
	}
}

// New creates a new backend client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url must be absolute (got %q)", cfg.BaseURL)
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.ReadTimeout <= 0 || cfg.WriteTimeout <= 0 {
		return nil, fmt.Errorf("timeouts must be positive")
	}

	logger := log.With().Str("component", "portal-client").Logger()

	return &Client{
		// Per-request deadlines come from the context; this is only a backstop.
		httpClient: &http.Client{
			Timeout: 2 * cfg.WriteTimeout,
		},
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		throttle: ratelimit.NewTracker(cfg.Redis, logger),
		breaker:  newBreaker(cfg.Breaker, logger),
		config:   cfg,
		logger:   logger,
	}, nil
}

// Request describes one backend call.
type Request struct {
	Method string
	// Path is relative to the base URL, e.g. "/mentorship/mentors/".
	Path  string
	Query url.Values
	// Body is JSON-encoded when non-nil.
	Body any
	// Timeout overrides the per-method default.
	Timeout time.Duration
	// Token is the session access token; empty for anonymous calls.
	Token string
}

type rawResponse struct {
	status int
	header http.Header
	body   []byte
}

// Do performs a request and returns the response body of a 2xx reply.
// Failures are *APIError (structured non-2xx reply) or *NetworkError.
func (c *Client) Do(ctx context.Context, r Request) ([]byte, error) {
	method := strings.ToUpper(r.Method)
	if method == "" {
		method = http.MethodGet
	}
	endpoint := normalizeEndpoint(r.Path)

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	allowed, wait, err := c.throttle.ShouldAllowRequest(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Throttle check failed, sending request anyway")
	} else if !allowed {
		requestsTotal.WithLabelValues(endpoint, "throttled").Inc()
		errorsTotal.WithLabelValues(string(ErrorClassRateLimit)).Inc()
		return nil, &APIError{
			StatusCode: http.StatusTooManyRequests,
			ErrorClass: ErrorClassRateLimit,
			Method:     method,
			Endpoint:   endpoint,
			Payload: ErrorPayload{
				"detail": fmt.Sprintf("Request was throttled. Expected available in %d seconds.", int(wait.Round(time.Second).Seconds())),
			},
			Err: ErrThrottled,
		}
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = c.timeoutFor(method)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := c.newHTTPRequest(ctx, method, r)
	if err != nil {
		return nil, err
	}
	requestID := httpReq.Header.Get("X-Request-ID")

	c.logger.Debug().
		Str("method", method).
		Str("endpoint", endpoint).
		Str("request_id", requestID).
		Msg("Executing backend request")

	out, err := c.breaker.Execute(func() (any, error) {
		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}

		raw := &rawResponse{status: resp.StatusCode, header: resp.Header, body: body}
		if resp.StatusCode >= 500 {
			return raw, errServerStatus
		}
		return raw, nil
	})

	raw, _ := out.(*rawResponse)
	if err != nil && raw == nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Warn().
			Err(err).
			Str("method", method).
			Str("endpoint", endpoint).
			Str("request_id", requestID).
			Msg("Backend request failed without response")
		return nil, &NetworkError{
			Method:   method,
			Endpoint: endpoint,
			Timeout:  isTimeout(err),
			Err:      err,
		}
	}

	if err := c.throttle.UpdateFromResponse(ctx, raw.status, raw.header); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to record throttle state")
	}

	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(raw.status)).Inc()

	if raw.status < 200 || raw.status >= 300 {
		errClass := c.classifyError(raw.status, nil)
		errorsTotal.WithLabelValues(string(errClass)).Inc()

		c.logger.Warn().
			Str("method", method).
			Str("endpoint", endpoint).
			Int("status_code", raw.status).
			Str("error_class", string(errClass)).
			Str("request_id", requestID).
			Msg("Backend request error")

		return nil, &APIError{
			StatusCode: raw.status,
			ErrorClass: errClass,
			Method:     method,
			Endpoint:   endpoint,
			Payload:    parsePayload(raw.body),
		}
	}

	return raw.body, nil
}

func (c *Client) newHTTPRequest(ctx context.Context, method string, r Request) (*http.Request, error) {
	if strings.Contains(r.Path, "://") {
		return nil, fmt.Errorf("%w: path must be relative to the base url", ErrInvalidRequest)
	}

	target := c.baseURL + "/" + strings.TrimLeft(r.Path, "/")
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}

	var body io.Reader
	if r.Body != nil {
		data, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: encode body: %v", ErrInvalidRequest, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.Token != "" && c.config.SendAuthorization {
		req.Header.Set("Authorization", "Bearer "+r.Token)
	}

	return req, nil
}

func (c *Client) timeoutFor(method string) time.Duration {
	if method == http.MethodGet || method == http.MethodHead {
		return c.config.ReadTimeout
	}
	return c.config.WriteTimeout
}

// classifyError categorizes an error for observability and handling.
func (c *Client) classifyError(statusCode int, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}

	switch {
	case statusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case statusCode >= 400 && statusCode < 500:
		return ErrorClassClient
	case statusCode >= 500:
		return ErrorClassServer
	default:
		// Unexpected 1xx/3xx: nothing usable came back.
		return ErrorClassClient
	}
}

// GetJSON performs a GET and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, token string, out any) error {
	body, err := c.Do(ctx, Request{
		Method: http.MethodGet,
		Path:   path,
		Query:  query,
		Token:  token,
	})
	if err != nil {
		return err
	}
	return decodeInto(body, out)
}

// SendJSON performs a write request with a JSON body and decodes the
// reply into out (which may be nil).
func (c *Client) SendJSON(ctx context.Context, method, path string, payload any, token string, out any) error {
	body, err := c.Do(ctx, Request{
		Method: method,
		Path:   path,
		Body:   payload,
		Token:  token,
	})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return decodeInto(body, out)
}

func decodeInto(body []byte, out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// BreakerState returns the current circuit breaker state.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// normalizeEndpoint collapses numeric path segments so metric labels stay bounded.
func normalizeEndpoint(path string) string {
	if path == "" {
		return "/"
	}
	segments := strings.Split(path, "/")
	for i, s := range segments {
		if s == "" {
			continue
		}
		if _, err := strconv.ParseInt(s, 10, 64); err == nil {
			segments[i] = "{id}"
		}
	}
	out := strings.Join(segments, "/")
	if !strings.HasPrefix(out, "/") {
		out = "/" + out
	}
	return out
}
