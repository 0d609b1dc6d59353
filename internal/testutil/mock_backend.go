// Package testutil provides testing utilities for the portal client.
package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock backend endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockBackend is a configurable mock portal REST backend for testing.
type MockBackend struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	counts   map[string]int

	// Tracking
	RequestCount      int
	LastRequestHeader http.Header
	LastRequestBody   []byte
	LastRawQuery      string
}

// NewMockBackend creates a new mock backend server.
func NewMockBackend() *MockBackend {
	mock := &MockBackend{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
		counts:   make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		mock.mu.Lock()
		mock.RequestCount++
		mock.counts[r.Method+" "+r.URL.Path]++
		mock.LastRequestHeader = r.Header.Clone()
		mock.LastRequestBody = body
		mock.LastRawQuery = r.URL.RawQuery
		handler, exists := mock.handlers[r.Method+" "+r.URL.Path]
		if !exists {
			handler, exists = mock.handlers[r.URL.Path]
		}
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail": "Not found."}`))
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockBackend) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockBackend) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockBackend) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.counts = make(map[string]int)
	m.LastRequestHeader = nil
	m.LastRequestBody = nil
	m.LastRawQuery = ""
}

// SetHandler sets a custom handler. route is either a path ("/gallery/tags/")
// matching every method or "METHOD /path".
func (m *MockBackend) SetHandler(route string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[route] = handler
}

// SetResponse configures a fixed response for a route.
func (m *MockBackend) SetResponse(route string, resp MockResponse) {
	m.SetHandler(route, responder(resp))
}

// SetSequence answers successive calls with the given responses; the last
// one repeats once the sequence is exhausted.
func (m *MockBackend) SetSequence(route string, resps ...MockResponse) {
	var mu sync.Mutex
	next := 0
	m.SetHandler(route, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		resp := resps[next]
		if next < len(resps)-1 {
			next++
		}
		mu.Unlock()
		responder(resp)(w, r)
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockBackend) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// CountFor returns the number of requests for "METHOD /path".
func (m *MockBackend) CountFor(route string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counts[route]
}

// LastHeader returns the headers of the last request.
func (m *MockBackend) LastHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader
}

// LastBody returns the body of the last request.
func (m *MockBackend) LastBody() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestBody
}

// LastQuery returns the raw query string of the last request.
func (m *MockBackend) LastQuery() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRawQuery
}

func responder(resp MockResponse) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-r.Context().Done():
				return
			}
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		if w.Header().Get("Content-Type") == "" && resp.Body != "" {
			w.Header().Set("Content-Type", "application/json")
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	}
}

// NewOKResponse creates a standard 200 OK JSON response.
func NewOKResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
	}
}

// NewCreatedResponse creates a 201 Created JSON response.
func NewCreatedResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusCreated,
		Body:       data,
	}
}

// NewThrottledResponse creates a 429 Too Many Requests response.
func NewThrottledResponse(retryAfter string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"detail": "Request was throttled."}`,
		Headers: map[string]string{
			"Retry-After": retryAfter,
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"status": 500, "message": "Error fetching gallery images: boom"}`,
	}
}

// NewBadRequestResponse creates a 400 response carrying serializer errors.
func NewBadRequestResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusBadRequest,
		Body:       body,
	}
}
