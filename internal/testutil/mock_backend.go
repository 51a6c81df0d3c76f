// Package testutil provides mock downstream services for gateway tests.
package testutil

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior of a mock backend endpoint.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockBackend is a configurable mock downstream service. Handlers are
// keyed by "METHOD /path"; unmatched requests get a 200 JSON stub.
type MockBackend struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	requestCount map[string]int
	lastRequest  *http.Request
	lastBody     []byte
}

// NewMockBackend creates a mock backend server.
func NewMockBackend() *MockBackend {
	mock := &MockBackend{
		handlers:     make(map[string]http.HandlerFunc),
		requestCount: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path

		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		mock.mu.Lock()
		mock.requestCount[key]++
		mock.lastRequest = r.Clone(r.Context())
		mock.lastBody = body
		handler, exists := mock.handlers[key]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))

	return mock
}

// URL returns the mock server's base URL.
func (m *MockBackend) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockBackend) Close() {
	m.server.Close()
}

// SetHandler installs a custom handler for "METHOD /path".
func (m *MockBackend) SetHandler(method, path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[method+" "+path] = handler
}

// SetResponse configures a fixed response for "METHOD /path".
func (m *MockBackend) SetResponse(method, path string, resp MockResponse) {
	m.SetHandler(method, path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			_, _ = w.Write([]byte(resp.Body))
		}
	})
}

// FailThenSucceed configures a path to fail with failStatus a number of
// times before returning 200 with body. Each call counts against the
// same sequence regardless of how the failures interleave with retries.
func (m *MockBackend) FailThenSucceed(method, path string, failures int, failStatus int, body string) {
	var mu sync.Mutex
	calls := 0
	m.SetHandler(method, path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if n <= failures {
			w.WriteHeader(failStatus)
			_, _ = w.Write([]byte(`{"error":"temporarily unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	})
}

// RequestCount returns how many requests hit "METHOD /path".
func (m *MockBackend) RequestCount(method, path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount[method+" "+path]
}

// TotalRequests returns the number of requests across all endpoints.
func (m *MockBackend) TotalRequests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, n := range m.requestCount {
		total += n
	}
	return total
}

// LastRequest returns the most recent request, or nil.
func (m *MockBackend) LastRequest() *http.Request {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRequest
}

// LastBody returns the body of the most recent request.
func (m *MockBackend) LastBody() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastBody
}
