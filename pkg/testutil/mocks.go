package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockUpstreamServer is a fake upstream JSON service serving one resource path.
type MockUpstreamServer struct {
	Server *httptest.Server

	mu         sync.RWMutex
	path       string
	body       []byte
	statusCode int
	delay      time.Duration
	requestLog []MockRequest
}

// MockRequest logs incoming requests
type MockRequest struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
	Timestamp     time.Time
}

// NewMockUpstreamServer serves body as JSON on path with status 200.
func NewMockUpstreamServer(path string, body interface{}) *MockUpstreamServer {
	m := &MockUpstreamServer{
		path:       path,
		statusCode: http.StatusOK,
	}
	m.SetBody(body)

	m.Server = httptest.NewServer(http.HandlerFunc(m.handleRequest))
	return m
}

func (m *MockUpstreamServer) handleRequest(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requestLog = append(m.requestLog, MockRequest{
		Method:        r.Method,
		Path:          r.URL.Path,
		Authorization: r.Header.Get("Authorization"),
		RequestID:     r.Header.Get("X-Request-ID"),
		Timestamp:     time.Now(),
	})
	path, body, status, delay := m.path, m.body, m.statusCode, m.delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if r.URL.Path != path {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// SetBody replaces the response body. Raw strings and byte slices are sent
// verbatim; anything else is JSON encoded.
func (m *MockUpstreamServer) SetBody(body interface{}) {
	var data []byte
	switch v := body.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		data, _ = json.Marshal(v)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.body = data
}

func (m *MockUpstreamServer) SetStatus(code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusCode = code
}

func (m *MockUpstreamServer) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

func (m *MockUpstreamServer) GetRequestLog() []MockRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]MockRequest, len(m.requestLog))
	copy(out, m.requestLog)
	return out
}

func (m *MockUpstreamServer) Hits() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requestLog)
}

func (m *MockUpstreamServer) Close() {
	m.Server.Close()
}

func (m *MockUpstreamServer) URL() string {
	return m.Server.URL
}

// RefusedURL returns the URL of a server that has been shut down, so
// connections to it are refused.
func RefusedURL() string {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}
