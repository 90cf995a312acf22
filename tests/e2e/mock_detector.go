//go:build e2e

package e2e

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// MockDetectorServer simulates the remote detection service.
// Every job answers 404 on its first poll, ANALYZING on the second and its
// verdict afterwards.
type MockDetectorServer struct {
	server        *httptest.Server
	mu            sync.Mutex
	requests      []RecordedRequest
	polls         map[string]int
	nextID        int
	responseDelay time.Duration
	result        string
	failNext      bool
	failWithCode  int
	failMessage   string
}

// RecordedRequest stores information about a received request.
type RecordedRequest struct {
	Method  string
	Path    string
	Headers http.Header
	Size    int
}

const defaultResult = `{
	"resultsSummary": {"status": "AUTHENTIC", "metadata": {"finalScore": 12}},
	"models": [
		{"name": "rd-img-ensemble", "status": "AUTHENTIC", "predictionNumber": 0.12},
		{"name": "rd-context", "status": "NOT_APPLICABLE"},
		{"status": "AUTHENTIC"}
	]
}`

// NewMockDetectorServer creates a new mock detection service.
func NewMockDetectorServer() *MockDetectorServer {
	m := &MockDetectorServer{
		polls:  make(map[string]int),
		result: defaultResult,
	}

	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		m.mu.Lock()
		m.requests = append(m.requests, RecordedRequest{
			Method:  r.Method,
			Path:    r.URL.Path,
			Headers: r.Header.Clone(),
			Size:    len(body),
		})

		if m.failNext && r.URL.Path == "/api/files/aws-presigned" {
			m.failNext = false
			code := m.failWithCode
			msg := m.failMessage
			m.mu.Unlock()
			w.WriteHeader(code)
			_, _ = fmt.Fprintf(w, `{"message": "%s"}`, msg)
			return
		}

		delay := m.responseDelay
		m.mu.Unlock()

		if delay > 0 {
			time.Sleep(delay)
		}

		m.handleRequest(w, r)
	}))

	return m
}

func (m *MockDetectorServer) handleRequest(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-API-KEY") == "" && r.URL.Path != "/storage/object" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message": "Missing API key"}`))
		return
	}

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/files/aws-presigned":
		m.mu.Lock()
		m.nextID++
		id := m.nextID
		m.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"code":"ok","response":{"signedUrl":"%s/storage/object"},"requestId":"rd-req-%d","mediaId":"rd-media-%d"}`,
			m.server.URL, id, id)

	case r.Method == http.MethodPut && r.URL.Path == "/storage/object":
		w.WriteHeader(http.StatusOK)

	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/media/users/"):
		id := strings.TrimPrefix(r.URL.Path, "/api/media/users/")
		m.mu.Lock()
		m.polls[id]++
		n := m.polls[id]
		result := m.result
		m.mu.Unlock()

		switch n {
		case 1:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message": "not found"}`))
		case 2:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"resultsSummary": {"status": "ANALYZING"}}`))
		default:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(result))
		}

	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message": "Not found"}`))
	}
}

// URL returns the mock server URL.
func (m *MockDetectorServer) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockDetectorServer) Close() {
	m.server.Close()
}

// SetResult replaces the verdict body returned for concluded jobs.
func (m *MockDetectorServer) SetResult(body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.result = body
}

// ResetResult restores the default verdict.
func (m *MockDetectorServer) ResetResult() {
	m.SetResult(defaultResult)
}

// FailNextUpload makes the next presign request fail.
func (m *MockDetectorServer) FailNextUpload(code int, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = true
	m.failWithCode = code
	m.failMessage = message
}

// Requests returns a copy of every recorded request.
func (m *MockDetectorServer) Requests() []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]RecordedRequest, len(m.requests))
	copy(result, m.requests)
	return result
}

// ResetRequests clears recorded requests.
func (m *MockDetectorServer) ResetRequests() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = m.requests[:0]
}
