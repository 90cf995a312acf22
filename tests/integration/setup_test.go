//go:build integration

package integration

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"mediacheck/config"
	"mediacheck/internal/app"
)

// TestServerConfig configures how the test server is set up.
type TestServerConfig struct {
	// DBType is either "postgresql" or "mongodb"
	DBType string

	// AuditLogEnabled enables audit logging
	AuditLogEnabled bool

	// LogHeaders enables header logging in audit logs
	LogHeaders bool

	// OnlyAnalyze limits logging to POST /analyze
	OnlyAnalyze bool
}

// TestServerFixture holds test server resources.
type TestServerFixture struct {
	// ServerURL is the base URL of the test server
	ServerURL string

	// App is the running application
	App *app.App

	// Detector is the fake detection service
	Detector *MockDetectorServer

	// PgPool is the PostgreSQL connection pool (for DB assertions)
	PgPool *pgxpool.Pool

	// MongoDb is the MongoDB database (for DB assertions)
	MongoDb *mongo.Database

	// DBType is the configured database type
	DBType string

	cancelFunc context.CancelFunc
}

// SetupTestServer creates a test server with the specified configuration.
func SetupTestServer(t *testing.T, cfg TestServerConfig) *TestServerFixture {
	t.Helper()

	ctx, cancel := context.WithCancel(testCtx)

	detector := NewMockDetectorServer()

	port, err := findAvailablePort()
	require.NoError(t, err, "failed to find available port")

	backend := backendFor(t, cfg.DBType)
	appCfg := buildAppConfig(t, cfg, backend.storage, detector.URL(), port)

	application, err := app.New(ctx, app.Config{AppConfig: appCfg})
	require.NoError(t, err, "failed to create app")

	// Start server in background
	serverURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	go func() {
		_ = application.Start(appCfg.Server.Addr())
	}()

	err = waitForServer(serverURL + "/health")
	require.NoError(t, err, "server failed to become healthy")

	fixture := &TestServerFixture{
		ServerURL:  serverURL,
		App:        application,
		Detector:   detector,
		PgPool:     backend.Pool(),
		MongoDb:    backend.Database(),
		DBType:     cfg.DBType,
		cancelFunc: cancel,
	}

	t.Cleanup(func() { fixture.Shutdown(t) })
	return fixture
}

// FlushAndClose flushes all pending log entries and closes loggers.
// CRITICAL: Call this before making any DB assertions.
func (f *TestServerFixture) FlushAndClose(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if f.App != nil {
		err := f.App.Shutdown(ctx)
		require.NoError(t, err, "failed to shutdown app")
	}
}

// Shutdown gracefully shuts down the test server.
func (f *TestServerFixture) Shutdown(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if f.App != nil {
		_ = f.App.Shutdown(ctx)
	}

	if f.Detector != nil {
		f.Detector.Close()
	}

	if f.cancelFunc != nil {
		f.cancelFunc()
	}
}

// buildAppConfig creates an application config for testing.
func buildAppConfig(t *testing.T, cfg TestServerConfig, store config.StorageConfig, detectorURL string, port int) *config.Config {
	t.Helper()

	appCfg := &config.Config{
		Server: config.ServerConfig{
			Host:          "127.0.0.1",
			Port:          fmt.Sprintf("%d", port),
			BodySizeLimit: "10M",
			TempDir:       t.TempDir(),
		},
		Detector: config.DetectorConfig{
			APIKey:          "test-key",
			BaseURL:         detectorURL,
			PollInterval:    10 * time.Millisecond,
			MaxPollAttempts: 50,
		},
		Limits: config.LimitsConfig{
			ImageMB: 1,
			VideoMB: 2,
			AudioMB: 1,
		},
		Audit: config.AuditConfig{
			Enabled:       cfg.AuditLogEnabled,
			LogHeaders:    cfg.LogHeaders,
			OnlyAnalyze:   cfg.OnlyAnalyze,
			BufferSize:    100,
			FlushInterval: 1,
			RetentionDays: 0,
		},
		Storage: store,
	}

	return appCfg
}

// waitForServer waits for the server to become healthy.
func waitForServer(healthURL string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	for i := 0; i < 50; i++ {
		resp, err := client.Get(healthURL)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("server did not become healthy within timeout")
}

// findAvailablePort finds an available TCP port on loopback.
func findAvailablePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer func() { _ = listener.Close() }()
	return listener.Addr().(*net.TCPAddr).Port, nil
}

// MockDetectorServer fakes the remote detection service: presigned upload,
// object storage and result polling. Each job reports ANALYZING once before
// its verdict.
type MockDetectorServer struct {
	server  *httptest.Server
	uploads atomic.Int64
	polls   atomic.Int64
}

// NewMockDetectorServer creates a new fake detection service.
func NewMockDetectorServer() *MockDetectorServer {
	m := &MockDetectorServer{}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/files/aws-presigned", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-KEY") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Invalid API key"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"code":"ok","response":{"signedUrl":"%s/storage/object"},"requestId":"rd-req-1","mediaId":"rd-media-1"}`,
			m.server.URL)
	})

	mux.HandleFunc("PUT /storage/object", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		m.uploads.Add(1)
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("GET /api/media/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if m.polls.Add(1)%2 == 1 {
			_, _ = w.Write([]byte(`{"resultsSummary":{"status":"ANALYZING"}}`))
			return
		}
		_, _ = w.Write([]byte(`{
			"requestId": "` + r.PathValue("id") + `",
			"resultsSummary": {"status": "FAKE", "metadata": {"finalScore": 92.5}},
			"models": [
				{"name": "rd-img-ensemble", "status": "FAKE", "predictionNumber": 0.925},
				{"name": "rd-audio", "status": "NOT_APPLICABLE"}
			]
		}`))
	})

	m.server = httptest.NewServer(mux)
	return m
}

// URL returns the server URL.
func (m *MockDetectorServer) URL() string {
	return strings.TrimSuffix(m.server.URL, "/")
}

// Uploads returns how many files reached object storage.
func (m *MockDetectorServer) Uploads() int64 {
	return m.uploads.Load()
}

// Close shuts down the server.
func (m *MockDetectorServer) Close() {
	m.server.Close()
}
