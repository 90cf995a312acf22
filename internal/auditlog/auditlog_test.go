package auditlog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediacheck/config"
	"mediacheck/internal/core"
	"mediacheck/internal/observability"
)

func TestRedactHeaders(t *testing.T) {
	headers := map[string]string{
		"Content-Type":  "multipart/form-data",
		"X-Api-Key":     "secret",
		"Authorization": "Bearer token",
		"Cookie":        "session=1",
	}

	redacted := RedactHeaders(headers)

	assert.Equal(t, "multipart/form-data", redacted["Content-Type"])
	assert.Equal(t, "[REDACTED]", redacted["X-Api-Key"])
	assert.Equal(t, "[REDACTED]", redacted["Authorization"])
	assert.Equal(t, "[REDACTED]", redacted["Cookie"])
	assert.Equal(t, "secret", headers["X-Api-Key"], "input must not be modified")
	assert.Nil(t, RedactHeaders(nil))
}

func TestLogEntryJSON(t *testing.T) {
	entry := &LogEntry{
		ID:        "id-1",
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		RequestID: "req-1",
		Method:    http.MethodPost,
		Path:      "/analyze",
		FileType:  "image",
		FileSize:  2048,
		Digest:    "abc",
	}

	data, err := json.Marshal(entry)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "image", decoded["file_type"])
	assert.Equal(t, float64(2048), decoded["file_size"])
	assert.NotContains(t, decoded, "media_id", "empty optional fields are omitted")
	assert.NotContains(t, decoded, "status", "verdicts are never part of an entry")
}

// mockStore implements LogStore for testing
type mockStore struct {
	mu      sync.Mutex
	entries []*LogEntry
	closed  bool
	cutoff  time.Time
}

func (m *mockStore) WriteBatch(_ context.Context, entries []*LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entries...)
	return nil
}

func (m *mockStore) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cutoff = cutoff
	return 3, nil
}

func (m *mockStore) Flush(_ context.Context) error {
	return nil
}

func (m *mockStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockStore) getEntries() []*LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*LogEntry(nil), m.entries...)
}

func TestLogger_FlushesOnInterval(t *testing.T) {
	store := &mockStore{}
	logger := NewLogger(store, Config{Enabled: true, BufferSize: 10, FlushInterval: 10 * time.Millisecond})
	defer logger.Close()

	logger.Write(&LogEntry{ID: "a"})
	logger.Write(&LogEntry{ID: "b"})
	logger.Write(nil)

	assert.Eventually(t, func() bool {
		return len(store.getEntries()) == 2
	}, time.Second, 5*time.Millisecond)
}

func TestLogger_CloseDrainsBuffer(t *testing.T) {
	store := &mockStore{}
	logger := NewLogger(store, Config{Enabled: true, BufferSize: 100, FlushInterval: time.Hour})

	for i := 0; i < 5; i++ {
		logger.Write(&LogEntry{ID: string(rune('a' + i))})
	}
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close(), "second close is a no-op")

	assert.Len(t, store.getEntries(), 5)
	assert.True(t, store.closed)
}

func TestLogger_DropsWhenFull(t *testing.T) {
	store := &mockStore{}
	logger := NewLogger(store, Config{Enabled: true, BufferSize: 1, FlushInterval: time.Hour})

	for i := 0; i < 1000; i++ {
		logger.Write(&LogEntry{ID: "x"})
	}
	require.NoError(t, logger.Close())

	assert.Less(t, len(store.getEntries()), 1000)
}

func TestNoopLogger(t *testing.T) {
	var logger LoggerInterface = NoopLogger{}
	logger.Write(&LogEntry{})
	assert.False(t, logger.Config().Enabled)
	assert.NoError(t, logger.Close())
}

// captureLogger records entries synchronously.
type captureLogger struct {
	cfg     Config
	entries []*LogEntry
}

func (c *captureLogger) Write(entry *LogEntry) { c.entries = append(c.entries, entry) }
func (c *captureLogger) Config() Config        { return c.cfg }
func (c *captureLogger) Close() error          { return nil }

func TestMiddleware(t *testing.T) {
	newEcho := func(logger LoggerInterface, handler echo.HandlerFunc) *echo.Echo {
		e := echo.New()
		e.Use(Middleware(logger))
		e.POST("/analyze", handler)
		e.GET("/health", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
		return e
	}

	t.Run("records analyze request enriched by hooks", func(t *testing.T) {
		logger := &captureLogger{cfg: Config{Enabled: true, OnlyAnalyze: true, LogHeaders: true}}
		e := newEcho(logger, func(c echo.Context) error {
			ctx := c.Request().Context()
			Hooks{}.OnStaged(ctx, observability.StagedEvent{FileType: core.FileTypeImage, Size: 42, Digest: "d1"})
			Hooks{}.OnFinished(ctx, observability.FinishedEvent{FileType: core.FileTypeImage, RequestID: "r1", MediaID: "m1"})
			return c.JSON(http.StatusOK, map[string]string{"status": "authentic"})
		})

		req := httptest.NewRequest(http.MethodPost, "/analyze", nil)
		req.Header.Set("X-Request-ID", "client-id")
		req.Header.Set("X-Api-Key", "secret")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		require.Len(t, logger.entries, 1)
		entry := logger.entries[0]
		assert.NotEmpty(t, entry.ID)
		assert.Equal(t, "client-id", entry.RequestID)
		assert.Equal(t, http.StatusOK, entry.StatusCode)
		assert.Equal(t, "image", entry.FileType)
		assert.Equal(t, int64(42), entry.FileSize)
		assert.Equal(t, "d1", entry.Digest)
		assert.Equal(t, "r1", entry.RemoteRequestID)
		assert.Equal(t, "m1", entry.MediaID)
		assert.Empty(t, entry.ErrorType)
		assert.Equal(t, "[REDACTED]", entry.Data.RequestHeaders["X-Api-Key"])
	})

	t.Run("records failures", func(t *testing.T) {
		logger := &captureLogger{cfg: Config{Enabled: true, OnlyAnalyze: true}}
		e := newEcho(logger, func(c echo.Context) error {
			Hooks{}.OnFinished(c.Request().Context(), observability.FinishedEvent{
				Err: core.NewValidationError("unsupported file type: .txt"),
			})
			EnrichEntryWithError(c, "validation_error", "unsupported file type: .txt")
			return c.JSON(http.StatusBadRequest, map[string]string{"detail": "unsupported file type: .txt"})
		})

		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/analyze", nil))

		require.Len(t, logger.entries, 1)
		assert.Equal(t, http.StatusBadRequest, logger.entries[0].StatusCode)
		assert.Equal(t, "validation_error", logger.entries[0].ErrorType)
		assert.Equal(t, "unsupported file type: .txt", logger.entries[0].Data.ErrorMessage)
	})

	t.Run("status from returned echo error", func(t *testing.T) {
		logger := &captureLogger{cfg: Config{Enabled: true}}
		e := newEcho(logger, func(c echo.Context) error {
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge)
		})

		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/analyze", nil))

		require.Len(t, logger.entries, 1)
		assert.Equal(t, http.StatusRequestEntityTooLarge, logger.entries[0].StatusCode)
	})

	t.Run("skips other paths when only analyze", func(t *testing.T) {
		logger := &captureLogger{cfg: Config{Enabled: true, OnlyAnalyze: true}}
		e := newEcho(logger, func(c echo.Context) error { return c.NoContent(http.StatusOK) })

		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Empty(t, logger.entries)
	})

	t.Run("disabled logger records nothing", func(t *testing.T) {
		logger := &captureLogger{cfg: Config{Enabled: false}}
		e := newEcho(logger, func(c echo.Context) error { return c.NoContent(http.StatusOK) })

		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/analyze", nil))
		assert.Empty(t, logger.entries)
	})
}

func TestHooks_WithoutEntry(t *testing.T) {
	assert.NotPanics(t, func() {
		Hooks{}.OnStaged(context.Background(), observability.StagedEvent{})
		Hooks{}.OnFinished(context.Background(), observability.FinishedEvent{Err: errors.New("x")})
	})
}

func TestRetention(t *testing.T) {
	store := &mockStore{}
	r, err := NewRetention(store, 7, "")
	require.NoError(t, err)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	deleted, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	assert.Equal(t, now.AddDate(0, 0, -7), store.cutoff)

	r.Start()
	r.Stop()
}

// blockingStore holds DeleteBefore until release is closed.
type blockingStore struct {
	mockStore
	started chan struct{}
	release chan struct{}
}

func (b *blockingStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	close(b.started)
	<-b.release
	return b.mockStore.DeleteBefore(ctx, cutoff)
}

func TestRetention_StopWaitsForInitialCleanup(t *testing.T) {
	store := &blockingStore{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	r, err := NewRetention(store, 7, "@daily")
	require.NoError(t, err)

	r.Start()
	select {
	case <-store.started:
	case <-time.After(2 * time.Second):
		t.Fatal("initial cleanup did not start")
	}

	stopped := make(chan struct{})
	go func() {
		r.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while the initial cleanup was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(store.release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the cleanup finished")
	}
}

func TestRetention_InvalidSchedule(t *testing.T) {
	_, err := NewRetention(&mockStore{}, 7, "every so often")
	assert.Error(t, err)
}

func TestRetention_Disabled(t *testing.T) {
	store := &mockStore{}
	r, err := NewRetention(store, 0, "@daily")
	require.NoError(t, err)

	deleted, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.True(t, store.cutoff.IsZero())
}

func TestNew_Disabled(t *testing.T) {
	result, err := New(context.Background(), &config.Config{})
	require.NoError(t, err)
	assert.IsType(t, NoopLogger{}, result.Logger)
	assert.Nil(t, result.Storage)
	assert.NoError(t, result.Close())
}

func TestNew_SQLite(t *testing.T) {
	cfg := &config.Config{
		Audit: config.AuditConfig{
			Enabled:       true,
			OnlyAnalyze:   true,
			RetentionDays: 1,
		},
		Storage: config.StorageConfig{
			Type:   "sqlite",
			SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "audit.db")},
		},
	}

	result, err := New(context.Background(), cfg)
	require.NoError(t, err)

	assert.IsType(t, &Logger{}, result.Logger)
	assert.True(t, result.Logger.Config().Enabled)
	assert.Equal(t, "@hourly", result.Logger.Config().CleanupSchedule)
	require.NotNil(t, result.Retention)
	require.NotNil(t, result.Storage)
	assert.Equal(t, "sqlite", result.Storage.Type())

	result.Logger.Write(&LogEntry{ID: "11111111-1111-1111-1111-111111111111", Timestamp: time.Now(), Path: "/analyze"})
	require.NoError(t, result.Close())
	require.NoError(t, result.Close())
}
