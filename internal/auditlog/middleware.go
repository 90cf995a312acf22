package auditlog

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"mediacheck/internal/core"
)

type contextKey string

// LogEntryKey is where the in-flight entry is kept, both in the echo
// context and in the request context.
const LogEntryKey contextKey = "auditlog_entry"

// AnalyzePath is the only path audited when Config.OnlyAnalyze is set.
const AnalyzePath = "/analyze"

// Middleware records one entry per request. The entry is available to
// handlers and analysis hooks for enrichment until the handler returns.
func Middleware(logger LoggerInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if logger == nil || !logger.Config().Enabled {
				return next(c)
			}
			cfg := logger.Config()
			req := c.Request()
			if cfg.OnlyAnalyze && req.URL.Path != AnalyzePath {
				return next(c)
			}

			start := time.Now()
			requestID := core.GetRequestID(req.Context())
			if requestID == "" {
				requestID = req.Header.Get("X-Request-ID")
			}

			entry := &LogEntry{
				ID:        uuid.NewString(),
				Timestamp: start,
				RequestID: requestID,
				Method:    req.Method,
				Path:      req.URL.Path,
				ClientIP:  c.RealIP(),
				Data: &LogData{
					UserAgent: req.UserAgent(),
				},
			}
			if cfg.LogHeaders {
				entry.Data.RequestHeaders = extractHeaders(req.Header)
			}

			c.Set(string(LogEntryKey), entry)
			c.SetRequest(req.WithContext(WithEntry(req.Context(), entry)))

			err := next(c)

			entry.DurationNs = time.Since(start).Nanoseconds()
			entry.StatusCode = responseStatus(c, err)
			logger.Write(entry)

			return err
		}
	}
}

// responseStatus is the status the client will see. Errors returned past
// this middleware are rendered later by echo's error handler.
func responseStatus(c echo.Context, err error) int {
	if err == nil || c.Response().Committed {
		return c.Response().Status
	}
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code
	}
	return http.StatusInternalServerError
}

func extractHeaders(headers http.Header) map[string]string {
	result := make(map[string]string, len(headers))
	for key, values := range headers {
		if len(values) > 0 {
			result[key] = values[0]
		}
	}
	return RedactHeaders(result)
}

// WithEntry stores entry in ctx.
func WithEntry(ctx context.Context, entry *LogEntry) context.Context {
	return context.WithValue(ctx, LogEntryKey, entry)
}

// EntryFromContext returns the in-flight entry, or nil when the request is
// not audited.
func EntryFromContext(ctx context.Context) *LogEntry {
	entry, _ := ctx.Value(LogEntryKey).(*LogEntry)
	return entry
}

// EnrichEntryWithError adds error information to the request's entry.
func EnrichEntryWithError(c echo.Context, errorType, errorMessage string) {
	entry, ok := c.Get(string(LogEntryKey)).(*LogEntry)
	if !ok || entry == nil {
		return
	}
	entry.ErrorType = errorType
	if entry.Data == nil {
		entry.Data = &LogData{}
	}
	entry.Data.ErrorMessage = errorMessage
}
