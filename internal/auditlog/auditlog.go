// Package auditlog records request metadata for uploads handled by the
// service. Entries describe what was submitted and how the request ended;
// verdicts are never stored.
package auditlog

import (
	"context"
	"strings"
	"time"
)

// LogStore persists audit entries. Implementations must be safe for
// concurrent use.
type LogStore interface {
	// WriteBatch persists entries. Called from the Logger's flush loop.
	WriteBatch(ctx context.Context, entries []*LogEntry) error

	// DeleteBefore removes entries older than cutoff and reports how many
	// were removed.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)

	Flush(ctx context.Context) error
	Close() error
}

// LogEntry is one audited HTTP request.
type LogEntry struct {
	ID         string    `json:"id" bson:"_id"`
	Timestamp  time.Time `json:"timestamp" bson:"timestamp"`
	DurationNs int64     `json:"duration_ns" bson:"duration_ns"`

	RequestID  string `json:"request_id" bson:"request_id"`
	Method     string `json:"method" bson:"method"`
	Path       string `json:"path" bson:"path"`
	StatusCode int    `json:"status_code" bson:"status_code"`
	ClientIP   string `json:"client_ip,omitempty" bson:"client_ip,omitempty"`

	// Upload metadata, filled in by the analysis hooks
	FileType        string `json:"file_type,omitempty" bson:"file_type,omitempty"`
	FileSize        int64  `json:"file_size,omitempty" bson:"file_size,omitempty"`
	Digest          string `json:"digest,omitempty" bson:"digest,omitempty"`
	RemoteRequestID string `json:"remote_request_id,omitempty" bson:"remote_request_id,omitempty"`
	MediaID         string `json:"media_id,omitempty" bson:"media_id,omitempty"`
	ErrorType       string `json:"error_type,omitempty" bson:"error_type,omitempty"`

	Data *LogData `json:"data,omitempty" bson:"data,omitempty"`
}

// LogData holds the optional, free-form part of an entry.
type LogData struct {
	UserAgent      string            `json:"user_agent,omitempty" bson:"user_agent,omitempty"`
	ErrorMessage   string            `json:"error_message,omitempty" bson:"error_message,omitempty"`
	RequestHeaders map[string]string `json:"request_headers,omitempty" bson:"request_headers,omitempty"`
}

// RedactedHeaders lists header names whose values are never stored.
var RedactedHeaders = []string{
	"authorization",
	"x-api-key",
	"cookie",
	"set-cookie",
	"x-auth-token",
	"x-access-token",
	"proxy-authorization",
}

// RedactHeaders returns a copy of headers with sensitive values replaced by
// "[REDACTED]".
func RedactHeaders(headers map[string]string) map[string]string {
	if headers == nil {
		return nil
	}
	result := make(map[string]string, len(headers))
	for key, value := range headers {
		result[key] = value
		for _, name := range RedactedHeaders {
			if strings.EqualFold(key, name) {
				result[key] = "[REDACTED]"
				break
			}
		}
	}
	return result
}

// Config holds audit logging configuration.
type Config struct {
	Enabled bool

	// LogHeaders stores the (redacted) request headers with each entry
	LogHeaders bool

	// BufferSize is the capacity of the in-memory queue
	BufferSize int

	// FlushInterval is how often queued entries are written
	FlushInterval time.Duration

	// RetentionDays is how long entries are kept (0 = forever)
	RetentionDays int

	// CleanupSchedule is the cron spec for retention cleanup (default: @hourly)
	CleanupSchedule string

	// OnlyAnalyze restricts auditing to POST /analyze
	OnlyAnalyze bool
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		BufferSize:      1000,
		FlushInterval:   5 * time.Second,
		RetentionDays:   30,
		CleanupSchedule: "@hourly",
		OnlyAnalyze:     true,
	}
}
