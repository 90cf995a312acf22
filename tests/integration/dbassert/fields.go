//go:build integration

package dbassert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ExpectedAuditLog contains expected values for audit log assertions.
// Zero values are not checked, allowing partial matching.
type ExpectedAuditLog struct {
	StatusCode      int
	Method          string
	Path            string
	RequestID       string
	FileType        string
	FileSize        int64
	RemoteRequestID string
	MediaID         string
	ErrorType       string
}

// AssertAuditLogFieldCompleteness verifies that all required fields are populated.
func AssertAuditLogFieldCompleteness(t *testing.T, entry AuditLogEntry) {
	t.Helper()

	assert.NotEmpty(t, entry.ID, "audit log ID should not be empty")
	assert.False(t, entry.Timestamp.IsZero(), "audit log timestamp should not be zero")
	assert.NotZero(t, entry.StatusCode, "audit log status code should not be zero")
	assert.NotEmpty(t, entry.Method, "audit log method should not be empty")
	assert.NotEmpty(t, entry.Path, "audit log path should not be empty")
}

// AssertAuditLogMatches verifies that the actual entry matches expected values.
// Only non-zero expected values are checked.
func AssertAuditLogMatches(t *testing.T, expected ExpectedAuditLog, actual AuditLogEntry) {
	t.Helper()

	if expected.StatusCode != 0 {
		assert.Equal(t, expected.StatusCode, actual.StatusCode, "status code mismatch")
	}
	if expected.Method != "" {
		assert.Equal(t, expected.Method, actual.Method, "method mismatch")
	}
	if expected.Path != "" {
		assert.Equal(t, expected.Path, actual.Path, "path mismatch")
	}
	if expected.RequestID != "" {
		assert.Equal(t, expected.RequestID, actual.RequestID, "request ID mismatch")
	}
	if expected.FileType != "" {
		assert.Equal(t, expected.FileType, actual.FileType, "file type mismatch")
	}
	if expected.FileSize != 0 {
		assert.Equal(t, expected.FileSize, actual.FileSize, "file size mismatch")
	}
	if expected.RemoteRequestID != "" {
		assert.Equal(t, expected.RemoteRequestID, actual.RemoteRequestID, "remote request ID mismatch")
	}
	if expected.MediaID != "" {
		assert.Equal(t, expected.MediaID, actual.MediaID, "media ID mismatch")
	}
	if expected.ErrorType != "" {
		assert.Equal(t, expected.ErrorType, actual.ErrorType, "error type mismatch")
	}
}

// AssertAuditLogHasHeaders verifies that request headers are logged and
// credentials are redacted.
func AssertAuditLogHasHeaders(t *testing.T, entry AuditLogEntry) {
	t.Helper()
	require.NotNil(t, entry.Data, "audit log data should not be nil")
	require.NotNil(t, entry.Data.RequestHeaders, "expected request headers to be logged")

	for key, value := range entry.Data.RequestHeaders {
		if key == "Authorization" || key == "X-Api-Key" {
			assert.Equal(t, "[REDACTED]", value, "header %s should be redacted", key)
		}
	}
}

// AssertNoErrorType verifies that the entry has no error type set.
func AssertNoErrorType(t *testing.T, entry AuditLogEntry) {
	t.Helper()
	assert.Empty(t, entry.ErrorType, "expected no error type, got: %s", entry.ErrorType)
}

// AssertAuditLogDurationPositive verifies that the duration is positive.
func AssertAuditLogDurationPositive(t *testing.T, entry AuditLogEntry) {
	t.Helper()
	assert.Greater(t, entry.DurationNs, int64(0), "duration should be positive")
}

// AssertDigestPresent verifies that a staged upload left a content digest.
func AssertDigestPresent(t *testing.T, entry AuditLogEntry) {
	t.Helper()
	assert.NotEmpty(t, entry.Digest, "digest should be recorded for staged uploads")
}
