//go:build integration

// Package dbassert provides database assertion helpers for integration tests.
// It supports querying and validating audit logs in PostgreSQL and MongoDB.
package dbassert

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"mediacheck/internal/auditlog"
)

// AuditLogEntry mirrors auditlog.LogEntry for test assertions.
// We use a separate type to avoid coupling tests to internal implementation details.
type AuditLogEntry struct {
	ID              string
	Timestamp       time.Time
	DurationNs      int64
	RequestID       string
	Method          string
	Path            string
	StatusCode      int
	ClientIP        string
	FileType        string
	FileSize        int64
	Digest          string
	RemoteRequestID string
	MediaID         string
	ErrorType       string
	Data            *auditlog.LogData
}

// QueryAuditLogsByRequestID queries audit logs by request ID from PostgreSQL.
func QueryAuditLogsByRequestID(t *testing.T, pool *pgxpool.Pool, requestID string) []AuditLogEntry {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	query := `
		SELECT id::text, timestamp, duration_ns, request_id, method, path, status_code,
		       client_ip, file_type, file_size, digest, remote_request_id, media_id, error_type, data
		FROM audit_logs
		WHERE request_id = $1
		ORDER BY timestamp ASC
	`

	rows, err := pool.Query(ctx, query, requestID)
	require.NoError(t, err, "failed to query audit logs")
	defer rows.Close()

	var entries []AuditLogEntry
	for rows.Next() {
		var entry AuditLogEntry
		var dataJSON []byte
		err := rows.Scan(
			&entry.ID, &entry.Timestamp, &entry.DurationNs,
			&entry.RequestID, &entry.Method, &entry.Path, &entry.StatusCode,
			&entry.ClientIP, &entry.FileType, &entry.FileSize, &entry.Digest,
			&entry.RemoteRequestID, &entry.MediaID, &entry.ErrorType, &dataJSON,
		)
		require.NoError(t, err, "failed to scan audit log row")

		if dataJSON != nil {
			var data auditlog.LogData
			require.NoError(t, json.Unmarshal(dataJSON, &data), "failed to unmarshal audit log data")
			entry.Data = &data
		}
		entries = append(entries, entry)
	}
	require.NoError(t, rows.Err(), "error iterating audit log rows")

	return entries
}

// CountAuditLogs returns the number of rows in the PostgreSQL audit_logs table.
func CountAuditLogs(t *testing.T, pool *pgxpool.Pool) int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var n int
	require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM audit_logs").Scan(&n))
	return n
}

// QueryAuditLogsByRequestIDMongo queries audit logs by request ID from MongoDB.
func QueryAuditLogsByRequestIDMongo(t *testing.T, db *mongo.Database, requestID string) []AuditLogEntry {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	collection := db.Collection("audit_logs")
	filter := bson.M{"request_id": requestID}

	cursor, err := collection.Find(ctx, filter)
	require.NoError(t, err, "failed to query audit logs from MongoDB")
	defer cursor.Close(ctx)

	var entries []AuditLogEntry
	for cursor.Next(ctx) {
		var doc auditlog.LogEntry
		require.NoError(t, cursor.Decode(&doc), "failed to decode audit log document")
		entries = append(entries, fromLogEntry(doc))
	}
	require.NoError(t, cursor.Err(), "error iterating audit log cursor")

	return entries
}

// ClearAuditLogs deletes all audit log entries from PostgreSQL.
func ClearAuditLogs(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := pool.Exec(ctx, "DELETE FROM audit_logs")
	require.NoError(t, err, "failed to clear audit logs")
}

// ClearAuditLogsMongo deletes all audit log documents from MongoDB.
func ClearAuditLogsMongo(t *testing.T, db *mongo.Database) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := db.Collection("audit_logs").DeleteMany(ctx, bson.M{})
	require.NoError(t, err, "failed to clear audit logs")
}

func fromLogEntry(e auditlog.LogEntry) AuditLogEntry {
	return AuditLogEntry{
		ID:              e.ID,
		Timestamp:       e.Timestamp,
		DurationNs:      e.DurationNs,
		RequestID:       e.RequestID,
		Method:          e.Method,
		Path:            e.Path,
		StatusCode:      e.StatusCode,
		ClientIP:        e.ClientIP,
		FileType:        e.FileType,
		FileSize:        e.FileSize,
		Digest:          e.Digest,
		RemoteRequestID: e.RemoteRequestID,
		MediaID:         e.MediaID,
		ErrorType:       e.ErrorType,
		Data:            e.Data,
	}
}
