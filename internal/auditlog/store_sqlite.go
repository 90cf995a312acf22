package auditlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// SQLite binds at most 999 parameters per statement.
const (
	maxSQLiteParams    = 999
	columnsPerEntry    = 15
	maxEntriesPerBatch = maxSQLiteParams / columnsPerEntry
)

// sqliteTimeFormat is fixed width so stored timestamps order correctly as text.
const sqliteTimeFormat = "2006-01-02T15:04:05.000000000Z"

const sqliteInsertColumns = `id, timestamp, duration_ns, request_id, method, path, status_code, client_ip,
	file_type, file_size, digest, remote_request_id, media_id, error_type, data`

// SQLiteStore implements LogStore for SQLite databases.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates the audit_logs table and its indexes if needed.
// The connection is owned by the caller.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_logs (
			id TEXT PRIMARY KEY,
			timestamp DATETIME NOT NULL,
			duration_ns INTEGER DEFAULT 0,
			request_id TEXT,
			method TEXT,
			path TEXT,
			status_code INTEGER DEFAULT 0,
			client_ip TEXT,
			file_type TEXT,
			file_size INTEGER DEFAULT 0,
			digest TEXT,
			remote_request_id TEXT,
			media_id TEXT,
			error_type TEXT,
			data JSON
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit_logs table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_logs(timestamp)",
		"CREATE INDEX IF NOT EXISTS idx_audit_request_id ON audit_logs(request_id)",
		"CREATE INDEX IF NOT EXISTS idx_audit_file_type ON audit_logs(file_type)",
		"CREATE INDEX IF NOT EXISTS idx_audit_digest ON audit_logs(digest)",
		"CREATE INDEX IF NOT EXISTS idx_audit_error_type ON audit_logs(error_type)",
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			slog.Warn("failed to create index", "error", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// WriteBatch inserts entries, chunked to stay under the parameter limit.
// Duplicate IDs are ignored.
func (s *SQLiteStore) WriteBatch(ctx context.Context, entries []*LogEntry) error {
	for i := 0; i < len(entries); i += maxEntriesPerBatch {
		chunk := entries[i:min(i+maxEntriesPerBatch, len(entries))]

		placeholders := make([]string, len(chunk))
		values := make([]interface{}, 0, len(chunk)*columnsPerEntry)
		for j, e := range chunk {
			placeholders[j] = "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
			values = append(values,
				e.ID,
				e.Timestamp.UTC().Format(sqliteTimeFormat),
				e.DurationNs,
				e.RequestID,
				e.Method,
				e.Path,
				e.StatusCode,
				e.ClientIP,
				e.FileType,
				e.FileSize,
				e.Digest,
				e.RemoteRequestID,
				e.MediaID,
				e.ErrorType,
				marshalData(e),
			)
		}

		query := `INSERT OR IGNORE INTO audit_logs (` + sqliteInsertColumns + `) VALUES ` +
			strings.Join(placeholders, ",")
		if _, err := s.db.ExecContext(ctx, query, values...); err != nil {
			return fmt.Errorf("failed to insert audit logs batch %d: %w", i/maxEntriesPerBatch, err)
		}
	}
	return nil
}

// DeleteBefore removes entries whose timestamp is before cutoff.
func (s *SQLiteStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM audit_logs WHERE timestamp < ?",
		cutoff.UTC().Format(sqliteTimeFormat))
	if err != nil {
		return 0, fmt.Errorf("failed to delete old audit logs: %w", err)
	}
	return result.RowsAffected()
}

// Flush is a no-op: writes are synchronous.
func (s *SQLiteStore) Flush(_ context.Context) error {
	return nil
}

// Close is a no-op: the connection belongs to the storage layer.
func (s *SQLiteStore) Close() error {
	return nil
}

// marshalData returns the JSON form of e.Data, or nil (SQL NULL) when there
// is none.
func marshalData(e *LogEntry) interface{} {
	if e.Data == nil {
		return nil
	}
	b, err := json.Marshal(e.Data)
	if err != nil {
		slog.Warn("failed to marshal audit log data", "error", err, "id", e.ID)
		return nil
	}
	return string(b)
}
