package auditlog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresInsert = `
	INSERT INTO audit_logs (id, timestamp, duration_ns, request_id, method, path, status_code, client_ip,
		file_type, file_size, digest, remote_request_id, media_id, error_type, data)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	ON CONFLICT (id) DO NOTHING`

// PostgreSQLStore implements LogStore for PostgreSQL databases.
type PostgreSQLStore struct {
	pool *pgxpool.Pool
}

// NewPostgreSQLStore creates the audit_logs table and its indexes if needed.
func NewPostgreSQLStore(ctx context.Context, pool *pgxpool.Pool) (*PostgreSQLStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("connection pool is required")
	}

	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS audit_logs (
			id UUID PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL,
			duration_ns BIGINT DEFAULT 0,
			request_id TEXT,
			method TEXT,
			path TEXT,
			status_code INTEGER DEFAULT 0,
			client_ip TEXT,
			file_type TEXT,
			file_size BIGINT DEFAULT 0,
			digest TEXT,
			remote_request_id TEXT,
			media_id TEXT,
			error_type TEXT,
			data JSONB
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
	}
	for _, idx := range indexes {
		if _, err := pool.Exec(ctx, idx); err != nil {
			slog.Warn("failed to create index", "error", err)
		}
	}

	return &PostgreSQLStore{pool: pool}, nil
}

// WriteBatch inserts entries in a single round trip.
func (s *PostgreSQLStore) WriteBatch(ctx context.Context, entries []*LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range entries {
		var data []byte
		if e.Data != nil {
			var err error
			if data, err = json.Marshal(e.Data); err != nil {
				slog.Warn("failed to marshal audit log data", "error", err, "id", e.ID)
				data = nil
			}
		}
		batch.Queue(postgresInsert,
			e.ID, e.Timestamp, e.DurationNs, e.RequestID, e.Method, e.Path, e.StatusCode, e.ClientIP,
			e.FileType, e.FileSize, e.Digest, e.RemoteRequestID, e.MediaID, e.ErrorType, data)
	}

	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert audit logs: %w", err)
	}
	return nil
}

// DeleteBefore removes entries whose timestamp is before cutoff.
func (s *PostgreSQLStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM audit_logs WHERE timestamp < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old audit logs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Flush is a no-op: writes are synchronous.
func (s *PostgreSQLStore) Flush(_ context.Context) error {
	return nil
}

// Close is a no-op: the pool belongs to the storage layer.
func (s *PostgreSQLStore) Close() error {
	return nil
}
