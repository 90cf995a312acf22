package auditlog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mediacheck/config"
	"mediacheck/internal/storage"
)

// Result holds the audit logger and the resources behind it.
type Result struct {
	Logger    LoggerInterface
	Storage   storage.Storage
	Retention *Retention
}

// Close stops retention, drains the logger and closes storage. Safe to call
// multiple times.
func (r *Result) Close() error {
	if r.Retention != nil {
		r.Retention.Stop()
		r.Retention = nil
	}
	var errs []error
	if r.Logger != nil {
		if err := r.Logger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("logger close: %w", err))
		}
	}
	if r.Storage != nil {
		if err := r.Storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage close: %w", err))
		}
		r.Storage = nil
	}
	return errors.Join(errs...)
}

// New builds the audit logger from configuration. When auditing is disabled
// it returns a NoopLogger and opens no storage.
func New(ctx context.Context, cfg *config.Config) (*Result, error) {
	if !cfg.Audit.Enabled {
		return &Result{Logger: NoopLogger{}}, nil
	}

	store, err := storage.Open(ctx, buildStorageConfig(cfg.Storage))
	if err != nil {
		return nil, fmt.Errorf("failed to open audit storage: %w", err)
	}

	logStore, err := createLogStore(ctx, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	logCfg := buildLoggerConfig(cfg.Audit)
	result := &Result{
		Logger:  NewLogger(logStore, logCfg),
		Storage: store,
	}

	if logCfg.RetentionDays > 0 {
		retention, err := NewRetention(logStore, logCfg.RetentionDays, logCfg.CleanupSchedule)
		if err != nil {
			_ = result.Close()
			return nil, err
		}
		retention.Start()
		result.Retention = retention
	}
	return result, nil
}

func buildStorageConfig(cfg config.StorageConfig) storage.Config {
	out := storage.DefaultConfig()
	if cfg.Type != "" {
		out.Type = cfg.Type
	}
	if cfg.SQLite.Path != "" {
		out.SQLite.Path = cfg.SQLite.Path
	}
	out.PostgreSQL.URL = cfg.PostgreSQL.URL
	if cfg.PostgreSQL.MaxConns > 0 {
		out.PostgreSQL.MaxConns = cfg.PostgreSQL.MaxConns
	}
	out.MongoDB.URL = cfg.MongoDB.URL
	if cfg.MongoDB.Database != "" {
		out.MongoDB.Database = cfg.MongoDB.Database
	}
	return out
}

func createLogStore(ctx context.Context, store storage.Storage) (LogStore, error) {
	switch store.Type() {
	case storage.TypeSQLite:
		return NewSQLiteStore(store.DB())
	case storage.TypePostgreSQL:
		return NewPostgreSQLStore(ctx, store.Pool())
	case storage.TypeMongoDB:
		return NewMongoDBStore(ctx, store.Database())
	default:
		return nil, fmt.Errorf("unknown storage type: %s", store.Type())
	}
}

func buildLoggerConfig(cfg config.AuditConfig) Config {
	out := DefaultConfig()
	out.Enabled = cfg.Enabled
	out.LogHeaders = cfg.LogHeaders
	out.OnlyAnalyze = cfg.OnlyAnalyze
	out.RetentionDays = cfg.RetentionDays
	if cfg.BufferSize > 0 {
		out.BufferSize = cfg.BufferSize
	}
	if cfg.FlushInterval > 0 {
		out.FlushInterval = time.Duration(cfg.FlushInterval) * time.Second
	}
	if cfg.CleanupSchedule != "" {
		out.CleanupSchedule = cfg.CleanupSchedule
	}
	return out
}
