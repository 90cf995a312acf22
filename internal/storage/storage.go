// Package storage opens the database that backs the audit log. One of
// SQLite, PostgreSQL or MongoDB is active at a time.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Backend names accepted in Config.Type.
const (
	TypeSQLite     = "sqlite"
	TypePostgreSQL = "postgresql"
	TypeMongoDB    = "mongodb"
)

const defaultDatabase = "mediacheck"

// Config selects and configures a backend.
type Config struct {
	Type       string
	SQLite     SQLiteConfig
	PostgreSQL PostgreSQLConfig
	MongoDB    MongoDBConfig
}

// SQLiteConfig configures the embedded database file.
type SQLiteConfig struct {
	Path string // default: data/mediacheck.db
}

// PostgreSQLConfig configures the connection pool.
type PostgreSQLConfig struct {
	URL      string
	MaxConns int // default: 10
}

// MongoDBConfig configures the client.
type MongoDBConfig struct {
	URL      string
	Database string // default: mediacheck
}

// DefaultConfig returns the SQLite configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Type:       TypeSQLite,
		SQLite:     SQLiteConfig{Path: "data/mediacheck.db"},
		PostgreSQL: PostgreSQLConfig{MaxConns: 10},
		MongoDB:    MongoDBConfig{Database: defaultDatabase},
	}
}

// Storage is an open connection to one backend. Exactly one of the typed
// accessors returns a non-nil handle, matching Type.
type Storage interface {
	Type() string
	DB() *sql.DB
	Pool() *pgxpool.Pool
	Database() *mongo.Database
	Ping(ctx context.Context) error
	Close() error
}

// Open connects to the backend selected by cfg.Type.
func Open(ctx context.Context, cfg Config) (Storage, error) {
	switch cfg.Type {
	case TypeSQLite:
		return OpenSQLite(ctx, cfg.SQLite)
	case TypePostgreSQL:
		return OpenPostgreSQL(ctx, cfg.PostgreSQL)
	case TypeMongoDB:
		return OpenMongoDB(ctx, cfg.MongoDB)
	default:
		return nil, fmt.Errorf("unknown storage type: %q (valid: sqlite, postgresql, mongodb)", cfg.Type)
	}
}

// none is embedded by each backend so it only overrides its own accessor.
type none struct{}

func (none) DB() *sql.DB               { return nil }
func (none) Pool() *pgxpool.Pool       { return nil }
func (none) Database() *mongo.Database { return nil }
