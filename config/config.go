// Package config loads the service configuration.
//
// Sources, lowest precedence first: built-in defaults, config.yaml (with
// ${VAR} and ${VAR:-default} expansion), then environment variables. A .env
// file in the working directory is loaded into the environment first and
// never overrides variables that are already set.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Body size limit bounds accepted by ValidateBodySizeLimit.
const (
	DefaultBodySizeLimit int64 = 260 * 1024 * 1024
	MinBodySizeLimit     int64 = 1024
	MaxBodySizeLimit     int64 = 1024 * 1024 * 1024
)

// Config holds the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Detector DetectorConfig `yaml:"detector"`
	HTTP     HTTPConfig     `yaml:"http"`
	Limits   LimitsConfig   `yaml:"limits"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LogConfig      `yaml:"logging"`
	Audit    AuditConfig    `yaml:"audit"`
	Storage  StorageConfig  `yaml:"storage"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           string `yaml:"port"`
	BodySizeLimit  string `yaml:"body_size_limit"` // e.g. "260M"
	StaticDir      string `yaml:"static_dir"`      // empty serves the embedded page
	TempDir        string `yaml:"temp_dir"`        // empty uses the OS temp dir
	SwaggerEnabled bool   `yaml:"swagger_enabled"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// DetectorConfig configures the remote detection service.
type DetectorConfig struct {
	APIKey          string        `yaml:"api_key"`
	BaseURL         string        `yaml:"base_url"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	MaxPollAttempts int           `yaml:"max_poll_attempts"` // 0 polls until the job concludes
	MaxRetries      int           `yaml:"max_retries"`
}

// HTTPConfig holds timeouts for the detector transport, in seconds.
type HTTPConfig struct {
	Timeout               int `yaml:"timeout"`
	ResponseHeaderTimeout int `yaml:"response_header_timeout"`
}

// LimitsConfig holds per-category upload ceilings in MiB.
type LimitsConfig struct {
	ImageMB int `yaml:"image_mb"`
	VideoMB int `yaml:"video_mb"`
	AudioMB int `yaml:"audio_mb"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Format string `yaml:"format"` // auto, text or json
	Level  string `yaml:"level"`
}

// AuditConfig controls the request audit log.
type AuditConfig struct {
	Enabled         bool   `yaml:"enabled"`
	LogHeaders      bool   `yaml:"log_headers"`
	OnlyAnalyze     bool   `yaml:"only_analyze"`
	BufferSize      int    `yaml:"buffer_size"`
	FlushInterval   int    `yaml:"flush_interval"` // seconds
	RetentionDays   int    `yaml:"retention_days"`
	CleanupSchedule string `yaml:"cleanup_schedule"`
}

// StorageConfig selects the audit log backend.
type StorageConfig struct {
	Type       string           `yaml:"type"`
	SQLite     SQLiteConfig     `yaml:"sqlite"`
	PostgreSQL PostgreSQLConfig `yaml:"postgresql"`
	MongoDB    MongoDBConfig    `yaml:"mongodb"`
}

// SQLiteConfig holds SQLite-specific configuration
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PostgreSQLConfig holds PostgreSQL-specific configuration
type PostgreSQLConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URL      string `yaml:"url"`
	Database string `yaml:"database"`
}

// configPaths are searched in order for the optional YAML file.
var configPaths = []string{"config/config.yaml", "config.yaml"}

// Load builds the configuration from defaults, config.yaml and the
// environment, then validates it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := buildDefaultConfig()

	for _, path := range configPaths {
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if err := yaml.Unmarshal([]byte(expandString(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		break
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:          "127.0.0.1",
			Port:          "5000",
			BodySizeLimit: "260M",
		},
		Detector: DetectorConfig{
			BaseURL:      "https://api.prd.realitydefender.xyz",
			PollInterval: 5 * time.Second,
		},
		HTTP: HTTPConfig{
			Timeout:               600,
			ResponseHeaderTimeout: 120,
		},
		Limits: LimitsConfig{
			ImageMB: 50,
			VideoMB: 250,
			AudioMB: 20,
		},
		Metrics: MetricsConfig{
			Endpoint: "/metrics",
		},
		Logging: LogConfig{
			Format: "auto",
			Level:  "info",
		},
		Audit: AuditConfig{
			OnlyAnalyze:     true,
			BufferSize:      1000,
			FlushInterval:   5,
			RetentionDays:   30,
			CleanupSchedule: "@hourly",
		},
		Storage: StorageConfig{
			Type: "sqlite",
			SQLite: SQLiteConfig{
				Path: "data/mediacheck.db",
			},
			PostgreSQL: PostgreSQLConfig{
				MaxConns: 10,
			},
			MongoDB: MongoDBConfig{
				Database: "mediacheck",
			},
		},
	}
}

// applyEnvOverrides copies every set environment variable over cfg.
func applyEnvOverrides(cfg *Config) error {
	viper.AutomaticEnv()

	str := func(key string, dst *string) {
		if viper.IsSet(key) {
			*dst = viper.GetString(key)
		}
	}
	boolean := func(key string, dst *bool) {
		if viper.IsSet(key) {
			*dst = viper.GetBool(key)
		}
	}
	var errs []error
	integer := func(key string, dst *int) {
		if !viper.IsSet(key) {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(viper.GetString(key)))
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %q is not an integer", key, viper.GetString(key)))
			return
		}
		*dst = n
	}
	duration := func(key string, dst *time.Duration) {
		if !viper.IsSet(key) {
			return
		}
		d, err := parseDuration(viper.GetString(key))
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*dst = d
	}

	str("HOST", &cfg.Server.Host)
	str("PORT", &cfg.Server.Port)
	str("BODY_SIZE_LIMIT", &cfg.Server.BodySizeLimit)
	str("STATIC_DIR", &cfg.Server.StaticDir)
	str("TEMP_DIR", &cfg.Server.TempDir)
	boolean("SWAGGER_ENABLED", &cfg.Server.SwaggerEnabled)

	str("API_KEY", &cfg.Detector.APIKey)
	str("DETECTOR_BASE_URL", &cfg.Detector.BaseURL)
	duration("DETECTOR_POLL_INTERVAL", &cfg.Detector.PollInterval)
	integer("DETECTOR_MAX_POLL_ATTEMPTS", &cfg.Detector.MaxPollAttempts)
	integer("DETECTOR_MAX_RETRIES", &cfg.Detector.MaxRetries)

	integer("HTTP_TIMEOUT", &cfg.HTTP.Timeout)
	integer("HTTP_RESPONSE_HEADER_TIMEOUT", &cfg.HTTP.ResponseHeaderTimeout)

	integer("IMAGE_MAX_MB", &cfg.Limits.ImageMB)
	integer("VIDEO_MAX_MB", &cfg.Limits.VideoMB)
	integer("AUDIO_MAX_MB", &cfg.Limits.AudioMB)

	boolean("METRICS_ENABLED", &cfg.Metrics.Enabled)
	str("METRICS_ENDPOINT", &cfg.Metrics.Endpoint)

	str("LOG_FORMAT", &cfg.Logging.Format)
	str("LOG_LEVEL", &cfg.Logging.Level)

	boolean("AUDIT_ENABLED", &cfg.Audit.Enabled)
	boolean("AUDIT_LOG_HEADERS", &cfg.Audit.LogHeaders)
	boolean("AUDIT_ONLY_ANALYZE", &cfg.Audit.OnlyAnalyze)
	integer("AUDIT_BUFFER_SIZE", &cfg.Audit.BufferSize)
	integer("AUDIT_FLUSH_INTERVAL", &cfg.Audit.FlushInterval)
	integer("AUDIT_RETENTION_DAYS", &cfg.Audit.RetentionDays)
	str("AUDIT_CLEANUP_SCHEDULE", &cfg.Audit.CleanupSchedule)

	str("STORAGE_TYPE", &cfg.Storage.Type)
	str("SQLITE_PATH", &cfg.Storage.SQLite.Path)
	str("POSTGRES_URL", &cfg.Storage.PostgreSQL.URL)
	integer("POSTGRES_MAX_CONNS", &cfg.Storage.PostgreSQL.MaxConns)
	str("MONGODB_URL", &cfg.Storage.MongoDB.URL)
	str("MONGODB_DATABASE", &cfg.Storage.MongoDB.Database)

	return errors.Join(errs...)
}

// parseDuration accepts Go duration syntax ("5s", "1m30s") or a bare number
// of seconds.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not a duration", s)
	}
	return d, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if err := ValidateBodySizeLimit(c.Server.BodySizeLimit); err != nil {
		return err
	}
	if c.Limits.ImageMB <= 0 || c.Limits.VideoMB <= 0 || c.Limits.AudioMB <= 0 {
		return fmt.Errorf("size limits must be positive (image=%d, video=%d, audio=%d)",
			c.Limits.ImageMB, c.Limits.VideoMB, c.Limits.AudioMB)
	}
	if largest := int64(max(c.Limits.ImageMB, c.Limits.VideoMB, c.Limits.AudioMB)) * 1024 * 1024; c.BodySizeLimitBytes() < largest {
		return fmt.Errorf("body size limit %d bytes is below the largest file size limit (%dMB)",
			c.BodySizeLimitBytes(), largest/(1024*1024))
	}
	if c.Detector.PollInterval <= 0 {
		return fmt.Errorf("detector poll interval must be positive")
	}
	if c.Detector.MaxPollAttempts < 0 || c.Detector.MaxRetries < 0 {
		return fmt.Errorf("detector poll attempts and retries must not be negative")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "auto", "text", "json":
	default:
		return fmt.Errorf("invalid log format %q (valid: auto, text, json)", c.Logging.Format)
	}
	if c.Audit.Enabled {
		switch c.Storage.Type {
		case "sqlite", "postgresql", "mongodb":
		default:
			return fmt.Errorf("invalid storage type %q (valid: sqlite, postgresql, mongodb)", c.Storage.Type)
		}
	}
	return nil
}

// BodySizeLimitBytes returns the parsed body limit, or the default when unset.
func (c *Config) BodySizeLimitBytes() int64 {
	n, err := ParseBodySizeLimit(c.Server.BodySizeLimit)
	if err != nil || n == 0 {
		return DefaultBodySizeLimit
	}
	return n
}

var bodySizePattern = regexp.MustCompile(`^(\d+)([KMG])?B?$`)

// ParseBodySizeLimit parses sizes such as "1048576", "100K", "10MB" or "1G".
// An empty string yields 0.
func ParseBodySizeLimit(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, nil
	}
	m := bodySizePattern.FindStringSubmatch(s)
	if m == nil || (m[2] == "" && strings.HasSuffix(s, "B")) {
		return 0, fmt.Errorf("invalid body size limit %q (expected e.g. 500K, 260M, 1G)", s)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid body size limit %q: %w", s, err)
	}
	switch m[2] {
	case "K":
		n *= 1024
	case "M":
		n *= 1024 * 1024
	case "G":
		n *= 1024 * 1024 * 1024
	}
	return n, nil
}

// ValidateBodySizeLimit checks the format and the allowed range.
func ValidateBodySizeLimit(s string) error {
	n, err := ParseBodySizeLimit(s)
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	if n < MinBodySizeLimit || n > MaxBodySizeLimit {
		return fmt.Errorf("body size limit %q out of range (1K to 1G)", s)
	}
	return nil
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// expandString replaces ${VAR} and ${VAR:-default}. A variable that is unset
// or empty takes the default; without a default the placeholder is left in
// place.
func expandString(s string) string {
	if s == "" {
		return s
	}
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := envPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		if parts[2] != "" {
			return parts[3]
		}
		return match
	})
}
