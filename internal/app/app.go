// Package app provides the main application struct for centralized dependency management
// and lifecycle control of the mediacheck server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"mediacheck/config"
	"mediacheck/internal/analyze"
	"mediacheck/internal/auditlog"
	"mediacheck/internal/core"
	"mediacheck/internal/detector"
	"mediacheck/internal/httpclient"
	"mediacheck/internal/media"
	"mediacheck/internal/observability"
	"mediacheck/internal/server"
	"mediacheck/internal/web"
)

// App represents the main application with all its dependencies.
// It provides centralized lifecycle management for all components.
type App struct {
	config   *config.Config
	audit    *auditlog.Result
	analyzer *analyze.Analyzer
	server   *server.Server

	shutdownMu sync.Mutex
	shutdown   bool
}

// Config holds the configuration options for creating an App.
type Config struct {
	// AppConfig is the loaded application configuration.
	AppConfig *config.Config

	// Factory overrides the detector factory built from AppConfig.Detector.
	Factory core.DetectorFactory
}

// New creates a new App with all dependencies initialized.
// The caller must call Shutdown to release resources.
func New(ctx context.Context, cfg Config) (*App, error) {
	if cfg.AppConfig == nil {
		return nil, fmt.Errorf("app config is required")
	}
	appCfg := cfg.AppConfig

	app := &App{
		config: appCfg,
	}

	assets, err := web.Assets(appCfg.Server.StaticDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load web assets: %w", err)
	}

	// Initialize audit logging
	auditResult, err := auditlog.New(ctx, appCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audit logging: %w", err)
	}
	app.audit = auditResult

	hooks := []observability.Hooks{auditlog.Hooks{}}
	if appCfg.Metrics.Enabled {
		hooks = append(hooks, observability.NewPrometheusHooks())
	}

	analyzer, err := NewAnalyzer(appCfg, cfg.Factory, observability.Multi(hooks...))
	if err != nil {
		if closeErr := app.audit.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to build analyzer: %w (also: audit close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to build analyzer: %w", err)
	}
	app.analyzer = analyzer

	app.logStartupInfo()

	serverCfg := &server.Config{
		MetricsEnabled:  appCfg.Metrics.Enabled,
		MetricsEndpoint: appCfg.Metrics.Endpoint,
		BodySizeLimit:   appCfg.BodySizeLimitBytes(),
		SwaggerEnabled:  appCfg.Server.SwaggerEnabled,
		Assets:          assets,
		Limits:          analyzer.Limits(),
		AuditLogger:     auditResult.Logger,
	}
	if appCfg.Server.SwaggerEnabled {
		slog.Info("swagger UI enabled", "path", "/swagger/index.html")
	}

	app.server = server.New(analyzer, serverCfg)

	return app, nil
}

// NewAnalyzer builds the analysis pipeline from configuration. A nil
// factory selects the remote detector described by cfg.Detector.
func NewAnalyzer(cfg *config.Config, factory core.DetectorFactory, hooks observability.Hooks) (*analyze.Analyzer, error) {
	if factory == nil {
		factory = detector.NewFactory(DetectorConfig(cfg))
	}
	return analyze.New(analyze.Config{
		Limits:  Limits(cfg.Limits),
		TempDir: cfg.Server.TempDir,
		Factory: factory,
		Hooks:   hooks,
	})
}

// DetectorConfig maps application configuration onto the detector client.
func DetectorConfig(cfg *config.Config) detector.Config {
	out := detector.DefaultConfig(cfg.Detector.APIKey)
	if cfg.Detector.BaseURL != "" {
		out.BaseURL = cfg.Detector.BaseURL
	}
	if cfg.Detector.PollInterval > 0 {
		out.PollInterval = cfg.Detector.PollInterval
	}
	out.MaxPollAttempts = cfg.Detector.MaxPollAttempts
	out.MaxRetries = cfg.Detector.MaxRetries

	out.HTTP = httpclient.DefaultConfig()
	if cfg.HTTP.Timeout > 0 {
		out.HTTP.Timeout = time.Duration(cfg.HTTP.Timeout) * time.Second
	}
	if cfg.HTTP.ResponseHeaderTimeout > 0 {
		out.HTTP.ResponseHeaderTimeout = time.Duration(cfg.HTTP.ResponseHeaderTimeout) * time.Second
	}
	return out
}

// Limits converts the MiB ceilings from configuration, keeping the default
// for any category left at zero.
func Limits(cfg config.LimitsConfig) media.Limits {
	limits := media.DefaultLimits()
	for ft, mb := range map[core.FileType]int{
		core.FileTypeImage: cfg.ImageMB,
		core.FileTypeVideo: cfg.VideoMB,
		core.FileTypeAudio: cfg.AudioMB,
	} {
		if mb > 0 {
			limits[ft] = int64(mb) * media.MiB
		}
	}
	return limits
}

// Analyzer returns the analysis pipeline.
func (a *App) Analyzer() *analyze.Analyzer {
	return a.analyzer
}

// AuditLogger returns the audit logger interface.
func (a *App) AuditLogger() auditlog.LoggerInterface {
	if a.audit == nil {
		return nil
	}
	return a.audit.Logger
}

// Handler returns the HTTP handler, for tests.
func (a *App) Handler() http.Handler {
	return a.server
}

// Start starts the HTTP server on the given address.
// This is a blocking call that returns when the server stops.
func (a *App) Start(addr string) error {
	if a.server == nil {
		return fmt.Errorf("server is not initialized")
	}
	slog.Info("starting server", "address", addr)
	if err := a.server.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
			return nil
		}
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown gracefully tears down app components in dependency order:
// the HTTP server first (honoring ctx), then the audit logger, which
// flushes pending entries.
//
// Shutdown is idempotent; after the first call, subsequent calls are no-ops.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownMu.Lock()
	if a.shutdown {
		a.shutdownMu.Unlock()
		return nil
	}
	a.shutdown = true
	a.shutdownMu.Unlock()

	slog.Info("shutting down application...")

	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}

	if a.audit != nil {
		if err := a.audit.Close(); err != nil {
			slog.Error("audit logger close error", "error", err)
			errs = append(errs, fmt.Errorf("audit close: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	slog.Info("application shutdown complete")
	return nil
}

// logStartupInfo logs the application configuration on startup.
func (a *App) logStartupInfo() {
	cfg := a.config

	if cfg.Detector.APIKey == "" {
		slog.Warn("API_KEY not set - requests to the detection service will be rejected")
	}
	slog.Info("detector configured",
		"base_url", cfg.Detector.BaseURL,
		"poll_interval", cfg.Detector.PollInterval,
		"max_poll_attempts", cfg.Detector.MaxPollAttempts,
	)

	limits := a.analyzer.Limits()
	slog.Info("upload limits",
		"image_bytes", limits[core.FileTypeImage],
		"video_bytes", limits[core.FileTypeVideo],
		"audio_bytes", limits[core.FileTypeAudio],
	)

	if cfg.Metrics.Enabled {
		slog.Info("prometheus metrics enabled", "endpoint", cfg.Metrics.Endpoint)
	} else {
		slog.Info("prometheus metrics disabled")
	}

	if cfg.Audit.Enabled {
		slog.Info("audit logging enabled",
			"storage_type", cfg.Storage.Type,
			"log_headers", cfg.Audit.LogHeaders,
			"retention_days", cfg.Audit.RetentionDays,
		)
	} else {
		slog.Info("audit logging disabled")
	}
}
