// Package main is the entry point for the mediacheck service.
//
// @title        mediacheck API
// @version      1.0
// @description  Media authenticity analysis: upload an image, video or audio file and receive the detection verdict.
// @BasePath     /
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"mediacheck/config"
	"mediacheck/internal/logging"

	_ "mediacheck/cmd/mediacheck/docs"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	serve := serveCmd()

	cmd := &cobra.Command{
		Use:   "mediacheck",
		Short: "Media authenticity analysis service",
		Long: `mediacheck accepts image, video and audio uploads, forwards them to a
remote detection service and returns a compact verdict.

Configuration is read from .env, config.yaml and the environment.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		// serve is the default
		RunE: serve.RunE,
	}
	cmd.Flags().AddFlagSet(serve.Flags())

	cmd.AddCommand(
		serve,
		analyzeCmd(),
		versionCmd(),
	)
	return cmd
}

// loadConfig loads configuration and installs the process logger writing
// to out.
func loadConfig(out io.Writer) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.New(out, logging.Options{
		Format: cfg.Logging.Format,
		Level:  cfg.Logging.Level,
	})
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return cfg, nil
}
