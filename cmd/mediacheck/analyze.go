package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"mediacheck/internal/analyze"
	"mediacheck/internal/app"
	"mediacheck/internal/core"
	"mediacheck/internal/observability"
)

func analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <file>",
		Short: "Analyze a local file and print the verdict as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries the result
			cfg, err := loadConfig(os.Stderr)
			if err != nil {
				return err
			}

			analyzer, err := app.NewAnalyzer(cfg, nil, observability.NoopHooks{})
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			resp, err := analyzer.Analyze(ctx, analyze.Upload{
				Filename: filepath.Base(args[0]),
				Body:     f,
			})
			if err != nil {
				var svcErr *core.Error
				if errors.As(err, &svcErr) {
					if encErr := enc.Encode(svcErr.ToJSON()); encErr != nil {
						return encErr
					}
					return fmt.Errorf("analysis failed: %s", svcErr.Message)
				}
				return err
			}
			return enc.Encode(resp)
		},
	}
}
