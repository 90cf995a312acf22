// Package analyze implements the upload analysis pipeline: classify the
// upload, enforce its size ceiling, stage it on disk, hand it to a fresh
// detector instance and shape the verdict into the public response.
package analyze

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mediacheck/internal/core"
	"mediacheck/internal/media"
	"mediacheck/internal/observability"
)

const tracerName = "mediacheck/internal/analyze"

// Upload is a single file submitted for analysis.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.ReadSeeker
}

// Config configures an Analyzer.
type Config struct {
	Limits  media.Limits
	TempDir string // staging directory; empty means os.TempDir()
	Factory core.DetectorFactory
	Hooks   observability.Hooks
	Tracer  trace.Tracer
}

// Analyzer runs the analysis pipeline. It holds only read-only configuration
// and is safe for concurrent use.
type Analyzer struct {
	limits  media.Limits
	tempDir string
	factory core.DetectorFactory
	hooks   observability.Hooks
	tracer  trace.Tracer
}

// New validates cfg and returns an Analyzer.
func New(cfg Config) (*Analyzer, error) {
	if cfg.Factory == nil {
		return nil, fmt.Errorf("detector factory is required")
	}
	limits := cfg.Limits
	if limits == nil {
		limits = media.DefaultLimits()
	}
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	tempDir := cfg.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	hooks := cfg.Hooks
	if hooks == nil {
		hooks = observability.NoopHooks{}
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &Analyzer{
		limits:  limits,
		tempDir: tempDir,
		factory: cfg.Factory,
		hooks:   hooks,
		tracer:  tracer,
	}, nil
}

// Limits returns the size ceilings in force.
func (a *Analyzer) Limits() media.Limits {
	return a.limits
}

// Analyze runs the pipeline for one upload. Validation failures are returned
// unchanged; every other failure is returned as an operational error.
func (a *Analyzer) Analyze(ctx context.Context, up Upload) (*core.AnalysisResponse, error) {
	start := time.Now()
	ctx, span := a.tracer.Start(ctx, "analyze", trace.WithAttributes(
		attribute.String("mediacheck.filename", up.Filename),
	))
	defer span.End()

	ev := observability.FinishedEvent{}
	resp, err := a.analyze(ctx, up, &ev)

	var svcErr *core.Error
	if err != nil {
		svcErr = core.AsOperational(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, svcErr.Message)
		ev.Err = svcErr
	}
	ev.Duration = time.Since(start)
	a.hooks.OnFinished(ctx, ev)

	if svcErr != nil {
		return nil, svcErr
	}
	span.SetAttributes(attribute.String("mediacheck.status", resp.Status))
	return resp, nil
}

func (a *Analyzer) analyze(ctx context.Context, up Upload, ev *observability.FinishedEvent) (resp *core.AnalysisResponse, err error) {
	if up.Body == nil {
		return nil, core.NewValidationError("file is required")
	}

	fileType, err := media.ResolveType(up.Filename)
	if err != nil {
		return nil, err
	}
	ev.FileType = fileType

	size, err := media.MeasureSize(up.Body)
	if err != nil {
		return nil, err
	}
	ev.Size = size
	if err := a.limits.Check(fileType, size); err != nil {
		return nil, err
	}

	staged, err := a.stage(ctx, up)
	if err != nil {
		return nil, err
	}
	defer func() {
		if relErr := staged.Release(); relErr != nil {
			resp, err = deferredFailure(ctx, resp, err, relErr)
		}
	}()
	a.hooks.OnStaged(ctx, observability.StagedEvent{
		FileType: fileType,
		Size:     staged.Size,
		Digest:   staged.Digest,
	})

	detector, err := a.factory.NewDetector()
	if err != nil {
		return nil, fmt.Errorf("failed to create detector: %w", err)
	}
	defer func() {
		if cleanErr := detector.Cleanup(); cleanErr != nil {
			resp, err = deferredFailure(ctx, resp, err, fmt.Errorf("failed to release detector: %w", cleanErr))
		}
	}()

	receipt, err := a.submit(ctx, detector, staged.Path)
	if err != nil {
		return nil, err
	}
	ev.RequestID = receipt.RequestID
	ev.MediaID = receipt.MediaID

	verdict, err := a.await(ctx, detector, receipt.RequestID)
	if err != nil {
		return nil, err
	}

	resp = Shape(verdict, receipt, fileType)
	ev.Status = resp.Status
	return resp, nil
}

func (a *Analyzer) stage(ctx context.Context, up Upload) (*media.StagedFile, error) {
	_, span := a.tracer.Start(ctx, "analyze.stage")
	defer span.End()

	staged, err := media.Stage(a.tempDir, media.Extension(up.Filename), up.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "staging failed")
		return nil, err
	}
	span.SetAttributes(
		attribute.Int64("mediacheck.size", staged.Size),
		attribute.String("mediacheck.digest", staged.Digest),
	)
	return staged, nil
}

func (a *Analyzer) submit(ctx context.Context, detector core.Detector, path string) (*core.UploadReceipt, error) {
	ctx, span := a.tracer.Start(ctx, "analyze.submit")
	defer span.End()

	receipt, err := detector.Upload(ctx, path)
	if err == nil && receipt == nil {
		err = errors.New("detector returned no upload receipt")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload failed")
		return nil, err
	}
	span.SetAttributes(
		attribute.String("mediacheck.request_id", receipt.RequestID),
		attribute.String("mediacheck.media_id", receipt.MediaID),
	)
	return receipt, nil
}

func (a *Analyzer) await(ctx context.Context, detector core.Detector, requestID string) (*core.Verdict, error) {
	ctx, span := a.tracer.Start(ctx, "analyze.await", trace.WithAttributes(
		attribute.String("mediacheck.request_id", requestID),
	))
	defer span.End()

	verdict, err := detector.GetResult(ctx, requestID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "awaiting result failed")
		return nil, err
	}
	return verdict, nil
}

// deferredFailure applies a release failure to the pipeline outcome. The
// failure replaces a successful result; when the pipeline already failed it
// is logged and the original error is kept.
func deferredFailure(ctx context.Context, resp *core.AnalysisResponse, err, relErr error) (*core.AnalysisResponse, error) {
	if err != nil {
		core.Logger(ctx).Warn("release failed after pipeline error",
			"error", relErr,
			"pipeline_error", err,
		)
		return resp, err
	}
	return nil, relErr
}
