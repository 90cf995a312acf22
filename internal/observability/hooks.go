// Package observability exposes the analysis pipeline's lifecycle to metrics
// and audit collectors.
package observability

import (
	"context"
	"errors"
	"time"

	"mediacheck/internal/core"
)

// StagedEvent is emitted once the upload has been written to local storage
// and has passed validation.
type StagedEvent struct {
	FileType core.FileType
	Size     int64
	Digest   string
}

// FinishedEvent is emitted exactly once per analysis, whatever the outcome.
// FileType is empty when the upload was rejected before it was classified.
type FinishedEvent struct {
	FileType  core.FileType
	Size      int64
	RequestID string
	MediaID   string
	Status    string
	Duration  time.Duration
	Err       error
}

// Outcome labels the event by error type, or "success".
func (e FinishedEvent) Outcome() string {
	if e.Err == nil {
		return "success"
	}
	var svcErr *core.Error
	if errors.As(e.Err, &svcErr) {
		return string(svcErr.Type)
	}
	return string(core.ErrorTypeOperational)
}

// Hooks receives pipeline events. Implementations must be safe for
// concurrent use and must not block.
type Hooks interface {
	OnStaged(ctx context.Context, ev StagedEvent)
	OnFinished(ctx context.Context, ev FinishedEvent)
}

// NoopHooks discards every event.
type NoopHooks struct{}

func (NoopHooks) OnStaged(context.Context, StagedEvent)     {}
func (NoopHooks) OnFinished(context.Context, FinishedEvent) {}

// Multi fans events out to every non-nil hook in order.
func Multi(hooks ...Hooks) Hooks {
	var active []Hooks
	for _, h := range hooks {
		if h != nil {
			active = append(active, h)
		}
	}
	switch len(active) {
	case 0:
		return NoopHooks{}
	case 1:
		return active[0]
	}
	return multiHooks(active)
}

type multiHooks []Hooks

func (m multiHooks) OnStaged(ctx context.Context, ev StagedEvent) {
	for _, h := range m {
		h.OnStaged(ctx, ev)
	}
}

func (m multiHooks) OnFinished(ctx context.Context, ev FinishedEvent) {
	for _, h := range m {
		h.OnFinished(ctx, ev)
	}
}
