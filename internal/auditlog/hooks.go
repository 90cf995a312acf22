package auditlog

import (
	"context"

	"mediacheck/internal/observability"
)

// Hooks copies analysis metadata into the request's audit entry. Requests
// without an entry are ignored.
type Hooks struct{}

var _ observability.Hooks = Hooks{}

func (Hooks) OnStaged(ctx context.Context, ev observability.StagedEvent) {
	entry := EntryFromContext(ctx)
	if entry == nil {
		return
	}
	entry.FileType = string(ev.FileType)
	entry.FileSize = ev.Size
	entry.Digest = ev.Digest
}

func (Hooks) OnFinished(ctx context.Context, ev observability.FinishedEvent) {
	entry := EntryFromContext(ctx)
	if entry == nil {
		return
	}
	if ev.FileType != "" {
		entry.FileType = string(ev.FileType)
	}
	if ev.Size > 0 {
		entry.FileSize = ev.Size
	}
	entry.RemoteRequestID = ev.RequestID
	entry.MediaID = ev.MediaID
	if ev.Err != nil {
		entry.ErrorType = ev.Outcome()
	}
}
