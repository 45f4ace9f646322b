package streamfabric

import (
	"context"

	"github.com/rs/zerolog/log"
)

// AuditedFabric wraps a Fabric with an Auditor, mirroring every published
// and consumed entry to the auditor's per-stream JSONL file. A mirror write
// failure is logged and does not fail the underlying publish/consume call —
// the audit trail is best-effort, never a dependency of the hot path.
type AuditedFabric struct {
	Fabric
	auditor *Auditor
}

// NewAudited wraps fabric with auditor.
func NewAudited(fabric Fabric, auditor *Auditor) *AuditedFabric {
	return &AuditedFabric{Fabric: fabric, auditor: auditor}
}

// Publish delegates to the wrapped Fabric, then mirrors the published
// entry to the audit log.
func (a *AuditedFabric) Publish(ctx context.Context, stream string, payload map[string]any, maxLen int64) (string, error) {
	id, err := a.Fabric.Publish(ctx, stream, payload, maxLen)
	if err != nil {
		return id, err
	}
	if err := a.auditor.Write(stream, Entry{ID: id, Payload: payload}); err != nil {
		log.Error().Err(err).Str("stream", stream).Msg("streamfabric: audit mirror write failed")
	}
	return id, nil
}

// Consume delegates to the wrapped Fabric, mirroring every delivered entry
// to the audit log before invoking handler.
func (a *AuditedFabric) Consume(ctx context.Context, stream string, startID string, handler Handler) error {
	return a.Fabric.Consume(ctx, stream, startID, func(ctx context.Context, entry Entry) error {
		if err := a.auditor.Write(stream, entry); err != nil {
			log.Error().Err(err).Str("stream", stream).Msg("streamfabric: audit mirror write failed")
		}
		return handler(ctx, entry)
	})
}
