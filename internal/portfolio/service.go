package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/n8kahl/dreambot/internal/model"
	"github.com/n8kahl/dreambot/internal/streamfabric"
	"github.com/rs/zerolog/log"
)

// Publisher is the subset of the stream fabric the portfolio stage needs.
type Publisher interface {
	Publish(ctx context.Context, stream string, payload map[string]any, maxLen int64) (string, error)
}

// nowMicros is overridable so tests can stamp deterministic snapshots.
var nowMicros = func() int64 { return time.Now().UnixMicro() }

// Service marks the Accountant against the quotes and execution streams
// and republishes a snapshot to the portfolio stream on every update
// (§4.6), mirroring the original's run_portfolio dual-consumer wiring.
type Service struct {
	Accountant *Accountant
	Publisher  Publisher
}

// NewService constructs a Service over a fresh Accountant.
func NewService(publisher Publisher) *Service {
	return &Service{Accountant: NewAccountant(), Publisher: publisher}
}

// HandleQuote marks the accountant from a quotes-stream entry and
// publishes the resulting snapshot.
func (s *Service) HandleQuote(ctx context.Context, entry streamfabric.Entry) error {
	quote, err := decode[model.Quote](entry.Payload)
	if err != nil {
		return fmt.Errorf("portfolio: decode quote: %w", err)
	}
	s.Accountant.MarkQuote(quote)
	return s.publishSnapshot(ctx)
}

// HandleExecution applies a fill from an execution-stream entry and
// publishes the resulting snapshot. Decode failures and fill-less entries
// are logged and skipped rather than treated as fatal, matching the
// original's best-effort extraction.
func (s *Service) HandleExecution(ctx context.Context, entry streamfabric.Entry) error {
	status, err := decode[model.OrderStatus](entry.Payload)
	if err != nil {
		log.Warn().Err(err).Str("stream", streamfabric.Execution).Msg("portfolio: malformed execution entry")
		return nil
	}
	s.Accountant.ApplyOrderStatus(status)
	return s.publishSnapshot(ctx)
}

func (s *Service) publishSnapshot(ctx context.Context) error {
	snap := s.Accountant.Snapshot(nowMicros())
	payload, err := snapshotPayload(snap)
	if err != nil {
		return fmt.Errorf("portfolio: marshal snapshot: %w", err)
	}
	if _, err := s.Publisher.Publish(ctx, streamfabric.Portfolio, payload, streamfabric.DefaultMaxLen); err != nil {
		return fmt.Errorf("portfolio: publish snapshot: %w", err)
	}
	return nil
}
