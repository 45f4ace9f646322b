package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/n8kahl/dreambot/internal/model"
	"github.com/n8kahl/dreambot/internal/streamfabric"
	"github.com/rs/zerolog/log"
)

// Publisher is the subset of the stream fabric the ingest stage needs.
type Publisher interface {
	Publish(ctx context.Context, stream string, payload map[string]any, maxLen int64) (string, error)
}

// ServiceConfig configures the ingest stage (§6's POLYGON_* environment
// variables and the original's IngestConfig).
type ServiceConfig struct {
	Source           string // heartbeat "source" tag
	MaxContracts     int
	StrikesAroundATM int
	RotateSecs       int64
	HeartbeatSecs    int64
}

// Service normalizes vendor feed messages into the canonical wire types
// and republishes them, rotates the tracked option universe per
// underlying, and emits periodic heartbeats (§2's Ingest stage row).
type Service struct {
	cfg       ServiceConfig
	publisher Publisher
	universe  *UniverseManager
}

// NewService constructs a Service with a fresh UniverseManager.
func NewService(cfg ServiceConfig, publisher Publisher) *Service {
	return &Service{
		cfg:       cfg,
		publisher: publisher,
		universe:  NewUniverseManager(cfg.MaxContracts, cfg.StrikesAroundATM, cfg.RotateSecs),
	}
}

// HandleQuoteMessage normalizes and republishes one raw vendor quote
// message. Malformed messages are logged and skipped (§7's "no handler may
// block the scheduler" — normalization failures never propagate as fatal
// errors here).
func (s *Service) HandleQuoteMessage(ctx context.Context, raw map[string]any) error {
	quote, err := NormalizeQuote(raw)
	if err != nil {
		log.Warn().Err(err).Msg("ingest: dropping malformed quote message")
		return nil
	}
	payload, err := jsonToMap(quote)
	if err != nil {
		return fmt.Errorf("ingest: marshal quote: %w", err)
	}
	_, err = s.publisher.Publish(ctx, streamfabric.Quotes, payload, streamfabric.DefaultMaxLen)
	return err
}

// HandleAggMessage normalizes and republishes one raw vendor bar message.
func (s *Service) HandleAggMessage(ctx context.Context, raw map[string]any) error {
	agg, err := NormalizeAgg(raw)
	if err != nil {
		log.Warn().Err(err).Msg("ingest: dropping malformed agg message")
		return nil
	}
	payload, err := jsonToMap(agg)
	if err != nil {
		return fmt.Errorf("ingest: marshal agg: %w", err)
	}
	_, err = s.publisher.Publish(ctx, streamfabric.Aggs, payload, streamfabric.DefaultMaxLen)
	return err
}

// HandleOptionMetaMessage normalizes and republishes one raw vendor
// option-chain snapshot entry.
func (s *Service) HandleOptionMetaMessage(ctx context.Context, raw map[string]any) error {
	meta, err := NormalizeOptionMeta(raw)
	if err != nil {
		log.Warn().Err(err).Msg("ingest: dropping malformed option_meta message")
		return nil
	}
	payload, err := jsonToMap(meta)
	if err != nil {
		return fmt.Errorf("ingest: marshal option meta: %w", err)
	}
	_, err = s.publisher.Publish(ctx, streamfabric.OptionMeta, payload, streamfabric.DefaultMaxLen)
	return err
}

// RotateAndPublish rebuilds underlying's universe from the supplied chain
// (if the manager's rotate interval has elapsed; otherwise the current
// universe is kept) and publishes every chain entry whose symbol is in the
// resulting rotation as an option_meta entry (§4's ingest component,
// "rotate option universe"). It does not fetch the chain itself.
func (s *Service) RotateAndPublish(ctx context.Context, underlying string, chain []model.OptionMeta, ts int64) (model.UniverseRotation, error) {
	rotation := s.universe.RotateUniverse(underlying, chain, ts)
	for _, meta := range chain {
		if !contains(rotation.Contracts, meta.Symbol) {
			continue
		}
		payload, err := jsonToMap(meta)
		if err != nil {
			return rotation, fmt.Errorf("ingest: marshal rotated contract: %w", err)
		}
		if _, err := s.publisher.Publish(ctx, streamfabric.OptionMeta, payload, streamfabric.DefaultMaxLen); err != nil {
			return rotation, fmt.Errorf("ingest: publish rotated contract: %w", err)
		}
	}
	return rotation, nil
}

func contains(xs []string, v string) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

// RunHeartbeat emits a heartbeat entry every cfg.HeartbeatSecs until ctx is
// cancelled, matching §5's cooperative-cancellation contract ("every
// long-running task accepts a stop signal").
func (s *Service) RunHeartbeat(ctx context.Context) error {
	interval := time.Duration(s.cfg.HeartbeatSecs) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			hb := model.Heartbeat{TS: time.Now().UnixMicro(), Source: s.cfg.Source}
			payload, err := jsonToMap(hb)
			if err != nil {
				return fmt.Errorf("ingest: marshal heartbeat: %w", err)
			}
			if _, err := s.publisher.Publish(ctx, streamfabric.Heartbeat, payload, streamfabric.DefaultMaxLen); err != nil {
				return fmt.Errorf("ingest: publish heartbeat: %w", err)
			}
		}
	}
}
