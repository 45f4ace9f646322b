// Package pipeline wires six of the seven independently restartable stages
// (all but ingest) together over the stream fabric (§2): each stage
// consumes only the named streams its row lists and produces only the
// streams it owns.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/n8kahl/dreambot/internal/features"
	"github.com/n8kahl/dreambot/internal/learner"
	"github.com/n8kahl/dreambot/internal/model"
	"github.com/n8kahl/dreambot/internal/oms"
	"github.com/n8kahl/dreambot/internal/portfolio"
	"github.com/n8kahl/dreambot/internal/risk"
	"github.com/n8kahl/dreambot/internal/signals"
	"github.com/n8kahl/dreambot/internal/streamfabric"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// decode round-trips a stream entry's payload into T, mirroring the
// per-stage decode helpers already used in features/risk/oms/portfolio.
func decode[T any](payload map[string]any) (T, error) {
	var out T
	buf, err := json.Marshal(payload)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(buf, &out)
	return out, err
}

func encode(v any) (map[string]any, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	err = json.Unmarshal(buf, &out)
	return out, err
}

// FabricPublisher adapts a streamfabric.Fabric to the Publish(ctx, stream,
// payload, maxLen) (string, error) shape (portfolio's and ingest's
// Publisher interfaces).
type FabricPublisher struct{ Fabric streamfabric.Fabric }

// NewFabricPublisher constructs a FabricPublisher.
func NewFabricPublisher(fabric streamfabric.Fabric) FabricPublisher {
	return FabricPublisher{Fabric: fabric}
}

func (p FabricPublisher) Publish(ctx context.Context, stream string, payload map[string]any, maxLen int64) (string, error) {
	return p.Fabric.Publish(ctx, stream, payload, maxLen)
}

// SimplePublisher adapts a streamfabric.Fabric to the Publish(ctx, stream,
// payload) error shape (risk's and OMS's Publisher interfaces).
type SimplePublisher struct {
	Fabric streamfabric.Fabric
	MaxLen int64
}

// NewSimplePublisher constructs a SimplePublisher using streamfabric's
// default trim bound.
func NewSimplePublisher(fabric streamfabric.Fabric) SimplePublisher {
	return SimplePublisher{Fabric: fabric, MaxLen: streamfabric.DefaultMaxLen}
}

func (p SimplePublisher) Publish(ctx context.Context, stream string, payload map[string]any) error {
	_, err := p.Fabric.Publish(ctx, stream, payload, p.MaxLen)
	return err
}

// Pipeline composes the six in-process stages (ingest is driven by its
// own vendor-feed adapter, not wired here) over a shared fabric.
type Pipeline struct {
	Fabric    streamfabric.Fabric
	Features  *features.Engine
	Signals   *signals.Engine
	Risk      *risk.Service
	OMS       *oms.Service
	Portfolio *portfolio.Service
	Learner   *learner.Service

	riskState *stateTracker
}

// New constructs a Pipeline from already-configured stage services.
func New(fabric streamfabric.Fabric, feat *features.Engine, sig *signals.Engine, r *risk.Service, o *oms.Service, p *portfolio.Service, l *learner.Service) *Pipeline {
	return &Pipeline{
		Fabric:    fabric,
		Features:  feat,
		Signals:   sig,
		Risk:      r,
		OMS:       o,
		Portfolio: p,
		Learner:   l,
		riskState: newStateTracker(),
	}
}

// Run starts every stage's consumer loop and blocks until ctx is cancelled
// or a stage returns a fatal error (§5's cooperative-cancellation
// contract: each loop below drains its in-flight handler and returns
// without starting new ones once ctx is done).
func (pl *Pipeline) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return pl.consumeQuotes(ctx) })
	g.Go(func() error { return pl.consumeAggs(ctx) })
	g.Go(func() error { return pl.consumeOptionMeta(ctx) })
	g.Go(func() error { return pl.consumeFeaturesForSignals(ctx) })
	g.Go(func() error { return pl.consumeFeaturesForLearner(ctx) })
	g.Go(func() error { return pl.consumeOMSOrdersForLearner(ctx) })
	g.Go(func() error { return pl.consumeSignalsForRisk(ctx) })
	g.Go(func() error { return pl.consumeOMSOrdersForRisk(ctx) })
	g.Go(func() error { return pl.consumeRiskOrders(ctx) })
	g.Go(func() error { return pl.consumeRiskCommands(ctx) })
	g.Go(func() error { return pl.consumeExecution(ctx) })

	return g.Wait()
}

func (pl *Pipeline) consumeQuotes(ctx context.Context) error {
	return pl.Fabric.Consume(ctx, streamfabric.Quotes, "0", func(ctx context.Context, entry streamfabric.Entry) error {
		q, err := decode[model.Quote](entry.Payload)
		if err != nil {
			log.Warn().Err(err).Msg("pipeline: dropping malformed quote")
			return nil
		}
		pl.Features.UpdateQuote(q)
		if pl.Portfolio != nil {
			if err := pl.Portfolio.HandleQuote(ctx, entry); err != nil {
				log.Warn().Err(err).Msg("pipeline: portfolio quote handler failed")
			}
			snap := pl.Portfolio.Accountant.Snapshot(q.TS)
			pl.riskState.applyPortfolioSnapshot(snap.RealizedPnL, len(snap.Positions))
		}
		return nil
	})
}

func (pl *Pipeline) consumeOptionMeta(ctx context.Context) error {
	return pl.Fabric.Consume(ctx, streamfabric.OptionMeta, "0", func(ctx context.Context, entry streamfabric.Entry) error {
		meta, err := decode[model.OptionMeta](entry.Payload)
		if err != nil {
			log.Warn().Err(err).Msg("pipeline: dropping malformed option_meta")
			return nil
		}
		pl.Features.UpdateOption(meta.Underlying, meta, meta.TS)
		return nil
	})
}

// consumeAggs computes a FeaturePacket per bar and republishes it to the
// features stream, keeping the features→signals hop stream-mediated per
// §2's architecture instead of calling signals inline.
func (pl *Pipeline) consumeAggs(ctx context.Context) error {
	return pl.Fabric.Consume(ctx, streamfabric.Aggs, "0", func(ctx context.Context, entry streamfabric.Entry) error {
		bar, err := decode[model.Agg1s](entry.Payload)
		if err != nil {
			log.Warn().Err(err).Msg("pipeline: dropping malformed agg")
			return nil
		}
		fp := pl.Features.ComputeFeatures(bar.Symbol, bar, nil)
		payload, err := encode(fp)
		if err != nil {
			return fmt.Errorf("pipeline: marshal feature packet: %w", err)
		}
		_, err = pl.Fabric.Publish(ctx, streamfabric.Features, payload, streamfabric.DefaultMaxLen)
		return err
	})
}

func (pl *Pipeline) consumeFeaturesForSignals(ctx context.Context) error {
	return pl.Fabric.Consume(ctx, streamfabric.Features, "0", func(ctx context.Context, entry streamfabric.Entry) error {
		fp, err := decode[model.FeaturePacket](entry.Payload)
		if err != nil {
			log.Warn().Err(err).Msg("pipeline: dropping malformed feature packet")
			return nil
		}
		adj := pl.latestAdjustment(fp.Symbol)
		intent, ok := pl.Signals.BuildSignal(fp, adj)
		if !ok {
			return nil
		}
		payload, err := encode(intent)
		if err != nil {
			return fmt.Errorf("pipeline: marshal signal intent: %w", err)
		}
		_, err = pl.Fabric.Publish(ctx, streamfabric.Signals, payload, streamfabric.DefaultMaxLen)
		return err
	})
}

func (pl *Pipeline) consumeFeaturesForLearner(ctx context.Context) error {
	if pl.Learner == nil {
		return nil
	}
	return pl.Fabric.Consume(ctx, streamfabric.Features, "0", func(ctx context.Context, entry streamfabric.Entry) error {
		fp, err := decode[model.FeaturePacket](entry.Payload)
		if err != nil {
			return nil
		}
		gr := signals.EvaluateGates(fp, pl.Signals.BaseGates)
		adj := pl.Learner.BuildAdjustment(fp, gr.RegimeScore)
		pl.setAdjustment(fp.Symbol, adj)
		payload, err := encode(adj)
		if err != nil {
			return fmt.Errorf("pipeline: marshal learner adjustment: %w", err)
		}
		_, err = pl.Fabric.Publish(ctx, streamfabric.LearnerAdj, payload, streamfabric.DefaultMaxLen)
		return err
	})
}

// consumeOMSOrdersForLearner folds each terminal order's fill outcome back
// into its symbol's bandit as a reward (§4.5's "folds back observed order
// outcomes as bandit rewards"). A filled order rewards learner.RewardFilled,
// a cancelled one learner.RewardCancelled, and a rejected one 0.0.
func (pl *Pipeline) consumeOMSOrdersForLearner(ctx context.Context) error {
	if pl.Learner == nil {
		return nil
	}
	return pl.Fabric.Consume(ctx, streamfabric.OMSOrders, "0", func(ctx context.Context, entry streamfabric.Entry) error {
		status, err := decode[model.OrderStatus](entry.Payload)
		if err != nil {
			return nil
		}
		if !status.State.Terminal() {
			return nil
		}
		underlying, _ := status.Request["underlying"].(string)
		if underlying == "" {
			return nil
		}
		playbook, _ := status.RequestMetadata()["playbook"].(string)
		if playbook == "" {
			return nil
		}
		reward := 0.0
		if status.State == model.StateFilled && status.FilledQuantity() > 0 {
			reward = learner.RewardFilled
		} else if status.State == model.StateCancelled {
			reward = learner.RewardCancelled
		}
		pl.Learner.UpdateReward(underlying, model.Playbook(playbook), reward)
		return nil
	})
}

func (pl *Pipeline) consumeSignalsForRisk(ctx context.Context) error {
	return pl.Fabric.Consume(ctx, streamfabric.Signals, "0", func(ctx context.Context, entry streamfabric.Entry) error {
		intent, err := decode[model.SignalIntent](entry.Payload)
		if err != nil {
			log.Warn().Err(err).Msg("pipeline: dropping malformed signal intent")
			return nil
		}
		state := pl.riskState.snapshot(intent.TS)
		// SubmitSignal publishes the resulting OrderRequest to risk_orders
		// itself via the Service's own Publisher; ok=false means entry was
		// not allowed, which is a normal outcome, not an error (§4.4).
		if _, _, err := pl.Risk.SubmitSignal(ctx, intent, state, intent.TS); err != nil {
			return fmt.Errorf("pipeline: submit signal: %w", err)
		}
		return nil
	})
}

func (pl *Pipeline) consumeOMSOrdersForRisk(ctx context.Context) error {
	return pl.Fabric.Consume(ctx, streamfabric.OMSOrders, "0", func(ctx context.Context, entry streamfabric.Entry) error {
		status, err := decode[model.OrderStatus](entry.Payload)
		if err != nil {
			return nil
		}
		if err := pl.Risk.ProcessStatus(ctx, status); err != nil {
			log.Warn().Err(err).Msg("pipeline: risk process status failed")
		}
		return nil
	})
}

func (pl *Pipeline) consumeRiskOrders(ctx context.Context) error {
	return pl.Fabric.Consume(ctx, streamfabric.RiskOrders, "0", func(ctx context.Context, entry streamfabric.Entry) error {
		req, err := decode[model.OrderRequest](entry.Payload)
		if err != nil {
			log.Warn().Err(err).Msg("pipeline: dropping malformed order request")
			return nil
		}
		_, err = pl.OMS.RouteOrder(ctx, req)
		if err != nil {
			log.Warn().Err(err).Msg("pipeline: route order failed")
		}
		return nil
	})
}

func (pl *Pipeline) consumeRiskCommands(ctx context.Context) error {
	return pl.Fabric.Consume(ctx, streamfabric.RiskCommands, "0", func(ctx context.Context, entry streamfabric.Entry) error {
		cmd, err := decode[model.OrderCommand](entry.Payload)
		if err != nil {
			log.Warn().Err(err).Msg("pipeline: dropping malformed order command")
			return nil
		}
		_, err = pl.OMS.HandleCommand(ctx, cmd)
		if err != nil {
			log.Warn().Err(err).Msg("pipeline: handle command failed")
		}
		return nil
	})
}

func (pl *Pipeline) consumeExecution(ctx context.Context) error {
	if pl.Portfolio == nil {
		return nil
	}
	return pl.Fabric.Consume(ctx, streamfabric.Execution, "0", func(ctx context.Context, entry streamfabric.Entry) error {
		return pl.Portfolio.HandleExecution(ctx, entry)
	})
}
