package pipeline

import (
	"sync"

	"github.com/n8kahl/dreambot/internal/learner"
	"github.com/n8kahl/dreambot/internal/risk"
	"github.com/n8kahl/dreambot/internal/signals"
)

// stateTracker accumulates the session-level risk context (§4.4's State)
// from portfolio snapshots and order outcomes observed elsewhere in the
// pipeline, and caches the latest per-symbol learner adjustment so the
// signals stage can apply it without an extra round-trip through the
// fabric.
type stateTracker struct {
	mu          sync.Mutex
	base        risk.State
	firstTS     int64
	adjustments map[string]*signals.Adjustment
}

func newStateTracker() *stateTracker {
	return &stateTracker{adjustments: make(map[string]*signals.Adjustment)}
}

// snapshot returns the current risk.State with SessionElapsedSecs derived
// from the first timestamp observed.
func (t *stateTracker) snapshot(now int64) risk.State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.firstTS == 0 {
		t.firstTS = now
	}
	s := t.base
	s.SessionElapsedSecs = (now - t.firstTS) / 1_000_000
	return s
}

// applyPortfolioSnapshot folds a portfolio accountant snapshot's realized
// PnL and open-position count into the tracked risk state.
func (t *stateTracker) applyPortfolioSnapshot(realizedPnL float64, openPositions int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.base.CumulativePnL = realizedPnL
	t.base.OpenPositions = openPositions
}

func (t *stateTracker) setAdjustment(symbol string, adj *signals.Adjustment) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.adjustments[symbol] = adj
}

func (t *stateTracker) adjustment(symbol string) *signals.Adjustment {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.adjustments[symbol]
}

// toSignalsAdjustment projects a learner adjustment packet into the shape
// the signals engine consumes.
func toSignalsAdjustment(adj learner.Adjustment) *signals.Adjustment {
	return &signals.Adjustment{
		RiskMultiplier:  adj.RiskMultiplier,
		PotThreshold:    adj.PotThreshold,
		PlaybookWeights: adj.Weights,
	}
}

func (pl *Pipeline) latestAdjustment(symbol string) *signals.Adjustment {
	return pl.riskState.adjustment(symbol)
}

func (pl *Pipeline) setAdjustment(symbol string, adj learner.Adjustment) {
	pl.riskState.setAdjustment(symbol, toSignalsAdjustment(adj))
}
