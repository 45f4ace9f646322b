package oms

import "github.com/n8kahl/dreambot/internal/model"

// StopSyncConfig configures underlying-driven stop trailing (§9's open
// question: trail_ratio=0.6 default, monotonic-tightening is the only
// hard requirement).
type StopSyncConfig struct {
	ModifyOnTick bool
	TrailRatio   float64
}

// DefaultStopSyncConfig matches original_source's stop_sync.py defaults.
func DefaultStopSyncConfig() StopSyncConfig {
	return StopSyncConfig{ModifyOnTick: true, TrailRatio: 0.6}
}

// ComputeStopFromUnderlying derives a candidate stop from the current
// underlying price, entry price, and the original stop distance, scaled by
// TrailRatio (mirrors compute_stop_from_underlying).
func ComputeStopFromUnderlying(side model.Side, underlyingPrice, entryPrice, originalStop float64, cfg StopSyncConfig) float64 {
	distance := entryPrice - originalStop
	if side == model.Sell {
		distance = originalStop - entryPrice
	}
	trail := distance * cfg.TrailRatio

	if side == model.Buy {
		return underlyingPrice - trail
	}
	return underlyingPrice + trail
}

// AdjustStop applies the monotonic-tightening invariant: a BUY stop never
// loosens (only increases), a SELL stop never loosens (only decreases).
// This is the one hard requirement from §9; trailing vs. anchored
// semantics beyond it are implementation-defined.
func AdjustStop(side model.Side, currentStop, candidateStop float64) float64 {
	if side == model.Buy {
		if candidateStop > currentStop {
			return candidateStop
		}
		return currentStop
	}
	if candidateStop < currentStop {
		return candidateStop
	}
	return currentStop
}
