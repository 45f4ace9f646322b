// Package signals implements gating, playbook selection, and intent
// construction (§4.3): the bridge from a FeaturePacket to a SignalIntent.
package signals

import (
	"github.com/n8kahl/dreambot/internal/model"
)

// GateConfig holds the thresholds that admit a feature into playbook
// selection. PotThreshold and AdxThreshold may be overridden per-invocation
// by learner adjustments (§4.3).
type GateConfig struct {
	NBBOAgeMsMax    float64
	SpreadPctMax    float64
	TrendThreshold  float64
	AdxThreshold    float64
	PotThreshold    float64
}

// GateResult carries the pass/fail verdict plus the regime/trend scores
// playbook selection needs, so gating is never recomputed downstream.
type GateResult struct {
	Allowed     bool
	TrendScore  float64
	RegimeScore float64
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func liquidityGate(fp model.FeaturePacket, cfg GateConfig) bool {
	if fp.NBBOAgeMs() > cfg.NBBOAgeMsMax {
		return false
	}
	if fp.SpreadPct() > cfg.SpreadPctMax {
		return false
	}
	return fp.SpreadState() != "stressed"
}

// regimeScore computes trend_score and regime_score from vwap_slope and
// adx_3m, per §4.3.
func regimeScore(fp model.FeaturePacket, adxThreshold float64) (trendScore, regime float64) {
	trendScore = clamp(fp.VWAPSlope*1000, -1, 1)
	adxSign := -1.0
	if fp.ADX3m >= adxThreshold {
		adxSign = 1.0
	}
	regime = 0.5 * (trendScore + adxSign)
	return trendScore, regime
}

func probabilityGate(fp model.FeaturePacket, potThreshold float64) bool {
	return fp.PotEst() >= potThreshold
}

// EvaluateGates runs the liquidity, regime, and probability gates in order
// (§4.3). Rejection is silent — callers must check Allowed rather than
// treat a failed gate as an error.
func EvaluateGates(fp model.FeaturePacket, cfg GateConfig) GateResult {
	trendScore, regime := regimeScore(fp, cfg.AdxThreshold)

	if !liquidityGate(fp, cfg) {
		return GateResult{Allowed: false, TrendScore: trendScore, RegimeScore: regime}
	}
	if regime <= cfg.TrendThreshold {
		return GateResult{Allowed: false, TrendScore: trendScore, RegimeScore: regime}
	}
	if !probabilityGate(fp, cfg.PotThreshold) {
		return GateResult{Allowed: false, TrendScore: trendScore, RegimeScore: regime}
	}
	return GateResult{Allowed: true, TrendScore: trendScore, RegimeScore: regime}
}

// liquidityScore degrades from 1.0 by the three rules in §4.3's intent
// construction paragraph.
func liquidityScore(fp model.FeaturePacket) float64 {
	score := 1.0
	if fp.NBBOAgeMs() > 500 {
		score *= 0.5
	}
	if fp.SpreadPct() > 0.005 {
		score *= 0.7
	}
	if fp.SpreadState() == "stressed" {
		score = 0
	}
	return score
}

