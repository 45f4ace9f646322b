package signals

import "github.com/n8kahl/dreambot/internal/model"

// playbookSpec is the static per-playbook table from §4.3.
type playbookSpec struct {
	sideFromRegime bool // true: side = sign(regime); false: side is fixed
	fixedSide      model.Side
	opposite       bool // true: side is opposite of regime sign (BALANCE_FADE)
	targetATR      float64
	stopATR        float64 // negative, per spec
	timeStopSecs   int
	filters        model.OptionFilters
	baseSize       float64 // size_multiplier base factor, per playbooks.py
}

var playbookTable = map[model.Playbook]playbookSpec{
	model.TrendPullback: {
		sideFromRegime: true,
		targetATR:      0.7, stopATR: -0.45, timeStopSecs: 240,
		filters:  model.OptionFilters{DeltaMin: 0.40, DeltaMax: 0.55, DTEMin: 0, DTEMax: 1, SpreadPctMax: 0.01},
		baseSize: 1.0,
	},
	model.BalanceFade: {
		sideFromRegime: true, opposite: true,
		targetATR: 0.5, stopATR: -0.35, timeStopSecs: 180,
		filters:  model.OptionFilters{DeltaMin: 0.30, DeltaMax: 0.40, DTEMin: 1, DTEMax: 3, SpreadPctMax: 0.01},
		baseSize: 0.6,
	},
	model.ORB: {
		fixedSide: model.Buy,
		targetATR: 0.8, stopATR: -0.5, timeStopSecs: 300,
		filters:  model.OptionFilters{DeltaMin: 0.45, DeltaMax: 0.55, DTEMin: 0, DTEMax: 1, SpreadPctMax: 0.01},
		baseSize: 0.5,
	},
	model.LatePush: {
		fixedSide: model.Buy,
		targetATR: 0.4, stopATR: -0.25, timeStopSecs: 120,
		filters:  model.OptionFilters{DeltaMin: 0.35, DeltaMax: 0.45, DTEMin: 0, DTEMax: 1, SpreadPctMax: 0.01},
		baseSize: 0.3,
	},
}

func sideForPlaybook(pb model.Playbook, regimeScore float64) model.Side {
	spec := playbookTable[pb]
	if !spec.sideFromRegime {
		return spec.fixedSide
	}
	positive := regimeScore >= 0
	if spec.opposite {
		positive = !positive
	}
	if positive {
		return model.Buy
	}
	return model.Sell
}

// regimeConsistentSet is the candidate set a learner weight bias chooses
// from, keyed by which of the three selection branches fired (§4.3).
func regimeConsistentSet(regimeScore float64) []model.Playbook {
	switch {
	case regimeScore > 0.2:
		return []model.Playbook{model.TrendPullback, model.LatePush}
	case regimeScore < -0.2:
		return []model.Playbook{model.BalanceFade, model.ORB}
	default:
		return []model.Playbook{model.ORB, model.LatePush}
	}
}

// buildIntent constructs a SignalIntent from a selected playbook and the
// feature packet that triggered it (§4.3's intent-construction paragraph).
func buildIntent(pb model.Playbook, fp model.FeaturePacket, gate GateResult, riskMultiplier float64, playbookWeight float64) model.SignalIntent {
	spec := playbookTable[pb]
	side := sideForPlaybook(pb, gate.RegimeScore)

	atr := fp.ATR1m
	sizeMultiplier := spec.baseSize * gate.TrendScore * liquidityScore(fp) * riskMultiplier * playbookWeight

	return model.SignalIntent{
		TS:                   fp.TS,
		Underlying:           fp.Symbol,
		Side:                 side,
		Playbook:             pb,
		EntryTrigger:         entryTrigger(pb),
		TargetUnderlyingMove: spec.targetATR * atr,
		StopUnderlyingMove:   spec.stopATR * atr,
		TimeStopSecs:         spec.timeStopSecs,
		OptionFilters:        spec.filters,
		SizeMultiplier:       sizeMultiplier,
	}
}

// entryTrigger names the playbook's arming condition for downstream audit
// and UI display; it carries no computational weight of its own.
func entryTrigger(pb model.Playbook) model.EntryTrigger {
	switch pb {
	case model.TrendPullback:
		return model.EntryTrigger{Type: "vwap_reclaim", Band: "1", Confirmations: []string{"adx_ok"}}
	case model.BalanceFade:
		return model.EntryTrigger{Type: "band_fade", Band: "2", Confirmations: []string{"regime_negative"}}
	case model.ORB:
		return model.EntryTrigger{Type: "opening_range_break", Band: "1"}
	default:
		return model.EntryTrigger{Type: "late_session_push", Band: "1"}
	}
}
