package signals

import "github.com/n8kahl/dreambot/internal/model"

// choosePlaybook implements the selection branches in §4.3. The ORB branch
// reproduces the literal source expression `ts mod 60s < 5min` on a
// microsecond timestamp — as written this is always true (ts mod 60,000,000
// is always less than 300,000,000). This is a known anomaly from the
// original implementation, preserved verbatim rather than "fixed"; see
// design notes on the ORB open question.
func choosePlaybook(ts int64, regimeScore float64) model.Playbook {
	switch {
	case regimeScore > 0.2:
		return model.TrendPullback
	case regimeScore < -0.2:
		return model.BalanceFade
	case ts%(60*1_000_000) < 5*60*1_000_000:
		return model.ORB
	default:
		return model.LatePush
	}
}

// biasByWeights picks the highest-weighted playbook within candidates, or
// the naive choice if no weight beats it (§4.3's learner-bias paragraph).
func biasByWeights(naive model.Playbook, candidates []model.Playbook, weights map[model.Playbook]float64) model.Playbook {
	if len(weights) == 0 {
		return naive
	}
	best := naive
	bestWeight := weights[naive]
	for _, pb := range candidates {
		if w, ok := weights[pb]; ok && w > bestWeight {
			best, bestWeight = pb, w
		}
	}
	return best
}

// Adjustment is the learner's per-invocation override packet (§4.5).
type Adjustment struct {
	RiskMultiplier   float64
	PotThreshold     float64
	AdxThreshold     float64
	PlaybookWeights  map[model.Playbook]float64
}

// Engine evaluates gates, selects a playbook, and constructs the resulting
// intent for one FeaturePacket (§4.3).
type Engine struct {
	BaseGates GateConfig
}

// NewEngine constructs a signal Engine with the given baseline gate config.
func NewEngine(base GateConfig) *Engine {
	return &Engine{BaseGates: base}
}

// BuildSignal runs the full pipeline: gate evaluation (with any learner
// threshold overrides applied), playbook selection (with any learner
// weight bias applied), and intent construction. It returns ok=false when
// gating rejects the feature, matching the "no signal" contract in §4.3.
func (e *Engine) BuildSignal(fp model.FeaturePacket, adj *Adjustment) (model.SignalIntent, bool) {
	cfg := e.BaseGates
	riskMultiplier := 1.0
	var weights map[model.Playbook]float64

	if adj != nil {
		if adj.PotThreshold > 0 {
			cfg.PotThreshold = adj.PotThreshold
		}
		if adj.AdxThreshold > 0 {
			cfg.AdxThreshold = adj.AdxThreshold
		}
		if adj.RiskMultiplier > 0 {
			riskMultiplier = adj.RiskMultiplier
		}
		weights = adj.PlaybookWeights
	}

	gate := EvaluateGates(fp, cfg)
	if !gate.Allowed {
		return model.SignalIntent{}, false
	}

	naive := choosePlaybook(fp.TS, gate.RegimeScore)
	candidates := regimeConsistentSet(gate.RegimeScore)
	selected := biasByWeights(naive, candidates, weights)

	weight := 1.0
	if w, ok := weights[selected]; ok {
		weight = w
	}

	intent := buildIntent(selected, fp, gate, riskMultiplier, weight)
	return intent, true
}
