package learner

import (
	"math"
	"sync"

	"github.com/n8kahl/dreambot/internal/model"
)

// baseParams are the un-adjusted defaults a calibration file may override
// per symbol (§4.5). Callers typically derive these from a loaded
// Calibration via ResolveParams.
type baseParams struct {
	PotThreshold   float64
	RiskMultiplier float64
}

// symbolRuntime holds the live learner state for one symbol: its bandit,
// change-point detector, and calibrated base parameters.
type symbolRuntime struct {
	bandit *Bandit
	cp     *ChangePoint
	base   baseParams
}

// Adjustment is the learner_adj packet published downstream (§4.5): the
// signal stage applies RiskMultiplier to intent sizing and PotThreshold as
// the gating threshold override; Playbook and Weights feed bandit-biased
// playbook selection.
type Adjustment struct {
	Symbol         string                    `json:"symbol"`
	RiskMultiplier float64                   `json:"risk_multiplier"`
	PotThreshold   float64                   `json:"pot_threshold"`
	ChangePoint    bool                      `json:"change_point"`
	Playbook       model.Playbook            `json:"playbook"`
	Weights        map[model.Playbook]float64 `json:"weights"`
}

// Service is the adaptive calibration layer (§4.5): it owns one bandit and
// one change-point detector per symbol, derives per-tick adjustment
// packets from incoming features, and folds back observed order outcomes
// as bandit rewards.
type Service struct {
	mu   sync.Mutex
	rt   map[string]*symbolRuntime
	cal  Calibration
	rng  func() *Bandit
}

// NewService constructs a Service seeded from a loaded Calibration. newBandit,
// if non-nil, is used to construct each symbol's Bandit (tests pass a
// factory closing over a seeded *rand.Rand for determinism); nil uses the
// process-global source.
func NewService(cal Calibration, newBandit func() *Bandit) *Service {
	if newBandit == nil {
		newBandit = func() *Bandit { return NewBandit(nil) }
	}
	return &Service{
		rt:  make(map[string]*symbolRuntime),
		cal: cal,
		rng: newBandit,
	}
}

// Reload swaps in a freshly computed Calibration (the nightly recalibration
// path, original_source/dreambot/ops/nightly_calibration.py) and refreshes
// every already-running symbol's base params from it, keeping each
// symbol's live bandit and change-point detector intact.
func (s *Service) Reload(cal Calibration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cal = cal
	for symbol, rt := range s.rt {
		params := s.cal.ResolveParams(symbol)
		if params.PotThreshold != 0 {
			rt.base.PotThreshold = params.PotThreshold
		}
		if params.RiskMultiplier != 0 {
			rt.base.RiskMultiplier = params.RiskMultiplier
		}
	}
}

func (s *Service) runtimeFor(symbol string) *symbolRuntime {
	rt, ok := s.rt[symbol]
	if ok {
		return rt
	}
	params := s.cal.ResolveParams(symbol)
	rt = &symbolRuntime{
		bandit: s.rng(),
		cp:     NewChangePoint(),
		base: baseParams{
			PotThreshold:   params.PotThreshold,
			RiskMultiplier: params.RiskMultiplier,
		},
	}
	if rt.base.PotThreshold == 0 {
		rt.base.PotThreshold = 0.55
	}
	if rt.base.RiskMultiplier == 0 {
		rt.base.RiskMultiplier = 1.0
	}
	s.rt[symbol] = rt
	return rt
}

// SelectPlaybook draws one bandit arm for symbol given a feature-derived
// context vector.
func (s *Service) SelectPlaybook(symbol string, context []float64) model.Playbook {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runtimeFor(symbol).bandit.Select(context)
}

// UpdateReward folds an observed order outcome back into symbol's bandit.
func (s *Service) UpdateReward(symbol string, arm model.Playbook, reward float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runtimeFor(symbol).bandit.Update(arm, reward)
}

// DetectChange folds one spread_pct sample into symbol's change-point
// detector and returns whether it currently fires.
func (s *Service) DetectChange(symbol string, spreadPct float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runtimeFor(symbol).cp.Update(spreadPct)
}

// LabelTrade applies triple-barrier labeling to a realized price path
// against an entry and the symbol/playbook's configured barrier moves.
func (s *Service) LabelTrade(path []float64, entry, upperMove, lowerMove float64, maxSteps int) int {
	return TripleBarrierLabel(path, entry, upperMove, lowerMove, maxSteps)
}

// BuildAdjustment derives the learner_adj packet for one feature tick
// (§4.5):
//
//	change-point firing forces risk_multiplier = 0.8; otherwise
//	risk_multiplier = base * clamp(1/(1+5*vol_of_vol), 0.5, 1.5)
//
//	pot_threshold = clamp(base_pot + min(0.2, regime*0.1), 0.4, 0.7)
func (s *Service) BuildAdjustment(fp model.FeaturePacket, regime float64) Adjustment {
	s.mu.Lock()
	rt := s.runtimeFor(fp.Symbol)
	changed := rt.cp.Update(fp.SpreadPct())
	base := rt.base
	weights := rt.bandit.Weights()
	playbook := rt.bandit.Select([]float64{fp.VWAPSlope, fp.ADX3m, regime})
	s.mu.Unlock()

	var riskMultiplier float64
	if changed {
		riskMultiplier = 0.8
	} else {
		dampening := clampFloat(1.0/(1.0+5*fp.VolOfVol), 0.5, 1.5)
		riskMultiplier = base.RiskMultiplier * dampening
	}

	potThreshold := clampFloat(base.PotThreshold+math.Min(0.2, regime*0.1), 0.4, 0.7)

	return Adjustment{
		Symbol:         fp.Symbol,
		RiskMultiplier: riskMultiplier,
		PotThreshold:   potThreshold,
		ChangePoint:    changed,
		Playbook:       playbook,
		Weights:        weights,
	}
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
