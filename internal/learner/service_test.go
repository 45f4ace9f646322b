package learner

import (
	"math/rand"
	"testing"

	"github.com/n8kahl/dreambot/internal/model"
	"github.com/stretchr/testify/assert"
)

func seededService(t *testing.T, cal Calibration) *Service {
	t.Helper()
	seed := int64(0)
	return NewService(cal, func() *Bandit {
		seed++
		return NewBandit(rand.New(rand.NewSource(seed)))
	})
}

func TestBuildAdjustmentRiskMultiplierDampensWithVolOfVol(t *testing.T) {
	cal := Calibration{GlobalParams: SymbolParams{PotThreshold: 0.5, RiskMultiplier: 1.0}}
	svc := seededService(t, cal)

	fp := model.FeaturePacket{
		Symbol:   "SPY",
		VolOfVol: 0.2,
		Micro:    map[string]any{"spread_pct": 0.001},
	}

	adj := svc.BuildAdjustment(fp, 0.0)
	assert.False(t, adj.ChangePoint)
	expected := 1.0 * clampFloat(1.0/(1.0+5*0.2), 0.5, 1.5)
	assert.InDelta(t, expected, adj.RiskMultiplier, 1e-9)
}

func TestBuildAdjustmentForcesRiskMultiplierOnChangePoint(t *testing.T) {
	cal := Calibration{GlobalParams: SymbolParams{PotThreshold: 0.5, RiskMultiplier: 1.2}}
	svc := seededService(t, cal)

	// Drive spread_pct through a stable-then-divergent series to trip the
	// change-point detector deterministically.
	for i := 0; i < changePointWindow/2; i++ {
		svc.DetectChange("SPY", 0.0)
	}
	var lastAdj Adjustment
	for i := 0; i < changePointWindow/2; i++ {
		fp := model.FeaturePacket{
			Symbol:   "SPY",
			VolOfVol: 0.0,
			Micro:    map[string]any{"spread_pct": 50.0},
		}
		lastAdj = svc.BuildAdjustment(fp, 0.0)
	}

	assert.True(t, lastAdj.ChangePoint)
	assert.InDelta(t, 0.8, lastAdj.RiskMultiplier, 1e-9)
}

func TestBuildAdjustmentPotThresholdClampedByRegime(t *testing.T) {
	cal := Calibration{GlobalParams: SymbolParams{PotThreshold: 0.6, RiskMultiplier: 1.0}}
	svc := seededService(t, cal)

	fp := model.FeaturePacket{Symbol: "SPY", Micro: map[string]any{"spread_pct": 0.0}}

	// regime*0.1 = 0.3 would push 0.6+0.3=0.9, but min(0.2,...) caps the add
	// at 0.2, then the overall clamp caps the result at 0.7.
	adj := svc.BuildAdjustment(fp, 3.0)
	assert.InDelta(t, 0.7, adj.PotThreshold, 1e-9)

	// Negative regime pulls below the base, clamped at the 0.4 floor.
	lowCal := Calibration{GlobalParams: SymbolParams{PotThreshold: 0.42, RiskMultiplier: 1.0}}
	lowSvc := seededService(t, lowCal)
	lowAdj := lowSvc.BuildAdjustment(fp, -5.0)
	assert.InDelta(t, 0.4, lowAdj.PotThreshold, 1e-9)
}

func TestSelectPlaybookAndUpdateRewardRoundTrip(t *testing.T) {
	cal := Calibration{}
	svc := seededService(t, cal)

	pb := svc.SelectPlaybook("SPY", []float64{0.1, 0.2})
	svc.UpdateReward("SPY", pb, RewardFilled)

	weights := svc.rt["SPY"].bandit.Weights()
	var total float64
	for _, w := range weights {
		total += w
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestLabelTradeDelegatesToTripleBarrier(t *testing.T) {
	svc := seededService(t, Calibration{})
	label := svc.LabelTrade([]float64{100, 105}, 100, 3, -3, 5)
	assert.Equal(t, 1, label)
}

func TestRuntimeForDefaultsWhenCalibrationEmpty(t *testing.T) {
	svc := seededService(t, Calibration{})
	rt := svc.runtimeFor("NEWSYM")
	assert.Equal(t, 0.55, rt.base.PotThreshold)
	assert.Equal(t, 1.0, rt.base.RiskMultiplier)
}
