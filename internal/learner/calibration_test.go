package learner

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalibrationSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "calibration.json")

	cal := Calibration{
		GeneratedAt: "2026-07-30T00:00:00Z",
		Symbols: map[string]SymbolCalibration{
			"SPY": {
				Metrics: map[string]float64{"expectancy": 0.123456},
				Params: SymbolParams{
					PotThreshold:   0.55123,
					AdxThreshold:   20.0,
					RiskMultiplier: 1.10007,
				},
			},
		},
		GlobalParams: SymbolParams{
			PotThreshold:   0.5,
			AdxThreshold:   18.0,
			RiskMultiplier: 1.0,
		},
		RiskMultiplier: 1.0,
		PotThreshold:   0.5,
		AdxThreshold:   18.0,
	}

	require.NoError(t, SaveCalibration(path, cal))

	loaded, err := LoadCalibration(path)
	require.NoError(t, err)

	assert.Equal(t, "2026-07-30T00:00:00Z", loaded.GeneratedAt)
	// 4dp rounding on thresholds.
	assert.InDelta(t, 0.5512, loaded.Symbols["SPY"].Params.PotThreshold, 1e-9)
	assert.InDelta(t, 1.1001, loaded.Symbols["SPY"].Params.RiskMultiplier, 1e-9)
}

func TestCalibrationResolveParamsFallsBackToGlobal(t *testing.T) {
	cal := Calibration{
		GlobalParams: SymbolParams{PotThreshold: 0.5, AdxThreshold: 18, RiskMultiplier: 1.0},
		Symbols: map[string]SymbolCalibration{
			"SPY": {Params: SymbolParams{RiskMultiplier: 1.2}},
		},
	}

	spyParams := cal.ResolveParams("SPY")
	assert.Equal(t, 0.5, spyParams.PotThreshold, "unset per-symbol field falls back to global")
	assert.Equal(t, 1.2, spyParams.RiskMultiplier, "set per-symbol field overrides global")

	unknownParams := cal.ResolveParams("QQQ")
	assert.Equal(t, 0.5, unknownParams.PotThreshold)
	assert.Equal(t, 1.0, unknownParams.RiskMultiplier)
}

func TestCalibrationResolveParamsFlatDefaultsWhenNoGlobalParams(t *testing.T) {
	cal := Calibration{
		RiskMultiplier: 0.9,
		PotThreshold:   0.45,
		AdxThreshold:   15,
	}
	params := cal.ResolveParams("ANY")
	assert.Equal(t, 0.9, params.RiskMultiplier)
	assert.Equal(t, 0.45, params.PotThreshold)
	assert.Equal(t, 15.0, params.AdxThreshold)
}
