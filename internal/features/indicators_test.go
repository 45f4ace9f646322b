package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVWAPEmptyVolumeReturnsLastPrice(t *testing.T) {
	prices := []float64{100, 101, 102}
	volumes := []float64{0, 0, 0}
	assert.Equal(t, 99.5, vwap(prices, volumes, 99.5))
}

func TestVWAPWeightsByVolume(t *testing.T) {
	prices := []float64{100, 102}
	volumes := []float64{1, 1}
	assert.InDelta(t, 101, vwap(prices, volumes, 0), 1e-9)
}

func TestVWAPSlopeUndefinedBelowTwoSamples(t *testing.T) {
	assert.Equal(t, 0.0, vwapSlope([]float64{100}, 30))
	assert.Equal(t, 0.0, vwapSlope(nil, 30))
}

func TestVWAPSlopePositiveForRisingSeries(t *testing.T) {
	series := []float64{100, 101, 102, 103, 104}
	assert.Greater(t, vwapSlope(series, 30), 0.0)
}

func TestClassifySpreadBelowTwoSamplesIsNormal(t *testing.T) {
	assert.Equal(t, "normal", classifySpread(nil, 0.01, 2.0))
	assert.Equal(t, "normal", classifySpread([]float64{0.01}, 0.02, 2.0))
}

func TestClassifySpreadTightAndStressed(t *testing.T) {
	history := make([]float64, 300)
	for i := range history {
		history[i] = 0.005
	}
	// constant history => stdev 0, falls back to normal
	assert.Equal(t, "normal", classifySpread(history, 0.005, 2.0))

	history2 := []float64{0.001, 0.002, 0.003, 0.004, 0.005, 0.006, 0.007, 0.008, 0.009, 0.01}
	state := classifySpread(history2, 0.001, 2.0)
	assert.Equal(t, "tight", state)
}

func TestNBBOAgeMsFloorsAtZero(t *testing.T) {
	assert.Equal(t, 0.0, nbboAgeMs(100, 200))
	assert.Equal(t, 1.0, nbboAgeMs(2000, 1000))
}

func TestATRWilderRequiresFullPeriod(t *testing.T) {
	highs := []float64{10, 11}
	lows := []float64{9, 10}
	closes := []float64{9.5, 10.5}
	assert.Equal(t, 0.0, atrWilder(highs, lows, closes, 14))
}

func TestRealizedVolBelowTwoSamplesIsZero(t *testing.T) {
	assert.Equal(t, 0.0, realizedVol([]float64{0.01}, 300))
	assert.Equal(t, 0.0, realizedVol(nil, 300))
}

func TestProbabilityOfTouchClamps(t *testing.T) {
	assert.Equal(t, 1.0, probabilityOfTouch(0.9))
	assert.Equal(t, 0.0, probabilityOfTouch(-0.1))
	assert.InDelta(t, 0.6, probabilityOfTouch(0.3), 1e-9)
}

func TestCVDStepSignsByAggressor(t *testing.T) {
	assert.Equal(t, 5.0, cvdStep(0, "buy", 5))
	assert.Equal(t, -5.0, cvdStep(0, "sell", 5))
}
