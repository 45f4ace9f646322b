package backtest

import (
	"testing"

	"github.com/n8kahl/dreambot/internal/features"
	"github.com/n8kahl/dreambot/internal/signals"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func looseGateConfig() signals.GateConfig {
	return signals.GateConfig{
		NBBOAgeMsMax:   100000,
		SpreadPctMax:   10,
		TrendThreshold: -1,
		AdxThreshold:   0,
		PotThreshold:   0,
	}
}

func TestReplayDeterminismSameSeedSameBars(t *testing.T) {
	bars := syntheticBars("SPY", 120)

	cfg := RunnerConfig{
		FeatureConfig: features.DefaultConfig(),
		GateConfig:    looseGateConfig(),
		FillModel:     DefaultFillModel(),
	}

	runner1 := NewRunner(cfg)
	_, trades1 := runner1.Replay("SPY", bars, bars)

	runner2 := NewRunner(cfg)
	_, trades2 := runner2.Replay("SPY", bars, bars)

	require.Equal(t, len(trades1), len(trades2))
	for i := range trades1 {
		assert.InDelta(t, trades1[i].PnL, trades2[i].PnL, 1e-9, "trade %d pnl must match exactly across runs", i)
	}
}

func TestReplayEmitsOneFeaturePacketPerBar(t *testing.T) {
	bars := syntheticBars("SPY", 10)
	cfg := RunnerConfig{
		FeatureConfig: features.DefaultConfig(),
		GateConfig:    looseGateConfig(),
		FillModel:     DefaultFillModel(),
	}
	runner := NewRunner(cfg)
	packets, _ := runner.Replay("SPY", bars, bars)
	assert.Len(t, packets, len(bars))
}

func TestReplayNoTradeOnFinalBarNoLookahead(t *testing.T) {
	bars := syntheticBars("SPY", 1)
	cfg := RunnerConfig{
		FeatureConfig: features.DefaultConfig(),
		GateConfig:    looseGateConfig(),
		FillModel:     DefaultFillModel(),
	}
	runner := NewRunner(cfg)
	_, trades := runner.Replay("SPY", bars, bars)
	assert.Empty(t, trades, "a single bar offers no next bar to fill against")
}
