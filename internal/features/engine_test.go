package features

import (
	"testing"

	"github.com/n8kahl/dreambot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineComputeFeaturesAccumulatesAcrossBars(t *testing.T) {
	e := NewEngine(DefaultConfig())

	base := int64(1_700_000_000_000_000)
	var last model.FeaturePacket
	for i := 0; i < 20; i++ {
		bar := model.Agg1s{
			TS:     base + int64(i)*1_000_000,
			Symbol: "SPY",
			O:      450 + float64(i)*0.1,
			H:      450.5 + float64(i)*0.1,
			L:      449.5 + float64(i)*0.1,
			C:      450.2 + float64(i)*0.1,
			V:      1000,
		}
		require.True(t, bar.Valid())
		last = e.ComputeFeatures("SPY", bar, nil)
	}

	assert.Greater(t, last.VWAP, 0.0)
	assert.GreaterOrEqual(t, last.VWAPSlope, 0.0)
}

func TestEngineUpdateQuoteFeedsSpreadHistory(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.UpdateQuote(model.NewQuote(1, "SPY", 450.0, 450.1, 100, 100, 0))

	bar := model.Agg1s{TS: 2, Symbol: "SPY", O: 450, H: 450.2, L: 449.9, C: 450.05, V: 10}
	fp := e.ComputeFeatures("SPY", bar, nil)
	assert.Equal(t, "normal", fp.SpreadState())
}

func TestEngineUpdateOptionPopulatesTermStructure(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.UpdateOption("SPY", model.OptionMeta{
		Underlying: "SPY", Symbol: "SPY260116C00450000",
		Strike: 450, Type: "C", Exp: "2025-08-08", IV: 0.22, Delta: 0.5,
	}, 1_753_833_600_000_000) // ~9 days before Exp

	bar := model.Agg1s{TS: 1, Symbol: "SPY", O: 450, H: 450.1, L: 449.9, C: 450, V: 1}
	fp := e.ComputeFeatures("SPY", bar, nil)
	assert.Equal(t, 0.22, fp.IV9d)
}

func TestDaysToExpiryParsesISODate(t *testing.T) {
	now := int64(1_753_833_600_000_000) // 2025-07-30T00:00:00Z
	dte := daysToExpiry("2025-08-08", now)
	assert.Equal(t, 9, dte)
}

func TestDaysToExpiryMalformedReturnsZero(t *testing.T) {
	assert.Equal(t, 0, daysToExpiry("not-a-date", 0))
}
