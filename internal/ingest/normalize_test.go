package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeQuoteDefaultsMidAndNBBOAge(t *testing.T) {
	raw := map[string]any{
		"ts":     1000.0,
		"symbol": "SPY",
		"bid":    100.0,
		"ask":    100.5,
	}
	q, err := NormalizeQuote(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), q.TS)
	assert.InDelta(t, 100.25, q.Mid, 1e-9)
	assert.Equal(t, int64(0), q.NBBOAgeMs)
}

func TestNormalizeQuoteMissingBidIsMalformed(t *testing.T) {
	raw := map[string]any{"ts": 1000.0, "symbol": "SPY", "ask": 100.5}
	_, err := NormalizeQuote(raw)
	assert.ErrorIs(t, err, ErrInputMalformed)
}

func TestNormalizeQuoteMissingSymbolIsMalformed(t *testing.T) {
	raw := map[string]any{"ts": 1000.0, "bid": 1.0, "ask": 1.1}
	_, err := NormalizeQuote(raw)
	assert.ErrorIs(t, err, ErrInputMalformed)
}

func TestNormalizeAggRequiresOpenAndClose(t *testing.T) {
	raw := map[string]any{"ts": 1.0, "symbol": "SPY", "o": 1.0, "c": 1.1}
	agg, err := NormalizeAgg(raw)
	require.NoError(t, err)
	assert.Equal(t, "SPY", agg.Symbol)

	_, err = NormalizeAgg(map[string]any{"ts": 1.0, "symbol": "SPY", "o": 1.0})
	assert.ErrorIs(t, err, ErrInputMalformed)
}

func TestNormalizeOptionMetaDefaultsGreeksAndOI(t *testing.T) {
	raw := map[string]any{
		"ts":         1.0,
		"underlying": "SPY",
		"symbol":     "SPY260116C00500000",
		"strike":     500.0,
	}
	meta, err := NormalizeOptionMeta(raw)
	require.NoError(t, err)
	assert.Equal(t, 0.0, meta.Delta)
	assert.Equal(t, int64(0), meta.OI)
}

func TestNormalizeOptionMetaMissingStrikeIsMalformed(t *testing.T) {
	raw := map[string]any{"ts": 1.0, "underlying": "SPY", "symbol": "X"}
	_, err := NormalizeOptionMeta(raw)
	assert.ErrorIs(t, err, ErrInputMalformed)
}
