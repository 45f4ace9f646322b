package portfolio

import (
	"testing"

	"github.com/n8kahl/dreambot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountantSnapshotOmitsFlatPositions(t *testing.T) {
	a := NewAccountant()
	a.ApplyFill("SPY", model.Buy, 10.0, 5)
	a.ApplyFill("SPY", model.Sell, 12.0, 5)

	snap := a.Snapshot(1)
	assert.Empty(t, snap.Positions)
	assert.InDelta(t, 10.0, snap.RealizedPnL, 1e-9)
}

func TestAccountantSnapshotIncludesOpenPositionMarked(t *testing.T) {
	a := NewAccountant()
	a.ApplyFill("SPY", model.Buy, 10.0, 5)
	a.MarkQuote(model.Quote{Symbol: "SPY", Mid: 12.0})

	snap := a.Snapshot(2)
	require.Len(t, snap.Positions, 1)
	assert.Equal(t, "SPY", snap.Positions[0].Symbol)
	assert.InDelta(t, 10.0, snap.Positions[0].Unrealized, 1e-9)
	assert.InDelta(t, 10.0, snap.UnrealizedPnL, 1e-9)
	assert.InDelta(t, 10.0, snap.TotalPnL, 1e-9)
}

func TestAccountantMarkQuoteNoopForUntrackedSymbol(t *testing.T) {
	a := NewAccountant()
	a.MarkQuote(model.Quote{Symbol: "QQQ", Mid: 100})
	snap := a.Snapshot(1)
	assert.Empty(t, snap.Positions)
}

func TestAccountantApplyOrderStatusExtractsFirstFill(t *testing.T) {
	a := NewAccountant()
	status := model.OrderStatus{
		Fills: []model.Fill{{Price: 1.5, Qty: 3}},
		Request: map[string]any{
			"option_symbol": "SPY260101C00500000",
			"side":          "BUY",
		},
	}
	a.ApplyOrderStatus(status)

	snap := a.Snapshot(1)
	require.Len(t, snap.Positions, 1)
	assert.Equal(t, "SPY260101C00500000", snap.Positions[0].Symbol)
	assert.Equal(t, 3, snap.Positions[0].Qty)
	assert.InDelta(t, 1.5, snap.Positions[0].AvgPrice, 1e-9)
}

func TestAccountantApplyOrderStatusNoopWithoutFills(t *testing.T) {
	a := NewAccountant()
	a.ApplyOrderStatus(model.OrderStatus{Request: map[string]any{"option_symbol": "SPY"}})
	snap := a.Snapshot(1)
	assert.Empty(t, snap.Positions)
	assert.Equal(t, 0.0, snap.RealizedPnL)
}

func TestAccountantRoundsToSixDecimalPlaces(t *testing.T) {
	a := NewAccountant()
	a.ApplyFill("SPY", model.Buy, 10.123456789, 3)
	a.MarkQuote(model.Quote{Symbol: "SPY", Mid: 10.987654321})
	snap := a.Snapshot(1)
	require.Len(t, snap.Positions, 1)
	assert.Equal(t, round6(10.123456789), snap.Positions[0].AvgPrice)
}
