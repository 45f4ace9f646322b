// Package backtest implements the deterministic single-threaded replay
// harness and the grid-search calibrator (§4.6).
package backtest

import "github.com/n8kahl/dreambot/internal/model"

// FillModel computes a simulated fill price from the synthesized quote and
// microstructure state, per §4.6's fill-model formula:
//
//	price = mid + side_sign*(spread/2 + slippage)
//	slippage = base + stress_penalty + 0.001*event_rate
//
// stress_penalty is +2*base if spreadState == "stressed", -0.5*base if
// spreadState == "tight", 0 otherwise.
type FillModel struct {
	BaseSlippage float64
}

// DefaultFillModel returns the §4.6 baseline slippage of 0.01.
func DefaultFillModel() FillModel {
	return FillModel{BaseSlippage: 0.01}
}

// sideSign is +1 for BUY, -1 for SELL.
func sideSign(side model.Side) float64 {
	if side == model.Sell {
		return -1
	}
	return 1
}

// Price computes the fill price for one trade.
func (fm FillModel) Price(mid, spread float64, side model.Side, spreadState string, eventRate float64) float64 {
	slippage := fm.BaseSlippage
	switch spreadState {
	case "stressed":
		slippage += 2 * fm.BaseSlippage
	case "tight":
		slippage -= 0.5 * fm.BaseSlippage
	}
	slippage += 0.001 * eventRate

	sign := sideSign(side)
	return mid + sign*(spread/2+slippage)
}
