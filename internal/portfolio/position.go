// Package portfolio implements the mark-to-market accountant: per-symbol
// signed-quantity positions with VWAP cost basis, fed by quotes and order
// fills, producing portfolio snapshots (§4.6).
package portfolio

import (
	"math"

	"github.com/n8kahl/dreambot/internal/model"
)

// Position tracks one symbol's open exposure: signed quantity, VWAP cost
// basis, and the last observed mid for unrealized marking.
type Position struct {
	Qty      int     `json:"qty"`
	AvgPrice float64 `json:"avg_price"`
	LastMid  float64 `json:"last_mid"`
}

// UpdateFill folds one fill into the position and returns the PnL realized
// by this fill, if any. Increasing exposure in the current direction (or
// opening from flat) blends the average price; reducing or flipping
// exposure realizes PnL on the closed portion, matching the original's
// Position.update_fill (§4.6).
func (p *Position) UpdateFill(side model.Side, price float64, qty int) float64 {
	sign := 1
	if side == model.Sell {
		sign = -1
	}
	incoming := sign * qty

	sameDirection := p.Qty == 0 || (p.Qty > 0 && incoming > 0) || (p.Qty < 0 && incoming < 0)
	if sameDirection {
		totalCost := p.AvgPrice*math.Abs(float64(p.Qty)) + price*float64(qty)
		p.Qty += incoming
		if p.Qty != 0 {
			p.AvgPrice = totalCost / math.Abs(float64(p.Qty))
		} else {
			p.AvgPrice = 0
		}
		return 0
	}

	closing := qty
	if absInt(p.Qty) < closing {
		closing = absInt(p.Qty)
	}
	var realized float64
	if p.Qty > 0 {
		realized = (price - p.AvgPrice) * float64(closing)
	} else {
		realized = (price - p.AvgPrice) * float64(-closing)
	}

	newQty := p.Qty + incoming
	switch {
	case newQty == 0:
		p.Qty, p.AvgPrice = 0, 0
	case (p.Qty > 0 && newQty < 0) || (p.Qty < 0 && newQty > 0):
		// Flipped: the remaining exposure opens fresh at the fill price.
		p.Qty, p.AvgPrice = newQty, price
	default:
		p.Qty = newQty
	}
	return realized
}

// Unrealized marks the open position at its last observed mid.
func (p *Position) Unrealized() float64 {
	if p.Qty == 0 {
		return 0
	}
	return (p.LastMid - p.AvgPrice) * float64(p.Qty)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
