package oms

import "github.com/n8kahl/dreambot/internal/model"

// Leg is one order in an OTOCO bracket.
type Leg struct {
	Side      model.Side
	OrderType string // "limit" or "stop"
	Price     float64
}

// OTOCO is the three-leg entry/take-profit/stop bracket assembled from a
// risk-admitted OrderRequest (§4.4).
type OTOCO struct {
	Symbol string
	Entry  Leg
	Target Leg
	Stop   Leg
}

// oppositeSide flips BUY<->SELL for the bracket's exit legs.
func oppositeSide(side model.Side) model.Side {
	if side == model.Buy {
		return model.Sell
	}
	return model.Buy
}

// BuildOTOCO assembles the three legs: entry is a limit at
// entry_price +/- offsetTicks on the signed side; target is an
// opposite-side limit at target_price; stop is an opposite-side stop at
// stop_price (§4.4).
func BuildOTOCO(symbol string, req model.OrderRequest, offsetTicks float64) OTOCO {
	sign := 1.0
	if req.Side == model.Sell {
		sign = -1.0
	}
	entryPrice := req.EntryPrice + sign*offsetTicks
	exit := oppositeSide(req.Side)

	return OTOCO{
		Symbol: symbol,
		Entry:  Leg{Side: req.Side, OrderType: "limit", Price: entryPrice},
		Target: Leg{Side: exit, OrderType: "limit", Price: req.TargetPrice},
		Stop:   Leg{Side: exit, OrderType: "stop", Price: req.StopPrice},
	}
}

// ToPayload serializes o into the internal shape
// {symbol, type:"OTOCO", legs:[...]} (§4.4).
func (o OTOCO) ToPayload() map[string]any {
	legPayload := func(l Leg) map[string]any {
		return map[string]any{
			"side":       string(l.Side),
			"order_type": l.OrderType,
			"price":      l.Price,
		}
	}
	return map[string]any{
		"symbol": o.Symbol,
		"type":   "OTOCO",
		"legs":   []map[string]any{legPayload(o.Entry), legPayload(o.Target), legPayload(o.Stop)},
	}
}

// ToBrokerPayload serializes o into the flat broker-specific form with
// orders[0][...], orders[1][...] sub-keys and advanced="otoco" (§4.4). The
// entry leg and its paired exit bracket (target+stop) are the two "orders".
func (o OTOCO) ToBrokerPayload() map[string]any {
	return map[string]any{
		"class":                "otoco",
		"symbol":               o.Symbol,
		"advanced":             "otoco",
		"orders[0][side]":      string(o.Entry.Side),
		"orders[0][type]":      o.Entry.OrderType,
		"orders[0][price]":     o.Entry.Price,
		"orders[1][side]":      string(o.Target.Side),
		"orders[1][type]":      o.Target.OrderType,
		"orders[1][price]":     o.Target.Price,
		"orders[1][stop_side]": string(o.Stop.Side),
		"orders[1][stop_type]": o.Stop.OrderType,
		"orders[1][stop]":      o.Stop.Price,
	}
}
