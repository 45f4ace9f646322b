package portfolio

import (
	"math"
	"sync"

	"github.com/n8kahl/dreambot/internal/model"
)

// OpenPosition is one symbol's entry in a Snapshot's positions list.
type OpenPosition struct {
	Symbol     string  `json:"symbol"`
	Qty        int     `json:"qty"`
	AvgPrice   float64 `json:"avg_price"`
	Mid        float64 `json:"mid"`
	Unrealized float64 `json:"unrealized"`
}

// Snapshot is the portfolio stream entry published on every quote or fill
// (§4.6).
type Snapshot struct {
	TS            int64          `json:"ts"`
	RealizedPnL   float64        `json:"realized_pnl"`
	UnrealizedPnL float64        `json:"unrealized_pnl"`
	TotalPnL      float64        `json:"total_pnl"`
	Positions     []OpenPosition `json:"positions"`
}

func round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }

// Accountant is the mark-to-market position tracker: it owns one Position
// per symbol and the running realized PnL total, guarded by a mutex since
// quote and execution handlers run concurrently.
type Accountant struct {
	mu          sync.Mutex
	positions   map[string]*Position
	realizedPnL float64
}

// NewAccountant constructs an empty Accountant.
func NewAccountant() *Accountant {
	return &Accountant{positions: make(map[string]*Position)}
}

// MarkQuote updates a known symbol's last mid from a top-of-book quote. It
// is a no-op for symbols with no tracked position, matching the original's
// mark_quote (positions are only created by fills).
func (a *Accountant) MarkQuote(q model.Quote) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if pos, ok := a.positions[q.Symbol]; ok {
		pos.LastMid = q.Mid
	}
}

// ApplyFill folds one fill into symbol's position, creating it if absent,
// and accumulates any realized PnL.
func (a *Accountant) ApplyFill(symbol string, side model.Side, price float64, qty int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	pos, ok := a.positions[symbol]
	if !ok {
		pos = &Position{}
		a.positions[symbol] = pos
	}
	a.realizedPnL += pos.UpdateFill(side, price, qty)
}

// ApplyOrderStatus extracts the first fill from a broker status update and
// applies it (§4.6). The symbol is the echoed request's option_symbol, else
// its underlying, else the client_order_id; the side is the echoed
// request's side, BUY when absent. Only the OrderStatus shape is read;
// top-level execution-report fields outside it are not. It is a no-op if
// the status carries no fill.
func (a *Accountant) ApplyOrderStatus(status model.OrderStatus) {
	if len(status.Fills) == 0 {
		return
	}
	fill := status.Fills[0]
	if fill.Qty <= 0 {
		return
	}

	symbol := status.RequestClientOrderID()
	if req := status.Request; req != nil {
		if sym, ok := req["option_symbol"].(string); ok && sym != "" {
			symbol = sym
		} else if sym, ok := req["underlying"].(string); ok && sym != "" {
			symbol = sym
		}
	}
	if symbol == "" {
		return
	}

	side := model.Buy
	if req := status.Request; req != nil {
		if s, ok := req["side"].(string); ok {
			side = model.Side(s)
		}
	}

	a.ApplyFill(symbol, side, fill.Price, int(math.Round(fill.Qty)))
}

// Snapshot produces a §4.6 snapshot at ts: realized/unrealized/total PnL
// rounded to 6dp, and one entry per open (non-zero) position.
func (a *Accountant) Snapshot(ts int64) Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	var unrealized float64
	open := make([]OpenPosition, 0, len(a.positions))
	for symbol, pos := range a.positions {
		unrealized += pos.Unrealized()
		if pos.Qty == 0 {
			continue
		}
		open = append(open, OpenPosition{
			Symbol:     symbol,
			Qty:        pos.Qty,
			AvgPrice:   round6(pos.AvgPrice),
			Mid:        round6(pos.LastMid),
			Unrealized: round6(pos.Unrealized()),
		})
	}

	return Snapshot{
		TS:            ts,
		RealizedPnL:   round6(a.realizedPnL),
		UnrealizedPnL: round6(unrealized),
		TotalPnL:      round6(a.realizedPnL + unrealized),
		Positions:     open,
	}
}
