package backtest

import (
	"github.com/n8kahl/dreambot/internal/features"
	"github.com/n8kahl/dreambot/internal/model"
	"github.com/n8kahl/dreambot/internal/signals"
)

// Trade is one completed entry in a replay run.
type Trade struct {
	TS         int64          `json:"ts"`
	Symbol     string         `json:"symbol"`
	Side       model.Side     `json:"side"`
	Playbook   model.Playbook `json:"playbook"`
	FillPrice  float64        `json:"fill_price"`
	ExitPrice  float64        `json:"exit_price"`
	PnL        float64        `json:"pnl"`
}

// RunnerConfig configures one replay (§4.6).
type RunnerConfig struct {
	FeatureConfig features.Config
	GateConfig    signals.GateConfig
	FillModel     FillModel
	Adjustment    *signals.Adjustment
}

// Runner replays a time-ordered bar sequence through the feature engine
// and signal engine; an entry is priced by the fill model on the current
// fill bar and marked out at the next fill bar's close (§4.6).
// Decision bars (feature/gate evaluation) and fill bars (execution) may be
// two different symbols' sequences, matching the "decision symbol" option
// in §4.6; the single-symbol case passes the same slice as both.
type Runner struct {
	cfg       RunnerConfig
	features  *features.Engine
	signals   *signals.Engine
}

// NewRunner constructs a Runner with fresh feature/signal engines.
func NewRunner(cfg RunnerConfig) *Runner {
	return &Runner{
		cfg:      cfg,
		features: features.NewEngine(cfg.FeatureConfig),
		signals:  signals.NewEngine(cfg.GateConfig),
	}
}

// Replay walks decisionBars (feature/gate evaluation) and fillBars
// (execution prices) in lockstep by index, synthesizing a quote per bar and
// evaluating signals on decisionBars. When an entry triggers at step i, the
// fill price is the fill model applied to fillBars[i]'s synthesized quote
// and the exit price is fillBars[i+1].Close (§4.6); the last step opens no
// trade. Only the first min(len(decisionBars), len(fillBars)) steps are
// replayed. fillBars may be the same slice as decisionBars (the default,
// single-symbol case).
func (r *Runner) Replay(symbol string, decisionBars, fillBars []model.Agg1s) ([]model.FeaturePacket, []Trade) {
	n := len(decisionBars)
	if len(fillBars) < n {
		n = len(fillBars)
	}

	packets := make([]model.FeaturePacket, 0, n)
	var trades []Trade

	for i := 0; i < n; i++ {
		bar := decisionBars[i]
		quote := synthesizeQuote(bar)
		r.features.UpdateQuote(quote)
		r.features.UpdateTrade(symbol, "buy", bar.V)

		fp := r.features.ComputeFeatures(symbol, bar, nil)
		packets = append(packets, fp)

		intent, ok := r.signals.BuildSignal(fp, r.cfg.Adjustment)
		if !ok || i+1 >= n {
			continue
		}

		fillBar := fillBars[i]
		fillQuote := synthesizeQuote(fillBar)
		spread := fillQuote.Ask - fillQuote.Bid
		fillPrice := r.cfg.FillModel.Price(fillQuote.Mid, spread, intent.Side, fp.SpreadState(), 0)

		exitBar := fillBars[i+1]
		sign := 1.0
		if intent.Side == model.Sell {
			sign = -1.0
		}
		pnl := (exitBar.C - fillPrice) * sign * intent.SizeMultiplier

		trades = append(trades, Trade{
			TS:        bar.TS,
			Symbol:    symbol,
			Side:      intent.Side,
			Playbook:  intent.Playbook,
			FillPrice: fillPrice,
			ExitPrice: exitBar.C,
			PnL:       pnl,
		})
	}

	return packets, trades
}

// synthesizeQuote derives a top-of-book quote from a bar per §4.6: bid =
// close-0.05, ask = close+0.05, size = max(v/10, 1), nbbo_age = 10ms.
func synthesizeQuote(bar model.Agg1s) model.Quote {
	size := bar.V / 10
	if size < 1 {
		size = 1
	}
	return model.NewQuote(bar.TS, bar.Symbol, bar.C-0.05, bar.C+0.05, size, size, 10)
}
