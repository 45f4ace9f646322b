package backtest

import "math"

// Report summarizes a completed replay (§4.6): expectancy, win rate,
// average win/loss, and max drawdown over the realized trade PnL series.
type Report struct {
	Trades      int     `json:"trades"`
	WinRate     float64 `json:"win_rate"`
	Expectancy  float64 `json:"expectancy"`
	AvgWin      float64 `json:"avg_win"`
	AvgLoss     float64 `json:"avg_loss"`
	MaxDrawdown float64 `json:"max_drawdown"`
}

// Summarize computes a Report from a trade series. An empty series yields
// a zero-value Report.
func Summarize(trades []Trade) Report {
	if len(trades) == 0 {
		return Report{}
	}

	var wins, losses int
	var sumWin, sumLoss, sumPnL float64
	for _, t := range trades {
		sumPnL += t.PnL
		if t.PnL > 0 {
			wins++
			sumWin += t.PnL
		} else if t.PnL < 0 {
			losses++
			sumLoss += t.PnL
		}
	}

	report := Report{
		Trades:     len(trades),
		WinRate:    float64(wins) / float64(len(trades)),
		Expectancy: sumPnL / float64(len(trades)),
	}
	if wins > 0 {
		report.AvgWin = sumWin / float64(wins)
	}
	if losses > 0 {
		report.AvgLoss = sumLoss / float64(losses)
	}
	report.MaxDrawdown = maxDrawdown(trades)
	return report
}

// maxDrawdown walks the cumulative PnL curve and returns the largest
// peak-to-trough decline (a non-negative magnitude).
func maxDrawdown(trades []Trade) float64 {
	var cumulative, peak, worst float64
	for _, t := range trades {
		cumulative += t.PnL
		if cumulative > peak {
			peak = cumulative
		}
		if drawdown := peak - cumulative; drawdown > worst {
			worst = drawdown
		}
	}
	return math.Abs(worst)
}
