package features

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// spreadPct computes (ask-bid)/mid; 0 when mid is 0.
func spreadPct(bid, ask, mid float64) float64 {
	if mid == 0 {
		return 0
	}
	return (ask - bid) / mid
}

// classifySpread grades the current spread_pct against its rolling history
// (§4.2): z <= -1 -> tight, z >= stressZ -> stressed, else normal. Fewer
// than two history samples always classifies as normal.
func classifySpread(history []float64, current float64, stressZ float64) string {
	if len(history) < 2 {
		return "normal"
	}
	sorted := append([]float64(nil), history...)
	sort.Float64s(sorted)
	median := stat.Quantile(0.5, stat.Empirical, sorted, nil)
	sd := stat.StdDev(history, nil)
	if sd == 0 {
		return "normal"
	}
	z := (current - median) / sd
	switch {
	case z <= -1:
		return "tight"
	case z >= stressZ:
		return "stressed"
	default:
		return "normal"
	}
}

// nbboAgeMs computes max(0, barTS-lastQuoteTS)/1000, both in microseconds
// in, milliseconds out (§4.2).
func nbboAgeMs(barTS, lastQuoteTS int64) float64 {
	age := barTS - lastQuoteTS
	if age < 0 {
		age = 0
	}
	return float64(age) / 1000.0
}

// cvdStep folds one trade into the running cumulative volume delta: buy
// aggressor adds size, sell subtracts it.
func cvdStep(cum float64, aggressor string, size float64) float64 {
	if aggressor == "sell" {
		return cum - size
	}
	return cum + size
}
