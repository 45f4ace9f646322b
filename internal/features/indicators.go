package features

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// vwap computes Σ(price·vol)/Σ(vol) over the retained window. The
// degenerate zero-volume case falls back to the last traded price (§4.2).
func vwap(prices, volumes []float64, lastPrice float64) float64 {
	var pv, v float64
	for i := range prices {
		pv += prices[i] * volumes[i]
		v += volumes[i]
	}
	if v == 0 {
		return lastPrice
	}
	return pv / v
}

// vwapBands returns vwap ± k*sigma for k in {1, 2}, sigma being the sample
// stdev of (price - vwap) over the trailing window samples.
func vwapBands(prices []float64, vwapValue float64, window int) map[string][2]float64 {
	sample := prices
	if window < len(sample) {
		sample = sample[len(sample)-window:]
	}
	if len(sample) < 2 {
		return map[string][2]float64{
			"1": {vwapValue, vwapValue},
			"2": {vwapValue, vwapValue},
		}
	}
	devs := make([]float64, len(sample))
	for i, p := range sample {
		devs[i] = p - vwapValue
	}
	sigma := stat.StdDev(devs, nil)
	return map[string][2]float64{
		"1": {vwapValue - sigma, vwapValue + sigma},
		"2": {vwapValue - 2*sigma, vwapValue + 2*sigma},
	}
}

// vwapSlope fits a least-squares line to the trailing `lookback` VWAP curve
// samples and returns its slope; undefined (0) below two samples.
func vwapSlope(vwapSeries []float64, lookback int) float64 {
	sample := vwapSeries
	if lookback < len(sample) {
		sample = sample[len(sample)-lookback:]
	}
	if len(sample) < 2 {
		return 0
	}
	xs := make([]float64, len(sample))
	for i := range xs {
		xs[i] = float64(i)
	}
	_, slope := stat.LinearRegression(xs, sample, nil, false)
	return slope
}

// trueRange computes max(h-l, |h-prevClose|, |l-prevClose|). When there is
// no previous close, it degenerates to h-l.
func trueRange(h, l, prevClose float64, haveClose bool) float64 {
	tr := h - l
	if haveClose {
		tr = math.Max(tr, math.Abs(h-prevClose))
		tr = math.Max(tr, math.Abs(l-prevClose))
	}
	return tr
}

// wilderSmooth runs Wilder's smoothing recurrence over series with the
// given period: seed is the simple average of the first `period` samples,
// then each subsequent value is prev - prev/period + sample. Returns the
// final smoothed value, or 0 if fewer than `period` samples are present.
func wilderSmooth(series []float64, period int) float64 {
	out := wilderSmoothSeries(series, period)
	if len(out) == 0 {
		return 0
	}
	return out[len(out)-1]
}

// wilderSmoothSeries is wilderSmooth but returns the full smoothed series
// (one value per input sample from index period-1 onward), needed to chain
// a second Wilder smoothing pass (as ADX does over DX).
func wilderSmoothSeries(series []float64, period int) []float64 {
	if len(series) < period || period <= 0 {
		return nil
	}
	var sum float64
	for _, v := range series[:period] {
		sum += v
	}
	smoothed := sum / float64(period)
	out := []float64{smoothed}
	for _, v := range series[period:] {
		smoothed = smoothed - smoothed/float64(period) + v
		out = append(out, smoothed)
	}
	return out
}

// atrWilder computes atr_1m: Wilder-smoothed true range over the trailing
// `period` bars built from highs/lows/closes (§4.2).
func atrWilder(highs, lows, closes []float64, period int) float64 {
	trs := trueRanges(highs, lows, closes)
	return wilderSmooth(trs, period)
}

func trueRanges(highs, lows, closes []float64) []float64 {
	out := make([]float64, len(highs))
	for i := range highs {
		if i == 0 {
			out[i] = trueRange(highs[i], lows[i], 0, false)
			continue
		}
		out[i] = trueRange(highs[i], lows[i], closes[i-1], true)
	}
	return out
}

// fastATRStep advances the exponential fast ATR given one new true-range
// sample, with alpha = 2/(fastSecs+1).
func fastATRStep(prev float64, havePrev bool, tr float64, fastSecs int) float64 {
	alpha := 2.0 / (float64(fastSecs) + 1.0)
	if !havePrev {
		return tr
	}
	return prev + alpha*(tr-prev)
}

// adxWilder computes +DI/-DI/DX/ADX over the trailing `period` bars, with DI
// ratios clamped against a 1e-9 minimum denominator (§4.2).
func adxWilder(highs, lows, closes []float64, period int) float64 {
	n := len(highs)
	if n < period+1 {
		return 0
	}

	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	trs := make([]float64, n)
	for i := 1; i < n; i++ {
		upMove := highs[i] - highs[i-1]
		downMove := lows[i-1] - lows[i]
		if upMove > downMove && upMove > 0 {
			plusDM[i] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM[i] = downMove
		}
		trs[i] = trueRange(highs[i], lows[i], closes[i-1], true)
	}

	smoothedTR := wilderSmoothSeries(trs[1:], period)
	smoothedPlusDM := wilderSmoothSeries(plusDM[1:], period)
	smoothedMinusDM := wilderSmoothSeries(minusDM[1:], period)

	length := len(smoothedTR)
	if len(smoothedPlusDM) < length {
		length = len(smoothedPlusDM)
	}
	if len(smoothedMinusDM) < length {
		length = len(smoothedMinusDM)
	}
	if length == 0 {
		return 0
	}

	dxSeries := make([]float64, length)
	for i := 0; i < length; i++ {
		denom := math.Max(smoothedTR[i], 1e-9)
		plusDI := 100 * smoothedPlusDM[i] / denom
		minusDI := 100 * smoothedMinusDM[i] / denom
		dxDenom := math.Max(plusDI+minusDI, 1e-9)
		dxSeries[i] = 100 * math.Abs(plusDI-minusDI) / dxDenom
	}

	return wilderSmooth(dxSeries, period)
}

// realizedVol scales the sample stdev of log-returns by sqrt(252*390*60) to
// annualize a per-second return series (§4.2).
func realizedVol(returnsSeries []float64, window int) float64 {
	sample := returnsSeries
	if window < len(sample) {
		sample = sample[len(sample)-window:]
	}
	if len(sample) < 2 {
		return 0
	}
	return stat.StdDev(sample, nil) * math.Sqrt(252*390*60)
}
