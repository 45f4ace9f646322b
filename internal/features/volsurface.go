package features

import "gonum.org/v1/gonum/stat"

// nearestTermBucket returns whichever of the three configured DTE buckets
// dte is closest to, in days.
func nearestTermBucket(dte int, short, mid, long int) int {
	best := short
	bestDiff := abs(dte - short)
	for _, b := range []int{mid, long} {
		if d := abs(dte - b); d < bestDiff {
			best, bestDiff = b, d
		}
	}
	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// termStructure reads the three term-bucket IVs and their slopes
// (iv_30d - iv_9d, iv_60d - iv_30d).
type termStructure struct {
	IV9d, IV30d, IV60d   float64
	SlopeNear, SlopeFar  float64
}

func computeTermStructure(terms map[int]float64, short, mid, long int) termStructure {
	iv9 := terms[short]
	iv30 := terms[mid]
	iv60 := terms[long]
	return termStructure{
		IV9d: iv9, IV30d: iv30, IV60d: iv60,
		SlopeNear: iv30 - iv9,
		SlopeFar:  iv60 - iv30,
	}
}

// nearestByDelta returns the iv value in surface whose delta is closest to
// target (in absolute value), or 0 if surface is empty.
func nearestByDelta(surface map[int]ivPoint, target float64) float64 {
	var best ivPoint
	found := false
	bestDiff := 0.0
	for _, p := range surface {
		d := p.delta - target
		if d < 0 {
			d = -d
		}
		if !found || d < bestDiff {
			best, bestDiff, found = p, d, true
		}
	}
	if !found {
		return 0
	}
	return best.iv
}

// smileSkew is IV(put, nearest -target) - IV(call, nearest +target) (§4.2).
func smileSkew(callSurface, putSurface map[int]ivPoint, target float64) float64 {
	putIV := nearestByDelta(putSurface, -target)
	callIV := nearestByDelta(callSurface, target)
	return putIV - callIV
}

// volOfVol is the sample stdev of the IV history ring.
func volOfVol(ivHistory []float64) float64 {
	if len(ivHistory) < 2 {
		return 0
	}
	return stat.StdDev(ivHistory, nil)
}
