package features

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

var standardNormal = distuv.Normal{Mu: 0, Sigma: 1}

// blackScholesD2 computes d2 under the spot=strike heuristic (§4.2): with
// S=K the ln(S/K) term vanishes, leaving
// d1 = (r + 0.5*iv^2)*t / (iv*sqrt(t)), d2 = d1 - iv*sqrt(t).
func blackScholesD2(iv, dteDays, riskFreeRate float64) float64 {
	t := dteDays / 365.0
	if iv <= 0 || t <= 0 {
		return 0
	}
	sqrtT := math.Sqrt(t)
	d1 := (riskFreeRate + 0.5*iv*iv) * t / (iv * sqrtT)
	return d1 - iv*sqrtT
}

// probabilityITM is Phi(d2) for calls, Phi(-d2) for puts.
func probabilityITM(d2 float64, optionType string) float64 {
	if optionType == "P" {
		return standardNormal.CDF(-d2)
	}
	return standardNormal.CDF(d2)
}

// probabilityOfTouch is clamp(2*p_itm, 0, 1) (§4.2).
func probabilityOfTouch(pITM float64) float64 {
	pot := 2 * pITM
	if pot < 0 {
		return 0
	}
	if pot > 1 {
		return 1
	}
	return pot
}
