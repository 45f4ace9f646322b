package learner

// TripleBarrierLabel classifies a price path against an entry and two
// signed barrier moves, within a maximum step count (§4.5): +1 if the
// upper barrier is touched first, -1 if the lower, 0 if neither within
// maxSteps.
func TripleBarrierLabel(path []float64, entry, upperMove, lowerMove float64, maxSteps int) int {
	upper := entry + upperMove
	lower := entry + lowerMove

	steps := maxSteps
	if steps > len(path) {
		steps = len(path)
	}

	for i := 0; i < steps; i++ {
		p := path[i]
		if p >= upper {
			return 1
		}
		if p <= lower {
			return -1
		}
	}
	return 0
}
