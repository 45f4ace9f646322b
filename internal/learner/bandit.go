// Package learner implements the adaptive calibration layer (§4.5): a
// contextual bandit over playbooks, a Bayesian-style change-point
// detector, a meta-labeling classifier, triple-barrier trade labeling, and
// calibration-file I/O.
package learner

import (
	"math"
	"math/rand"

	"github.com/n8kahl/dreambot/internal/model"
)

// Reward constants from §4.5.
const (
	RewardFilled    = 0.1
	RewardCancelled = -0.05
)

// armStats accumulates the sufficient statistics for one bandit arm.
type armStats struct {
	count      int
	sumRewards float64
	sumSquares float64
}

func (a armStats) mean() float64 {
	if a.count == 0 {
		return 0
	}
	return a.sumRewards / float64(a.count)
}

func (a armStats) variance() float64 {
	if a.count == 0 {
		return 1 // wide prior before any observations
	}
	mean := a.mean()
	v := a.sumSquares/float64(a.count) - mean*mean
	if v < 0 {
		v = 0
	}
	return v
}

// Bandit is a contextual bandit over the fixed four-playbook arm set
// (§4.5). It is safe for single-goroutine use; callers serialize access.
type Bandit struct {
	arms map[model.Playbook]*armStats
	rng  *rand.Rand
}

// NewBandit constructs a Bandit with all arms at zero statistics. rng may
// be nil to use a process-global source; tests pass a seeded *rand.Rand
// for determinism.
func NewBandit(rng *rand.Rand) *Bandit {
	b := &Bandit{arms: make(map[model.Playbook]*armStats), rng: rng}
	for _, pb := range model.AllPlaybooks {
		b.arms[pb] = &armStats{}
	}
	return b
}

// Select draws one Thompson sample per arm from N(mean, variance/(count+1))
// plus a 0.1*mean(context) bias, and returns the arg-max arm (§4.5).
func (b *Bandit) Select(context []float64) model.Playbook {
	bias := 0.1 * meanOf(context)

	var best model.Playbook
	bestScore := math.Inf(-1)
	for _, pb := range model.AllPlaybooks {
		a := b.arms[pb]
		sigma := math.Sqrt(a.variance() / float64(a.count+1))
		sample := b.normal(a.mean(), sigma) + bias
		if sample > bestScore {
			best, bestScore = pb, sample
		}
	}
	return best
}

func (b *Bandit) normal(mean, sigma float64) float64 {
	if b.rng != nil {
		return mean + sigma*b.rng.NormFloat64()
	}
	return mean + sigma*rand.NormFloat64()
}

// Update folds one observed reward into arm's sufficient statistics.
func (b *Bandit) Update(arm model.Playbook, reward float64) {
	a, ok := b.arms[arm]
	if !ok {
		return
	}
	a.count++
	a.sumRewards += reward
	a.sumSquares += reward * reward
}

// Weights returns the normalized, non-negative per-arm means (§4.5).
func (b *Bandit) Weights() map[model.Playbook]float64 {
	out := make(map[model.Playbook]float64, len(b.arms))
	var total float64
	for pb, a := range b.arms {
		m := a.mean()
		if m < 0 {
			m = 0
		}
		out[pb] = m
		total += m
	}
	if total == 0 {
		for pb := range out {
			out[pb] = 1.0 / float64(len(out))
		}
		return out
	}
	for pb := range out {
		out[pb] /= total
	}
	return out
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
