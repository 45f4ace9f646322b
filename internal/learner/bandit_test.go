package learner

import (
	"math/rand"
	"testing"

	"github.com/n8kahl/dreambot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBanditSelectDeterministicWithSeededRNG(t *testing.T) {
	b1 := NewBandit(rand.New(rand.NewSource(123)))
	b2 := NewBandit(rand.New(rand.NewSource(123)))

	ctx := []float64{0.2, 0.3}
	for i := 0; i < 10; i++ {
		p1 := b1.Select(ctx)
		p2 := b2.Select(ctx)
		require.Equal(t, p1, p2, "same seed must select the same arm at step %d", i)
		b1.Update(p1, RewardFilled)
		b2.Update(p2, RewardFilled)
	}
}

func TestBanditUpdateAccumulatesStats(t *testing.T) {
	b := NewBandit(rand.New(rand.NewSource(1)))
	b.Update(model.ORB, RewardFilled)
	b.Update(model.ORB, RewardFilled)
	b.Update(model.ORB, RewardCancelled)

	a := b.arms[model.ORB]
	assert.Equal(t, 3, a.count)
	assert.InDelta(t, (0.1+0.1-0.05)/3, a.mean(), 1e-9)
}

func TestBanditWeightsNormalizeToOne(t *testing.T) {
	b := NewBandit(rand.New(rand.NewSource(1)))
	b.Update(model.TrendPullback, 1.0)
	b.Update(model.ORB, 3.0)

	weights := b.Weights()
	var total float64
	for _, w := range weights {
		total += w
		assert.GreaterOrEqual(t, w, 0.0)
	}
	assert.InDelta(t, 1.0, total, 1e-9)
	assert.Greater(t, weights[model.ORB], weights[model.TrendPullback])
}

func TestBanditWeightsUniformFallbackWhenAllZero(t *testing.T) {
	b := NewBandit(nil)
	weights := b.Weights()
	for _, pb := range model.AllPlaybooks {
		assert.InDelta(t, 1.0/float64(len(model.AllPlaybooks)), weights[pb], 1e-9)
	}
}
