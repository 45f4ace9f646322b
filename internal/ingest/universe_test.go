package ingest

import (
	"testing"

	"github.com/n8kahl/dreambot/internal/model"
	"github.com/stretchr/testify/assert"
)

func sampleChain() []model.OptionMeta {
	return []model.OptionMeta{
		{Symbol: "FAR", Strike: 400, Delta: 0.1},
		{Symbol: "ATM", Strike: 500, Delta: 0.5},
		{Symbol: "NEAR", Strike: 505, Delta: 0.45},
	}
}

func TestBuildUniverseRanksByDeltaProximityThenStrike(t *testing.T) {
	m := NewUniverseManager(2, 5, 60)
	rotation := m.BuildUniverse("SPY", sampleChain(), 1000)

	assert.Equal(t, []string{"ATM", "NEAR"}, rotation.Contracts)
}

func TestBuildUniverseWithinRotateIntervalReturnsCached(t *testing.T) {
	m := NewUniverseManager(2, 5, 60)
	first := m.BuildUniverse("SPY", sampleChain(), 1000)

	second := m.BuildUniverse("SPY", nil, 1010)
	assert.Equal(t, first.Contracts, second.Contracts)
}

func TestBuildUniverseRotatesAfterInterval(t *testing.T) {
	m := NewUniverseManager(1, 5, 60)
	m.BuildUniverse("SPY", sampleChain(), 1000)

	rotated := m.BuildUniverse("SPY", sampleChain(), 1061)
	assert.Equal(t, []string{"ATM"}, rotated.Contracts)
}

func TestContractsReturnsCurrentTrackedSet(t *testing.T) {
	m := NewUniverseManager(2, 5, 60)
	m.BuildUniverse("SPY", sampleChain(), 1000)
	assert.Equal(t, []string{"ATM", "NEAR"}, m.Contracts("SPY"))
	assert.Nil(t, m.Contracts("QQQ"))
}

func TestRotateUniverseReTruncatesDefensively(t *testing.T) {
	m := NewUniverseManager(3, 5, 60)
	rotation := m.RotateUniverse("SPY", sampleChain(), 1000)
	assert.LessOrEqual(t, len(rotation.Contracts), 3)
}
