package ingest

import (
	"math"
	"sort"
	"sync"

	"github.com/n8kahl/dreambot/internal/model"
)

// UniverseManager tracks the tracked option contracts per underlying and
// rotates them on a fixed interval by nearest-ATM delta and strike
// (mirrors the original's OptionUniverseManager.build_universe).
type UniverseManager struct {
	mu               sync.Mutex
	maxContracts     int
	strikesAroundATM int
	rotateSecs       int64
	lastRotationTS   int64
	universe         map[string][]string
}

// NewUniverseManager constructs a manager with the §6-configured bounds.
func NewUniverseManager(maxContracts, strikesAroundATM int, rotateSecs int64) *UniverseManager {
	return &UniverseManager{
		maxContracts:     maxContracts,
		strikesAroundATM: strikesAroundATM,
		rotateSecs:       rotateSecs,
		universe:         make(map[string][]string),
	}
}

// BuildUniverse returns the current rotation for underlying, refreshing it
// from chain if rotateSecs has elapsed since the last rotation. The chain
// is sorted by |delta-0.5| then |strike| ascending and truncated to
// maxContracts, matching the original's ATM-proximity ranking.
func (m *UniverseManager) BuildUniverse(underlying string, chain []model.OptionMeta, ts int64) model.UniverseRotation {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ts-m.lastRotationTS < m.rotateSecs {
		return model.UniverseRotation{TS: ts, Underlying: underlying, Contracts: m.universe[underlying]}
	}

	sorted := append([]model.OptionMeta(nil), chain...)
	sort.Slice(sorted, func(i, j int) bool {
		di := math.Abs(sorted[i].Delta - 0.5)
		dj := math.Abs(sorted[j].Delta - 0.5)
		if di != dj {
			return di < dj
		}
		return math.Abs(sorted[i].Strike) < math.Abs(sorted[j].Strike)
	})

	limit := m.maxContracts
	if limit > len(sorted) {
		limit = len(sorted)
	}
	selection := make([]string, limit)
	for i := 0; i < limit; i++ {
		selection[i] = sorted[i].Symbol
	}

	m.universe[underlying] = selection
	m.lastRotationTS = ts
	return model.UniverseRotation{TS: ts, Underlying: underlying, Contracts: selection}
}

// Contracts returns the currently tracked contracts for underlying.
func (m *UniverseManager) Contracts(underlying string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.universe[underlying]
}

// RotateUniverse is BuildUniverse with a defensive re-truncation to
// maxContracts, matching the original's rotate_universe wrapper.
func (m *UniverseManager) RotateUniverse(underlying string, chain []model.OptionMeta, ts int64) model.UniverseRotation {
	rotation := m.BuildUniverse(underlying, chain, ts)
	if len(rotation.Contracts) > m.maxContracts {
		rotation.Contracts = rotation.Contracts[:m.maxContracts]
	}
	return rotation
}
