package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRiskBudget(t *testing.T) {
	mgr := NewManager(Config{AccountEquity: 50000, PerTradeMaxRiskPct: 0.02}, nil)
	assert.Equal(t, 1000.0, mgr.RiskBudget())
}

func TestStateDefensiveOnEitherZ(t *testing.T) {
	cfg := Config{SlippageZMax: 2, SpreadZMax: 2}
	assert.True(t, State{SlippageZ: 3}.Defensive(cfg))
	assert.True(t, State{SpreadZ: 3}.Defensive(cfg))
	assert.False(t, State{SlippageZ: 1, SpreadZ: 1}.Defensive(cfg))
}

func TestSchedulerMinutesToNext(t *testing.T) {
	cal := NewCalendar([]Event{{Name: "CPI", ReleaseTS: 120_000_000}})
	sched := NewScheduler(cal)
	assert.InDelta(t, 2.0, sched.MinutesToNext(0), 1e-9)
	assert.Equal(t, -1.0, sched.MinutesToNext(200_000_000))
}

func TestBuildWindowSymmetric(t *testing.T) {
	w := BuildWindow(Event{ReleaseTS: 1000, PaddingMins: 1})
	assert.Equal(t, int64(1000-60_000_000), w.Start)
	assert.Equal(t, int64(1000+60_000_000), w.End)
}
