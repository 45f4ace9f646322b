// Package risk implements entry-check admission, economic-event halt
// windows, and the order lifecycle state machine (§4.4).
package risk

import "errors"

// ErrInputMalformed marks a submitted request the risk stage cannot
// reconcile (e.g. a status for an unknown client_order_id).
var ErrInputMalformed = errors.New("risk: malformed input")

// Config holds the entry-check thresholds (§4.4).
type Config struct {
	DailyLossCap             float64
	MaxConcurrentPositions   int
	NoTradeFirstSeconds      int64
	EconHaltMinutesPrePost   float64
	ForceFlatBeforeCloseSecs int64
	AccountEquity            float64
	PerTradeMaxRiskPct       float64
	SlippageZMax             float64
	SpreadZMax               float64
}

// State is the mutable session-level risk context fed into entry checks.
type State struct {
	CumulativePnL       float64
	OpenPositions       int
	SessionElapsedSecs  int64
	MinutesToOpen       float64
	MinutesToClose      float64
	SlippageZ           float64
	SpreadZ             float64
}

// Defensive reports whether the defensive-mode flag is raised: either
// slippage or spread z-score exceeds its configured threshold (§4.4).
func (s State) Defensive(cfg Config) bool {
	return s.SlippageZ > cfg.SlippageZMax || s.SpreadZ > cfg.SpreadZMax
}

// Manager evaluates entry admission against a Config.
type Manager struct {
	Config    Config
	Scheduler *Scheduler
}

// NewManager constructs a Manager. scheduler may be nil if no econ halt
// windows are configured.
func NewManager(cfg Config, scheduler *Scheduler) *Manager {
	return &Manager{Config: cfg, Scheduler: scheduler}
}

// EntryAllowed runs every check in §4.4's entry-checks list, short-circuiting
// on the first failure (no signal is as valid a reason to fail as any
// other — callers don't need to know which check tripped).
func (m *Manager) EntryAllowed(s State, now int64) bool {
	cfg := m.Config

	if s.CumulativePnL <= cfg.DailyLossCap {
		return false
	}
	if s.OpenPositions >= cfg.MaxConcurrentPositions {
		return false
	}
	if s.SessionElapsedSecs < cfg.NoTradeFirstSeconds {
		return false
	}
	if abs(s.MinutesToOpen) <= cfg.EconHaltMinutesPrePost {
		return false
	}
	if s.MinutesToClose*60 <= float64(cfg.ForceFlatBeforeCloseSecs) {
		return false
	}
	if m.Scheduler != nil && m.Scheduler.IsHalted(now) {
		return false
	}
	if s.Defensive(cfg) {
		return false
	}
	return true
}

// RiskBudget is account_equity * per_trade_max_risk_pct (§4.4).
func (m *Manager) RiskBudget() float64 {
	return m.Config.AccountEquity * m.Config.PerTradeMaxRiskPct
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
