package learner

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// SymbolParams holds one symbol's calibrated thresholds (§4.5).
type SymbolParams struct {
	PotThreshold   float64 `json:"pot_threshold"`
	AdxThreshold   float64 `json:"adx_threshold"`
	RiskMultiplier float64 `json:"risk_multiplier"`
	DecisionSymbol string  `json:"decision_symbol,omitempty"`
}

// PlaybookSummary mirrors backtest.PlaybookSummary's JSON shape so a
// calibration file written by the backtest/calibrate tooling round-trips
// through LoadCalibration without reshaping.
type PlaybookSummary struct {
	Trades  int     `json:"trades"`
	Wins    int     `json:"wins"`
	Losses  int     `json:"losses"`
	PnL     float64 `json:"pnl"`
	AvgWin  float64 `json:"avg_win"`
	AvgLoss float64 `json:"avg_loss"`
}

// SymbolCalibration is one entry in the calibration file's `symbols` map.
type SymbolCalibration struct {
	Metrics   map[string]float64         `json:"metrics,omitempty"`
	Playbooks map[string]PlaybookSummary `json:"playbooks,omitempty"`
	Params    SymbolParams               `json:"params"`
}

// Calibration is the full calibration document (§4.5).
type Calibration struct {
	GeneratedAt  string                       `json:"generated_at"`
	Symbols      map[string]SymbolCalibration `json:"symbols"`
	Global       map[string]float64           `json:"global,omitempty"`
	Playbooks    map[string]PlaybookSummary   `json:"playbooks,omitempty"`
	GlobalParams SymbolParams                 `json:"global_params"`

	// Flat top-level defaults, merged under per-symbol params when absent.
	RiskMultiplier float64 `json:"risk_multiplier"`
	PotThreshold   float64 `json:"pot_threshold"`
	AdxThreshold   float64 `json:"adx_threshold"`
}

// LoadCalibration reads and parses the calibration document at path.
func LoadCalibration(path string) (Calibration, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return Calibration{}, fmt.Errorf("learner: read calibration file: %w", err)
	}
	var cal Calibration
	if err := json.Unmarshal(body, &cal); err != nil {
		return Calibration{}, fmt.Errorf("learner: parse calibration file: %w", err)
	}
	return cal, nil
}

// SaveCalibration writes cal to path atomically: write to a temp file in
// the same directory, then rename over the target (§6's "atomic replace on
// write"). Numeric precision is preserved to 4dp for thresholds and the
// caller is responsible for pre-rounding PnL-derived quantities to 6dp
// before assignment.
func SaveCalibration(path string, cal Calibration) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("learner: create calibration dir: %w", err)
	}

	body, err := json.MarshalIndent(roundCalibration(cal), "", "  ")
	if err != nil {
		return fmt.Errorf("learner: marshal calibration: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return fmt.Errorf("learner: write calibration temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("learner: replace calibration file: %w", err)
	}
	return nil
}

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }

func roundCalibration(cal Calibration) Calibration {
	cal.RiskMultiplier = round4(cal.RiskMultiplier)
	cal.PotThreshold = round4(cal.PotThreshold)
	cal.AdxThreshold = round4(cal.AdxThreshold)
	cal.GlobalParams.PotThreshold = round4(cal.GlobalParams.PotThreshold)
	cal.GlobalParams.AdxThreshold = round4(cal.GlobalParams.AdxThreshold)
	cal.GlobalParams.RiskMultiplier = round4(cal.GlobalParams.RiskMultiplier)
	for sym, sc := range cal.Symbols {
		sc.Params.PotThreshold = round4(sc.Params.PotThreshold)
		sc.Params.AdxThreshold = round4(sc.Params.AdxThreshold)
		sc.Params.RiskMultiplier = round4(sc.Params.RiskMultiplier)
		cal.Symbols[sym] = sc
	}
	return cal
}

// ResolveParams merges a symbol's calibrated params with the document's
// global defaults: any per-symbol field left at its zero value falls back
// to the global_params / flat top-level default (§4.5).
func (c Calibration) ResolveParams(symbol string) SymbolParams {
	params := c.GlobalParams
	if params.PotThreshold == 0 {
		params.PotThreshold = c.PotThreshold
	}
	if params.AdxThreshold == 0 {
		params.AdxThreshold = c.AdxThreshold
	}
	if params.RiskMultiplier == 0 {
		params.RiskMultiplier = c.RiskMultiplier
	}

	sc, ok := c.Symbols[symbol]
	if !ok {
		return params
	}
	if sc.Params.PotThreshold != 0 {
		params.PotThreshold = sc.Params.PotThreshold
	}
	if sc.Params.AdxThreshold != 0 {
		params.AdxThreshold = sc.Params.AdxThreshold
	}
	if sc.Params.RiskMultiplier != 0 {
		params.RiskMultiplier = sc.Params.RiskMultiplier
	}
	if sc.Params.DecisionSymbol != "" {
		params.DecisionSymbol = sc.Params.DecisionSymbol
	}
	return params
}
