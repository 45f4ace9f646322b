package backtest

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/n8kahl/dreambot/internal/model"
)

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
func round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }

func clampCal(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// GridParams is one (pot_threshold, adx_threshold) combination evaluated by
// the Cartesian grid search (§4.6's `--optimize` CLI path).
type GridParams struct {
	PotThreshold float64
	AdxThreshold float64
}

// GridConfig bounds a Cartesian grid search over (pot_threshold,
// adx_threshold), qualifying combinations by minimum trade count and win
// rate (§4.6).
type GridConfig struct {
	PotGrid    []float64
	AdxGrid    []float64
	MinTrades  int
	MinWinRate float64
}

// GridResult is one evaluated grid combination's outcome.
type GridResult struct {
	Params GridParams
	Report Report
}

// CalibrationSummary is the document written to the calibration JSON file
// (§4.5/§6): per-symbol metrics/playbooks plus the derived global
// risk_multiplier/pot_threshold.
type CalibrationSummary struct {
	GeneratedAt    string                         `json:"generated_at"`
	Symbols        map[string]SymbolSummary       `json:"symbols"`
	Global         map[string]float64             `json:"global"`
	Playbooks      map[string]PlaybookSummary     `json:"playbooks"`
	RiskMultiplier float64                        `json:"risk_multiplier"`
	PotThreshold   float64                        `json:"pot_threshold"`
	AdxThreshold   float64                        `json:"adx_threshold,omitempty"`
}

// SymbolSummary is one symbol's entry under `symbols` in CalibrationSummary
// (§4.5: `{ metrics, playbooks, params: {pot_threshold, adx_threshold,
// risk_multiplier, decision_symbol} }`).
type SymbolSummary struct {
	Metrics   map[string]float64         `json:"metrics"`
	Playbooks map[string]PlaybookSummary `json:"playbooks"`
	Params    SymbolParams               `json:"params"`
}

// SymbolParams is one symbol's calibrated thresholds, written under
// `symbols.<SYM>.params` and read back by learner.Calibration.ResolveParams.
type SymbolParams struct {
	PotThreshold   float64 `json:"pot_threshold"`
	AdxThreshold   float64 `json:"adx_threshold,omitempty"`
	RiskMultiplier float64 `json:"risk_multiplier"`
	DecisionSymbol string  `json:"decision_symbol,omitempty"`
}

// PlaybookSummary aggregates one playbook's trades.
type PlaybookSummary struct {
	Trades  int     `json:"trades"`
	Wins    int     `json:"wins"`
	Losses  int     `json:"losses"`
	PnL     float64 `json:"pnl"`
	AvgWin  float64 `json:"avg_win"`
	AvgLoss float64 `json:"avg_loss"`
}

func globalMetrics(trades []Trade) map[string]float64 {
	report := Summarize(trades)
	var pnl float64
	for _, t := range trades {
		pnl += t.PnL
	}
	return map[string]float64{
		"trades":     float64(report.Trades),
		"expectancy": report.Expectancy,
		"win_rate":   report.WinRate,
		"avg_win":    report.AvgWin,
		"avg_loss":   report.AvgLoss,
		"pnl":        pnl,
	}
}

func aggregatePlaybooks(trades []Trade) map[string]PlaybookSummary {
	out := make(map[string]PlaybookSummary)
	for _, t := range trades {
		key := string(t.Playbook)
		s := out[key]
		s.Trades++
		s.PnL += t.PnL
		if t.PnL > 0 {
			s.Wins++
			s.AvgWin += t.PnL
		} else {
			s.Losses++
			s.AvgLoss += t.PnL
		}
		out[key] = s
	}
	for key, s := range out {
		if s.Wins > 0 {
			s.AvgWin /= float64(s.Wins)
		}
		if s.Losses > 0 {
			s.AvgLoss /= float64(s.Losses)
		}
		out[key] = s
	}
	return out
}

// deriveScalar reproduces the original's derive_calibration: expectancy
// drives risk_multiplier, the win-rate gap to 0.55 drives pot_threshold
// (§C supplemented scalar fallback path, used when no grid is configured).
func deriveScalar(metrics map[string]float64) (riskMultiplier, potThreshold float64) {
	expectancy := metrics["expectancy"]
	winRate := metrics["win_rate"]
	riskMultiplier = round4(clampCal(1.0+expectancy, 0.5, 1.5))
	potAdjust := (0.55 - winRate) * 0.2
	potThreshold = round4(clampCal(0.55+potAdjust, 0.45, 0.65))
	return riskMultiplier, potThreshold
}

// RunGridSearch evaluates every (pot_threshold, adx_threshold) combination
// in grid against decisionBars/fillBars, keeping the qualifying
// combination with the highest expectancy (§4.6). Falls back to the first
// grid point if none qualify. baseRunnerConfig supplies the feature/gate
// baseline; GateConfig.PotThreshold/AdxThreshold are overridden per
// combination.
func RunGridSearch(symbol string, decisionBars, fillBars []model.Agg1s, baseCfg RunnerConfig, grid GridConfig) (GridParams, []GridResult) {
	var results []GridResult
	for _, pot := range grid.PotGrid {
		for _, adx := range grid.AdxGrid {
			cfg := baseCfg
			cfg.GateConfig.PotThreshold = pot
			cfg.GateConfig.AdxThreshold = adx

			runner := NewRunner(cfg)
			_, trades := runner.Replay(symbol, decisionBars, fillBars)
			report := Summarize(trades)

			results = append(results, GridResult{
				Params: GridParams{PotThreshold: pot, AdxThreshold: adx},
				Report: report,
			})
		}
	}

	if len(results) == 0 {
		return GridParams{}, nil
	}

	best := results[0]
	bestFound := false
	for _, r := range results {
		if r.Report.Trades < grid.MinTrades || r.Report.WinRate < grid.MinWinRate {
			continue
		}
		if !bestFound || r.Report.Expectancy > best.Report.Expectancy {
			best, bestFound = r, true
		}
	}
	if !bestFound {
		best = results[0]
	}
	return best.Params, results
}

// BuildSummary assembles a CalibrationSummary from per-symbol trade
// results, deriving each symbol's risk_multiplier/pot_threshold either from
// the scalar formula or from that symbol's grid-search winner in
// perSymbolGridParams (nil or a missing entry falls back to the scalar
// formula for that symbol). The document-level risk_multiplier comes from
// the pooled trade series; pot_threshold/adx_threshold are the mean of the
// grid winners when any are given, else the scalar formula over the pooled
// series. These are written as the flat top-level fields only; no
// global_params block is written.
func BuildSummary(generatedAt string, perSymbolTrades map[string][]Trade, perSymbolGridParams map[string]GridParams) CalibrationSummary {
	symbols := make(map[string]SymbolSummary, len(perSymbolTrades))
	var all []Trade
	for symbol, trades := range perSymbolTrades {
		metrics := globalMetrics(trades)

		var params SymbolParams
		if gp, ok := perSymbolGridParams[symbol]; ok {
			params = SymbolParams{
				PotThreshold:   round4(gp.PotThreshold),
				AdxThreshold:   round4(gp.AdxThreshold),
				RiskMultiplier: round4(clampCal(1.0+metrics["expectancy"], 0.5, 1.5)),
			}
		} else {
			riskMultiplier, potThreshold := deriveScalar(metrics)
			params = SymbolParams{PotThreshold: potThreshold, RiskMultiplier: riskMultiplier}
		}

		symbols[symbol] = SymbolSummary{
			Metrics:   metrics,
			Playbooks: aggregatePlaybooks(trades),
			Params:    params,
		}
		all = append(all, trades...)
	}

	global := globalMetrics(all)

	var riskMultiplier, potThreshold, adxThreshold float64
	if len(perSymbolGridParams) > 0 {
		var sumPot, sumAdx float64
		for _, gp := range perSymbolGridParams {
			sumPot += gp.PotThreshold
			sumAdx += gp.AdxThreshold
		}
		n := float64(len(perSymbolGridParams))
		potThreshold = round4(sumPot / n)
		adxThreshold = round4(sumAdx / n)
		riskMultiplier = round4(clampCal(1.0+global["expectancy"], 0.5, 1.5))
	} else {
		riskMultiplier, potThreshold = deriveScalar(global)
	}

	for key, v := range global {
		global[key] = round6(v)
	}

	return CalibrationSummary{
		GeneratedAt:    generatedAt,
		Symbols:        symbols,
		Global:         global,
		Playbooks:      aggregatePlaybooks(all),
		RiskMultiplier: riskMultiplier,
		PotThreshold:   potThreshold,
		AdxThreshold:   adxThreshold,
	}
}

// WriteSummary marshals summary and writes it atomically (create parent
// dir, write temp file, rename over target — §4.6/§6).
func WriteSummary(path string, summary CalibrationSummary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("backtest: create calibration output dir: %w", err)
	}
	body, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("backtest: marshal calibration summary: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return fmt.Errorf("backtest: write calibration temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("backtest: replace calibration file: %w", err)
	}
	return nil
}

// WriteTrades marshals a trade series to path for the optional
// `--trades-output` audit dump (§6).
func WriteTrades(path string, trades []Trade) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("backtest: create trades output dir: %w", err)
	}
	body, err := json.MarshalIndent(trades, "", "  ")
	if err != nil {
		return fmt.Errorf("backtest: marshal trades: %w", err)
	}
	return os.WriteFile(path, body, 0o644)
}

// nowRFC3339 is overridable for deterministic tests.
var nowRFC3339 = func() string { return time.Now().UTC().Format(time.RFC3339) }
