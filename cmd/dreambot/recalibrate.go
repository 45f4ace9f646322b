package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/n8kahl/dreambot/internal/backtest"
	"github.com/n8kahl/dreambot/internal/learner"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// armNightlyRecalibration schedules the nightly re-run of the calibrator
// against local bar data and reloads the learner with the result —
// the Go analogue of original_source/dreambot/ops/nightly_calibration.py,
// minus the Polygon flat-file sync step (out of scope per spec.md §1's
// vendor-boundary exclusion; this assumes bars are already on disk).
func armNightlyRecalibration(learnerSvc *learner.Service, calibrationPath string) *cron.Cron {
	symbols := strings.Split(getEnvOr("RECALIBRATE_SYMBOLS", "SPY,QQQ,SPX,NDX"), ",")
	dataPath := getEnvOr("RECALIBRATE_DATA_PATH", "data/flatfiles")
	limit, _ := strconv.Atoi(os.Getenv("RECALIBRATE_LIMIT"))
	schedule := getEnvOr("RECALIBRATE_CRON", "@daily")

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		runNightlyRecalibration(symbols, dataPath, limit, calibrationPath, learnerSvc)
	})
	if err != nil {
		log.Error().Err(err).Str("schedule", schedule).Msg("dreambot: invalid recalibration cron schedule, nightly job disabled")
		return c
	}
	c.Start()
	return c
}

func getEnvOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func runNightlyRecalibration(symbols []string, dataPath string, limit int, calibrationPath string, learnerSvc *learner.Service) {
	perSymbolTrades := make(map[string][]backtest.Trade)
	for _, raw := range symbols {
		symbol := strings.TrimSpace(raw)
		if symbol == "" {
			continue
		}
		bars, err := backtest.LoadBars(backtest.LoadConfig{Symbol: symbol, Path: dataPath, Limit: limit})
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("dreambot: nightly recalibration data absent, skipping symbol")
			continue
		}
		runner := backtest.NewRunner(backtest.RunnerConfig{GateConfig: defaultGateConfig(), FillModel: backtest.DefaultFillModel()})
		_, trades := runner.Replay(symbol, bars, bars)
		perSymbolTrades[symbol] = trades
	}
	if len(perSymbolTrades) == 0 {
		log.Warn().Msg("dreambot: nightly recalibration produced no trades for any symbol, skipping write")
		return
	}

	summary := backtest.BuildSummary(time.Now().UTC().Format(time.RFC3339), perSymbolTrades, nil)
	if err := backtest.WriteSummary(calibrationPath, summary); err != nil {
		log.Error().Err(err).Str("path", calibrationPath).Msg("dreambot: nightly recalibration write failed")
		return
	}

	cal, err := learner.LoadCalibration(calibrationPath)
	if err != nil {
		log.Error().Err(err).Str("path", calibrationPath).Msg("dreambot: reload freshly written calibration failed")
		return
	}
	learnerSvc.Reload(cal)
	log.Info().Float64("risk_multiplier", summary.RiskMultiplier).Float64("pot_threshold", summary.PotThreshold).
		Msg("dreambot: nightly recalibration complete, learner reloaded")
}
