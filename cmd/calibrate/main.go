// Command calibrate runs the backtest harness over one or more symbols,
// optionally grid-searching (pot_threshold, adx_threshold), and writes the
// resulting calibration JSON document (§4.6, §6's CLI surface).
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/n8kahl/dreambot/internal/backtest"
	"github.com/n8kahl/dreambot/internal/signals"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	symbolsArg     string
	dataPath       string
	tableName      string
	limitArg       int
	seedArg        int64
	optimizeArg    bool
	potGridArg     string
	adxGridArg     string
	minWinRateArg  float64
	minTradesArg   int
	decisionMapArg string
	outputPath     string
	tradesOutput   string
)

func defaultGateConfig() signals.GateConfig {
	return signals.GateConfig{
		NBBOAgeMsMax:   800,
		SpreadPctMax:   0.01,
		TrendThreshold: -0.2,
		AdxThreshold:   20,
		PotThreshold:   0.55,
	}
}

var rootCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Grid-search and write a calibration document from historical replay",
	RunE:  runCalibrate,
}

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	flags := rootCmd.Flags()
	flags.StringVar(&symbolsArg, "symbols", "", "comma-separated list of symbols to calibrate (required)")
	flags.StringVar(&dataPath, "data", "", "CSV file, CSV directory, or DuckDB database file")
	flags.StringVar(&tableName, "table", "", "DuckDB table name (requires --data pointing at the database file)")
	flags.IntVar(&limitArg, "limit", 0, "maximum bars to load per symbol (0 = unlimited)")
	flags.Int64Var(&seedArg, "seed", 0, "reserved for deterministic synthetic fallback variation")
	flags.BoolVar(&optimizeArg, "optimize", false, "run a grid search instead of the scalar calibration formula")
	flags.StringVar(&potGridArg, "pot-grid", "", "comma-separated pot_threshold grid values")
	flags.StringVar(&adxGridArg, "adx-grid", "", "comma-separated adx_threshold grid values")
	flags.Float64Var(&minWinRateArg, "min-win-rate", 0, "minimum win rate for a grid combination to qualify")
	flags.IntVar(&minTradesArg, "min-trades", 0, "minimum trade count for a grid combination to qualify")
	flags.StringVar(&decisionMapArg, "decision-map", "", "TARGET=SOURCE,... symbol pairs: TARGET's fills run against SOURCE's decision bars")
	flags.StringVar(&outputPath, "output", "calibration.json", "calibration JSON output path")
	flags.StringVar(&tradesOutput, "trades-output", "", "optionally write the full trade series here")
}

type errMissingInput struct{ msg string }

func (e errMissingInput) Error() string { return e.msg }

func main() {
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("calibrate: run failed")
		if _, ok := err.(errMissingInput); ok {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func parseFloatCSV(raw string) []float64 {
	var out []float64
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			out = append(out, v)
		}
	}
	return out
}

func parseDecisionMap(raw string) map[string]string {
	out := map[string]string{}
	if raw == "" {
		return out
	}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			continue
		}
		out[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}
	return out
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	if symbolsArg == "" {
		return errMissingInput{"calibrate: --symbols is required"}
	}
	symbols := strings.Split(symbolsArg, ",")
	decisionMap := parseDecisionMap(decisionMapArg)

	potGrid := parseFloatCSV(potGridArg)
	adxGrid := parseFloatCSV(adxGridArg)
	if optimizeArg && (len(potGrid) == 0 || len(adxGrid) == 0) {
		return errMissingInput{"calibrate: --optimize requires non-empty --pot-grid and --adx-grid"}
	}

	perSymbolTrades := make(map[string][]backtest.Trade)
	perSymbolGridParams := make(map[string]backtest.GridParams)

	for _, raw := range symbols {
		symbol := strings.TrimSpace(raw)
		if symbol == "" {
			continue
		}

		fillBars, err := backtest.LoadBars(backtest.LoadConfig{Symbol: symbol, Path: dataPath, Table: tableName, Limit: limitArg})
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("calibrate: data absent for symbol, skipping")
			continue
		}

		decisionBars := fillBars
		if source, ok := decisionMap[symbol]; ok {
			decisionBars, err = backtest.LoadBars(backtest.LoadConfig{Symbol: source, Path: dataPath, Table: tableName, Limit: limitArg})
			if err != nil {
				log.Warn().Err(err).Str("symbol", symbol).Str("decision_symbol", source).Msg("calibrate: decision data absent, skipping")
				continue
			}
		}

		baseCfg := backtest.RunnerConfig{GateConfig: defaultGateConfig(), FillModel: backtest.DefaultFillModel()}

		if optimizeArg {
			params, results := backtest.RunGridSearch(symbol, decisionBars, fillBars, baseCfg, backtest.GridConfig{
				PotGrid: potGrid, AdxGrid: adxGrid, MinTrades: minTradesArg, MinWinRate: minWinRateArg,
			})
			perSymbolGridParams[symbol] = params
			log.Info().Str("symbol", symbol).Int("combinations", len(results)).
				Float64("pot_threshold", params.PotThreshold).Float64("adx_threshold", params.AdxThreshold).
				Msg("calibrate: grid search complete")

			baseCfg.GateConfig.PotThreshold = params.PotThreshold
			baseCfg.GateConfig.AdxThreshold = params.AdxThreshold
		}

		runner := backtest.NewRunner(baseCfg)
		_, trades := runner.Replay(symbol, decisionBars, fillBars)
		perSymbolTrades[symbol] = trades
	}

	if len(perSymbolTrades) == 0 {
		return errMissingInput{"calibrate: no symbol produced data"}
	}

	if tradesOutput != "" {
		var allTrades []backtest.Trade
		for _, trades := range perSymbolTrades {
			allTrades = append(allTrades, trades...)
		}
		if err := backtest.WriteTrades(tradesOutput, allTrades); err != nil {
			return fmt.Errorf("calibrate: write trades output: %w", err)
		}
	}

	generatedAt := time.Now().UTC().Format(time.RFC3339)
	summary := backtest.BuildSummary(generatedAt, perSymbolTrades, perSymbolGridParams)
	if err := backtest.WriteSummary(outputPath, summary); err != nil {
		return fmt.Errorf("calibrate: write calibration summary: %w", err)
	}
	log.Info().Str("path", outputPath).Float64("risk_multiplier", summary.RiskMultiplier).
		Float64("pot_threshold", summary.PotThreshold).Msg("calibrate: wrote calibration document")
	return nil
}
