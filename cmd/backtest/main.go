// Command backtest replays historical bars through the feature and signal
// engines for one or more symbols and prints a one-line report, or writes a
// summary JSON document to --output (§4.6, §6's CLI surface).
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
	Use:   "backtest",
	Short: "Replay historical bars through the feature/signal engines",
	RunE:  runBacktest,
}

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	flags := rootCmd.Flags()
	flags.StringVar(&symbolsArg, "symbols", "", "comma-separated list of symbols to replay (required)")
	flags.StringVar(&dataPath, "data", "", "CSV file, CSV directory, or DuckDB database file")
	flags.StringVar(&tableName, "table", "", "DuckDB table name (requires --data pointing at the database file)")
	flags.IntVar(&limitArg, "limit", 0, "maximum bars to load per symbol (0 = unlimited)")
	flags.Int64Var(&seedArg, "seed", 0, "reserved for deterministic synthetic fallback variation")
	flags.StringVar(&decisionMapArg, "decision-map", "", "TARGET=SOURCE,... symbol pairs: TARGET's fills run against SOURCE's decision bars")
	flags.StringVar(&outputPath, "output", "", "write the summary JSON document (per-symbol and global metrics, playbook breakdown, derived thresholds) here; print a one-line report to stdout if empty")
	flags.StringVar(&tradesOutput, "trades-output", "", "optionally write the full trade series here")
}

// errMissingInput marks the §6 "exit code 2: missing input or config"
// case; any other error returned from RunE is an unexpected failure (exit
// code 1).
type errMissingInput struct{ msg string }

func (e errMissingInput) Error() string { return e.msg }

func main() {
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("backtest: run failed")
		if _, ok := err.(errMissingInput); ok {
			os.Exit(2)
		}
		os.Exit(1)
	}
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

func runBacktest(cmd *cobra.Command, args []string) error {
	if symbolsArg == "" {
		return errMissingInput{"backtest: --symbols is required"}
	}
	symbols := strings.Split(symbolsArg, ",")
	decisionMap := parseDecisionMap(decisionMapArg)

	perSymbolTrades := make(map[string][]backtest.Trade)
	for i, raw := range symbols {
		symbol := strings.TrimSpace(raw)
		if symbol == "" {
			continue
		}

		fillBars, err := backtest.LoadBars(backtest.LoadConfig{Symbol: symbol, Path: dataPath, Table: tableName, Limit: limitArg})
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("backtest: data absent for symbol, skipping")
			continue
		}

		decisionBars := fillBars
		if source, ok := decisionMap[symbol]; ok {
			decisionBars, err = backtest.LoadBars(backtest.LoadConfig{Symbol: source, Path: dataPath, Table: tableName, Limit: limitArg})
			if err != nil {
				log.Warn().Err(err).Str("symbol", symbol).Str("decision_symbol", source).Msg("backtest: decision data absent, skipping")
				continue
			}
		}

		runner := backtest.NewRunner(backtest.RunnerConfig{
			GateConfig: defaultGateConfig(),
			FillModel:  backtest.DefaultFillModel(),
		})
		_, trades := runner.Replay(symbol, decisionBars, fillBars)
		perSymbolTrades[symbol] = trades
		log.Info().Str("symbol", symbol).Int("trades", len(trades)).Int("index", i).Msg("backtest: replay complete")
	}

	if len(perSymbolTrades) == 0 {
		return errMissingInput{"backtest: no symbol produced data"}
	}

	var allTrades []backtest.Trade
	for _, trades := range perSymbolTrades {
		allTrades = append(allTrades, trades...)
	}
	report := backtest.Summarize(allTrades)

	if tradesOutput != "" {
		if err := backtest.WriteTrades(tradesOutput, allTrades); err != nil {
			return fmt.Errorf("backtest: write trades output: %w", err)
		}
	}

	summaryLine := fmt.Sprintf("trades=%d win_rate=%s expectancy=%s max_drawdown=%s",
		report.Trades,
		strconv.FormatFloat(report.WinRate, 'f', 4, 64),
		strconv.FormatFloat(report.Expectancy, 'f', 4, 64),
		strconv.FormatFloat(report.MaxDrawdown, 'f', 4, 64),
	)
	if outputPath == "" {
		fmt.Fprintln(os.Stdout, summaryLine)
		return nil
	}
	generatedAt := time.Now().UTC().Format(time.RFC3339)
	return backtest.WriteSummary(outputPath, backtest.BuildSummary(generatedAt, perSymbolTrades, nil))
}
