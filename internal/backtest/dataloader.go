package backtest

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/n8kahl/dreambot/internal/model"
)

// LoadConfig selects one of the backtest harness's bar sources (§4.6, §6):
// a single CSV file, a directory of CSVs (optionally with a
// symbol-matching subdirectory), a DuckDB table, or — if none is
// configured — a synthetic fallback sequence.
type LoadConfig struct {
	Symbol string
	Path   string // file or directory
	Table  string // DuckDB table name; Path is the database file
	Limit  int    // 0 means unlimited
}

// LoadBars resolves cfg to a time-ordered []Agg1s for one symbol, per the
// §6 "Market-data CSV format" and "DuckDB table" sources, falling back to a
// synthetic sequence when neither a path nor a table is configured.
func LoadBars(cfg LoadConfig) ([]model.Agg1s, error) {
	switch {
	case cfg.Table != "":
		return loadDuckDBTable(cfg)
	case cfg.Path != "":
		info, err := os.Stat(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("backtest: stat data path %s: %w", cfg.Path, err)
		}
		if info.IsDir() {
			return loadCSVDirectory(cfg)
		}
		return loadCSVFile(cfg.Path, cfg.Symbol, cfg.Limit)
	default:
		return syntheticBars(cfg.Symbol, 120), nil
	}
}

// loadCSVFile parses the §6 header `ts,o,h,l,c,v` (ts in microseconds).
func loadCSVFile(path, symbol string, limit int) ([]model.Agg1s, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("backtest: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var headers []string
	var out []model.Agg1s
	rowIdx := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("backtest: read %s: %w", path, err)
		}
		if rowIdx == 0 {
			headers = rec
			rowIdx++
			continue
		}
		row := make(map[string]string, len(headers))
		for j, h := range headers {
			if j < len(rec) {
				row[strings.ToLower(strings.TrimSpace(h))] = strings.TrimSpace(rec[j])
			}
		}
		bar, ok := barFromRow(row, symbol)
		if !ok {
			continue
		}
		out = append(out, bar)
		rowIdx++
		if limit > 0 && len(out) >= limit {
			break
		}
	}

	sortBars(out)
	return out, nil
}

func barFromRow(row map[string]string, symbol string) (model.Agg1s, bool) {
	ts, o, h, l, c, v := row["ts"], row["o"], row["h"], row["l"], row["c"], row["v"]
	if ts == "" || o == "" || c == "" {
		return model.Agg1s{}, false
	}
	tsVal, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return model.Agg1s{}, false
	}
	open, _ := strconv.ParseFloat(o, 64)
	high, _ := strconv.ParseFloat(h, 64)
	low, _ := strconv.ParseFloat(l, 64)
	closePrice, _ := strconv.ParseFloat(c, 64)
	volume, _ := strconv.ParseFloat(v, 64)
	return model.Agg1s{
		TS: tsVal, Symbol: symbol,
		O: open, H: high, L: low, C: closePrice, V: volume,
	}, true
}

func sortBars(bars []model.Agg1s) {
	sort.Slice(bars, func(i, j int) bool { return bars[i].TS < bars[j].TS })
}

// loadCSVDirectory concatenates CSV files in sorted order, preferring a
// subdirectory matching cfg.Symbol (upper or lowercase) if present (§6).
func loadCSVDirectory(cfg LoadConfig) ([]model.Agg1s, error) {
	dir := cfg.Path
	for _, candidate := range []string{cfg.Symbol, strings.ToUpper(cfg.Symbol), strings.ToLower(cfg.Symbol)} {
		if candidate == "" {
			continue
		}
		sub := filepath.Join(cfg.Path, candidate)
		if info, err := os.Stat(sub); err == nil && info.IsDir() {
			dir = sub
			break
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("backtest: read data dir %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var out []model.Agg1s
	for _, name := range names {
		bars, err := loadCSVFile(filepath.Join(dir, name), cfg.Symbol, 0)
		if err != nil {
			return nil, err
		}
		out = append(out, bars...)
		if cfg.Limit > 0 && len(out) >= cfg.Limit {
			out = out[:cfg.Limit]
			break
		}
	}
	sortBars(out)
	return out, nil
}

// loadDuckDBTable queries `SELECT ts,o,h,l,c,v FROM {table} ORDER BY ts` from
// the DuckDB database file at cfg.Path (§6's "--table <name> (DuckDB)").
func loadDuckDBTable(cfg LoadConfig) ([]model.Agg1s, error) {
	db, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("backtest: open duckdb %s: %w", cfg.Path, err)
	}
	defer db.Close()

	query := fmt.Sprintf("SELECT ts, o, h, l, c, v FROM %s ORDER BY ts", cfg.Table)
	if cfg.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", cfg.Limit)
	}
	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("backtest: query duckdb table %s: %w", cfg.Table, err)
	}
	defer rows.Close()

	var out []model.Agg1s
	for rows.Next() {
		var bar model.Agg1s
		if err := rows.Scan(&bar.TS, &bar.O, &bar.H, &bar.L, &bar.C, &bar.V); err != nil {
			return nil, fmt.Errorf("backtest: scan duckdb row: %w", err)
		}
		bar.Symbol = cfg.Symbol
		out = append(out, bar)
	}
	return out, rows.Err()
}

// syntheticBars produces a deterministic fallback sequence (a gentle
// sinusoidal drift) when no real data source is configured, so the runner
// and calibrator always have something to replay against in tests and
// local smoke runs.
func syntheticBars(symbol string, n int) []model.Agg1s {
	bars := make([]model.Agg1s, 0, n)
	price := 100.0
	const stepMicros = int64(1_000_000)
	for i := 0; i < n; i++ {
		drift := 0.05 * float64((i%20)-10) / 10.0
		open := price
		closePrice := price + drift
		high := open
		if closePrice > high {
			high = closePrice
		}
		low := open
		if closePrice < low {
			low = closePrice
		}
		bars = append(bars, model.Agg1s{
			TS: int64(i) * stepMicros, Symbol: symbol,
			O: open, H: high, L: low, C: closePrice, V: 100 + float64(i%5)*10,
		})
		price = closePrice
	}
	return bars
}
