package backtest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBarsSyntheticFallbackWhenNoSourceConfigured(t *testing.T) {
	bars, err := LoadBars(LoadConfig{Symbol: "SPY"})
	require.NoError(t, err)
	assert.Len(t, bars, 120)
	for i := 1; i < len(bars); i++ {
		assert.Less(t, bars[i-1].TS, bars[i].TS, "synthetic bars must be strictly increasing")
	}
}

func TestLoadBarsFromSingleCSVFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spy.csv")
	content := "ts,o,h,l,c,v\n2000000,100,101,99,100.5,1000\n1000000,99,100,98,99.5,500\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	bars, err := LoadBars(LoadConfig{Symbol: "SPY", Path: path})
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, int64(1_000_000), bars[0].TS, "rows must be sorted ascending by ts")
	assert.Equal(t, int64(2_000_000), bars[1].TS)
}

func TestLoadBarsFromDirectoryPrefersSymbolSubdir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "SPY"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SPY", "a.csv"), []byte("ts,o,h,l,c,v\n1000000,1,1,1,1,10\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.csv"), []byte("ts,o,h,l,c,v\n9000000,9,9,9,9,9\n"), 0o644))

	bars, err := LoadBars(LoadConfig{Symbol: "SPY", Path: dir})
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, int64(1_000_000), bars[0].TS)
}

func TestLoadBarsRespectsLimit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spy.csv")
	content := "ts,o,h,l,c,v\n1000000,1,1,1,1,1\n2000000,2,2,2,2,2\n3000000,3,3,3,3,3\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	bars, err := LoadBars(LoadConfig{Symbol: "SPY", Path: path, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, bars, 2)
}

func TestLoadBarsSkipsMalformedRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spy.csv")
	content := "ts,o,h,l,c,v\n,1,1,1,1,1\n1000000,1,1,1,1,1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	bars, err := LoadBars(LoadConfig{Symbol: "SPY", Path: path})
	require.NoError(t, err)
	assert.Len(t, bars, 1)
}
