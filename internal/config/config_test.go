package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withEnv(t *testing.T, kv map[string]string, fn func()) {
	t.Helper()
	saved := map[string]string{}
	for k := range kv {
		saved[k] = os.Getenv(k)
	}
	for k, v := range kv {
		require.NoError(t, os.Setenv(k, v))
	}
	defer func() {
		for k, v := range saved {
			_ = os.Setenv(k, v)
		}
	}()
	fn()
}

func TestLoadAppliesDefaultsWhenUnset(t *testing.T) {
	withEnv(t, map[string]string{
		"ACCOUNT_EQUITY": "", "REDIS_URL": "", "DAILY_LOSS_CAP": "",
	}, func() {
		cfg := Load()
		assert.Equal(t, 100_000.0, cfg.AccountEquity)
		assert.Equal(t, "redis://127.0.0.1:6379/0", cfg.RedisURL)
		assert.Equal(t, 3, cfg.Risk.MaxConcurrentPositions)
		assert.InDelta(t, -3000.0, cfg.Risk.DailyLossCap, 1e-9)
	})
}

func TestLoadHonorsOverrides(t *testing.T) {
	withEnv(t, map[string]string{
		"ACCOUNT_EQUITY":           "50000",
		"MAX_CONCURRENT_POSITIONS": "7",
		"POLYGON_API_KEY":          "pk-test",
	}, func() {
		cfg := Load()
		assert.Equal(t, 50_000.0, cfg.AccountEquity)
		assert.Equal(t, 7, cfg.Risk.MaxConcurrentPositions)
		assert.Equal(t, "pk-test", cfg.PolygonAPIKey)
	})
}

func TestValidateFailsFastOnMissingCredentials(t *testing.T) {
	withEnv(t, map[string]string{
		"POLYGON_API_KEY": "", "TRADIER_SANDBOX_TOKEN": "", "TRADIER_SANDBOX_ACCOUNT": "",
	}, func() {
		cfg := Load()
		err := cfg.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrConfigMissing)
	})
}

func TestValidatePassesWithCredentials(t *testing.T) {
	withEnv(t, map[string]string{
		"REDIS_URL": "redis://127.0.0.1:6379/0", "POLYGON_API_KEY": "pk",
		"TRADIER_SANDBOX_TOKEN": "tok", "TRADIER_SANDBOX_ACCOUNT": "acct",
	}, func() {
		cfg := Load()
		assert.NoError(t, cfg.Validate())
	})
}
