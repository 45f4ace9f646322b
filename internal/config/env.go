// Package config reads process configuration from the environment, in the
// teacher's config.go+env.go idiom: small typed getenv helpers plus a
// restricted-key .env loader that never injects secrets the process doesn't
// need.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// neededKeys is the allowlist the .env loader injects into the process
// environment; any other key present in .env is ignored, mirroring the
// teacher's refusal to export the Python sidecar's PEM secret.
var neededKeys = map[string]struct{}{
	"LOG_LEVEL": {}, "PORT": {},
	"REDIS_URL": {},
	"POLYGON_API_KEY": {}, "POLYGON_S3_ACCESS_KEY_ID": {}, "POLYGON_S3_SECRET_ACCESS_KEY": {}, "POLYGON_S3_BUCKET": {}, "POLYGON_S3_ENDPOINT": {},
	"TRADIER_SANDBOX_TOKEN": {}, "TRADIER_SANDBOX_ACCOUNT": {}, "TRADIER_BASE_URL": {},
	"ACCOUNT_EQUITY": {},
	"OMS_AUDIT_PATH": {}, "OMS_AUDIT_ROTATE_MB": {},
	"STREAM_AUDIT_PATH": {}, "STREAM_AUDIT_STREAMS": {}, "STREAM_AUDIT_ROTATE_BYTES": {},
	"CALIBRATION_PATH": {},
	"REQUEST_TIMEOUT_SECS": {}, "MAX_RETRIES": {}, "RETRY_BACKOFF_SECS": {},
	"POLL_INTERVAL_SECS": {}, "STATUS_TIMEOUT_SECS": {}, "ORDER_OFFSET_TICKS": {},
	"DAILY_LOSS_CAP": {}, "MAX_CONCURRENT_POSITIONS": {}, "NO_TRADE_FIRST_SECONDS": {},
	"ECON_HALT_MINUTES_PRE_POST": {}, "FORCE_FLAT_BEFORE_CLOSE_SECS": {},
	"PER_TRADE_MAX_RISK_PCT": {}, "SLIPPAGE_Z_MAX": {}, "SPREAD_Z_MAX": {},
	"INGEST_SOURCE": {}, "INGEST_MAX_CONTRACTS": {}, "INGEST_STRIKES_AROUND_ATM": {},
	"INGEST_ROTATE_SECS": {}, "INGEST_HEARTBEAT_SECS": {}, "INGEST_SNAPSHOT_DIR": {}, "INGEST_SNAPSHOT_ROTATE_BYTES": {},
}

// LoadDotEnv reads .env from "." and ".." via godotenv, then copies only
// neededKeys into the process environment (os.Getenv already reads whatever
// the shell exported; this only backfills keys missing there).
func LoadDotEnv() {
	for _, path := range []string{".env", "../.env"} {
		vars, err := godotenv.Read(path)
		if err != nil {
			continue
		}
		for key, val := range vars {
			if _, ok := neededKeys[key]; !ok {
				continue
			}
			if os.Getenv(key) == "" {
				_ = os.Setenv(key, val)
			}
		}
	}
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getEnvInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return i
}

func getEnvBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "y", "yes":
		return true
	case "0", "false", "n", "no":
		return false
	default:
		return def
	}
}
