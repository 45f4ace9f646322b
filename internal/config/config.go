// Package config assembles per-stage configuration structs from the
// process environment, the way the teacher's loadConfigFromEnv builds a
// single Config from getEnv* helpers — generalized to one sub-struct per
// pipeline stage instead of one flat struct, since each stage already owns
// its own typed Config (risk.Config, oms.ServiceConfig, ...).
package config

import (
	"fmt"
	"os"

	"github.com/n8kahl/dreambot/internal/ingest"
	"github.com/n8kahl/dreambot/internal/oms"
	"github.com/n8kahl/dreambot/internal/risk"
	"github.com/n8kahl/dreambot/internal/streamfabric"
)

// Config holds every runtime knob the live process needs, sourced from
// spec §6's environment variable list plus the per-stage tunables each
// internal package already exposes as a typed Config.
type Config struct {
	LogLevel string
	Port     int

	RedisURL string

	PolygonAPIKey    string
	PolygonS3Bucket  string
	PolygonS3Key     string
	PolygonS3Secret  string
	PolygonS3Endpoint string

	TradierToken   string
	TradierAccount string
	TradierBaseURL string

	AccountEquity float64

	CalibrationPath string

	Risk   risk.Config
	OMS    oms.ServiceConfig
	Live   oms.LiveConfig
	Ingest ingest.ServiceConfig
	Chain  ingest.ChainClientConfig

	OMSAudit    AuditSetting
	StreamAudit AuditSetting
}

// AuditSetting wraps streamfabric.AuditConfigFromEnv's (config, ok) pair so
// callers can treat "auditing disabled" as a first-class zero value.
type AuditSetting struct {
	streamfabric.AuditConfig
	Enabled bool
}

// Load reads the process environment (after LoadDotEnv has optionally
// backfilled it) and returns a fully populated Config with the teacher's
// sane-default-on-missing-key behavior.
func Load() Config {
	accountEquity := getEnvFloat("ACCOUNT_EQUITY", 100_000)

	cfg := Config{
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Port:     getEnvInt("PORT", 8080),

		RedisURL: getEnv("REDIS_URL", "redis://127.0.0.1:6379/0"),

		PolygonAPIKey:     os.Getenv("POLYGON_API_KEY"),
		PolygonS3Bucket:   os.Getenv("POLYGON_S3_BUCKET"),
		PolygonS3Key:      os.Getenv("POLYGON_S3_ACCESS_KEY_ID"),
		PolygonS3Secret:   os.Getenv("POLYGON_S3_SECRET_ACCESS_KEY"),
		PolygonS3Endpoint: os.Getenv("POLYGON_S3_ENDPOINT"),

		TradierToken:   os.Getenv("TRADIER_SANDBOX_TOKEN"),
		TradierAccount: os.Getenv("TRADIER_SANDBOX_ACCOUNT"),
		TradierBaseURL: getEnv("TRADIER_BASE_URL", "https://sandbox.tradier.com/v1"),

		AccountEquity: accountEquity,

		CalibrationPath: getEnv("CALIBRATION_PATH", "calibration.json"),

		Risk: risk.Config{
			DailyLossCap:             getEnvFloat("DAILY_LOSS_CAP", -accountEquity*0.03),
			MaxConcurrentPositions:   getEnvInt("MAX_CONCURRENT_POSITIONS", 3),
			NoTradeFirstSeconds:      getEnvInt64("NO_TRADE_FIRST_SECONDS", 300),
			EconHaltMinutesPrePost:   getEnvFloat("ECON_HALT_MINUTES_PRE_POST", 5),
			ForceFlatBeforeCloseSecs: getEnvInt64("FORCE_FLAT_BEFORE_CLOSE_SECS", 900),
			AccountEquity:            accountEquity,
			PerTradeMaxRiskPct:       getEnvFloat("PER_TRADE_MAX_RISK_PCT", 0.01),
			SlippageZMax:             getEnvFloat("SLIPPAGE_Z_MAX", 3),
			SpreadZMax:               getEnvFloat("SPREAD_Z_MAX", 3),
		},

		OMS: oms.ServiceConfig{
			OffsetTicks:       getEnvFloat("ORDER_OFFSET_TICKS", 0.05),
			UseBrokerPayload:  getEnvBool("OMS_USE_BROKER_PAYLOAD", true),
			PollIntervalSecs:  getEnvInt("POLL_INTERVAL_SECS", 2),
			StatusTimeoutSecs: getEnvInt("STATUS_TIMEOUT_SECS", 60),
		},

		Live: oms.LiveConfig{
			BaseURL:            getEnv("TRADIER_BASE_URL", "https://sandbox.tradier.com/v1"),
			AccountID:          os.Getenv("TRADIER_SANDBOX_ACCOUNT"),
			Token:              os.Getenv("TRADIER_SANDBOX_TOKEN"),
			RequestTimeoutSecs: getEnvInt("REQUEST_TIMEOUT_SECS", 10),
			RetryBackoffSecs:   getEnvFloat("RETRY_BACKOFF_SECS", 1),
			MaxRetries:         getEnvInt("MAX_RETRIES", 5),
		},

		Ingest: ingest.ServiceConfig{
			Source:           getEnv("INGEST_SOURCE", "polygon"),
			MaxContracts:     getEnvInt("INGEST_MAX_CONTRACTS", 40),
			StrikesAroundATM: getEnvInt("INGEST_STRIKES_AROUND_ATM", 10),
			RotateSecs:       getEnvInt64("INGEST_ROTATE_SECS", 300),
			HeartbeatSecs:    getEnvInt64("INGEST_HEARTBEAT_SECS", 30),
		},

		Chain: ingest.ChainClientConfig{
			APIKey:     os.Getenv("POLYGON_API_KEY"),
			MaxOptions: getEnvInt("INGEST_MAX_CONTRACTS", 40),
		},
	}

	if auditCfg, ok := streamfabric.AuditConfigFromEnv("OMS", os.Getenv); ok {
		cfg.OMSAudit = AuditSetting{AuditConfig: auditCfg, Enabled: true}
	}
	if auditCfg, ok := streamfabric.AuditConfigFromEnv("STREAM", os.Getenv); ok {
		cfg.StreamAudit = AuditSetting{AuditConfig: auditCfg, Enabled: true}
	}

	return cfg
}

// Validate checks the preconditions a live process needs before it is safe
// to start (spec §7's ConfigMissing taxonomy member: fail fast, non-zero
// exit, rather than starting in a half-configured state).
func (c Config) Validate() error {
	if c.RedisURL == "" {
		return fmt.Errorf("%w: REDIS_URL is required", ErrConfigMissing)
	}
	if c.PolygonAPIKey == "" {
		return fmt.Errorf("%w: POLYGON_API_KEY is required", ErrConfigMissing)
	}
	if c.TradierToken == "" || c.TradierAccount == "" {
		return fmt.Errorf("%w: TRADIER_SANDBOX_TOKEN and TRADIER_SANDBOX_ACCOUNT are required", ErrConfigMissing)
	}
	return nil
}
