// Command dreambot is the live process entrypoint: it wires the stream
// fabric, every pipeline stage, and an HTTP health/metrics surface, then
// runs until an interrupt or SIGTERM signal, per the teacher's main.go
// boot-sequence idiom generalized from a single trading loop to the
// full multi-stage pipeline (§2, §6).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/n8kahl/dreambot/internal/config"
	"github.com/n8kahl/dreambot/internal/features"
	"github.com/n8kahl/dreambot/internal/ingest"
	"github.com/n8kahl/dreambot/internal/learner"
	"github.com/n8kahl/dreambot/internal/oms"
	"github.com/n8kahl/dreambot/internal/pipeline"
	"github.com/n8kahl/dreambot/internal/portfolio"
	"github.com/n8kahl/dreambot/internal/risk"
	"github.com/n8kahl/dreambot/internal/signals"
	"github.com/n8kahl/dreambot/internal/streamfabric"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
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

func main() {
	config.LoadDotEnv()
	cfg := config.Load()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("dreambot: invalid configuration")
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Str("redis_url", cfg.RedisURL).Msg("dreambot: parse REDIS_URL")
	}
	redisClient := redis.NewClient(opts)
	defer redisClient.Close()

	var fabric streamfabric.Fabric = streamfabric.NewRedis(redisClient)
	if cfg.StreamAudit.Enabled {
		auditor := streamfabric.NewAuditor(cfg.StreamAudit.AuditConfig, nil)
		fabric = streamfabric.NewAudited(fabric, auditor)
	}

	cal, err := learner.LoadCalibration(cfg.CalibrationPath)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.CalibrationPath).Msg("dreambot: calibration file absent, using defaults")
		cal = learner.Calibration{RiskMultiplier: 1.0, PotThreshold: 0.55, AdxThreshold: 20}
	}

	var broker oms.Broker = oms.NewLiveBroker(cfg.Live)
	omsSvc := oms.NewService(broker, cfg.OMS, pipeline.NewSimplePublisher(fabric))

	riskMgr := risk.NewManager(cfg.Risk, nil)
	riskSvc := risk.NewService(riskMgr, pipeline.NewSimplePublisher(fabric))

	portfolioSvc := portfolio.NewService(pipeline.NewFabricPublisher(fabric))
	learnerSvc := learner.NewService(cal, nil)

	pl := pipeline.New(fabric,
		features.NewEngine(features.DefaultConfig()),
		signals.NewEngine(defaultGateConfig()),
		riskSvc, omsSvc, portfolioSvc, learnerSvc,
	)

	ingestSvc := ingest.NewService(cfg.Ingest, pipeline.NewFabricPublisher(fabric))
	_ = ingestSvc // vendor websocket/REST feed pump is out of scope (spec.md §1); heartbeat still runs below.

	recalJob := armNightlyRecalibration(learnerSvc, cfg.CalibrationPath)
	defer recalJob.Stop()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok\n"))
	})
	router.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Port), Handler: router}
	go func() {
		log.Info().Int("port", cfg.Port).Msg("dreambot: serving /healthz and /metrics")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("dreambot: http server failed")
		}
	}()

	go func() {
		if err := ingestSvc.RunHeartbeat(ctx); err != nil {
			log.Error().Err(err).Msg("dreambot: heartbeat loop stopped")
		}
	}()

	if err := pl.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("dreambot: pipeline stopped with error")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
