package main

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	adb "github.com/slopewatch/slopewatch/internal/alerting/database"
	"github.com/slopewatch/slopewatch/internal/alerting/service/lifecycle"
	"github.com/slopewatch/slopewatch/internal/alerting/service/notify"
	"github.com/slopewatch/slopewatch/internal/config"
	"github.com/slopewatch/slopewatch/internal/middleware"
	"github.com/slopewatch/slopewatch/internal/monitoring/api"
	"github.com/slopewatch/slopewatch/internal/monitoring/cache"
	"github.com/slopewatch/slopewatch/internal/monitoring/service/engine"
	"github.com/slopewatch/slopewatch/internal/zoneconfig"
)

func main() {
	log.Info().Msg("Starting slopewatch api server")
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// configure log level from config
	switch strings.ToLower(cfg.Logging.Level) {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	zones, err := zoneconfig.Load(cfg.Engine.ZonesFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.Engine.ZonesFile).Msg("failed to load zone config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Engine.WatchZones {
		go func() {
			if err := zones.Watch(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("zone config watcher stopped")
			}
		}()
	}

	// optional alert DB; without it, alerts live in memory only
	var store lifecycle.Store
	if db, derr := adb.New(cfg.Database.DSN()); derr == nil {
		defer db.Close()
		store = adb.NewPgStore(db)
	} else {
		log.Error().Err(derr).Msg("alert DB init failed; falling back to in-memory alert store")
		store = adb.NewMemStore()
	}

	hub := notify.NewHub()
	dispatcher := notify.NewDispatcher(notify.LogHandler{}, notify.EmergencyHandler{}, hub)

	mgr := lifecycle.NewManager(store, zones,
		lifecycle.WithDispatcher(dispatcher),
		lifecycle.WithRetry(cfg.Engine.StoreRetries, parseDuration(cfg.Engine.StoreBackoff, 200*time.Millisecond)),
	)

	riskCache := cache.New(cache.NewClientFromConfig(&cfg.Redis), parseDuration(cfg.Engine.CacheTTL, 5*time.Minute))

	eng := engine.New(zones, mgr,
		engine.WithRiskCache(riskCache),
		engine.WithWorkers(cfg.Engine.Workers),
	)

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.Authentication)
	a := &api.Api{
		Engine:    eng,
		Manager:   mgr,
		Zones:     zones,
		RiskCache: riskCache,
		Hub:       hub,
	}
	a.Register(router)

	log.Info().Msgf("Starting server on %s", cfg.Server.BindAddr)
	if err := router.Run(cfg.Server.BindAddr); err != nil {
		log.Fatal().Err(err).Msg("start slopewatch api server failed.")
	}
	log.Info().Msg("slopewatch api server exit...")
}

func parseDuration(s string, d time.Duration) time.Duration {
	if s == "" {
		return d
	}
	if v, err := time.ParseDuration(s); err == nil {
		return v
	}
	return d
}
