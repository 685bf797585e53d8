package commands

import (
	"fmt"

	"github.com/gudapatin/sentalpha/internal/marketdata"
	"github.com/gudapatin/sentalpha/internal/pipeline"
	"github.com/gudapatin/sentalpha/internal/sentiment"
	"github.com/gudapatin/sentalpha/internal/strategyconfig"
	"github.com/gudapatin/sentalpha/pkg/config"
	"github.com/gudapatin/sentalpha/pkg/database"
	"github.com/gudapatin/sentalpha/pkg/httputil"
	"github.com/gudapatin/sentalpha/pkg/logger"
	"github.com/gudapatin/sentalpha/pkg/redis"
)

// app bundles the wired dependencies every command needs.
// SSOT: dependency wiring happens here only.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *database.DB
	rdb      *redis.Client
	strategy *strategyconfig.Config

	sentiments *sentiment.Repository
	artifacts  *pipeline.Repository
	cache      *marketdata.SeriesCache
	hub        *pipeline.Hub
}

// initApp loads config, connects infrastructure and wires the
// pipeline dependencies.
func initApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	// Flag overrides env
	path := cfg.StrategyFile
	if strategyFile != "" {
		path = strategyFile
	}

	strategy := strategyconfig.Default()
	if path != "" {
		strategy, _, err = strategyconfig.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load strategy config: %w", err)
		}
	}

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	rdb, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	// The Redis limiter coordinates the provider quota across
	// processes; it is a no-op when Redis is disabled.
	httpClient := httputil.New(log, cfg.MarketData.Timeout).
		WithRateLimiter(redis.NewRateLimiter(rdb, "sentalpha"), redis.MarketDataRateLimit)

	provider := marketdata.NewClient(cfg, httpClient, log)
	l2 := redis.NewCache(rdb, "sentalpha")
	cache := marketdata.NewSeriesCache(provider, strategy, l2, log)

	return &app{
		cfg:        cfg,
		log:        log,
		db:         db,
		rdb:        rdb,
		strategy:   strategy,
		sentiments: sentiment.NewRepository(db.Pool),
		artifacts:  pipeline.NewRepository(db.Pool),
		cache:      cache,
		hub:        pipeline.NewHub(),
	}, nil
}

// orchestrator builds a run orchestrator over the wired dependencies
func (a *app) orchestrator() (*pipeline.Orchestrator, error) {
	return pipeline.NewOrchestrator(a.strategy, a.sentiments, a.cache, a.artifacts, a.hub, a.log)
}

// Close releases infrastructure connections
func (a *app) Close() {
	if a.rdb != nil {
		a.rdb.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
