package app

import (
	"context"
	"fmt"

	"github.com/trevortrinh/vigil-hypertrace/internal/circuitbreaker"
	"github.com/trevortrinh/vigil-hypertrace/internal/classify"
	"github.com/trevortrinh/vigil-hypertrace/internal/pipeline"
	"github.com/trevortrinh/vigil-hypertrace/internal/storage"
	"github.com/trevortrinh/vigil-hypertrace/pkg/cache"
	"github.com/trevortrinh/vigil-hypertrace/pkg/config"
	"github.com/trevortrinh/vigil-hypertrace/pkg/healthprobe"
	"github.com/trevortrinh/vigil-hypertrace/pkg/httpserver"
	"github.com/trevortrinh/vigil-hypertrace/pkg/wsfeed"
	"go.uber.org/zap"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := setupHealthChecker()

	profileCache, err := setupProfileCache(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	store, err := setupStorage(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	engine := setupEngine(cfg, logger, store)

	var feed *wsfeed.Client
	var breaker *circuitbreaker.QualityCircuitBreaker
	if len(opts.FeedAccounts) > 0 {
		feed = setupFeed(cfg, logger)
		breaker, err = setupBreaker(cfg, logger)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("setup breaker: %w", err)
		}
	}

	httpServer := setupHTTPServer(cfg, logger, healthChecker, store, profileCache)

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		engine:        engine,
		feed:          feed,
		breaker:       breaker,
		store:         store,
		profileCache:  profileCache,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func setupHealthChecker() *healthprobe.HealthChecker {
	hc := healthprobe.New()
	hc.Register("storage")
	hc.Register("pipeline")
	return hc
}

func setupProfileCache(cfg *config.Config, logger *zap.Logger) (*cache.ProfileCache, error) {
	c, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 100000, // 10x expected max items (10k accounts)
		MaxCost:     10000,  // Maximum 10000 profiles in cache
		BufferItems: 64,     // Buffer size for Get operations
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	return cache.NewProfileCache(c, cfg.ProfileCacheTTL), nil
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	if cfg.StorageMode == "memory" {
		logger.Info("using-memory-storage")
		return storage.NewMemoryStorage(logger), nil
	}

	return storage.NewPostgresStorage(&storage.PostgresConfig{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPass,
		Database: cfg.PostgresDB,
		SSLMode:  cfg.PostgresSSL,
		Logger:   logger,
	})
}

func setupEngine(cfg *config.Config, logger *zap.Logger, store storage.Storage) *pipeline.Engine {
	return pipeline.New(pipeline.Config{
		Shards:               cfg.TrackerShards,
		SignalBucket:         cfg.SignalBucket,
		InferDirection:       cfg.InferDirection,
		PassAmbiguousThrough: cfg.PassAmbiguousThrough,
		Thresholds: classify.Thresholds{
			LiquidatorFillPct: cfg.LiquidatorFillPct,
			HFTMakerPct:       cfg.HFTMakerPct,
			HFTMaxAbsMtmTV:    cfg.HFTMaxAbsMtmTV,
			SmartMinNetPnl:    cfg.SmartMinNetPnl,
			SmartMinMtmTV:     cfg.SmartMinMtmTV,
			SmartMinRiskRatio: cfg.SmartMinRiskRatio,
		},
		Logger: logger,
	}, store)
}

func setupBreaker(cfg *config.Config, logger *zap.Logger) (*circuitbreaker.QualityCircuitBreaker, error) {
	return circuitbreaker.New(&circuitbreaker.Config{
		WindowSize:      cfg.QualityWindowSize,
		MaxRejectRatio:  cfg.QualityMaxRejectRatio,
		HysteresisRatio: cfg.QualityHysteresis,
		MinSample:       cfg.QualityMinSample,
		Logger:          logger,
	})
}

func setupFeed(cfg *config.Config, logger *zap.Logger) *wsfeed.Client {
	return wsfeed.New(wsfeed.Config{
		URL:                   cfg.WSFeedURL,
		DialTimeout:           cfg.WSDialTimeout,
		PongTimeout:           cfg.WSPongTimeout,
		PingInterval:          cfg.WSPingInterval,
		ReconnectInitialDelay: cfg.WSReconnectMin,
		ReconnectMaxDelay:     cfg.WSReconnectMax,
		ReconnectBackoffMult:  cfg.WSReconnectMult,
		FillBufferSize:        cfg.WSBufferSize,
		Logger:                logger,
	})
}

func setupHTTPServer(
	cfg *config.Config,
	logger *zap.Logger,
	healthChecker *healthprobe.HealthChecker,
	store storage.Storage,
	profileCache *cache.ProfileCache,
) *httpserver.Server {
	return httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Storage:       store,
		ProfileCache:  profileCache,
	})
}

// Engine exposes the pipeline engine for command-driven batch runs.
func (a *App) Engine() *pipeline.Engine {
	return a.engine
}

// Storage exposes the storage backend.
func (a *App) Storage() storage.Storage {
	return a.store
}
