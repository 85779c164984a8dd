package app

import (
	"context"
	"sync"

	"github.com/trevortrinh/vigil-hypertrace/internal/circuitbreaker"
	"github.com/trevortrinh/vigil-hypertrace/internal/pipeline"
	"github.com/trevortrinh/vigil-hypertrace/internal/storage"
	"github.com/trevortrinh/vigil-hypertrace/pkg/cache"
	"github.com/trevortrinh/vigil-hypertrace/pkg/config"
	"github.com/trevortrinh/vigil-hypertrace/pkg/healthprobe"
	"github.com/trevortrinh/vigil-hypertrace/pkg/httpserver"
	"github.com/trevortrinh/vigil-hypertrace/pkg/wsfeed"
	"go.uber.org/zap"
)

// App is the main application orchestrator. It owns the pipeline engine,
// the storage backend, the HTTP read API, and the optional live fill
// feed.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	engine        *pipeline.Engine
	feed          *wsfeed.Client
	breaker       *circuitbreaker.QualityCircuitBreaker
	store         storage.Storage
	profileCache  *cache.ProfileCache
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// Options holds application options.
type Options struct {
	// Accounts to subscribe to on the live feed. Empty disables the feed
	// and the app serves the read API over existing storage only.
	FeedAccounts []string
}
