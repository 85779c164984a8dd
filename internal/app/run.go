package app

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trevortrinh/vigil-hypertrace/pkg/types"
	"go.uber.org/zap"
)

// feedFlushInterval bounds how long a live fill waits before its batch is
// processed.
const feedFlushInterval = 5 * time.Second

// feedBatchSize flushes a batch early once this many fills are buffered.
const feedBatchSize = 500

// Run starts the application and blocks until shutdown.
func (a *App) Run(opts *Options) error {
	if opts == nil {
		opts = &Options{}
	}

	a.logger.Info("application-starting",
		zap.String("storage-mode", a.cfg.StorageMode),
		zap.String("log-level", a.cfg.LogLevel),
		zap.Int("feed-accounts", len(opts.FeedAccounts)))

	err := a.startComponents(opts)
	if err != nil {
		return err
	}

	a.logger.Info("application-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort))

	return a.waitForShutdown()
}

func (a *App) startComponents(opts *Options) error {
	a.wg.Add(1)
	go a.runHTTPServer()

	// Give HTTP server a moment to start
	time.Sleep(100 * time.Millisecond)

	a.healthChecker.SetReady("storage", true)
	a.healthChecker.SetReady("pipeline", true)

	if a.feed != nil {
		if a.breaker != nil {
			a.healthChecker.SetReady("data-quality", true)
		}
		err := a.startFeed(opts.FeedAccounts)
		if err != nil {
			return err
		}
	}

	return nil
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) startFeed(accounts []string) error {
	a.healthChecker.Register("feed")

	err := a.feed.Start()
	if err != nil {
		return err
	}

	err = a.feed.Subscribe(a.ctx, accounts)
	if err != nil {
		return err
	}

	a.healthChecker.SetReady("feed", true)

	a.wg.Add(1)
	go a.consumeFeed()

	return nil
}

// consumeFeed batches live fills and runs them through the pipeline. A
// batch flushes on size or on the flush ticker, whichever comes first.
func (a *App) consumeFeed() {
	defer a.wg.Done()

	ticker := time.NewTicker(feedFlushInterval)
	defer ticker.Stop()

	var batch []*types.RawFill

	flush := func() {
		if len(batch) == 0 {
			return
		}

		stats, err := a.engine.ProcessBatch(a.ctx, batch)
		if err != nil {
			a.logger.Error("feed-batch-failed", zap.Error(err))
		}
		if stats != nil {
			a.invalidateProfiles()
			a.recordQuality(stats.Normalized+stats.Rejected, stats.Rejected)
		}

		batch = nil
	}

	for {
		select {
		case <-a.ctx.Done():
			flush()
			return
		case fill, ok := <-a.feed.Fills():
			if !ok {
				flush()
				return
			}
			batch = append(batch, fill)
			if len(batch) >= feedBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// recordQuality feeds batch outcomes to the quality breaker and mirrors
// its state into the readiness probe.
func (a *App) recordQuality(total, rejected int) {
	if a.breaker == nil {
		return
	}

	a.breaker.RecordBatch(total, rejected)
	a.healthChecker.SetReady("data-quality", a.breaker.IsHealthy())
}

// invalidateProfiles drops cached profiles for accounts whose tags moved
// in the last batch. Serving one stale TTL window is acceptable for the
// rest.
func (a *App) invalidateProfiles() {
	if a.profileCache == nil {
		return
	}
	for accountID := range a.engine.Tags() {
		a.profileCache.Invalidate(accountID)
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
