package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady("pipeline", false)

	// Cancel context to signal all components
	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Shutdown components in dependency order
	err := a.httpServer.Shutdown(shutdownCtx)
	if err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	if a.feed != nil {
		a.feed.Stop()
	}

	err = a.store.Close()
	if err != nil {
		a.logger.Error("storage-close-error", zap.Error(err))
	}

	// Wait for all goroutines
	a.wg.Wait()

	a.logger.Info("application-shutdown-complete")

	return nil
}
