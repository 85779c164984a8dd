package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/trevortrinh/vigil-hypertrace/internal/app"
	"github.com/trevortrinh/vigil-hypertrace/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read API over existing storage",
	Long: `Starts the HTTP read API without ingesting new fills:

  GET /api/profile?account=<id>   one trader profile
  GET /api/watchlist              smart money watchlist by risk ratio
  GET /api/signals?coin=<asset>   per-asset positioning signals
  GET /metrics                    Prometheus metrics
  GET /health, /ready             probes

Blocks until SIGINT or SIGTERM.`,
	RunE: runServe,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	application, err := app.New(cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	err = application.Run(nil)
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
