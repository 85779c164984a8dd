package cmd

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/trevortrinh/vigil-hypertrace/internal/app"
	"github.com/trevortrinh/vigil-hypertrace/internal/ingest"
	"github.com/trevortrinh/vigil-hypertrace/pkg/config"
	"go.uber.org/zap"
)

//nolint:gochecknoglobals // Cobra boilerplate
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process fill files through the pipeline",
	Long: `Reads JSONL fill files from a directory and runs them through the
full pipeline: normalization, position tracking, daily bucket
aggregation, profile classification, and smart money signals.

Results are written to the configured storage backend. Re-running over
the same files is idempotent.`,
	RunE: runProcess,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(processCmd)
	processCmd.Flags().StringP("dir", "d", "", "Directory of JSONL fill files (defaults to FILLS_DIR)")
}

func runProcess(cmd *cobra.Command, args []string) error {
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

	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		dir = cfg.FillsDir
	}

	application, err := app.New(cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}
	defer func() {
		_ = application.Storage().Close()
	}()

	ctx := context.Background()

	reader := ingest.NewReader(logger)
	raws, err := reader.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read fills: %w", err)
	}

	logger.Info("fills-loaded",
		zap.String("dir", dir),
		zap.Int("count", len(raws)))

	stats, err := application.Engine().ProcessBatch(ctx, raws)
	if err != nil {
		return fmt.Errorf("process batch: %w", err)
	}

	logger.Info("processing-complete",
		zap.String("run-id", stats.RunID),
		zap.Int("fills-in", stats.FillsIn),
		zap.Int("normalized", stats.Normalized),
		zap.Int("rejected", stats.Rejected),
		zap.Int("trades", stats.Trades),
		zap.Int("out-of-order", stats.OutOfOrder),
		zap.Int("windows", stats.Windows),
		zap.Int("accounts", stats.Accounts),
		zap.Int("signals", stats.Signals))

	return nil
}
