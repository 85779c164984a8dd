package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/trevortrinh/vigil-hypertrace/internal/app"
	"github.com/trevortrinh/vigil-hypertrace/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Stream live fills for a set of accounts",
	Long: `Subscribes to the live fill feed for the given accounts and runs
incoming fills through the pipeline continuously. The read API is served
alongside, so profiles and signals update as fills arrive.

Blocks until SIGINT or SIGTERM.`,
	RunE: runStream,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(streamCmd)
	streamCmd.Flags().StringSliceP("account", "a", nil, "Account to follow (repeatable)")
	_ = streamCmd.MarkFlagRequired("account")
}

func runStream(cmd *cobra.Command, args []string) error {
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

	accounts, _ := cmd.Flags().GetStringSlice("account")

	opts := &app.Options{
		FeedAccounts: accounts,
	}

	application, err := app.New(cfg, logger, opts)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	err = application.Run(opts)
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
