package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/statboard/internal/loadtest"
	"github.com/okian/statboard/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := loadtest.DefaultConfig()
	var logFormat string

	cmd := &cobra.Command{
		Use:   "statsload",
		Short: "Load and verify a statboard service",
		Long: `statsload generates stats across several games, users and days with
values spanning signs and magnitudes, submits them concurrently and then
checks every high-score query shape against locally computed results.`,
		Example: `  statsload --url http://localhost:9080
  statsload --users 500 --days 7 --workers 64 --settle 5s`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(logger.WithFormat(logFormat), logger.WithOutput(cmd.ErrOrStderr())); err != nil {
				return err
			}
			if cfg.Verbose {
				_ = logger.SetLevelString("debug")
			}
			_, err := loadtest.Run(cmd.Context(), cfg, logger.Named("statsload"))
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "base URL of the service")
	f.IntVar(&cfg.Games, "games", cfg.Games, "number of games")
	f.IntVar(&cfg.Stats, "stats", cfg.Stats, "stat names per game")
	f.IntVar(&cfg.Users, "users", cfg.Users, "number of users")
	f.IntVar(&cfg.Days, "days", cfg.Days, "number of days, counting back from today")
	f.IntVar(&cfg.PerDay, "per-day", cfg.PerDay, "submissions per user, game, stat and day")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent requests")
	f.IntVar(&cfg.TopN, "top", cfg.TopN, "count used by verification queries")
	f.IntVar(&cfg.SampleUsers, "sample-users", cfg.SampleUsers, "users whose personal queries are verified")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "HTTP request timeout")
	f.DurationVar(&cfg.Settle, "settle", cfg.Settle, "wait between submission and verification")
	f.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "generator seed (0 picks one)")
	f.StringVar(&cfg.OutputFile, "output", cfg.OutputFile, "write the generated stats to this JSON file")
	f.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "log every failed request and check")
	f.StringVar(&logFormat, "log-format", "text", "log format: text or json")

	return cmd
}
