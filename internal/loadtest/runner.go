package loadtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/statboard/internal/domain/clock"
	"github.com/okian/statboard/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// Run errors.
var (
	ErrSubmitFailed = errors.New("stat submission failed")
	ErrChecksFailed = errors.New("verification failed")
)

const progressInterval = time.Second

// Run executes a complete load test: health check, generation, concurrent
// submission, then verification of every query shape.
func Run(ctx context.Context, cfg Config, log logger.Logger) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Get()
	}
	stats := &Stats{StartTime: time.Now()}
	client := NewClient(cfg.BaseURL, cfg.Timeout)

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(stats.StartTime.UnixNano())
	}
	log.Info(ctx, "starting statboard load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("stats", cfg.Total()),
		logger.Int("workers", cfg.Workers),
		logger.Uint64("seed", seed))

	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	ds := Generate(cfg, seed, clock.System{}.NowMillis())
	stats.Generated = len(ds.Records)
	if cfg.OutputFile != "" {
		if err := saveDataset(cfg.OutputFile, ds); err != nil {
			log.Warn(ctx, "failed to save dataset", logger.Error(err))
		}
	}

	if err := submit(ctx, cfg, client, ds.Records, stats, log); err != nil {
		return finish(stats, log), err
	}

	if cfg.Settle > 0 {
		log.Info(ctx, "waiting for indexes to settle", logger.Duration("settle", cfg.Settle))
		select {
		case <-ctx.Done():
			return finish(stats, log), ctx.Err()
		case <-time.After(cfg.Settle):
		}
	}

	err := verify(ctx, cfg, client, BuildChecks(ds, cfg), stats, log)
	return finish(stats, log), err
}

// submit posts every record with at most cfg.Workers requests in flight.
func submit(ctx context.Context, cfg Config, client *Client, records []Record, stats *Stats, log logger.Logger) error {
	var submitted, failed atomic.Int64
	done := make(chan struct{})
	go reportProgress(ctx, done, &submitted, len(records), log)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, r := range records {
		g.Go(func() error {
			_, err := client.PostStat(gctx, r)
			submitted.Add(1)
			if err != nil {
				failed.Add(1)
				if cfg.Verbose {
					log.Warn(gctx, "submission failed", logger.String("user", r.User), logger.Error(err))
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	close(done)

	stats.Submitted = int(submitted.Load())
	stats.Failed = int(failed.Load())
	stats.Successful = stats.Submitted - stats.Failed
	log.Info(ctx, "submission completed",
		logger.Int("successful", stats.Successful),
		logger.Int("failed", stats.Failed))

	if err := ctx.Err(); err != nil {
		return err
	}
	if stats.Failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrSubmitFailed, stats.Failed, stats.Submitted)
	}
	return nil
}

// verify runs every check; a failed check does not stop the others.
func verify(ctx context.Context, cfg Config, client *Client, checks []Check, stats *Stats, log logger.Logger) error {
	var (
		mu       sync.Mutex
		failures []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, c := range checks {
		g.Go(func() error {
			got, err := client.Query(gctx, c.Params)
			if err == nil {
				err = c.Verify(got)
			}
			if err != nil {
				mu.Lock()
				failures = append(failures, err)
				mu.Unlock()
				if cfg.Verbose {
					log.Warn(gctx, "check failed", logger.String("check", c.Name), logger.Error(err))
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	stats.Checks = len(checks)
	stats.ChecksFailed = len(failures)
	stats.ChecksPassed = stats.Checks - stats.ChecksFailed
	log.Info(ctx, "verification completed",
		logger.Int("checks", stats.Checks),
		logger.Int("failed", stats.ChecksFailed))

	if err := ctx.Err(); err != nil {
		return err
	}
	if len(failures) > 0 {
		return fmt.Errorf("%w: %d of %d checks: %w", ErrChecksFailed, len(failures), len(checks), errors.Join(failures...))
	}
	return nil
}

func reportProgress(ctx context.Context, done <-chan struct{}, submitted *atomic.Int64, total int, log logger.Logger) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			log.Info(ctx, "progress", logger.Int("submitted", int(submitted.Load())), logger.Int("total", total))
		}
	}
}

func finish(stats *Stats, log logger.Logger) *Stats {
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}
	log.Info(context.Background(), "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("failed", stats.Failed),
		logger.Int("checks", stats.Checks),
		logger.Int("checksFailed", stats.ChecksFailed),
		logger.Duration("duration", stats.Duration),
		logger.Float64("statsPerSecond", perSecond))
	return stats
}

// saveDataset writes ds as indented JSON.
func saveDataset(filename string, ds Dataset) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal dataset: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write dataset: %w", err)
	}
	return nil
}
