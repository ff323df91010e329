// Package loadtest generates stats, submits them to a running statboard
// service and verifies every query shape against locally computed results.
package loadtest

import (
	"errors"
	"fmt"
	"time"

	"github.com/okian/statboard/internal/domain/query"
)

// Config holds configuration for a load test run.
type Config struct {
	BaseURL     string        // Base URL of the service
	Games       int           // Number of games
	Stats       int           // Stat names per game
	Users       int           // Number of users
	Days        int           // Number of day buckets, counting back from today
	PerDay      int           // Submissions per user, game, stat and day
	Workers     int           // Concurrent submitters and verifiers
	TopN        int           // count used by verification queries
	SampleUsers int           // Users whose personal queries are verified
	Timeout     time.Duration // HTTP request timeout
	Settle      time.Duration // Wait between submission and verification
	Seed        uint64        // Generator seed; 0 picks one from the clock
	OutputFile  string        // Optional JSON dump of generated stats
	Verbose     bool          // Log every failed check
}

// ErrInvalidConfig marks a rejected Config.
var ErrInvalidConfig = errors.New("invalid load test config")

// DefaultConfig returns a small run against a local service.
func DefaultConfig() Config {
	return Config{
		BaseURL:     "http://localhost:9080",
		Games:       2,
		Stats:       2,
		Users:       50,
		Days:        3,
		PerDay:      2,
		Workers:     16,
		TopN:        10,
		SampleUsers: 5,
		Timeout:     10 * time.Second,
		Settle:      2 * time.Second,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: base url must not be empty", ErrInvalidConfig)
	case c.Games < 1, c.Stats < 1, c.Users < 1, c.Days < 1, c.PerDay < 1:
		return fmt.Errorf("%w: games, stats, users, days and per-day must be positive", ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case c.TopN < 1 || c.TopN > query.MaxCount:
		return fmt.Errorf("%w: top must be within [1, %d]", ErrInvalidConfig, query.MaxCount)
	case c.SampleUsers < 0:
		return fmt.Errorf("%w: sample users must not be negative", ErrInvalidConfig)
	case c.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	case c.Settle < 0:
		return fmt.Errorf("%w: settle must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Total returns the number of stats a run submits.
func (c Config) Total() int {
	return c.Games * c.Stats * c.Users * c.Days * c.PerDay
}

// Stats holds run statistics.
type Stats struct {
	Generated    int
	Submitted    int
	Successful   int
	Failed       int
	Checks       int
	ChecksPassed int
	ChecksFailed int
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
}
