package repository

import (
	"time"

	"github.com/okian/statboard/pkg/logger"
)

// Option applies a configuration option to the MemStore.
type Option func(*MemStore)

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *MemStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// WithSeed fixes the treap priority sequence.
func WithSeed(seed uint64) Option {
	return func(s *MemStore) {
		s.seed = seed
	}
}

// DynamoOption applies a configuration option to the DynamoStore.
type DynamoOption func(*DynamoStore)

// WithLogger sets the logger used for storage failures.
func WithLogger(l logger.Logger) DynamoOption {
	return func(s *DynamoStore) {
		if l != nil {
			s.log = l
		}
	}
}

// WithTableWait bounds how long EnsureTable waits for a new table.
func WithTableWait(d time.Duration) DynamoOption {
	return func(s *DynamoStore) {
		if d > 0 {
			s.tableWait = d
		}
	}
}
