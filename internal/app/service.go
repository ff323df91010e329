// Package service provides the core business service that implements
// the dependencies required by the HTTP API: the stat write path and the
// high-score read path.
package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/statboard/internal/adapters/repository"
	"github.com/okian/statboard/internal/domain/clock"
	"github.com/okian/statboard/internal/domain/model"
	"github.com/okian/statboard/internal/domain/query"
	"github.com/okian/statboard/pkg/errs"
	"github.com/okian/statboard/pkg/logger"
	"github.com/okian/statboard/pkg/metrics"
)

// Service implements the API dependencies for the stats system.
type Service struct {
	mu sync.RWMutex

	store repository.Store
	clock clock.Clock
	cache *queryCache

	// Configuration
	table          string
	storageTimeout time.Duration
	cacheSize      int
	cacheTTL       time.Duration

	// State
	started  bool
	recorded atomic.Uint64
	queried  atomic.Uint64
	failures atomic.Uint64

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the storage collaborator. Without one, Start builds an
// in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithClock replaces the system clock. The service keeps its readings
// strictly increasing.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTable records the table name reported by GetStats.
func WithTable(name string) Option {
	return func(s *Service) {
		s.table = name
	}
}

// WithStorageTimeout bounds every storage call. Zero leaves only the request
// context in charge.
func WithStorageTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.storageTimeout = d
		}
	}
}

// WithQueryCache enables the read cache. A size of zero disables it.
func WithQueryCache(size int, ttl time.Duration) Option {
	return func(s *Service) {
		if size >= 0 && ttl > 0 {
			s.cacheSize = size
			s.cacheTTL = ttl
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		clock: clock.System{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.clock = clock.NewMonotonic(s.clock)
	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.store == nil {
		s.store = repository.NewMemStore(ctx)
	}
	if s.cacheSize > 0 {
		s.cache = newQueryCache(s.cacheSize, s.cacheTTL)
	}

	s.started = true
	s.logger.Info(ctx, "stats service started",
		logger.String("store", s.store.Kind()),
		logger.String("table", s.table),
		logger.Int("cacheSize", s.cacheSize),
		logger.Duration("cacheTTL", s.cacheTTL),
		logger.Duration("storageTimeout", s.storageTimeout),
	)
	return nil
}

// Stop releases the store if it holds resources.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if closer, ok := s.store.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	s.started = false
	s.logger.Info(context.Background(), "stats service stopped")
}

func (s *Service) deps() (repository.Store, *queryCache, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, ErrNotStarted
	}
	return s.store, s.cache, nil
}

func (s *Service) storageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storageTimeout > 0 {
		return context.WithTimeout(ctx, s.storageTimeout)
	}
	return ctx, func() {}
}

// RecordStat validates in, stamps it with the current time and writes it.
// Two identical inputs produce two records.
func (s *Service) RecordStat(ctx context.Context, in model.StatInput) (model.Stat, error) {
	const op = "service.record_stat"

	store, _, err := s.deps()
	if err != nil {
		return model.Stat{}, errs.WrapKind(op, errs.ErrStorage, err)
	}
	if in.Value == nil {
		return model.Stat{}, errs.Validation(op, "value is required")
	}

	now, day := clock.Now(s.clock)
	if in.Day != nil {
		day = *in.Day
	}
	st := model.Stat{
		User:           in.User,
		Game:           in.Game,
		Stat:           in.Stat,
		Value:          *in.Value,
		Day:            day,
		AddedTimestamp: now,
	}
	if err := st.Validate(); err != nil {
		return model.Stat{}, errs.Wrap(op, err)
	}
	if vc, ok := store.(repository.ValueChecker); ok {
		if err := vc.CheckValue(st.Value); err != nil {
			return model.Stat{}, errs.Wrap(op, err)
		}
	}

	item, err := repository.EncodeStat(st)
	if err != nil {
		return model.Stat{}, errs.Wrap(op, err)
	}

	sctx, cancel := s.storageContext(ctx)
	defer cancel()
	if err := store.Put(sctx, item); err != nil {
		s.failures.Add(1)
		metrics.RecordErrorByComponent("service", "storage")
		s.logger.Error(ctx, "failed to record stat",
			logger.String("user", st.User),
			logger.String("game", st.Game),
			logger.String("stat", st.Stat),
			logger.Error(err))
		return model.Stat{}, errs.Wrap(op, err)
	}

	s.recorded.Add(1)
	metrics.RecordStatRecorded()
	s.logger.Debug(ctx, "stat recorded",
		logger.String("user", st.User),
		logger.String("game", st.Game),
		logger.String("stat", st.Stat),
		logger.Float64("value", st.Value),
		logger.Uint64("day", st.Day))
	return st, nil
}

// QueryStats runs q against its index and returns the stats in index order.
// One undecodable item fails the whole query.
func (s *Service) QueryStats(ctx context.Context, q query.Query) ([]model.Stat, error) {
	const op = "service.query_stats"

	store, cache, err := s.deps()
	if err != nil {
		return nil, errs.WrapKind(op, errs.ErrStorage, err)
	}

	plan := q.Plan()
	key := plan.CacheKey()
	if cache != nil {
		if hit, ok := cache.get(key); ok {
			s.queried.Add(1)
			metrics.RecordQuery(string(q.Variant()), len(hit))
			return hit, nil
		}
	}

	sctx, cancel := s.storageContext(ctx)
	defer cancel()
	items, err := store.Query(sctx, repository.RangeFromPlan(plan))
	if err != nil {
		s.failures.Add(1)
		metrics.RecordErrorByComponent("service", "storage")
		s.logger.Error(ctx, "failed to query stats",
			logger.String("variant", string(q.Variant())),
			logger.String("index", plan.Index.String()),
			logger.Error(err))
		return nil, errs.Wrap(op, err)
	}

	out := make([]model.Stat, 0, len(items))
	for _, item := range items {
		st, err := repository.DecodeStat(item)
		if err != nil {
			s.failures.Add(1)
			metrics.RecordDecodeError()
			s.logger.Error(ctx, "failed to decode stored stat",
				logger.String("variant", string(q.Variant())),
				logger.Any("item", item),
				logger.Error(err))
			return nil, errs.Wrap(op, err)
		}
		out = append(out, st)
	}

	if cache != nil {
		cache.add(key, out)
	}
	s.queried.Add(1)
	metrics.RecordQuery(string(q.Variant()), len(out))
	return out, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":          s.started,
		"table":            s.table,
		"storageTimeoutMs": s.storageTimeout.Milliseconds(),
		"cacheEnabled":     s.cacheSize > 0,
		"statsRecorded":    s.recorded.Load(),
		"queriesServed":    s.queried.Load(),
		"failures":         s.failures.Load(),
	}
	if s.store != nil {
		stats["store"] = s.store.Kind()
	}
	if s.cache != nil {
		n := s.cache.len()
		stats["cacheEntries"] = n
		metrics.UpdateCacheEntries(n)
	}
	if mem, ok := s.store.(interface{ Count() int }); ok {
		stats["items"] = mem.Count()
	}
	return stats
}
