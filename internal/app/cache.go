package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/okian/statboard/internal/domain/model"
	"github.com/okian/statboard/pkg/metrics"
)

// queryCache holds recent read results keyed by query plan. Entries expire
// after ttl, so a cached result may miss writes made within that window.
type queryCache struct {
	lru *expirable.LRU[string, []model.Stat]
}

func newQueryCache(size int, ttl time.Duration) *queryCache {
	return &queryCache{lru: expirable.NewLRU[string, []model.Stat](size, nil, ttl)}
}

func (c *queryCache) get(key string) ([]model.Stat, bool) {
	v, ok := c.lru.Get(key)
	if !ok {
		metrics.RecordCacheMiss()
		return nil, false
	}
	metrics.RecordCacheHit()
	return append([]model.Stat(nil), v...), true
}

func (c *queryCache) add(key string, stats []model.Stat) {
	c.lru.Add(key, append([]model.Stat(nil), stats...))
	metrics.UpdateCacheEntries(c.lru.Len())
}

func (c *queryCache) len() int { return c.lru.Len() }
