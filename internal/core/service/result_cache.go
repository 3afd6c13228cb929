package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/rl1809/plate-catalog/internal/core/domain"
	"github.com/rl1809/plate-catalog/internal/port"
)

const (
	ForSaleCacheTTL       = 10 * time.Minute
	forSaleCacheKeyPrefix = "plates_for_sale:"
)

type cacheEntry struct {
	ExpiresAt time.Time            `json:"expires_at"`
	Plates    []domain.PricedPlate `json:"plates"`
}

// ResultCache memoizes priced filter results. Expiry is checked lazily
// against the injected clock on read; a snapshot is returned exactly as it was
// stored and never re-priced. Concurrent misses on one key within a process
// share a single compute; across processes the last write wins.
type ResultCache struct {
	store  port.CacheStore
	clock  port.Clock
	ttl    time.Duration
	logger *zap.Logger
	group  singleflight.Group
}

func NewResultCache(store port.CacheStore, clock port.Clock, ttl time.Duration, logger *zap.Logger) *ResultCache {
	return &ResultCache{
		store:  store,
		clock:  clock,
		ttl:    ttl,
		logger: logger,
	}
}

// GetOrCompute uses token verbatim as the key. A failing backend degrades to
// computing fresh results.
func (c *ResultCache) GetOrCompute(ctx context.Context, token string, compute func(context.Context) ([]domain.PricedPlate, error)) ([]domain.PricedPlate, error) {
	key := forSaleCacheKeyPrefix + token

	if plates, ok := c.lookup(ctx, key); ok {
		return plates, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// Shared by every waiter, so one caller going away must not cancel it.
		shared := context.WithoutCancel(ctx)
		plates, err := compute(shared)
		if err != nil {
			return nil, err
		}
		c.save(shared, key, plates)
		return plates, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.PricedPlate), nil
}

func (c *ResultCache) lookup(ctx context.Context, key string) ([]domain.PricedPlate, bool) {
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		cacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn("result cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !ok {
		cacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	var entry cacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		cacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn("result cache entry corrupt", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !c.clock.Now().Before(entry.ExpiresAt) {
		cacheLookups.WithLabelValues("expired").Inc()
		return nil, false
	}

	cacheLookups.WithLabelValues("hit").Inc()
	if entry.Plates == nil {
		entry.Plates = []domain.PricedPlate{}
	}
	return entry.Plates, true
}

func (c *ResultCache) save(ctx context.Context, key string, plates []domain.PricedPlate) {
	raw, err := json.Marshal(cacheEntry{
		ExpiresAt: c.clock.Now().Add(c.ttl),
		Plates:    plates,
	})
	if err != nil {
		c.logger.Warn("result cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
		c.logger.Warn("result cache write failed", zap.String("key", key), zap.Error(fmt.Errorf("set %s: %w", key, err)))
	}
}
