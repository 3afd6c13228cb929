package storage

import (
	"context"
	"slices"
	"sync"
	"time"
)

const memoryCacheSweepInterval = time.Minute

type memoryCacheEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// MemoryCache is a process-local CacheStore. Entries are dropped once their
// ttl has passed: on read, and by a sweep that Set runs at most once per
// memoryCacheSweepInterval so keys that are never read again do not pile up.
type MemoryCache struct {
	mu        sync.RWMutex
	entries   map[string]memoryCacheEntry
	nextSweep time.Time
	now       func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryCacheEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	if entry.expired(c.now()) {
		c.mu.Lock()
		// Another Set may have replaced it meanwhile.
		if current, ok := c.entries[key]; ok && current.expired(c.now()) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false, nil
	}
	return slices.Clone(entry.value), true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	entry := memoryCacheEntry{value: slices.Clone(value)}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}
	c.entries[key] = entry

	if !now.Before(c.nextSweep) {
		for k, e := range c.entries {
			if e.expired(now) {
				delete(c.entries, k)
			}
		}
		c.nextSweep = now.Add(memoryCacheSweepInterval)
	}
	return nil
}

func (e memoryCacheEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}
