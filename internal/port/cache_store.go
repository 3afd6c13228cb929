package port

import (
	"context"
	"time"
)

type CacheStore interface {
	// Get returns false when the key is absent
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set overwrites the key; ttl is an upper bound for how long the backend keeps it
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
