package cache

import (
	"context"
	"time"
)

// DefaultTTL matches how long standings may lag behind the source
const DefaultTTL = 60 * time.Second

// Store is a byte-value cache with per-entry expiry
type Store interface {
	// Get returns the value and true on a hit
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
