// Package cache provides the key-value stores used for read caching.
package cache

import (
	"context"
	"time"
)

// Store is a byte-oriented cache with per-key expiration
type Store interface {
	// Get returns the value and true, or false when the key is missing or expired
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
