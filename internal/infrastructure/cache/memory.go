package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore is an in-process store with expiration
type MemoryStore struct {
	items *gocache.Cache
}

// NewMemoryStore creates a new in-memory store. Expired items are removed
// every cleanupInterval.
func NewMemoryStore(defaultTTL, cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{
		items: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get retrieves a value by key
func (ms *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := ms.items.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), b...), true, nil
}

// Set stores a value with expiration
func (ms *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	ms.items.Set(key, append([]byte(nil), value...), ttl)
	return nil
}

// Delete removes keys
func (ms *MemoryStore) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		ms.items.Delete(key)
	}
	return nil
}
