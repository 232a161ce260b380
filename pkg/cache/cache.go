package cache

import (
	"context"
	"sync"
	"time"
)

// Cache is a generic interface for key/value caching operations.
// Implementations can be in-memory, Redis, or any other backing store.
// All operations are best-effort from the caller's point of view: a caller
// that gets an error must fall back to the authoritative store.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns the value and true if found, nil and false otherwise.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value in the cache with the specified TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a specific key from the cache; idempotent.
	Delete(ctx context.Context, key string) error

	// Stop gracefully shuts down the cache (e.g., stops cleanup goroutines).
	Stop()
}

// cacheItem represents a single cached value with expiration
type cacheItem struct {
	value      []byte
	expiration time.Time
}

func (item *cacheItem) isExpired() bool {
	return time.Now().After(item.expiration)
}

// InMemoryCache is a thread-safe in-memory cache implementation
type InMemoryCache struct {
	items           map[string]*cacheItem
	mu              sync.RWMutex
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
}

// NewInMemoryCache creates a new in-memory cache with automatic cleanup.
// cleanupInterval determines how often expired items are removed.
func NewInMemoryCache(cleanupInterval time.Duration) *InMemoryCache {
	cache := &InMemoryCache{
		items:           make(map[string]*cacheItem),
		cleanupInterval: cleanupInterval,
		stopCleanup:     make(chan struct{}),
	}

	go cache.startCleanup()

	return cache
}

// Get retrieves a value from the cache
func (c *InMemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, found := c.items[key]
	if !found || item.isExpired() {
		return nil, false, nil
	}

	return item.value, true, nil
}

// Set stores a value in the cache with the specified TTL
func (c *InMemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = &cacheItem{
		value:      value,
		expiration: time.Now().Add(ttl),
	}
	return nil
}

// Delete removes a specific key from the cache
func (c *InMemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
	return nil
}

// Size returns the number of items currently in the cache.
// Note: this includes expired items that haven't been cleaned up yet.
func (c *InMemoryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

// Stop gracefully shuts down the cache and stops the cleanup goroutine
func (c *InMemoryCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCleanup)
	})
}

// startCleanup runs a background goroutine that periodically removes expired items
func (c *InMemoryCache) startCleanup() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stopCleanup:
			return
		}
	}
}

// cleanup removes all expired items from the cache
func (c *InMemoryCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, item := range c.items {
		if now.After(item.expiration) {
			delete(c.items, key)
		}
	}
}
