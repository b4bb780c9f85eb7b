package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache keeps entries in process memory. It suits a single instance;
// use RedisCache when several instances share one store.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	gens    map[string]int64
	now     func() time.Time
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		gens:    make(map[string]int64),
		now:     time.Now,
	}
}

// Get retrieves a value, dropping it if it has expired.
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return append([]byte(nil), e.data...), true, nil
}

// Set stores a copy of data.
func (c *MemoryCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	e := c.entry(data, ttl)

	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return nil
}

// Generation returns the number of times key has been deleted.
func (c *MemoryCache) Generation(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[key], nil
}

// SetIfGeneration stores a copy of data unless key was deleted since gen
// was read.
func (c *MemoryCache) SetIfGeneration(ctx context.Context, key string, gen int64, data []byte, ttl time.Duration) (bool, error) {
	e := c.entry(data, ttl)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[key] != gen {
		return false, nil
	}
	c.entries[key] = e
	return true, nil
}

func (c *MemoryCache) entry(data []byte, ttl time.Duration) memoryEntry {
	e := memoryEntry{data: append([]byte(nil), data...)}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	return e
}

// Delete removes key and advances its generation.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.gens[key]++
	c.mu.Unlock()
	return nil
}

// Close drops every entry. Generations are kept so a reader still in
// flight cannot fill a closed cache with an old value.
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	c.entries = make(map[string]memoryEntry)
	c.mu.Unlock()
	return nil
}

var _ Cache = (*MemoryCache)(nil)
