// Package cache stores recomposed project trees between reads.
//
// A cache is an optimization only: callers treat every error as a miss and
// fall back to the store. Entries are invalidated explicitly by the writer
// and also expire after their TTL.
//
// Every key has a generation that Delete advances. A reader records the
// generation before loading from the store and fills the cache with
// SetIfGeneration, so a value loaded before a concurrent invalidation is
// never written back.
package cache

import (
	"context"
	"strconv"
	"time"
)

// Cache is a byte-oriented key/value cache with per-entry TTL.
type Cache interface {
	// Get returns the cached value and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key and advances its generation. Deleting an absent
	// key is not an error.
	Delete(ctx context.Context, key string) error
	// Generation returns the current generation of key, zero until the
	// first Delete.
	Generation(ctx context.Context, key string) (int64, error)
	// SetIfGeneration stores data only while key is still at gen and
	// reports whether it did.
	SetIfGeneration(ctx context.Context, key string, gen int64, data []byte, ttl time.Duration) (bool, error)
	Close() error
}

// ProjectKey is the key a project tree is cached under.
func ProjectKey(id int64) string {
	return "project:" + strconv.FormatInt(id, 10)
}
