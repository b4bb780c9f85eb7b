package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores entries in Redis so that every service instance sees
// the same invalidations.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache wraps client. Keys are namespaced with prefix, which may be
// empty. The cache owns client and closes it on Close.
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

// Get retrieves a value. A missing key is a miss, not an error.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set stores data with the given expiry.
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+key, data, ttl).Err()
}

// setIfGenScript sets KEYS[1] to ARGV[2] only while the counter in KEYS[2]
// (absent means zero) equals ARGV[1]. ARGV[3] is the TTL in milliseconds,
// zero for none.
var setIfGenScript = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or '0'
if gen ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[1], ARGV[2])
end
return 1
`)

func (c *RedisCache) genKey(key string) string {
	return c.prefix + key + ":gen"
}

// Delete removes key and increments its generation counter in one
// MULTI/EXEC block.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, c.prefix+key)
		pipe.Incr(ctx, c.genKey(key))
		return nil
	})
	return err
}

// Generation reads the generation counter of key.
func (c *RedisCache) Generation(ctx context.Context, key string) (int64, error) {
	gen, err := c.client.Get(ctx, c.genKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// SetIfGeneration compares the counter and writes the value atomically in
// a Lua script.
func (c *RedisCache) SetIfGeneration(ctx context.Context, key string, gen int64, data []byte, ttl time.Duration) (bool, error) {
	n, err := setIfGenScript.Run(ctx, c.client,
		[]string{c.prefix + key, c.genKey(key)},
		strconv.FormatInt(gen, 10), data, ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Close closes the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

var _ Cache = (*RedisCache)(nil)
