package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
	ctx    context.Context
}

func New(redisAddr string, db int) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
		DB:   db,
	})

	return &Cache{
		client: client,
		ctx:    context.Background(),
	}
}

// incrementScript bumps a counter and attaches the expiry on first increment,
// so the whole window lives and dies with one key. Running it as a script
// keeps the increment and the expiry atomic under concurrent callers.
var incrementScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// Increment bumps the keyed counter, setting it to expire after ttl when the
// key is first created. Returns the counter value after the increment.
func (c *Cache) Increment(key string, ttl time.Duration) (int64, error) {
	return incrementScript.Run(c.ctx, c.client, []string{key}, ttl.Milliseconds()).Int64()
}

// Set stores a key-value pair with an expiration time
func (c *Cache) Set(key string, value string, expiration time.Duration) error {
	return c.client.Set(c.ctx, key, value, expiration).Err()
}

// Get retrieves a value by key
func (c *Cache) Get(key string) (string, error) {
	return c.client.Get(c.ctx, key).Result()
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}
