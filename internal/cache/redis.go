package cache

import (
	"context"
	"fmt"
	"time"

	redisstore "github.com/gofiber/storage/redis/v3"
)

// RedisBackend stores snapshots in Redis through the gofiber storage driver.
type RedisBackend struct {
	store *redisstore.Storage
}

// NewRedisBackend connects to the Redis server at url
// (redis://[user:password@]host:port/db).
func NewRedisBackend(url string) (backend *RedisBackend, err error) {
	// The driver pings on construction and panics when Redis is unreachable.
	defer func() {
		if r := recover(); r != nil {
			backend = nil
			err = fmt.Errorf("%w: failed to connect to redis: %v", ErrCacheUnavailable, r)
		}
	}()

	store := redisstore.New(redisstore.Config{
		URL:   url,
		Reset: false,
	})
	return &RedisBackend{store: store}, nil
}

func (b *RedisBackend) Get(key string) ([]byte, error) {
	return b.store.Get(key)
}

func (b *RedisBackend) Set(key string, val []byte, exp time.Duration) error {
	return b.store.Set(key, val, exp)
}

func (b *RedisBackend) Delete(key string) error {
	return b.store.Delete(key)
}

// Ping checks connectivity on the underlying go-redis client.
func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.store.Conn().Ping(ctx).Err()
}

func (b *RedisBackend) Close() error {
	return b.store.Close()
}
