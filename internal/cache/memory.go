package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// memoryKeys bounds the in-process backend. The snapshot cache uses one key.
const memoryKeys = 16

// MemoryBackend is an in-process Backend, used when no Redis URL is
// configured and in tests. Entries expire ttl after they were set; the
// per-call expiry passed to Set is ignored.
type MemoryBackend struct {
	items *expirable.LRU[string, []byte]
}

// NewMemoryBackend creates an empty in-process backend. A ttl of zero or
// less keeps entries until they are replaced or deleted.
func NewMemoryBackend(ttl time.Duration) *MemoryBackend {
	return &MemoryBackend{items: expirable.NewLRU[string, []byte](memoryKeys, nil, ttl)}
}

func (b *MemoryBackend) Get(key string) ([]byte, error) {
	val, ok := b.items.Get(key)
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), val...), nil
}

func (b *MemoryBackend) Set(key string, val []byte, _ time.Duration) error {
	b.items.Add(key, append([]byte(nil), val...))
	return nil
}

func (b *MemoryBackend) Delete(key string) error {
	b.items.Remove(key)
	return nil
}

func (b *MemoryBackend) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (b *MemoryBackend) Close() error {
	b.items.Purge()
	return nil
}
