package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	pkgredis "github.com/Adithya-Monish-Kumar-K/searchcore/pkg/redis"
)

// MemoryStore keeps entries in a size-bounded LRU with a fixed TTL.
type MemoryStore struct {
	lru *expirable.LRU[string, []byte]
}

func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	if size <= 0 {
		size = 1
	}
	return &MemoryStore{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.lru.Get(key)
	return v, ok, nil
}

// Set ignores ttl; the LRU applies the TTL it was created with.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.lru.Add(key, value)
	return nil
}

func (s *MemoryStore) Flush(context.Context) error {
	s.lru.Purge()
	return nil
}

func (s *MemoryStore) Len() int {
	return s.lru.Len()
}

// RedisStore shares entries between processes through Redis.
type RedisStore struct {
	client *pkgredis.Client
}

func NewRedisStore(client *pkgredis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.client.Get(ctx, key)
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl)
}

func (s *RedisStore) Flush(ctx context.Context) error {
	_, err := s.client.Flush(ctx)
	return err
}
