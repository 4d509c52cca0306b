package ownerstore

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisStore Redis hash 持久化的归属关系存储。
// Load 一次性拉全量进内存，之后读走内存，写同步落 Redis。
type RedisStore struct {
	rdb *redis.Client
	key string

	mu    sync.RWMutex
	cache map[string]string
}

func NewRedisStore(rdb *redis.Client, key string) *RedisStore {
	if key == "" {
		key = "wuliu:tracking_owner"
	}
	return &RedisStore{
		rdb:   rdb,
		key:   key,
		cache: make(map[string]string),
	}
}

// Load 启动时调用，失败时调用方决定降级策略
func (s *RedisStore) Load(ctx context.Context) error {
	items, err := s.rdb.HGetAll(ctx, s.key).Result()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.cache = items
	s.mu.Unlock()
	return nil
}

func (s *RedisStore) Lookup(trackingNumber string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owner, ok := s.cache[trackingNumber]
	return owner, ok
}

func (s *RedisStore) Set(ctx context.Context, trackingNumber, owner string) error {
	if err := s.rdb.HSet(ctx, s.key, trackingNumber, owner).Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.cache[trackingNumber] = owner
	s.mu.Unlock()
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, trackingNumber string) error {
	if err := s.rdb.HDel(ctx, s.key, trackingNumber).Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.cache, trackingNumber)
	s.mu.Unlock()
	return nil
}

func (s *RedisStore) List() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copied := make(map[string]string, len(s.cache))
	for k, v := range s.cache {
		copied[k] = v
	}
	return copied
}
