// Package ownerstore 维护运单号到归属人的映射。
// 映射量很小但读多写少，启动时整体加载进内存，写操作直写后端存储。
package ownerstore

import (
	"context"
	"sync"
)

// Store 运单号归属关系的查询与维护接口
type Store interface {
	Lookup(trackingNumber string) (string, bool)
	Set(ctx context.Context, trackingNumber, owner string) error
	Remove(ctx context.Context, trackingNumber string) error
	List() map[string]string
}

// MemoryStore 纯内存实现，测试和无 Redis 环境下使用
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]string)}
}

func (s *MemoryStore) Lookup(trackingNumber string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owner, ok := s.items[trackingNumber]
	return owner, ok
}

func (s *MemoryStore) Set(_ context.Context, trackingNumber, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[trackingNumber] = owner
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, trackingNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, trackingNumber)
	return nil
}

func (s *MemoryStore) List() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copied := make(map[string]string, len(s.items))
	for k, v := range s.items {
		copied[k] = v
	}
	return copied
}
