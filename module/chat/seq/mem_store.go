package seq

import (
	"context"
	"sync"
	"time"
)

// MemStore 内存版快存：单进程内与 Redis 语义一致（原子自增、锁TTL、token 释放）。
// 测试与本地联调用（生产部署见 redis_store.go）。
type MemStore struct {
	mu       sync.Mutex
	counters map[string]int64
	locks    map[string]memLock
}

type memLock struct {
	token     string
	expiresAt time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		counters: make(map[string]int64),
		locks:    make(map[string]memLock),
	}
}

func (s *MemStore) Incr(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key]++
	return s.counters[key], nil
}

func (s *MemStore) Get(ctx context.Context, key string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.counters[key]
	return v, ok, nil
}

func (s *MemStore) Set(ctx context.Context, key string, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key] = value
	return nil
}

func (s *MemStore) ReconcileAndIncr(ctx context.Context, key string, floor int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.counters[key]; !ok || v < floor {
		s.counters[key] = floor
	}
	s.counters[key]++
	return s.counters[key], nil
}

func (s *MemStore) AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.locks[key]; ok && time.Now().Before(l.expiresAt) {
		return false, nil
	}
	s.locks[key] = memLock{token: token, expiresAt: time.Now().Add(ttl)}
	return true, nil
}

func (s *MemStore) ReleaseLock(ctx context.Context, key, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.locks[key]; ok && l.token == token {
		delete(s.locks, key)
	}
	return nil
}
