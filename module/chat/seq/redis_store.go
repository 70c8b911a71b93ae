package seq

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// 纠偏取号：GET 落后于 dbMax 时先抬到 dbMax，再 INCR
var reconcileAndIncrLua = redis.NewScript(`
local k = KEYS[1]
local floor = tonumber(ARGV[1])
local v = redis.call('GET', k)
if (not v) or (tonumber(v) < floor) then
  redis.call('SET', k, floor)
end
return redis.call('INCR', k)
`)

// 校验 token 后释放锁，避免误删他人持有的锁
var unlockLua = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisStore 同时实现 SequenceStore 与 LockStore
type RedisStore struct {
	rdb redis.UniversalClient
}

func NewRedisStore(rdb redis.UniversalClient) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	return s.rdb.Incr(ctx, key).Result()
}

func (s *RedisStore) Get(ctx context.Context, key string) (int64, bool, error) {
	v, err := s.rdb.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value int64) error {
	return s.rdb.Set(ctx, key, value, 0).Err()
}

func (s *RedisStore) ReconcileAndIncr(ctx context.Context, key string, floor int64) (int64, error) {
	return reconcileAndIncrLua.Run(ctx, s.rdb, []string{key}, floor).Int64()
}

func (s *RedisStore) AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, key, token, ttl).Result()
}

func (s *RedisStore) ReleaseLock(ctx context.Context, key, token string) error {
	return unlockLua.Run(ctx, s.rdb, []string{key}, token).Err()
}
