package seq

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 需要本地 Redis：REDIS_TEST_ADDR=127.0.0.1:6379 go test ./module/chat/seq/...
func newRedisStoreForTest(t *testing.T) *RedisStore {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	s := newRedisStoreForTest(t)
	ctx := context.Background()
	key := "chat:test-roundtrip:lastMessageId"
	defer s.rdb.Del(ctx, key)

	_, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, key, 7))
	v, err := s.Incr(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(8), v)

	v, err = s.ReconcileAndIncr(ctx, key, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(21), v)
}

func TestRedisStoreLockTokenGuard(t *testing.T) {
	s := newRedisStoreForTest(t)
	ctx := context.Background()
	key := "chat:test-lock:lastMessageId:initLock"
	defer s.rdb.Del(ctx, key)

	got, err := s.AcquireLock(ctx, key, "tok-a", 30*time.Second)
	require.NoError(t, err)
	require.True(t, got)

	got, err = s.AcquireLock(ctx, key, "tok-b", 30*time.Second)
	require.NoError(t, err)
	assert.False(t, got)

	// 错 token 不得释放
	require.NoError(t, s.ReleaseLock(ctx, key, "tok-b"))
	got, err = s.AcquireLock(ctx, key, "tok-c", 30*time.Second)
	require.NoError(t, err)
	assert.False(t, got)

	require.NoError(t, s.ReleaseLock(ctx, key, "tok-a"))
	got, err = s.AcquireLock(ctx, key, "tok-c", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, got)
}
