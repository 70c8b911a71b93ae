package seq

import (
	"context"
	"time"
)

// SequenceStore 计数器的共享快存抽象：生产走 Redis（redis_store.go），
// 测试/单机走内存（mem_store.go）。Incr/Set 必须是跨实例原子的。
type SequenceStore interface {
	// Incr 原子自增并返回新值；键不存在时从 0 开始
	Incr(ctx context.Context, key string) (int64, error)
	// Get 读取当前值；ok=false 表示键不存在（尚未初始化）
	Get(ctx context.Context, key string) (value int64, ok bool, err error)
	// Set 写入初始化值（不带过期）
	Set(ctx context.Context, key string, value int64) error
	// ReconcileAndIncr 只升不降地把计数器抬到 floor，再自增取号。
	// 快存落后持久层真实最大值时由此纠偏（持久层才是真相源）。
	ReconcileAndIncr(ctx context.Context, key string, floor int64) (int64, error)
}

// LockStore 初始化互斥：set-if-absent + TTL，token 校验后释放。
// 持有者崩溃由 TTL 自愈。
type LockStore interface {
	AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// MaxSeqQuerier 初始化回源：持久层中该会话已提交的最大 seq（无消息时 0）
type MaxSeqQuerier interface {
	MaxSeq(ctx context.Context, chatID string) (int64, error)
}
