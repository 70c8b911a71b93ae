package seq

import (
	"ChatCore/global"
	"ChatCore/logger"
	"ChatCore/tools"
	"ChatCore/tools/errs"
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	defaultLockTTL       = 30 * time.Second
	defaultPollWait      = 50 * time.Millisecond
	defaultBootstrapWait = 5 * time.Second
)

// Allocator 会话内发号器。
//
// 计数器键不存在时先初始化：抢到 initLock 的实例回源查持久层 MAX(seq) 写入计数器，
// 没抢到的轮询等待计数器出现。初始化完成后 AllocateNext 就是一次原子 INCR，
// 无论哪个实例触发初始化，取到的号都不会重复。
//
// 取号与游标更新都是原子的、不可半途回滚；调用方被取消时应视为"可能已完成"，
// 重查而不是假设回滚。
type Allocator struct {
	Store SequenceStore
	Locks LockStore
	DB    MaxSeqQuerier

	LockTTL       time.Duration // initLock 过期时间，持有者崩溃由此自愈
	PollWait      time.Duration // 等待初始化的轮询间隔
	BootstrapWait time.Duration // 等待初始化的总预算，超出报 BootstrapTimeout
}

func NewAllocator(store SequenceStore, locks LockStore, db MaxSeqQuerier) *Allocator {
	return &Allocator{
		Store:         store,
		Locks:         locks,
		DB:            db,
		LockTTL:       defaultLockTTL,
		PollWait:      defaultPollWait,
		BootstrapWait: defaultBootstrapWait,
	}
}

// AllocateNext 分配下一个 seq（严格递增、不重复、不留洞）
func (a *Allocator) AllocateNext(ctx context.Context, chatID string) (int64, error) {
	if chatID == "" {
		return 0, errs.ErrArgs.WrapMsg("chatID empty")
	}
	if err := a.ensureCounter(ctx, chatID); err != nil {
		return 0, err
	}
	v, err := a.Store.Incr(ctx, global.ChatSeqKey(chatID))
	if err != nil {
		return 0, errs.ErrAllocatorUnavailable.WrapMsg("incr failed", "chatID", chatID, "err", err)
	}
	return v, nil
}

// GetCurrentValue 只读当前水位，不发号。列表页未读数走这里。
func (a *Allocator) GetCurrentValue(ctx context.Context, chatID string) (int64, error) {
	if chatID == "" {
		return 0, errs.ErrArgs.WrapMsg("chatID empty")
	}
	if err := a.ensureCounter(ctx, chatID); err != nil {
		return 0, err
	}
	v, _, err := a.Store.Get(ctx, global.ChatSeqKey(chatID))
	if err != nil {
		return 0, errs.ErrAllocatorUnavailable.WrapMsg("get failed", "chatID", chatID, "err", err)
	}
	return v, nil
}

// ReconcileAndNext 持久层发现 seq 冲突（快存落后）时的纠偏取号：
// 计数器只升不降地抬到 floor 后再取新号
func (a *Allocator) ReconcileAndNext(ctx context.Context, chatID string, floor int64) (int64, error) {
	v, err := a.Store.ReconcileAndIncr(ctx, global.ChatSeqKey(chatID), floor)
	if err != nil {
		return 0, errs.ErrAllocatorUnavailable.WrapMsg("reconcile failed", "chatID", chatID, "err", err)
	}
	logger.Warn("seq counter reconciled from durable max",
		zap.String("chatID", chatID), zap.Int64("floor", floor), zap.Int64("next", v))
	return v, nil
}

// ensureCounter 计数器初始化（每个会话懒执行一次）
func (a *Allocator) ensureCounter(ctx context.Context, chatID string) error {
	key := global.ChatSeqKey(chatID)
	if _, ok, err := a.Store.Get(ctx, key); err != nil {
		return errs.ErrAllocatorUnavailable.WrapMsg("counter probe failed", "chatID", chatID, "err", err)
	} else if ok {
		return nil
	}

	lockKey := global.ChatSeqInitLockKey(chatID)
	token := tools.RandToken(16)
	got, err := a.Locks.AcquireLock(ctx, lockKey, token, a.lockTTL())
	if err != nil {
		return errs.ErrAllocatorUnavailable.WrapMsg("init lock failed", "chatID", chatID, "err", err)
	}
	if !got {
		// 别的实例在初始化：等计数器出现
		return a.waitCounter(ctx, chatID, key)
	}
	defer func() {
		if e := a.Locks.ReleaseLock(ctx, lockKey, token); e != nil {
			logger.Warn("release init lock failed", zap.String("chatID", chatID), zap.Error(e))
		}
	}()

	// 双检：锁等待窗口内可能已被初始化
	if _, ok, err := a.Store.Get(ctx, key); err != nil {
		return errs.ErrAllocatorUnavailable.WrapMsg("counter recheck failed", "chatID", chatID, "err", err)
	} else if ok {
		return nil
	}

	maxSeq, err := a.DB.MaxSeq(ctx, chatID)
	if err != nil {
		return errs.ErrAllocatorUnavailable.WrapMsg("durable max query failed", "chatID", chatID, "err", err)
	}
	if err := a.Store.Set(ctx, key, maxSeq); err != nil {
		return errs.ErrAllocatorUnavailable.WrapMsg("counter seed failed", "chatID", chatID, "err", err)
	}
	logger.Info("seq counter bootstrapped",
		zap.String("chatID", chatID), zap.Int64("maxSeq", maxSeq))
	return nil
}

// waitCounter 轮询等待计数器键出现（非忙等），超出预算报 BootstrapTimeout
func (a *Allocator) waitCounter(ctx context.Context, chatID, key string) error {
	deadline := time.Now().Add(a.bootstrapWait())
	ticker := time.NewTicker(a.pollWait())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return errs.Wrap(ctx.Err())
		case <-ticker.C:
		}
		if _, ok, err := a.Store.Get(ctx, key); err != nil {
			return errs.ErrAllocatorUnavailable.WrapMsg("counter poll failed", "chatID", chatID, "err", err)
		} else if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return errs.ErrBootstrapTimeout.WrapMsg("init lock contention", "chatID", chatID)
		}
	}
}

func (a *Allocator) lockTTL() time.Duration {
	if a.LockTTL > 0 {
		return a.LockTTL
	}
	return defaultLockTTL
}

func (a *Allocator) pollWait() time.Duration {
	if a.PollWait > 0 {
		return a.PollWait
	}
	return defaultPollWait
}

func (a *Allocator) bootstrapWait() time.Duration {
	if a.BootstrapWait > 0 {
		return a.BootstrapWait
	}
	return defaultBootstrapWait
}
