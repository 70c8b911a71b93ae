package member

import (
	"ChatCore/logger"
	"context"

	"go.uber.org/zap"
)

// SequenceReader 发号器的只读视图（module/chat/seq.Allocator 满足）
type SequenceReader interface {
	GetCurrentValue(ctx context.Context, chatID string) (int64, error)
}

// Counter 未读数派生：unread = max(current - cursor, 0)。
// 游标瞬时跑在计数器前面（快存刚重建）时压到 0，不上报负数；下一次发号后自愈。
type Counter struct {
	Seq  SequenceReader
	Repo Repository
}

func NewCounter(seq SequenceReader, repo Repository) *Counter {
	return &Counter{Seq: seq, Repo: repo}
}

func (c *Counter) UnreadCount(ctx context.Context, chatID, memberID string) (int64, error) {
	m, err := c.Repo.Get(ctx, chatID, memberID)
	if err != nil {
		return 0, err
	}
	current, err := c.Seq.GetCurrentValue(ctx, chatID)
	if err != nil {
		return 0, err
	}
	return clampUnread(chatID, memberID, current, m.LastReadSeq), nil
}

// UnreadCounts 会话列表页：按成员取全部会话的未读数，
// 每个会话只读一次计数器，不按 (chat, member) 重复读
func (c *Counter) UnreadCounts(ctx context.Context, memberID string) (map[string]int64, error) {
	ms, err := c.Repo.ListByMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	currents := make(map[string]int64, len(ms))
	for _, m := range ms {
		if _, ok := currents[m.ChatID]; ok {
			continue
		}
		v, err := c.Seq.GetCurrentValue(ctx, m.ChatID)
		if err != nil {
			return nil, err
		}
		currents[m.ChatID] = v
	}
	out := make(map[string]int64, len(ms))
	for _, m := range ms {
		out[m.ChatID] = clampUnread(m.ChatID, m.MemberID, currents[m.ChatID], m.LastReadSeq)
	}
	return out, nil
}

func clampUnread(chatID, memberID string, current, cursor int64) int64 {
	d := current - cursor
	if d < 0 {
		logger.Warn("read cursor ahead of allocator, clamping unread to 0",
			zap.String("chatID", chatID), zap.String("memberID", memberID),
			zap.Int64("current", current), zap.Int64("cursor", cursor))
		return 0
	}
	return d
}
