package member

import (
	chatmodel "ChatCore/module/chat/model"
	"context"
)

// Repository 成员关系的持久化抽象（生产 Mongo / Postgres，测试内存）。
// AdvanceReadSeq 必须是行级单调更新：并发写者乱序到达时高游标不能被低游标覆盖。
type Repository interface {
	// Upsert 入会（已存在则保持原 joined_at / 游标不动）
	Upsert(ctx context.Context, m *chatmodel.Membership) error
	// Remove 退会
	Remove(ctx context.Context, chatID, memberID string) error
	Get(ctx context.Context, chatID, memberID string) (*chatmodel.Membership, error)
	ListByChat(ctx context.Context, chatID string) ([]chatmodel.Membership, error)
	ListByMember(ctx context.Context, memberID string) ([]chatmodel.Membership, error)
	// AdvanceReadSeq 游标单调推进：new = max(old, seq)，返回推进后的值
	AdvanceReadSeq(ctx context.Context, chatID, memberID string, seq int64) (int64, error)
}
