package message

import (
	chatmodel "ChatCore/module/chat/model"
	"context"
)

// Store 消息持久层抽象（DurableMessageStore）。
// 真相源：会话的真实最大 seq 永远以 MaxSeq 为准，快存计数器只是派生缓存。
type Store interface {
	// Insert 落库一条消息；(chat_id, seq) 唯一冲突时返回可被 IsDupSeqErr 识别的错误
	Insert(ctx context.Context, m *chatmodel.MessageModel) error
	// MaxSeq 该会话已提交的最大 seq（无消息时 0），发号器初始化/纠偏回源用
	MaxSeq(ctx context.Context, chatID string) (int64, error)
	// ListRange 按 seq 区间拉取 (fromSeq, toSeq]，seq 升序；toSeq<=0 表示不设上界
	ListRange(ctx context.Context, chatID string, fromSeq, toSeq, limit int64) ([]chatmodel.MessageModel, error)

	IsDupSeqErr(err error) bool
}
