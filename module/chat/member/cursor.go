package member

import (
	"ChatCore/logger"
	"ChatCore/tools/errs"
	"context"

	"go.uber.org/zap"
)

// Tracker 已读游标推进。拉取消息的调用方在每次拉取（单条或整页）后，
// 用本次看到的最高 seq 调 MarkRead；单调性由仓库的行级 max 更新保证，
// 先到的高游标不会被后到的低游标覆盖。
type Tracker struct {
	Repo Repository
}

func NewTracker(repo Repository) *Tracker {
	return &Tracker{Repo: repo}
}

func (t *Tracker) MarkRead(ctx context.Context, chatID, memberID string, seq int64) error {
	if chatID == "" || memberID == "" {
		return errs.ErrArgs.WrapMsg("chatID/memberID empty")
	}
	if seq < 0 {
		return errs.ErrArgs.WrapMsg("negative seq", "seq", seq)
	}
	cursor, err := t.Repo.AdvanceReadSeq(ctx, chatID, memberID, seq)
	if err != nil {
		return err
	}
	logger.Debug("read cursor advanced",
		zap.String("chatID", chatID), zap.String("memberID", memberID),
		zap.Int64("ack", seq), zap.Int64("cursor", cursor))
	return nil
}
