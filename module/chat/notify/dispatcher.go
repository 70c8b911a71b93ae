package notify

import (
	"ChatCore/logger"
	"ChatCore/tools/errs"
	"ChatCore/tools/ids"
	"context"
	"time"

	"go.uber.org/zap"
)

// Dispatcher 通知扇出。
//
// 每条发送事件触发一次：成员清单 → 游标过滤（lastReadSeq < 消息 seq；
// 发送者的游标在发送路径已被推到 >= seq，天然被排除）→ 批量查在线状态，
// 剔除在线成员 → 逐个解析资料 → 产出 NotificationJob。
//
// 对游标/计数器只读，重复调用（事件 at-least-once 重投）最多产生重复
// 通知尝试，由下游投递通道容忍。内部不做重试；单成员失败只跳过该成员。
type Dispatcher struct {
	Members  MembershipSource
	Presence PresenceClient
	Profiles ProfileClient
	Sink     JobSink
}

func NewDispatcher(members MembershipSource, presence PresenceClient, profiles ProfileClient, sink JobSink) *Dispatcher {
	return &Dispatcher{Members: members, Presence: presence, Profiles: profiles, Sink: sink}
}

func (d *Dispatcher) Dispatch(ctx context.Context, chatID string, messageSeq int64, senderID string) error {
	if chatID == "" || messageSeq <= 0 {
		return errs.ErrArgs.WrapMsg("bad dispatch input", "chatID", chatID, "seq", messageSeq)
	}

	ms, err := d.Members.ListByChat(ctx, chatID)
	if err != nil {
		return errs.WrapMsg(err, "list memberships failed", "chatID", chatID)
	}

	candidates := make([]string, 0, len(ms))
	for _, m := range ms {
		if m.LastReadSeq < messageSeq {
			candidates = append(candidates, m.MemberID)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	online, err := d.Presence.GetUsersStatus(ctx, candidates)
	if err != nil {
		// 批量查询失败这一轮放弃；事件重投会再来
		return errs.WrapMsg(err, "presence lookup failed", "chatID", chatID, "seq", messageSeq)
	}

	now := time.Now().UnixMilli()
	emitted := 0
	for _, memberID := range candidates {
		if online[memberID] {
			continue
		}
		info, err := d.Profiles.GetUserInfo(ctx, memberID)
		if err != nil {
			logger.Warn("profile lookup failed, member skipped",
				zap.String("chatID", chatID), zap.String("memberID", memberID), zap.Error(err))
			continue
		}
		job := &Job{
			JobID:       ids.GenerateString(),
			MemberID:    memberID,
			ChatID:      chatID,
			MessageSeq:  messageSeq,
			Name:        info.Name,
			Email:       info.Email,
			TriggeredAt: now,
		}
		if err := d.Sink.Emit(ctx, job); err != nil {
			logger.Error("emit notification job failed, member skipped",
				zap.String("chatID", chatID), zap.String("memberID", memberID), zap.Error(err))
			continue
		}
		emitted++
	}

	logger.Debug("dispatch done",
		zap.String("chatID", chatID), zap.Int64("seq", messageSeq),
		zap.String("senderID", senderID),
		zap.Int("candidates", len(candidates)), zap.Int("emitted", emitted))
	return nil
}
