package message

import (
	"ChatCore/logger"
	chatmodel "ChatCore/module/chat/model"
	"ChatCore/tools/errs"
	"ChatCore/tools/safe"
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SendEvent 发消息事件（Kafka at-least-once 投递给通知链路）
type SendEvent struct {
	SenderID   string `json:"sender_id"`
	ChatID     string `json:"chat_id"`
	Seq        int64  `json:"seq"`
	Content    string `json:"content"`
	CreateTime int64  `json:"create_time"`
}

// SequenceSource 发号器视图（module/chat/seq.Allocator 满足）
type SequenceSource interface {
	AllocateNext(ctx context.Context, chatID string) (int64, error)
	ReconcileAndNext(ctx context.Context, chatID string, floor int64) (int64, error)
}

// CursorAdvancer 发送路径要把发送者自己的游标推到新 seq，
// 通知链路靠这一点天然排除发送者
type CursorAdvancer interface {
	MarkRead(ctx context.Context, chatID, memberID string, seq int64) error
}

// EventPublisher 发送事件出口（生产 Kafka，测试内存）
type EventPublisher interface {
	PublishSendEvent(ctx context.Context, ev *SendEvent) error
}

// Service 发送路径：取号 → 落库 → 推发送者游标 → 发事件。
// 取号失败整条发送失败（没有合法 seq 不允许落库）；
// 事件发布失败只记日志，不影响发送结果。
type Service struct {
	Store  Store
	Seq    SequenceSource
	Cursor CursorAdvancer
	Events EventPublisher
}

func NewService(store Store, seq SequenceSource, cursor CursorAdvancer, events EventPublisher) *Service {
	safe.MustNotNil(store, "store")
	safe.MustNotNil(seq, "seq")
	safe.MustNotNil(cursor, "cursor")
	safe.MustNotNil(events, "events")
	return &Service{Store: store, Seq: seq, Cursor: cursor, Events: events}
}

const insertMaxRetry = 3

func (s *Service) Send(ctx context.Context, chatID, senderID, text string) (*chatmodel.MessageModel, error) {
	if chatID == "" || senderID == "" {
		return nil, errs.ErrArgs.WrapMsg("chatID/senderID empty")
	}

	seq, err := s.Seq.AllocateNext(ctx, chatID)
	if err != nil {
		return nil, err
	}

	msg := &chatmodel.MessageModel{
		ServerMsgID: uuid.NewString(),
		ChatID:      chatID,
		Seq:         seq,
		SenderID:    senderID,
		Content:     text,
		CreateTime:  time.Now().UnixMilli(),
	}

	// seq 唯一冲突说明快存落后于持久层真相：抬到 dbMax 重新取号再试
	for i := 0; ; i++ {
		err = s.Store.Insert(ctx, msg)
		if err == nil {
			break
		}
		if !s.Store.IsDupSeqErr(err) || i >= insertMaxRetry {
			return nil, errs.WrapMsg(err, "insert message failed", "chatID", chatID, "seq", msg.Seq)
		}
		dbMax, e := s.Store.MaxSeq(ctx, chatID)
		if e != nil {
			return nil, e
		}
		newSeq, e := s.Seq.ReconcileAndNext(ctx, chatID, dbMax)
		if e != nil {
			return nil, e
		}
		msg.Seq = newSeq
	}

	if err := s.Cursor.MarkRead(ctx, chatID, senderID, msg.Seq); err != nil {
		// 游标没推上去发送者可能会收到自己消息的通知，可容忍（at-least-once）
		logger.Warn("advance sender cursor failed",
			zap.String("chatID", chatID), zap.String("senderID", senderID),
			zap.Int64("seq", msg.Seq), zap.Error(err))
	}

	ev := &SendEvent{
		SenderID:   senderID,
		ChatID:     chatID,
		Seq:        msg.Seq,
		Content:    msg.Content,
		CreateTime: msg.CreateTime,
	}
	if err := s.Events.PublishSendEvent(ctx, ev); err != nil {
		logger.Error("publish send event failed",
			zap.String("chatID", chatID), zap.Int64("seq", msg.Seq), zap.Error(err))
	}
	return msg, nil
}

// List 按 seq 区间拉取；consumers 永远按 seq 排序（落库顺序不可靠）
func (s *Service) List(ctx context.Context, chatID string, fromSeq, toSeq, limit int64) ([]chatmodel.MessageModel, error) {
	if chatID == "" {
		return nil, errs.ErrArgs.WrapMsg("chatID empty")
	}
	return s.Store.ListRange(ctx, chatID, fromSeq, toSeq, limit)
}
