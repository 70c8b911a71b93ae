package notify

import (
	"context"
	"time"

	"ChatCore/logger"
	"ChatCore/module/chat/message"
	"ChatCore/service/kafka"
	"ChatCore/tools/decode"

	"go.uber.org/zap"
)

const dispatchTimeout = 10 * time.Second

// RegisterSendEventConsumer 把发送事件 topic 接到通知扇出。
// 解码失败视为毒消息，记日志后提交跳过；Dispatch 失败返回错误，
// 不提交 offset 由重投再来一轮。
func RegisterSendEventConsumer(topic string, d *Dispatcher) {
	kafka.RegisterHandler(topic, func(topic string, key, value []byte) error {
		ev, err := decode.DecodeJSON[message.SendEvent](value)
		if err != nil {
			logger.Error("bad send event payload, skipped",
				zap.String("topic", topic), zap.Error(err))
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		return d.Dispatch(ctx, ev.ChatID, ev.Seq, ev.SenderID)
	})
}
