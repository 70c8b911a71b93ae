package message

import (
	"context"
	"encoding/json"

	"ChatCore/global"
	"ChatCore/service/kafka"
	"ChatCore/tools/errs"
)

// KafkaPublisher 发送事件出口：同一会话用同一分区键，保证会话内事件保序
type KafkaPublisher struct {
	Topic string
}

func NewKafkaPublisher(topic string) *KafkaPublisher {
	return &KafkaPublisher{Topic: topic}
}

func (p *KafkaPublisher) PublishSendEvent(ctx context.Context, ev *SendEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return errs.Wrap(err)
	}
	if err := kafka.SendSync(p.Topic, global.TopicKeyChat(ev.ChatID), data); err != nil {
		return errs.WrapMsg(err, "send event to kafka failed", "chatID", ev.ChatID, "seq", ev.Seq)
	}
	return nil
}
