package kafka

import (
	"context"

	"ChatCore/logger"

	"github.com/Shopify/sarama"
	"go.uber.org/zap"
)

type ConsumerGroupHandler struct{}

func (h *ConsumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	logger.Info("consumer group setup")
	return nil
}

func (h *ConsumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	logger.Info("consumer group cleanup")
	return nil
}

func (h *ConsumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		handler, err := GetHandler(msg.Topic)
		if err != nil {
			// 没有处理器的 topic 直接跳过并提交，否则会卡住分区
			logger.Warn("no handler for topic", zap.String("topic", msg.Topic))
			session.MarkMessage(msg, "")
			continue
		}

		if err := handler(msg.Topic, msg.Key, msg.Value); err != nil {
			// at-least-once：处理失败不提交 offset，中断本轮 claim 触发重投
			logger.Error("handler failed",
				zap.String("topic", msg.Topic), zap.Int32("partition", msg.Partition),
				zap.Int64("offset", msg.Offset), zap.Error(err))
			return err
		}
		session.MarkMessage(msg, "")
	}
	return nil
}

func StartConsumerGroup(ctx context.Context, brokers []string, groupID string, topics []string) error {
	config := sarama.NewConfig()
	config.Version = sarama.V2_1_0_0
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return err
	}
	defer group.Close()

	go func() {
		for err := range group.Errors() {
			logger.Error("consumer group error", zap.Error(err))
		}
	}()

	handler := &ConsumerGroupHandler{}
	for {
		if err := group.Consume(ctx, topics, handler); err != nil {
			logger.Error("consume error", zap.Error(err))
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
