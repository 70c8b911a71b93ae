package kafka

import (
	"strings"
	"time"

	"ChatCore/global"

	"github.com/Shopify/sarama"
)

var (
	KafkaClient sarama.Client
	SyncProd    sarama.SyncProducer
)

func BuildBaseConfig(cfg global.KafkaConfig) *sarama.Config {
	c := sarama.NewConfig()
	c.Version = sarama.V2_1_0_0

	// Producer
	c.Producer.Return.Successes = true
	c.Producer.Return.Errors = true
	c.Producer.RequiredAcks = sarama.WaitForAll
	c.Producer.Retry.Max = 5
	c.Producer.Partitioner = sarama.NewHashPartitioner // ★ 关键：Key 控制分区
	if strings.ToLower(cfg.Compression) == "snappy" {
		c.Producer.Compression = sarama.CompressionSnappy
	}

	// Consumer
	c.Consumer.Offsets.Initial = sarama.OffsetNewest
	c.Consumer.Return.Errors = true

	// Net
	c.Net.DialTimeout = 10 * time.Second
	c.Net.ReadTimeout = 30 * time.Second
	c.Net.WriteTimeout = 30 * time.Second
	return c
}

func InitKafkaClient(cfg global.KafkaConfig) error {
	c, err := sarama.NewClient(cfg.Brokers, BuildBaseConfig(cfg))
	if err != nil {
		return err
	}
	KafkaClient = c
	return nil
}

func InitSyncProducerFromClient() error {
	p, err := sarama.NewSyncProducerFromClient(KafkaClient)
	if err != nil {
		return err
	}
	SyncProd = p
	return nil
}

// SendSync key 决定分区：同一 chat 的事件保序
func SendSync(topic, key string, value []byte) error {
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
	}
	_, _, err := SyncProd.SendMessage(msg)
	return err
}

func Close() {
	if SyncProd != nil {
		_ = SyncProd.Close()
	}
	if KafkaClient != nil {
		_ = KafkaClient.Close()
	}
}
