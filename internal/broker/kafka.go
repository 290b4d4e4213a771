package broker

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/fsdevblog/distributed-ledger/internal/domain"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher публикует события в Kafka. Ключ сообщения определяет партицию, поэтому
// события одного агрегата сохраняют порядок.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers []string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
	}
}

func newKafkaPublisherWithWriter(w messageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

func (k *KafkaPublisher) Publish(ctx context.Context, topic, key string, payload []byte) error {
	err := k.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("%w: kafka topic %s key %s: %w", domain.ErrPublishFailure, topic, key, err)
	}
	return nil
}

func (k *KafkaPublisher) Close() error {
	return k.writer.Close() //nolint:wrapcheck
}
