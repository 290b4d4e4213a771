package broker

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/fsdevblog/distributed-ledger/internal/domain"
)

type confirmChannel interface {
	Confirm(noWait bool) error
	NotifyPublish(confirm chan amqp.Confirmation) chan amqp.Confirmation
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQPublisher публикует события в exchange с подтверждениями брокера (publisher confirms).
// topic используется как routing key. Публикации сериализуются, чтобы подтверждения
// приходили в порядке отправки.
type RabbitMQPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       confirmChannel
	confirms chan amqp.Confirmation
	exchange string
}

func DialRabbitMQ(url, exchange string) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("[broker/rabbitmq] dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("[broker/rabbitmq] open channel: %w", err)
	}
	if err = ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("[broker/rabbitmq] declare exchange %s: %w", exchange, err)
	}

	pub, err := newRabbitMQPublisher(ch, exchange)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	pub.conn = conn
	return pub, nil
}

func newRabbitMQPublisher(ch confirmChannel, exchange string) (*RabbitMQPublisher, error) {
	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("[broker/rabbitmq] enable confirms: %w", err)
	}
	return &RabbitMQPublisher{
		ch:       ch,
		confirms: ch.NotifyPublish(make(chan amqp.Confirmation, 1)),
		exchange: exchange,
	}, nil
}

func (r *RabbitMQPublisher) Publish(ctx context.Context, topic, key string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.ch.PublishWithContext(ctx, r.exchange, topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    key,
		Headers:      amqp.Table{"aggregate-id": key},
		Body:         payload,
	})
	if err != nil {
		return fmt.Errorf("%w: rabbitmq %s/%s: %w", domain.ErrPublishFailure, r.exchange, topic, err)
	}

	select {
	case confirm, ok := <-r.confirms:
		if !ok {
			return fmt.Errorf("%w: %w", domain.ErrPublishFailure, ErrConfirmsClosed)
		}
		if !confirm.Ack {
			return fmt.Errorf("%w: delivery tag %d: %w", domain.ErrPublishFailure, confirm.DeliveryTag, ErrPublishNacked)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: wait confirm: %w", domain.ErrPublishFailure, ctx.Err())
	}
}

func (r *RabbitMQPublisher) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.ch.Close()
	if r.conn != nil {
		if connErr := r.conn.Close(); connErr != nil && err == nil {
			err = connErr
		}
	}
	return err //nolint:wrapcheck
}
