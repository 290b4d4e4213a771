package broker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Publisher отправляет событие во внешний брокер. Время ожидания ограничивается дедлайном ctx.
// Ошибки публикации оборачивают domain.ErrPublishFailure.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
	Close() error
}

type Kind string

const (
	KindKafka    Kind = "kafka"
	KindRabbitMQ Kind = "rabbitmq"
)

type Config struct {
	Kind             Kind
	KafkaBrokers     []string
	RabbitMQURL      string
	RabbitMQExchange string

	// BreakerTimeout время, которое размыкатель остается открытым.
	BreakerTimeout time.Duration
	// BreakerFailures количество подряд неудачных публикаций, размыкающее цепь.
	BreakerFailures uint32
}

// New создает издателя указанного вида, обернутого размыкателем цепи.
func New(cfg Config, logger *logrus.Logger) (Publisher, error) {
	var (
		pub Publisher
		err error
	)

	switch Kind(strings.ToLower(string(cfg.Kind))) {
	case KindKafka, "":
		pub = NewKafkaPublisher(cfg.KafkaBrokers)
	case KindRabbitMQ:
		pub, err = DialRabbitMQ(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, cfg.Kind)
	}

	return NewBreakerPublisher(pub, BreakerSettings{
		Name:                string(cfg.Kind),
		Timeout:             cfg.BreakerTimeout,
		ConsecutiveFailures: cfg.BreakerFailures,
	}, logger), nil
}
