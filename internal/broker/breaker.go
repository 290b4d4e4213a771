package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/fsdevblog/distributed-ledger/internal/domain"
)

const (
	defaultBreakerTimeout  = 30 * time.Second
	defaultBreakerFailures = 5
)

type BreakerSettings struct {
	Name                string
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

// BreakerPublisher размыкает цепь после серии неудачных публикаций, чтобы недоступный брокер
// не задерживал каждый цикл outbox на таймаут публикации.
type BreakerPublisher struct {
	next Publisher
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerPublisher(next Publisher, s BreakerSettings, logger *logrus.Logger) *BreakerPublisher {
	if s.Timeout <= 0 {
		s.Timeout = defaultBreakerTimeout
	}
	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = defaultBreakerFailures
	}
	log := logger.WithFields(logrus.Fields{
		"component": "broker",
		"breaker":   s.Name,
	})

	return &BreakerPublisher{
		next: next,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "broker-" + s.Name,
			MaxRequests: 1,
			Timeout:     s.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= s.ConsecutiveFailures
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				log.Warnf("circuit breaker %s: %s -> %s", name, from, to)
			},
		}),
	}
}

func (b *BreakerPublisher) Publish(ctx context.Context, topic, key string, payload []byte) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Publish(ctx, topic, key, payload)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w: %w", domain.ErrPublisherUnavailable, ErrCircuitOpen, err)
	}
	return err //nolint:wrapcheck
}

func (b *BreakerPublisher) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerPublisher) Close() error {
	return b.next.Close() //nolint:wrapcheck
}
