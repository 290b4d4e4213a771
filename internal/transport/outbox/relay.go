// Package outbox доставляет события из таблицы outbox во внешний брокер.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/metric"

	"github.com/fsdevblog/distributed-ledger/internal/domain"
	"github.com/fsdevblog/distributed-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/distributed-ledger/pkg/uow"
)

const (
	defaultBatchSize       = 50
	defaultMaxRetries      = 5
	defaultPublishTimeout  = 2 * time.Second
	defaultPollingInterval = 2 * time.Second
	defaultTopic           = "transaction-events"
)

// Relay периодически публикует необработанные события outbox.
type Relay struct {
	uow             uow.UOW
	publisher       Publisher
	metrics         *relayMetrics
	l               *logrus.Entry
	now             func() time.Time
	topic           string
	batchSize       int
	maxRetries      int
	publishTimeout  time.Duration
	pollingInterval time.Duration
}

func NewRelay(u uow.UOW, publisher Publisher, meter metric.Meter, l *logrus.Logger) (*Relay, error) {
	m, err := newRelayMetrics(meter)
	if err != nil {
		return nil, err
	}
	return &Relay{
		uow:       u,
		publisher: publisher,
		metrics:   m,
		l: l.WithFields(logrus.Fields{
			"component": "outbox",
			"module":    "relay",
		}),
		now:             time.Now,
		topic:           defaultTopic,
		batchSize:       defaultBatchSize,
		maxRetries:      defaultMaxRetries,
		publishTimeout:  defaultPublishTimeout,
		pollingInterval: defaultPollingInterval,
	}, nil
}

// SetBatchSize устанавливает максимальное кол-во событий, забираемых за один цикл.
func (r *Relay) SetBatchSize(size int) *Relay {
	if size > 0 {
		r.batchSize = size
	}
	return r
}

func (r *Relay) SetTopic(topic string) *Relay {
	if topic != "" {
		r.topic = topic
	}
	return r
}

// SetMaxRetries устанавливает кол-во неудачных попыток, после которого событие помещается в карантин.
func (r *Relay) SetMaxRetries(n int) *Relay {
	if n > 0 {
		r.maxRetries = n
	}
	return r
}

func (r *Relay) SetPublishTimeout(d time.Duration) *Relay {
	if d > 0 {
		r.publishTimeout = d
	}
	return r
}

// SetPollingInterval устанавливает паузу между окончанием одного цикла и началом следующего.
func (r *Relay) SetPollingInterval(d time.Duration) *Relay {
	if d > 0 {
		r.pollingInterval = d
	}
	return r
}

// Run запускает обработку outbox до отмены контекста. Следующий цикл начинается через pollingInterval
// после окончания предыдущего, поэтому циклы одного процесса никогда не пересекаются.
func (r *Relay) Run(ctx context.Context) {
	r.l.WithFields(logrus.Fields{
		"batchSize":       r.batchSize,
		"topic":           r.topic,
		"pollingInterval": r.pollingInterval,
	}).Info("Starting")

	timer := time.NewTimer(r.pollingInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			r.l.Info("Got stop signal, exiting...")
			return
		case <-timer.C:
			if err := r.process(ctx); err != nil && !errors.Is(err, ErrNoEvents) {
				r.l.WithError(err).Error("process error")
			}
			timer.Reset(r.pollingInterval)
		}
	}
}

// process выполняет один цикл обработки в одной транзакции.
//
// Алгоритм работы:
//  1. Забирает до batchSize необработанных событий по возрастанию id, блокируя их (SKIP LOCKED).
//  2. События агрегата, у которого в этом цикле уже была ошибка, пропускаются до следующего цикла,
//     чтобы не нарушить порядок событий агрегата.
//  3. Успешная публикация помечает событие обработанным. Неудачная увеличивает счетчик попыток,
//     при исчерпании попыток событие помещается в карантин.
//  4. Каждый статус сохраняется в точке сохранения: ошибка сохранения логируется и не прерывает цикл.
//
// Возвращает ErrNoEvents если обрабатывать нечего.
func (r *Relay) process(ctx context.Context) error {
	start := r.now()
	defer func() {
		r.metrics.observeCycle(ctx, r.now().Sub(start))
	}()

	err := r.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		repo, repoErr := uow.GetAs[Repository](tx, uow.RepositoryName(repoargs.OutboxRepoName))
		if repoErr != nil {
			return repoErr //nolint:wrapcheck
		}

		records, claimErr := repo.ClaimBatch(c, r.batchSize)
		if claimErr != nil {
			return fmt.Errorf("claim batch: %w", claimErr)
		}
		if len(records) == 0 {
			return ErrNoEvents
		}

		failedAggregates := make(map[string]struct{})
		for i := range records {
			record := &records[i]
			if _, failed := failedAggregates[record.AggregateID]; failed {
				r.l.WithFields(logrus.Fields{
					"eventID":     record.ID,
					"aggregateID": record.AggregateID,
				}).Debug("skipping event of failed aggregate")
				continue
			}

			result := r.processRecord(c, tx, record)
			if result == recordDeferred {
				// издатель недоступен: оставшиеся события ждут следующего цикла без списания попыток.
				r.l.WithField("remaining", len(records)-i).Warn("publisher is unavailable, cycle stopped")
				break
			}
			if result == recordFailed {
				failedAggregates[record.AggregateID] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNoEvents) {
			return ErrNoEvents
		}
		return fmt.Errorf("process: %w", err)
	}
	return nil
}

type recordResult int

const (
	recordPublished recordResult = iota
	recordFailed
	// recordDeferred публикация отклонена без обращения к брокеру, состояние события не менялось.
	recordDeferred
)

// processRecord публикует событие и сохраняет результат. recordFailed означает, что событие не было
// доставлено или успешную доставку не удалось сохранить.
func (r *Relay) processRecord(ctx context.Context, tx uow.TX, record *domain.OutboxRecord) recordResult {
	l := r.l.WithFields(logrus.Fields{
		"eventID":     record.ID,
		"aggregateID": record.AggregateID,
		"eventType":   record.EventType,
	})

	pubCtx, cancel := context.WithTimeout(ctx, r.publishTimeout)
	pubErr := r.publisher.Publish(pubCtx, r.topic, record.AggregateID, record.Payload)
	cancel()

	if errors.Is(pubErr, domain.ErrPublisherUnavailable) {
		l.WithError(pubErr).Debug("publish deferred")
		r.metrics.publishResult(ctx, "deferred")
		return recordDeferred
	}
	if pubErr != nil {
		l.WithError(pubErr).Warn("publish failed")
		r.metrics.publishResult(ctx, "failure")
		r.registerFailure(ctx, tx, l, record, pubErr)
		return recordFailed
	}

	published := *record
	published.MarkPublished(r.now())
	if err := r.save(ctx, tx, &published); err != nil {
		// событие доставлено, но отметка не сохранилась: считаем попытку неудачной,
		// следующий цикл опубликует событие повторно.
		l.WithError(err).Error("CRITICAL: failed to save published state")
		r.metrics.publishResult(ctx, "failure")
		r.registerFailure(ctx, tx, l, record, err)
		return recordFailed
	}

	r.metrics.publishResult(ctx, "success")
	l.Debug("event published")
	return recordPublished
}

func (r *Relay) registerFailure(
	ctx context.Context,
	tx uow.TX,
	l *logrus.Entry,
	record *domain.OutboxRecord,
	cause error,
) {
	quarantined := record.RegisterFailure(cause, r.maxRetries, r.now())
	if err := r.save(ctx, tx, record); err != nil {
		l.WithError(err).Error("CRITICAL: failed to save publish failure state")
		return
	}
	if quarantined {
		l.WithField("retryCount", record.RetryCount).
			WithError(fmt.Errorf("%w: %w", domain.ErrPoisonMessage, cause)).
			Error("event moved to quarantine")
		r.metrics.deadLetter.Add(ctx, 1)
	}
}

func (r *Relay) save(ctx context.Context, tx uow.TX, record *domain.OutboxRecord) error {
	return tx.Nested(ctx, func(c context.Context, sp uow.TX) error { //nolint:wrapcheck
		repo, err := uow.GetAs[Repository](sp, uow.RepositoryName(repoargs.OutboxRepoName))
		if err != nil {
			return err //nolint:wrapcheck
		}
		return repo.UpdateStatus(c, record) //nolint:wrapcheck
	})
}
