package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fsdevblog/distributed-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/distributed-ledger/pkg/uow"
)

const (
	ProcessedKeyPrefix    = "txn_processed:"
	DefaultIdempotencyTTL = 24 * time.Hour

	processedMarker = "COMPLETED"
)

// IdempotencyGuard определяет, был ли перевод с данным reference уже выполнен.
// Кэш ускоряет проверку, хранилище транзакций является источником истины.
type IdempotencyGuard struct {
	cache  Cache
	txRepo TransactionRepository
	ttl    time.Duration
	log    *logrus.Entry
	hits   metric.Int64Counter
}

func NewIdempotencyGuard(
	u uow.UOW,
	cache Cache,
	ttl time.Duration,
	logger *logrus.Logger,
	meter metric.Meter,
) (*IdempotencyGuard, error) {
	txRepo, err := uow.GetRepositoryAs[TransactionRepository](u, uow.RepositoryName(repoargs.TransactionRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	hits, err := meter.Int64Counter("business.idempotency.hit",
		metric.WithDescription("Duplicate transfer requests detected"),
	)
	if err != nil {
		return nil, fmt.Errorf("create idempotency counter: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &IdempotencyGuard{
		cache:  cache,
		txRepo: txRepo,
		ttl:    ttl,
		log:    logger.WithField("component", "idempotency"),
		hits:   hits,
	}, nil
}

// IsDuplicate проверяет reference.
//
// Алгоритм работы:
//  1. Проверка кэша. Попадание => true. Ошибка кэша логируется, проверка продолжается по хранилищу.
//  2. Проверка хранилища транзакций. Попадание => true и запись в кэш на ttl (ошибка записи игнорируется).
//  3. Иначе false. Ошибка хранилища возвращается вызывающему.
func (g *IdempotencyGuard) IsDuplicate(ctx context.Context, reference string) (bool, error) {
	key := ProcessedKeyPrefix + reference

	cached, err := g.cache.Exists(ctx, key)
	switch {
	case err != nil:
		g.log.WithError(err).WithField("reference", reference).Warn("idempotency cache is unavailable")
	case cached:
		g.hits.Add(ctx, 1, metric.WithAttributes(attribute.String("source", "cache")))
		return true, nil
	}

	exists, err := g.txRepo.ExistsByReference(ctx, reference)
	if err != nil {
		return false, fmt.Errorf("check reference %s: %w", reference, err)
	}
	if !exists {
		return false, nil
	}

	g.hits.Add(ctx, 1, metric.WithAttributes(attribute.String("source", "db")))
	g.put(ctx, key)
	return true, nil
}

// MarkProcessed помечает reference как обработанный. Ошибка кэша только логируется.
func (g *IdempotencyGuard) MarkProcessed(ctx context.Context, reference string) {
	g.put(ctx, ProcessedKeyPrefix+reference)
}

func (g *IdempotencyGuard) put(ctx context.Context, key string) {
	if err := g.cache.Put(ctx, key, processedMarker, g.ttl); err != nil {
		g.log.WithError(err).WithField("key", key).Warn("failed to write idempotency marker")
	}
}
