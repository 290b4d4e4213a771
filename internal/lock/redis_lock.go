package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/distributed-ledger/internal/domain"
)

const DefaultLease = 10 * time.Second

// Locker неблокирующая распределенная блокировка на Redis (redsync).
// Захват выполняется одной попыткой: если ключ занят, действие не выполняется.
type Locker struct {
	rs    *redsync.Redsync
	lease time.Duration
	log   *logrus.Entry
}

func New(client redis.UniversalClient, lease time.Duration, logger *logrus.Logger) *Locker {
	if lease <= 0 {
		lease = DefaultLease
	}
	return &Locker{
		rs:    redsync.New(goredis.NewPool(client)),
		lease: lease,
		log:   logger.WithField("component", "lock"),
	}
}

// ExecuteInLock захватывает блокировку key и синхронно выполняет action.
//
// Алгоритм работы:
//  1. Одна попытка захвата с арендой lease. Ключ занят => domain.ErrLockNotAcquired, action не вызывается.
//  2. Выполнение action. Ошибка action возвращается как есть.
//  3. Освобождение в defer при любом исходе action. Освобождается только собственная блокировка:
//     если аренда истекла (и ключ уже мог захватить другой процесс), освобождение логируется и пропускается.
func (l *Locker) ExecuteInLock(ctx context.Context, key string, action func(ctx context.Context) error) error {
	mutex := l.rs.NewMutex(key,
		redsync.WithExpiry(l.lease),
		redsync.WithTries(1),
	)

	if err := mutex.LockContext(ctx); err != nil {
		if isContention(err) {
			l.log.WithField("lock_key", key).Debug("lock is held by another process")
			return fmt.Errorf("[lock/%s] %w", key, domain.ErrLockNotAcquired)
		}
		return fmt.Errorf("[lock/%s] acquire: %w", key, err)
	}

	defer l.release(ctx, mutex)

	return action(ctx)
}

func (l *Locker) release(ctx context.Context, mutex *redsync.Mutex) {
	// освобождаем даже если контекст запроса уже отменен.
	ok, err := mutex.UnlockContext(context.WithoutCancel(ctx))
	if err != nil || !ok {
		l.log.WithError(err).
			WithField("lock_key", mutex.Name()).
			Warn("lock was not released: lease expired or owned by another process")
	}
}

func isContention(err error) bool {
	var taken *redsync.ErrTaken
	var nodeTaken *redsync.ErrNodeTaken
	return errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken) || errors.As(err, &nodeTaken)
}
