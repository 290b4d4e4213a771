package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/metric"

	"github.com/fsdevblog/distributed-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/distributed-ledger/pkg/uow"
)

const (
	DefaultCleanupSchedule = "0 0 3 * * *"
	defaultRetentionDays   = 7
	defaultCleanupTimeout  = time.Minute
)

// Cleanup удаляет обработанные события старше срока хранения. Необработанные события не удаляются.
type Cleanup struct {
	repo      Repository
	deleted   metric.Int64Counter
	l         *logrus.Entry
	now       func() time.Time
	retention time.Duration
}

func NewCleanup(u uow.UOW, meter metric.Meter, l *logrus.Logger) (*Cleanup, error) {
	repo, err := uow.GetRepositoryAs[Repository](u, uow.RepositoryName(repoargs.OutboxRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	deleted, err := meter.Int64Counter("outbox.cleanup.deleted",
		metric.WithDescription("Processed outbox events removed by retention cleanup"))
	if err != nil {
		return nil, fmt.Errorf("create cleanup counter: %w", err)
	}
	return &Cleanup{
		repo:    repo,
		deleted: deleted,
		l: l.WithFields(logrus.Fields{
			"component": "outbox",
			"module":    "cleanup",
		}),
		now:       time.Now,
		retention: defaultRetentionDays * 24 * time.Hour,
	}, nil
}

// SetRetentionDays устанавливает срок хранения обработанных событий в днях.
func (c *Cleanup) SetRetentionDays(days int) *Cleanup {
	if days > 0 {
		c.retention = time.Duration(days) * 24 * time.Hour
	}
	return c
}

// CleanupProcessed удаляет обработанные события, последний раз измененные раньше now - retention.
func (c *Cleanup) CleanupProcessed(ctx context.Context) (int64, error) {
	threshold := c.now().Add(-c.retention)

	deleted, err := c.repo.DeleteProcessedBefore(ctx, threshold)
	if err != nil {
		return 0, fmt.Errorf("cleanup processed events: %w", err)
	}
	c.deleted.Add(ctx, deleted)
	c.l.WithFields(logrus.Fields{
		"deleted":   deleted,
		"threshold": threshold,
	}).Info("processed events cleaned up")
	return deleted, nil
}

// Run запускает очистку по cron расписанию (с секундами) и блокируется до отмены контекста.
func (c *Cleanup) Run(ctx context.Context, schedule string) error {
	if schedule == "" {
		schedule = DefaultCleanupSchedule
	}

	scheduler := cron.New(
		cron.WithSeconds(),
		cron.WithLogger(cron.PrintfLogger(c.l)),
		cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(c.l))),
	)
	if _, err := scheduler.AddFunc(schedule, func() {
		jobCtx, cancel := context.WithTimeout(ctx, defaultCleanupTimeout)
		defer cancel()
		if _, err := c.CleanupProcessed(jobCtx); err != nil {
			c.l.WithError(err).Error("cleanup failed")
		}
	}); err != nil {
		return fmt.Errorf("schedule outbox cleanup %q: %w", schedule, err)
	}

	c.l.WithField("schedule", schedule).Info("Starting")
	scheduler.Start()

	<-ctx.Done()
	<-scheduler.Stop().Done()
	c.l.Info("Got stop signal, exiting...")
	return nil
}
