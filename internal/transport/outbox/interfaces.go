package outbox

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"github.com/fsdevblog/distributed-ledger/internal/domain"
)

type Repository interface {
	ClaimBatch(ctx context.Context, limit int) ([]domain.OutboxRecord, error)
	UpdateStatus(ctx context.Context, record *domain.OutboxRecord) error
	DeleteProcessedBefore(ctx context.Context, threshold time.Time) (int64, error)
}

type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
}
