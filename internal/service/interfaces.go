package service

import (
	"context"
	"time"

	"github.com/fsdevblog/distributed-ledger/internal/domain"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

type AccountRepository interface {
	LoadAccount(ctx context.Context, id domain.AccountID) (*domain.Account, error)
	LoadAccountByNumber(ctx context.Context, number domain.AccountNumber) (*domain.Account, error)
	// SaveAccount сохраняет счет с проверкой версии. Устаревшая версия => domain.ErrOptimisticLock.
	SaveAccount(ctx context.Context, account *domain.Account) error
	CreateAccount(ctx context.Context, account *domain.Account) error
}

type TransactionRepository interface {
	SaveTransaction(ctx context.Context, tx *domain.Transaction) error
	ExistsByReference(ctx context.Context, reference string) (bool, error)
}

type LedgerRepository interface {
	SaveLedgerEntries(ctx context.Context, entries []domain.LedgerEntry) error
}

type OutboxRepository interface {
	Save(ctx context.Context, record *domain.OutboxRecord) error
}

type AuditRepository interface {
	SaveAuditLog(ctx context.Context, log *domain.AuditLog) error
}

type Cache interface {
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
}

type Locker interface {
	ExecuteInLock(ctx context.Context, key string, action func(ctx context.Context) error) error
}

type TransferExecutor interface {
	Execute(ctx context.Context, cmd domain.TransferCommand) (*domain.Transaction, error)
}
