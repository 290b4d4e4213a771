package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/distributed-ledger/internal/domain"
	"github.com/fsdevblog/distributed-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/distributed-ledger/pkg/uow"
)

var (
	SeedAliceID = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	SeedBobID   = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

// Seeder создает тестовые счета для локальной разработки.
type Seeder struct {
	accounts AccountRepository
	log      *logrus.Entry
}

func NewSeeder(u uow.UOW, logger *logrus.Logger) (*Seeder, error) {
	accounts, err := uow.GetRepositoryAs[AccountRepository](u, uow.RepositoryName(repoargs.AccountRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &Seeder{
		accounts: accounts,
		log:      logger.WithField("component", "seeder"),
	}, nil
}

// Seed создает счета Alice (TR01, 1000.00 TRY) и Bob (TR02, 0.00 TRY), если их еще нет.
// Повторный запуск ничего не меняет.
func (s *Seeder) Seed(ctx context.Context) error {
	now := time.Now()
	seeds := []*domain.Account{
		seedAccount(SeedAliceID, "TR01", "Alice", decimal.RequireFromString("1000.00"), now),
		seedAccount(SeedBobID, "TR02", "Bob", decimal.RequireFromString("0.00"), now),
	}

	for _, account := range seeds {
		_, err := s.accounts.LoadAccountByNumber(ctx, account.Number)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrRecordNotFound) {
			return err //nolint:wrapcheck
		}

		if err = s.accounts.CreateAccount(ctx, account); err != nil && !errors.Is(err, domain.ErrDuplicateKey) {
			return err //nolint:wrapcheck
		}
		s.log.WithField("account", account.Number.String()).Info("test account created")
	}
	return nil
}

func seedAccount(id uuid.UUID, number domain.AccountNumber, name string, balance decimal.Decimal, at time.Time) *domain.Account {
	account := domain.NewAccount(number, name, domain.NewMoney(balance, "TRY"))
	account.ID = id
	account.CreatedAt = at
	account.UpdatedAt = at
	return account
}
