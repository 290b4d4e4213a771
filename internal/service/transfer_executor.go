package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/distributed-ledger/internal/domain"
	"github.com/fsdevblog/distributed-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/distributed-ledger/pkg/retry"
	"github.com/fsdevblog/distributed-ledger/pkg/uow"
)

const (
	transferMaxAttempts = 3
	transferRetryDelay  = 100 * time.Millisecond
)

// TransferExecutorService выполняет перевод атомарно: балансы обоих счетов, транзакция, пара проводок,
// событие outbox и запись аудита сохраняются в одной транзакции БД или не сохраняются вовсе.
type TransferExecutorService struct {
	uow    uow.UOW
	log    *logrus.Entry
	now    func() time.Time
	policy retry.Policy
}

func NewTransferExecutorService(u uow.UOW, logger *logrus.Logger) *TransferExecutorService {
	log := logger.WithField("component", "transfer_executor")
	return &TransferExecutorService{
		uow: u,
		log: log,
		now: time.Now,
		policy: retry.Policy{
			MaxAttempts: transferMaxAttempts,
			Delay:       transferRetryDelay,
			RetryIf: func(err error) bool {
				return errors.Is(err, domain.ErrOptimisticLock)
			},
			OnRetry: func(attempt int, err error) {
				log.WithError(err).WithField("attempt", attempt).Warn("optimistic lock conflict, retrying transfer")
			},
		},
	}
}

// Execute выполняет перевод. Конфликт версий счета повторяется до 3 раз с паузой 100мс,
// каждая попытка в новой транзакции. Остальные ошибки возвращаются сразу.
func (t *TransferExecutorService) Execute(ctx context.Context, cmd domain.TransferCommand) (*domain.Transaction, error) {
	if cmd.FromAccountID == cmd.ToAccountID {
		return nil, domain.ErrSameAccount
	}
	if !cmd.Amount.FitsScale() {
		return nil, fmt.Errorf("%w: amount %s has more than %d decimal places",
			domain.ErrValidation, cmd.Amount, domain.MaxScale)
	}

	var result *domain.Transaction
	err := retry.Do(ctx, t.policy, func(ctx context.Context) error {
		tx, err := t.attempt(ctx, cmd)
		if err != nil {
			return err
		}
		result = tx
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("transfer %s: %w", cmd.Reference, err)
	}
	return result, nil
}

// attempt одна попытка перевода.
//
// Алгоритм работы:
//  1. Загружает оба счета.
//  2. Списывает сумму с отправителя и зачисляет получателю.
//  3. Формирует завершенную транзакцию и пару проводок DEBIT/CREDIT.
//  4. Сохраняет счета (с проверкой версии), транзакцию, проводки, событие outbox и запись аудита.
func (t *TransferExecutorService) attempt(ctx context.Context, cmd domain.TransferCommand) (*domain.Transaction, error) {
	var result *domain.Transaction

	txErr := t.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		repos, err := transferReposFromTX(tx)
		if err != nil {
			return err
		}

		from, err := loadAccount(c, repos.accounts, cmd.FromAccountID)
		if err != nil {
			return err
		}
		to, err := loadAccount(c, repos.accounts, cmd.ToAccountID)
		if err != nil {
			return err
		}

		if err = from.Withdraw(cmd.Amount); err != nil {
			return err //nolint:wrapcheck
		}
		if err = to.Deposit(cmd.Amount); err != nil {
			return err //nolint:wrapcheck
		}

		now := t.now()
		transaction := domain.NewTransaction(cmd.Reference, from.ID, to.ID, cmd.Amount, now)
		if err = transaction.Complete(now); err != nil {
			return err //nolint:wrapcheck
		}

		if err = persistTransfer(c, repos, transaction, from, to, now); err != nil {
			return err
		}

		result = transaction
		return nil
	})
	if txErr != nil {
		return nil, txErr //nolint:wrapcheck
	}

	t.log.WithFields(logrus.Fields{
		"reference":      cmd.Reference,
		"transaction_id": result.ID,
		"from":           cmd.FromAccountID,
		"to":             cmd.ToAccountID,
		"amount":         cmd.Amount.String(),
	}).Info("transfer completed")

	return result, nil
}

type transferRepos struct {
	accounts     AccountRepository
	transactions TransactionRepository
	ledger       LedgerRepository
	outbox       OutboxRepository
	audit        AuditRepository
}

func transferReposFromTX(tx uow.TX) (*transferRepos, error) {
	accounts, err := uow.GetAs[AccountRepository](tx, uow.RepositoryName(repoargs.AccountRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	transactions, err := uow.GetAs[TransactionRepository](tx, uow.RepositoryName(repoargs.TransactionRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	ledger, err := uow.GetAs[LedgerRepository](tx, uow.RepositoryName(repoargs.LedgerRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	outbox, err := uow.GetAs[OutboxRepository](tx, uow.RepositoryName(repoargs.OutboxRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	audit, err := uow.GetAs[AuditRepository](tx, uow.RepositoryName(repoargs.AuditRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &transferRepos{
		accounts:     accounts,
		transactions: transactions,
		ledger:       ledger,
		outbox:       outbox,
		audit:        audit,
	}, nil
}

func loadAccount(ctx context.Context, repo AccountRepository, id domain.AccountID) (*domain.Account, error) {
	account, err := repo.LoadAccount(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Account", id.String())
		}
		return nil, err //nolint:wrapcheck
	}
	return account, nil
}

func persistTransfer(
	ctx context.Context,
	repos *transferRepos,
	transaction *domain.Transaction,
	from, to *domain.Account,
	now time.Time,
) error {
	// счета сохраняются в порядке id, чтобы встречные переводы брали блокировки строк в одном порядке.
	first, second := from, to
	if bytes.Compare(first.ID[:], second.ID[:]) > 0 {
		first, second = second, first
	}
	if err := repos.accounts.SaveAccount(ctx, first); err != nil {
		return err //nolint:wrapcheck
	}
	if err := repos.accounts.SaveAccount(ctx, second); err != nil {
		return err //nolint:wrapcheck
	}

	if err := repos.transactions.SaveTransaction(ctx, transaction); err != nil {
		return err //nolint:wrapcheck
	}
	if err := repos.ledger.SaveLedgerEntries(ctx, domain.NewLedgerEntryPair(transaction, from, to)); err != nil {
		return err //nolint:wrapcheck
	}

	record, err := domain.NewTransferOutboxRecord(transaction, now)
	if err != nil {
		return err //nolint:wrapcheck
	}
	if err = repos.outbox.Save(ctx, record); err != nil {
		return err //nolint:wrapcheck
	}

	return repos.audit.SaveAuditLog(ctx, domain.NewTransactionAuditLog(transaction, now)) //nolint:wrapcheck
}
