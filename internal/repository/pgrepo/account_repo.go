package pgrepo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/fsdevblog/distributed-ledger/internal/domain"
	"github.com/fsdevblog/distributed-ledger/pkg/uow"
)

const accountColumns = `id, account_number, account_name, balance, currency, status, version, created_at, updated_at`

type AccountRepository struct {
	conn uow.DBTX
}

func NewAccountRepository(conn uow.DBTX) *AccountRepository {
	return &AccountRepository{conn: conn}
}

func (a *AccountRepository) LoadAccount(ctx context.Context, id domain.AccountID) (*domain.Account, error) {
	row := a.conn.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	account, err := scanAccount(row)
	if err != nil {
		return nil, convertErr(err, "load account %s", id)
	}
	return account, nil
}

func (a *AccountRepository) LoadAccountByNumber(ctx context.Context, number domain.AccountNumber) (*domain.Account, error) {
	row := a.conn.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE account_number = $1`, string(number))
	account, err := scanAccount(row)
	if err != nil {
		return nil, convertErr(err, "load account by number %s", number)
	}
	return account, nil
}

// SaveAccount сохраняет баланс и статус счета с проверкой версии (compare-and-swap). Если версия в базе
// уже изменилась, возвращает ошибку domain.ErrOptimisticLock. При успехе версия в account увеличивается.
func (a *AccountRepository) SaveAccount(ctx context.Context, account *domain.Account) error {
	tag, err := a.conn.Exec(ctx,
		`UPDATE accounts
		SET balance = $1, status = $2, version = version + 1, updated_at = NOW()
		WHERE id = $3 AND version = $4`,
		account.Balance.Amount,
		string(account.Status),
		account.ID,
		account.Version,
	)
	if err != nil {
		return convertErr(err, "save account %s", account.ID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("[repository/save account %s version %d] %w",
			account.ID, account.Version, domain.ErrOptimisticLock)
	}
	account.Version++
	return nil
}

// CreateAccount создает счет. Дубликат номера счета возвращается как domain.ErrDuplicateKey.
func (a *AccountRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	_, err := a.conn.Exec(ctx,
		`INSERT INTO accounts (id, account_number, account_name, balance, currency, status, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		account.ID,
		string(account.Number),
		account.Name,
		account.Balance.Amount,
		account.Balance.Currency,
		string(account.Status),
		account.Version,
	)
	return convertErr(err, "create account %s", account.Number)
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account  domain.Account
		number   string
		balance  decimal.Decimal
		currency string
		status   string
	)
	if err := row.Scan(
		&account.ID,
		&number,
		&account.Name,
		&balance,
		&currency,
		&status,
		&account.Version,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err //nolint:wrapcheck
	}
	account.Number = domain.AccountNumber(number)
	account.Balance = domain.NewMoney(balance, currency)
	account.Status = domain.AccountStatus(status)
	return &account, nil
}
