package pgrepo

import (
	"context"

	"github.com/fsdevblog/distributed-ledger/internal/domain"
	"github.com/fsdevblog/distributed-ledger/pkg/uow"
)

type TransactionRepository struct {
	conn uow.DBTX
}

func NewTransactionRepository(conn uow.DBTX) *TransactionRepository {
	return &TransactionRepository{conn: conn}
}

// SaveTransaction сохраняет транзакцию. Повтор reference нарушает уникальное ограничение
// и возвращается как domain.ErrDuplicateKey.
func (t *TransactionRepository) SaveTransaction(ctx context.Context, tx *domain.Transaction) error {
	_, err := t.conn.Exec(ctx,
		`INSERT INTO transactions
		(id, reference, from_account_id, to_account_id, amount, currency, status, description, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		tx.ID,
		tx.Reference,
		tx.FromAccountID,
		tx.ToAccountID,
		tx.Amount.Amount,
		tx.Amount.Currency,
		string(tx.Status),
		tx.Description,
		tx.CreatedAt,
		tx.CompletedAt,
	)
	return convertErr(err, "save transaction %s", tx.Reference)
}

func (t *TransactionRepository) ExistsByReference(ctx context.Context, reference string) (bool, error) {
	var exists bool
	err := t.conn.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM transactions WHERE reference = $1)`,
		reference,
	).Scan(&exists)
	if err != nil {
		return false, convertErr(err, "exists by reference %s", reference)
	}
	return exists, nil
}
