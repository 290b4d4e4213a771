package pgrepo

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/fsdevblog/distributed-ledger/internal/domain"
	"github.com/fsdevblog/distributed-ledger/pkg/uow"
)

type LedgerRepository struct {
	conn uow.DBTX
}

func NewLedgerRepository(conn uow.DBTX) *LedgerRepository {
	return &LedgerRepository{conn: conn}
}

// SaveLedgerEntries добавляет записи одним батч запросом. Возвращает первую ошибку батча.
func (l *LedgerRepository) SaveLedgerEntries(ctx context.Context, entries []domain.LedgerEntry) (err error) {
	if len(entries) == 0 {
		return nil
	}

	batch := new(pgx.Batch)
	for _, entry := range entries {
		batch.Queue(
			`INSERT INTO ledger_entries
			(id, transaction_id, account_id, entry_type, amount, balance_after, currency, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			entry.ID,
			entry.TransactionID,
			entry.AccountID,
			string(entry.Type),
			entry.Amount.Amount,
			entry.BalanceAfter.Amount,
			entry.Amount.Currency,
			entry.CreatedAt,
		)
	}

	results := l.conn.SendBatch(ctx, batch)
	defer func() {
		if closeErr := results.Close(); closeErr != nil && err == nil {
			err = convertErr(closeErr, "save ledger entries")
		}
	}()

	for i := range entries {
		if _, execErr := results.Exec(); execErr != nil {
			return convertErr(execErr, "save ledger entry #%d", i)
		}
	}
	return nil
}
