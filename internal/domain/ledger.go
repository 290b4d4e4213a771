package domain

import (
	"time"

	"github.com/google/uuid"
)

type LedgerEntryType string

const (
	LedgerEntryDebit  LedgerEntryType = "DEBIT"
	LedgerEntryCredit LedgerEntryType = "CREDIT"
)

// LedgerEntry запись бухгалтерской книги. Записи только добавляются и никогда не изменяются.
type LedgerEntry struct {
	ID            uuid.UUID
	TransactionID TransactionID
	AccountID     AccountID
	Type          LedgerEntryType
	Amount        Money
	BalanceAfter  Money
	CreatedAt     time.Time
}

// NewLedgerEntryPair формирует пару DEBIT/CREDIT для транзакции. Счета должны быть уже изменены:
// BalanceAfter фиксирует их баланс после перевода.
func NewLedgerEntryPair(tx *Transaction, from, to *Account) []LedgerEntry {
	return []LedgerEntry{
		{
			ID:            uuid.New(),
			TransactionID: tx.ID,
			AccountID:     from.ID,
			Type:          LedgerEntryDebit,
			Amount:        tx.Amount,
			BalanceAfter:  from.Balance,
			CreatedAt:     tx.CreatedAt,
		},
		{
			ID:            uuid.New(),
			TransactionID: tx.ID,
			AccountID:     to.ID,
			Type:          LedgerEntryCredit,
			Amount:        tx.Amount,
			BalanceAfter:  to.Balance,
			CreatedAt:     tx.CreatedAt,
		},
	}
}
