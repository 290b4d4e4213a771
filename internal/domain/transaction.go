package domain

import (
	"time"

	"github.com/google/uuid"
)

type TransactionID = uuid.UUID

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

// Transaction перевод между двумя счетами. Reference глобально уникален и служит ключом идемпотентности.
type Transaction struct {
	ID            TransactionID
	Reference     string
	FromAccountID AccountID
	ToAccountID   AccountID
	Amount        Money
	Status        TransactionStatus
	Description   string
	CreatedAt     time.Time
	CompletedAt   *time.Time
}

func NewTransaction(reference string, from, to AccountID, amount Money, at time.Time) *Transaction {
	return &Transaction{
		ID:            uuid.New(),
		Reference:     reference,
		FromAccountID: from,
		ToAccountID:   to,
		Amount:        amount,
		Status:        TransactionStatusPending,
		Description:   "Transfer Ref: " + reference,
		CreatedAt:     at,
	}
}

// Complete переводит транзакцию из PENDING в COMPLETED.
func (t *Transaction) Complete(at time.Time) error {
	if t.Status != TransactionStatusPending {
		return ErrInvalidTransactionState
	}
	t.Status = TransactionStatusCompleted
	t.CompletedAt = &at
	return nil
}

func (t *Transaction) Fail() error {
	if t.Status != TransactionStatusPending {
		return ErrInvalidTransactionState
	}
	t.Status = TransactionStatusFailed
	return nil
}

// TransferCommand запрос на перевод Amount со счета FromAccountID на счет ToAccountID.
type TransferCommand struct {
	Reference     string
	FromAccountID AccountID
	ToAccountID   AccountID
	Amount        Money
}
