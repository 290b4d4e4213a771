package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	AuditActionCreated = "CREATED"
	AuditSystemUser    = "SYSTEM_TEMP"
	AuditSource        = "Distributed-Ledger-Service"
)

// AuditLog запись журнала аудита. Пишется в той же транзакции, что и перевод.
type AuditLog struct {
	ID         uuid.UUID
	EntityType string
	EntityID   uuid.UUID
	Action     string
	UserID     string
	Changes    map[string]any
	CreatedAt  time.Time
}

func NewTransactionAuditLog(tx *Transaction, at time.Time) *AuditLog {
	return &AuditLog{
		ID:         uuid.New(),
		EntityType: AggregateTypeTransaction,
		EntityID:   tx.ID,
		Action:     AuditActionCreated,
		UserID:     AuditSystemUser,
		Changes: map[string]any{
			"amount":      tx.Amount.Amount.String(),
			"currency":    tx.Amount.Currency,
			"fromAccount": tx.FromAccountID.String(),
			"toAccount":   tx.ToAccountID.String(),
			"source":      AuditSource,
		},
		CreatedAt: at,
	}
}
