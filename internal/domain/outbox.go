package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	AggregateTypeTransaction    = "TRANSACTION"
	EventTypeTransactionCreated = "TRANSACTION_CREATED"

	// MaxOutboxErrorLength максимальная длина сохраняемого сообщения об ошибке публикации.
	MaxOutboxErrorLength = 1000
)

type OutboxState string

const (
	OutboxStatePending     OutboxState = "PENDING"
	OutboxStatePublished   OutboxState = "PUBLISHED"
	OutboxStateQuarantined OutboxState = "QUARANTINED"
)

// OutboxRecord событие, сохраненное в одной транзакции с бизнес-изменением и ожидающее публикации в брокер.
type OutboxRecord struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	Processed     bool
	RetryCount    int
	ErrorMessage  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOutboxRecord создает запись. ID генерируется как UUIDv7, поэтому сортировка по id совпадает
// с порядком создания.
func NewOutboxRecord(aggregateType, aggregateID, eventType string, payload []byte, at time.Time) (*OutboxRecord, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate outbox id: %w", err)
	}
	return &OutboxRecord{
		ID:            id,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     at,
		UpdatedAt:     at,
	}, nil
}

// MarkPublished помечает запись как успешно опубликованную.
func (r *OutboxRecord) MarkPublished(at time.Time) {
	r.Processed = true
	r.ErrorMessage = nil
	r.UpdatedAt = at
}

// RegisterFailure фиксирует неудачную попытку публикации. Когда счетчик попыток достигает maxRetries,
// запись помещается в карантин (processed=true) и возвращается true.
func (r *OutboxRecord) RegisterFailure(cause error, maxRetries int, at time.Time) bool {
	r.RetryCount++
	msg := truncate(errorText(cause), MaxOutboxErrorLength)
	r.ErrorMessage = &msg
	r.UpdatedAt = at
	if r.RetryCount >= maxRetries {
		r.Processed = true
		return true
	}
	return false
}

func (r *OutboxRecord) State() OutboxState {
	switch {
	case !r.Processed:
		return OutboxStatePending
	case r.ErrorMessage != nil:
		return OutboxStateQuarantined
	default:
		return OutboxStatePublished
	}
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// TransferEvent полезная нагрузка события TRANSACTION_CREATED.
type TransferEvent struct {
	EventID       uuid.UUID     `json:"eventId"`
	TransactionID TransactionID `json:"transactionId"`
	FromAccountID AccountID     `json:"fromAccountId"`
	ToAccountID   AccountID     `json:"toAccountId"`
	Amount        string        `json:"amount"`
	Currency      string        `json:"currency"`
	OccurredOn    time.Time     `json:"occurredOn"`
}

func NewTransferEvent(tx *Transaction, at time.Time) TransferEvent {
	return TransferEvent{
		EventID:       uuid.New(),
		TransactionID: tx.ID,
		FromAccountID: tx.FromAccountID,
		ToAccountID:   tx.ToAccountID,
		Amount:        tx.Amount.Amount.String(),
		Currency:      tx.Amount.Currency,
		OccurredOn:    at,
	}
}

// NewTransferOutboxRecord сериализует событие перевода в запись outbox.
func NewTransferOutboxRecord(tx *Transaction, at time.Time) (*OutboxRecord, error) {
	payload, err := json.Marshal(NewTransferEvent(tx, at))
	if err != nil {
		return nil, fmt.Errorf("marshal transfer event: %w", err)
	}
	return NewOutboxRecord(AggregateTypeTransaction, tx.ID.String(), EventTypeTransactionCreated, payload, at)
}
