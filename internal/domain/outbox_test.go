package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxRecord_Lifecycle(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	record, err := NewOutboxRecord(AggregateTypeTransaction, uuid.NewString(), EventTypeTransactionCreated, []byte("{}"), now)
	require.NoError(t, err)
	assert.Equal(t, OutboxStatePending, record.State())

	quarantined := record.RegisterFailure(errors.New("broker down"), 2, now.Add(time.Second))
	assert.False(t, quarantined)
	assert.Equal(t, 1, record.RetryCount)
	assert.False(t, record.Processed)
	require.NotNil(t, record.ErrorMessage)
	assert.Equal(t, "broker down", *record.ErrorMessage)

	quarantined = record.RegisterFailure(errors.New(strings.Repeat("x", 1500)), 2, now.Add(2*time.Second))
	assert.True(t, quarantined)
	assert.True(t, record.Processed)
	assert.Equal(t, 2, record.RetryCount)
	assert.Len(t, *record.ErrorMessage, MaxOutboxErrorLength)
	assert.Equal(t, OutboxStateQuarantined, record.State())
	assert.Equal(t, now.Add(2*time.Second), record.UpdatedAt)
}

func TestOutboxRecord_MarkPublished(t *testing.T) {
	now := time.Now()
	record, err := NewOutboxRecord(AggregateTypeTransaction, "agg", EventTypeTransactionCreated, nil, now)
	require.NoError(t, err)
	record.RegisterFailure(errors.New("timeout"), 5, now)

	record.MarkPublished(now)

	assert.True(t, record.Processed)
	assert.Nil(t, record.ErrorMessage)
	assert.Equal(t, OutboxStatePublished, record.State())
}

func TestOutboxRecord_IDsAreTimeOrdered(t *testing.T) {
	first, err := NewOutboxRecord("A", "1", "E", nil, time.Now())
	require.NoError(t, err)
	second, err := NewOutboxRecord("A", "1", "E", nil, time.Now())
	require.NoError(t, err)

	assert.Negative(t, strings.Compare(first.ID.String(), second.ID.String()))
}

func TestNewTransferOutboxRecord(t *testing.T) {
	now := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	tx := NewTransaction("REF-1", uuid.New(), uuid.New(), NewMoney(decimal.RequireFromString("10.50"), "TRY"), now)

	record, err := NewTransferOutboxRecord(tx, now)
	require.NoError(t, err)

	assert.Equal(t, AggregateTypeTransaction, record.AggregateType)
	assert.Equal(t, EventTypeTransactionCreated, record.EventType)
	assert.Equal(t, tx.ID.String(), record.AggregateID)

	var event map[string]any
	require.NoError(t, json.Unmarshal(record.Payload, &event))
	assert.Equal(t, "10.5", event["amount"])
	assert.Equal(t, "TRY", event["currency"])
	assert.Equal(t, tx.ID.String(), event["transactionId"])
	assert.Equal(t, tx.FromAccountID.String(), event["fromAccountId"])
	assert.Equal(t, tx.ToAccountID.String(), event["toAccountId"])
	assert.Equal(t, "2025-03-04T05:06:07Z", event["occurredOn"])
	assert.NotEmpty(t, event["eventId"])
}

func TestTransaction_Complete(t *testing.T) {
	now := time.Now()
	tx := NewTransaction("REF", uuid.New(), uuid.New(), ZeroMoney("TRY"), now)
	assert.Equal(t, "Transfer Ref: REF", tx.Description)

	require.NoError(t, tx.Complete(now))
	assert.Equal(t, TransactionStatusCompleted, tx.Status)
	require.NotNil(t, tx.CompletedAt)
	assert.Equal(t, now, *tx.CompletedAt)

	require.ErrorIs(t, tx.Complete(now), ErrInvalidTransactionState)
	require.ErrorIs(t, tx.Fail(), ErrInvalidTransactionState)
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{err: nil, want: KindUnknown},
		{err: ErrEmptyReference, want: KindValidation},
		{err: NewNotFoundError("Account", "1"), want: KindNotFound},
		{err: &InsufficientFundsError{}, want: KindDomainRuleViolation},
		{err: &AccountNotActiveError{}, want: KindDomainRuleViolation},
		{err: ErrLockNotAcquired, want: KindConcurrencyConflict},
		{err: ErrOptimisticLock, want: KindConcurrencyConflict},
		{err: ErrDuplicateRequest, want: KindDuplicateRequest},
		{err: ErrPublishFailure, want: KindPublishFailure},
		{err: ErrPoisonMessage, want: KindPoisonMessage},
		{err: ErrDuplicateKey, want: KindIntegrityViolation},
		{err: errors.New("boom"), want: KindUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.want.String(), func(t *testing.T) {
			assert.Equal(t, tc.want, KindOf(tc.err))
		})
	}
}
