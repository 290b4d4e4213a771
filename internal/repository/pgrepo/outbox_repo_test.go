package pgrepo

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/fsdevblog/distributed-ledger/internal/domain"
)

var outboxColumnNames = []string{
	"id", "aggregate_type", "aggregate_id", "event_type", "payload", "processed", "retry_count", "error_message",
	"created_at", "updated_at",
}

type OutboxRepositoryTestSuite struct {
	suite.Suite
	mock   pgxmock.PgxPoolIface
	outbox *OutboxRepository
	txRepo *TransactionRepository
}

func TestOutboxRepositorySuite(t *testing.T) {
	suite.Run(t, new(OutboxRepositoryTestSuite))
}

func (s *OutboxRepositoryTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	s.Require().NoError(err)
	s.mock = mock
	s.outbox = NewOutboxRepository(mock)
	s.txRepo = NewTransactionRepository(mock)
}

func (s *OutboxRepositoryTestSuite) TearDownTest() {
	s.Require().NoError(s.mock.ExpectationsWereMet())
	s.mock.Close()
}

func (s *OutboxRepositoryTestSuite) TestClaimBatch() {
	now := time.Now()
	first, _ := uuid.NewV7()
	second, _ := uuid.NewV7()

	s.mock.ExpectQuery(`FOR UPDATE SKIP LOCKED`).
		WithArgs(50).
		WillReturnRows(pgxmock.NewRows(outboxColumnNames).
			AddRow(first, "TRANSACTION", "agg-1", "TRANSACTION_CREATED", []byte(`{"a":1}`), false, 0, nil, now, now).
			AddRow(second, "TRANSACTION", "agg-2", "TRANSACTION_CREATED", []byte(`{"a":2}`), false, 2, nil, now, now))

	records, err := s.outbox.ClaimBatch(s.T().Context(), 50)
	s.Require().NoError(err)
	s.Require().Len(records, 2)

	s.Equal(first, records[0].ID)
	s.Equal("agg-1", records[0].AggregateID)
	s.JSONEq(`{"a":1}`, string(records[0].Payload))
	s.Equal(2, records[1].RetryCount)
	s.Nil(records[1].ErrorMessage)
}

func (s *OutboxRepositoryTestSuite) TestUpdateStatus() {
	record, err := domain.NewOutboxRecord("TRANSACTION", "agg", "TRANSACTION_CREATED", []byte(`{}`), time.Now())
	s.Require().NoError(err)
	record.MarkPublished(time.Now())

	s.mock.ExpectExec(`UPDATE outbox_events`).
		WithArgs(true, 0, pgxmock.AnyArg(), pgxmock.AnyArg(), record.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	s.Require().NoError(s.outbox.UpdateStatus(s.T().Context(), record))

	s.mock.ExpectExec(`UPDATE outbox_events`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	s.Require().ErrorIs(s.outbox.UpdateStatus(s.T().Context(), record), domain.ErrRecordNotFound)
}

func (s *OutboxRepositoryTestSuite) TestDeleteProcessedBefore() {
	threshold := time.Now().Add(-7 * 24 * time.Hour)
	s.mock.ExpectExec(`DELETE FROM outbox_events WHERE processed = true AND updated_at < \$1`).
		WithArgs(threshold).
		WillReturnResult(pgxmock.NewResult("DELETE", 12))

	deleted, err := s.outbox.DeleteProcessedBefore(s.T().Context(), threshold)
	s.Require().NoError(err)
	s.Equal(int64(12), deleted)
}

func (s *OutboxRepositoryTestSuite) TestExistsByReference() {
	s.mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("REF-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := s.txRepo.ExistsByReference(s.T().Context(), "REF-1")
	s.Require().NoError(err)
	s.True(exists)
}

func (s *OutboxRepositoryTestSuite) TestSaveTransaction_DuplicateReference() {
	tx := domain.NewTransaction("REF-1", uuid.New(), uuid.New(),
		domain.NewMoney(decimal.NewFromInt(10), "TRY"), time.Now())

	s.mock.ExpectExec(`INSERT INTO transactions`).
		WillReturnError(&pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "uk_transaction_reference"})

	err := s.txRepo.SaveTransaction(s.T().Context(), tx)
	s.Require().ErrorIs(err, domain.ErrDuplicateKey)
	s.Equal(domain.KindIntegrityViolation, domain.KindOf(err))
	s.Contains(err.Error(), "uk_transaction_reference")
}
