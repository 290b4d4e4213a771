package uow

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/suite"
)

const rawRepoName RepositoryName = "raw"

type UnitOfWorkTestSuite struct {
	suite.Suite
	pool pgxmock.PgxPoolIface
	uow  *UnitOfWork
}

func TestUnitOfWorkSuite(t *testing.T) {
	suite.Run(t, new(UnitOfWorkTestSuite))
}

func (s *UnitOfWorkTestSuite) SetupTest() {
	pool, err := pgxmock.NewPool()
	s.Require().NoError(err)
	s.pool = pool
	s.uow = NewUnitOfWork(pool)
	s.Require().NoError(s.uow.Register(rawRepoName, func(db DBTX) Repository { return db }))
}

func (s *UnitOfWorkTestSuite) TearDownTest() {
	s.Require().NoError(s.pool.ExpectationsWereMet())
	s.pool.Close()
}

func (s *UnitOfWorkTestSuite) exec(ctx context.Context, tx TX, sql string) error {
	db, err := GetAs[DBTX](tx, rawRepoName)
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, sql)
	return err //nolint:wrapcheck
}

func (s *UnitOfWorkTestSuite) TestDo_Commit() {
	s.pool.ExpectBegin()
	s.pool.ExpectExec("UPDATE accounts").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	s.pool.ExpectCommit()

	err := s.uow.Do(s.T().Context(), func(ctx context.Context, tx TX) error {
		return s.exec(ctx, tx, "UPDATE accounts SET version = version + 1")
	})
	s.Require().NoError(err)
}

func (s *UnitOfWorkTestSuite) TestDo_RollbackOnError() {
	fnErr := errors.New("boom")
	s.pool.ExpectBegin()
	s.pool.ExpectRollback()

	err := s.uow.Do(s.T().Context(), func(_ context.Context, _ TX) error {
		return fnErr
	})
	s.Require().ErrorIs(err, fnErr)
}

func (s *UnitOfWorkTestSuite) TestNested_RollbackKeepsOuterTransaction() {
	nestedErr := errors.New("nested failure")

	s.pool.ExpectBegin()
	s.pool.ExpectBegin()
	s.pool.ExpectRollback()
	s.pool.ExpectExec("UPDATE outbox_events").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	s.pool.ExpectCommit()

	err := s.uow.Do(s.T().Context(), func(ctx context.Context, tx TX) error {
		nErr := tx.Nested(ctx, func(_ context.Context, _ TX) error {
			return nestedErr
		})
		s.Require().ErrorIs(nErr, nestedErr)
		return s.exec(ctx, tx, "UPDATE outbox_events SET processed = true")
	})
	s.Require().NoError(err)
}

func (s *UnitOfWorkTestSuite) TestRegistry() {
	s.Require().ErrorIs(
		s.uow.Register(rawRepoName, func(db DBTX) Repository { return db }),
		ErrRepositoryAlreadyRegistered,
	)

	_, err := s.uow.GetRepository("missing")
	s.Require().ErrorIs(err, ErrRepositoryNotRegistered)

	_, err = GetRepositoryAs[*UnitOfWork](s.uow, rawRepoName)
	s.Require().ErrorIs(err, ErrInvalidRepositoryType)

	db, err := GetRepositoryAs[DBTX](s.uow, rawRepoName)
	s.Require().NoError(err)
	s.NotNil(db)
}
