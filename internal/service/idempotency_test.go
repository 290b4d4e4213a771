package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/fsdevblog/distributed-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/distributed-ledger/internal/service/mocks"
	"github.com/fsdevblog/distributed-ledger/pkg/uow"
	uowmocks "github.com/fsdevblog/distributed-ledger/pkg/uow/mocks"
)

type IdempotencyGuardTestSuite struct {
	suite.Suite
	mockCtrl   *gomock.Controller
	mockUOW    *uowmocks.MockUOW
	mockCache  *mocks.MockCache
	mockTxRepo *mocks.MockTransactionRepository
	reader     *sdkmetric.ManualReader
	guard      *IdempotencyGuard
}

func TestIdempotencyGuardSuite(t *testing.T) {
	suite.Run(t, new(IdempotencyGuardTestSuite))
}

func (s *IdempotencyGuardTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockUOW = uowmocks.NewMockUOW(s.mockCtrl)
	s.mockCache = mocks.NewMockCache(s.mockCtrl)
	s.mockTxRepo = mocks.NewMockTransactionRepository(s.mockCtrl)
	s.reader = sdkmetric.NewManualReader()

	s.mockUOW.EXPECT().GetRepository(uow.RepositoryName(repoargs.TransactionRepoName)).
		Return(s.mockTxRepo, nil).AnyTimes()

	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(s.reader)).Meter("test")
	guard, err := NewIdempotencyGuard(s.mockUOW, s.mockCache, time.Hour, logrus.New(), meter)
	s.Require().NoError(err)
	s.guard = guard
}

func (s *IdempotencyGuardTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func (s *IdempotencyGuardTestSuite) TestCacheHit() {
	s.mockCache.EXPECT().Exists(gomock.Any(), "txn_processed:REF-1").Return(true, nil)

	dup, err := s.guard.IsDuplicate(s.T().Context(), "REF-1")
	s.Require().NoError(err)
	s.True(dup)
	s.Equal(int64(1), counterValue(s.T(), s.reader, "business.idempotency.hit", "source", "cache"))
}

func (s *IdempotencyGuardTestSuite) TestDatabaseHitBackfillsCache() {
	s.mockCache.EXPECT().Exists(gomock.Any(), "txn_processed:REF-2").Return(false, nil)
	s.mockTxRepo.EXPECT().ExistsByReference(gomock.Any(), "REF-2").Return(true, nil)
	s.mockCache.EXPECT().Put(gomock.Any(), "txn_processed:REF-2", "COMPLETED", time.Hour).Return(nil)

	dup, err := s.guard.IsDuplicate(s.T().Context(), "REF-2")
	s.Require().NoError(err)
	s.True(dup)
	s.Equal(int64(1), counterValue(s.T(), s.reader, "business.idempotency.hit", "source", "db"))
}

func (s *IdempotencyGuardTestSuite) TestCacheFailureFallsThroughToDatabase() {
	s.mockCache.EXPECT().Exists(gomock.Any(), "txn_processed:REF-3").Return(false, errors.New("redis down"))
	s.mockTxRepo.EXPECT().ExistsByReference(gomock.Any(), "REF-3").Return(false, nil)

	dup, err := s.guard.IsDuplicate(s.T().Context(), "REF-3")
	s.Require().NoError(err)
	s.False(dup)
}

func (s *IdempotencyGuardTestSuite) TestBackfillFailureIsSwallowed() {
	s.mockCache.EXPECT().Exists(gomock.Any(), gomock.Any()).Return(false, nil)
	s.mockTxRepo.EXPECT().ExistsByReference(gomock.Any(), "REF-4").Return(true, nil)
	s.mockCache.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("redis down"))

	dup, err := s.guard.IsDuplicate(s.T().Context(), "REF-4")
	s.Require().NoError(err)
	s.True(dup)
}

func (s *IdempotencyGuardTestSuite) TestDatabaseErrorPropagates() {
	dbErr := errors.New("connection reset")
	s.mockCache.EXPECT().Exists(gomock.Any(), gomock.Any()).Return(false, nil)
	s.mockTxRepo.EXPECT().ExistsByReference(gomock.Any(), "REF-5").Return(false, dbErr)

	_, err := s.guard.IsDuplicate(s.T().Context(), "REF-5")
	s.Require().ErrorIs(err, dbErr)
}

func (s *IdempotencyGuardTestSuite) TestMarkProcessed() {
	s.mockCache.EXPECT().Put(gomock.Any(), "txn_processed:REF-6", "COMPLETED", time.Hour).Return(errors.New("redis down"))
	s.guard.MarkProcessed(s.T().Context(), "REF-6")
}
