package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/fsdevblog/distributed-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/distributed-ledger/internal/transport/outbox/mocks"
	"github.com/fsdevblog/distributed-ledger/pkg/uow"
	uowmocks "github.com/fsdevblog/distributed-ledger/pkg/uow/mocks"
)

type CleanupTestSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	mockRepo *mocks.MockRepository
	reader   *sdkmetric.ManualReader
	cleanup  *Cleanup
	now      time.Time
}

func TestCleanupSuite(t *testing.T) {
	suite.Run(t, new(CleanupTestSuite))
}

func (s *CleanupTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockRepo = mocks.NewMockRepository(s.ctrl)
	s.reader = sdkmetric.NewManualReader()
	s.now = time.Date(2025, 1, 10, 3, 0, 0, 0, time.UTC)

	mockUOW := uowmocks.NewMockUOW(s.ctrl)
	mockUOW.EXPECT().GetRepository(uow.RepositoryName(repoargs.OutboxRepoName)).Return(s.mockRepo, nil)

	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(s.reader)).Meter("test")
	cleanup, err := NewCleanup(mockUOW, meter, logrus.New())
	s.Require().NoError(err)
	s.cleanup = cleanup
	s.cleanup.now = func() time.Time { return s.now }
}

func (s *CleanupTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *CleanupTestSuite) TestCleanupProcessed() {
	s.mockRepo.EXPECT().DeleteProcessedBefore(gomock.Any(), s.now.Add(-7*24*time.Hour)).Return(int64(3), nil)

	deleted, err := s.cleanup.CleanupProcessed(s.T().Context())
	s.Require().NoError(err)
	s.Equal(int64(3), deleted)

	var rm metricdata.ResourceMetrics
	s.Require().NoError(s.reader.Collect(context.Background(), &rm))
	s.Require().Len(rm.ScopeMetrics, 1)
	s.Require().Len(rm.ScopeMetrics[0].Metrics, 1)
	sum, ok := rm.ScopeMetrics[0].Metrics[0].Data.(metricdata.Sum[int64])
	s.Require().True(ok)
	s.Equal(int64(3), sum.DataPoints[0].Value)
}

func (s *CleanupTestSuite) TestCleanupProcessed_CustomRetention() {
	s.cleanup.SetRetentionDays(30)
	s.mockRepo.EXPECT().DeleteProcessedBefore(gomock.Any(), s.now.Add(-30*24*time.Hour)).Return(int64(0), nil)

	_, err := s.cleanup.CleanupProcessed(s.T().Context())
	s.Require().NoError(err)
}

func (s *CleanupTestSuite) TestCleanupProcessed_Error() {
	dbErr := errors.New("connection refused")
	s.mockRepo.EXPECT().DeleteProcessedBefore(gomock.Any(), gomock.Any()).Return(int64(0), dbErr)

	_, err := s.cleanup.CleanupProcessed(s.T().Context())
	s.Require().ErrorIs(err, dbErr)
}

func (s *CleanupTestSuite) TestRun_InvalidSchedule() {
	err := s.cleanup.Run(s.T().Context(), "not a cron")
	s.Require().Error(err)
}

func (s *CleanupTestSuite) TestRun_StopsOnContextCancel() {
	ctx, cancel := context.WithCancel(s.T().Context())
	cancel()
	s.Require().NoError(s.cleanup.Run(ctx, DefaultCleanupSchedule))
}
