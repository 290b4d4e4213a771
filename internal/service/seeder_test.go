package service

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"

	"github.com/fsdevblog/distributed-ledger/internal/domain"
	"github.com/fsdevblog/distributed-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/distributed-ledger/internal/service/mocks"
	"github.com/fsdevblog/distributed-ledger/pkg/uow"
	uowmocks "github.com/fsdevblog/distributed-ledger/pkg/uow/mocks"
)

type SeederTestSuite struct {
	suite.Suite
	mockCtrl    *gomock.Controller
	accountRepo *mocks.MockAccountRepository
	seeder      *Seeder
}

func TestSeederSuite(t *testing.T) {
	suite.Run(t, new(SeederTestSuite))
}

func (s *SeederTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.accountRepo = mocks.NewMockAccountRepository(s.mockCtrl)

	mockUOW := uowmocks.NewMockUOW(s.mockCtrl)
	mockUOW.EXPECT().GetRepository(uow.RepositoryName(repoargs.AccountRepoName)).Return(s.accountRepo, nil)

	seeder, err := NewSeeder(mockUOW, logrus.New())
	s.Require().NoError(err)
	s.seeder = seeder
}

func (s *SeederTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func (s *SeederTestSuite) TestSeed_CreatesMissingAccounts() {
	s.accountRepo.EXPECT().LoadAccountByNumber(gomock.Any(), domain.AccountNumber("TR01")).
		Return(nil, domain.ErrRecordNotFound)
	s.accountRepo.EXPECT().LoadAccountByNumber(gomock.Any(), domain.AccountNumber("TR02")).
		Return(&domain.Account{ID: SeedBobID}, nil)

	s.accountRepo.EXPECT().CreateAccount(gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, a *domain.Account) {
			s.Equal(SeedAliceID, a.ID)
			s.Equal("1000", a.Balance.Amount.String())
			s.Equal("TRY", a.Balance.Currency)
			s.Equal(domain.AccountStatusActive, a.Status)
		}).Return(nil)

	s.Require().NoError(s.seeder.Seed(s.T().Context()))
}

func (s *SeederTestSuite) TestSeed_IgnoresDuplicates() {
	s.accountRepo.EXPECT().LoadAccountByNumber(gomock.Any(), gomock.Any()).
		Return(nil, domain.ErrRecordNotFound).Times(2)
	s.accountRepo.EXPECT().CreateAccount(gomock.Any(), gomock.Any()).
		Return(domain.ErrDuplicateKey).Times(2)

	s.Require().NoError(s.seeder.Seed(s.T().Context()))
}
