package service

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/metric"

	"github.com/fsdevblog/distributed-ledger/pkg/uow"
)

type AppServices struct {
	SendMoneyService *SendMoneyService
	Seeder           *Seeder
}

type FactoryArgs struct {
	Cache          Cache
	Locker         Locker
	IdempotencyTTL time.Duration
	Logger         *logrus.Logger
	Meter          metric.Meter
}

func Factory(unitOfWork uow.UOW, args FactoryArgs) (*AppServices, error) {
	guard, guardErr := NewIdempotencyGuard(unitOfWork, args.Cache, args.IdempotencyTTL, args.Logger, args.Meter)
	if guardErr != nil {
		return nil, fmt.Errorf("service factory: %w", guardErr)
	}

	seeder, seederErr := NewSeeder(unitOfWork, args.Logger)
	if seederErr != nil {
		return nil, fmt.Errorf("service factory: %w", seederErr)
	}

	executor := NewTransferExecutorService(unitOfWork, args.Logger)

	return &AppServices{
		SendMoneyService: NewSendMoneyService(guard, args.Locker, executor, args.Logger),
		Seeder:           seeder,
	}, nil
}
