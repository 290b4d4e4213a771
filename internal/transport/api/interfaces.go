package api

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/fsdevblog/distributed-ledger/internal/service"
)

type SendMoneyServicer interface {
	SendMoney(ctx context.Context, args service.SendMoneyArgs) (*service.SendMoneyResult, error)
}
