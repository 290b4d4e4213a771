package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/distributed-ledger/internal/transport/api/middlewares"
)

const (
	DefaultServiceTimeout = 3 * time.Second
)

const (
	RouteGroup        = "/api/v1"
	SendMoneyRoute    = "/transactions/send"
	HealthRoute       = "/health"
	ServiceName       = "distributed-ledger"
	healthStatusUp    = "UP"
)

type RouterArgs struct {
	Logger           *logrus.Logger
	SendMoneyService SendMoneyServicer
}

func New(args RouterArgs) (*gin.Engine, error) {
	if err := registerValidators(); err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if args.Logger != nil {
		r.Use(middlewares.Logger(args.Logger))
	}
	r.Use(middlewares.Errors())

	transactionsHandler := NewTransactionsHandler(args.SendMoneyService)

	api := r.Group(RouteGroup)
	api.GET(HealthRoute, Health)
	api.POST(SendMoneyRoute, transactionsHandler.Send)

	return r, nil
}
