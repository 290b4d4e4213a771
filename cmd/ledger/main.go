package main

import (
	"context"
	"errors"
	"os"

	"github.com/fsdevblog/distributed-ledger/internal/app"
	"github.com/fsdevblog/distributed-ledger/internal/config"
	"github.com/fsdevblog/distributed-ledger/internal/logger"
)

func main() {
	conf := config.MustLoadConfig()
	l := logger.New(os.Stdout)
	if err := logger.SetLevel(l, conf.LogLevel); err != nil {
		panic(err)
	}

	if err := app.New(conf, l).Run(); err != nil {
		if errors.Is(err, context.Canceled) {
			l.Info("graceful shutdown")
			os.Exit(0)
		}
		panic(err)
	}
}
