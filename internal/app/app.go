package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	// driver for migration applying postgres.
	_ "github.com/golang-migrate/migrate/v4/database/postgres" //nolint:revive
	// driver to get migrations from files (*.sql in our case).
	_ "github.com/golang-migrate/migrate/v4/source/file" //nolint:revive
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/fsdevblog/distributed-ledger/internal/broker"
	"github.com/fsdevblog/distributed-ledger/internal/cache"
	"github.com/fsdevblog/distributed-ledger/internal/config"
	"github.com/fsdevblog/distributed-ledger/internal/lock"
	"github.com/fsdevblog/distributed-ledger/internal/repository/pgrepo"
	"github.com/fsdevblog/distributed-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/distributed-ledger/internal/service"
	"github.com/fsdevblog/distributed-ledger/internal/telemetry"
	"github.com/fsdevblog/distributed-ledger/internal/transport/api"
	"github.com/fsdevblog/distributed-ledger/internal/transport/outbox"
	"github.com/fsdevblog/distributed-ledger/pkg/uow"
)

const (
	shutdownTimeout        = 10 * time.Second
	readHeaderTimeout      = 5 * time.Second
	breakerOpenTimeout     = 30 * time.Second
	breakerFailuresToTrip  = 5
	meterName              = "github.com/fsdevblog/distributed-ledger"
	serviceVersion         = "1.0.0"
	metricsShutdownTimeout = 5 * time.Second
)

type App struct {
	Config *config.Config
	Logger *logrus.Logger
}

func New(conf *config.Config, l *logrus.Logger) *App {
	return &App{
		Config: conf,
		Logger: l,
	}
}

func (a *App) Run() error {
	notifyCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.Logger.WithFields(logrus.Fields{
		"address": a.Config.RunAddress,
		"broker":  a.Config.BrokerKind,
		"redis":   a.Config.RedisAddr,
	}).Info("starting app")

	conn, connErr := pgrepo.Connect(notifyCtx, a.Config.MigrationsDir, a.Config.DatabaseDSN, a.Logger)
	if connErr != nil {
		return fmt.Errorf("app run: %s", connErr.Error())
	}
	defer conn.Close()

	unitOfWork, uowErr := initUOW(conn)
	if uowErr != nil {
		return fmt.Errorf("app run: %s", uowErr.Error())
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     a.Config.RedisAddr,
		Password: a.Config.RedisPassword,
		DB:       a.Config.RedisDB,
	})
	defer func() {
		if err := redisClient.Close(); err != nil {
			a.Logger.WithError(err).Warn("failed to close redis client")
		}
	}()
	if pingErr := redisClient.Ping(notifyCtx).Err(); pingErr != nil {
		return fmt.Errorf("app run: redis ping: %s", pingErr.Error())
	}

	meterProvider, mpErr := telemetry.NewMeterProvider(notifyCtx, telemetry.Config{
		CollectorEndpoint: a.Config.CollectorEndpoint,
		ServiceVersion:    serviceVersion,
	}, a.Logger)
	if mpErr != nil {
		return fmt.Errorf("app run: %s", mpErr.Error())
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		if err := meterProvider.Shutdown(ctx); err != nil {
			a.Logger.WithError(err).Warn("failed to shutdown meter provider")
		}
	}()
	meter := meterProvider.Meter(meterName)

	publisher, pubErr := broker.New(broker.Config{
		Kind:             broker.Kind(a.Config.BrokerKind),
		KafkaBrokers:     a.Config.KafkaBrokers,
		RabbitMQURL:      a.Config.RabbitMQURL,
		RabbitMQExchange: a.Config.RabbitMQExchange,
		BreakerTimeout:   breakerOpenTimeout,
		BreakerFailures:  breakerFailuresToTrip,
	}, a.Logger)
	if pubErr != nil {
		return fmt.Errorf("app run: %s", pubErr.Error())
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			a.Logger.WithError(err).Warn("failed to close publisher")
		}
	}()

	services, sErr := service.Factory(unitOfWork, service.FactoryArgs{
		Cache:          cache.New(redisClient),
		Locker:         lock.New(redisClient, a.Config.LockLease, a.Logger),
		IdempotencyTTL: a.Config.IdempotencyTTL,
		Logger:         a.Logger,
		Meter:          meter,
	})
	if sErr != nil {
		return fmt.Errorf("app run: %s", sErr.Error())
	}

	if a.Config.SeedTestData {
		if seedErr := services.Seeder.Seed(notifyCtx); seedErr != nil {
			return fmt.Errorf("app run: %s", seedErr.Error())
		}
	}

	relay, relayErr := outbox.NewRelay(unitOfWork, publisher, meter, a.Logger)
	if relayErr != nil {
		return fmt.Errorf("app run: %s", relayErr.Error())
	}
	relay.SetBatchSize(a.Config.OutboxBatchSize).
		SetTopic(a.Config.OutboxTopic).
		SetMaxRetries(a.Config.OutboxMaxRetries).
		SetPublishTimeout(a.Config.OutboxPublishTimeout).
		SetPollingInterval(a.Config.OutboxPollingInterval)

	cleanup, cleanupErr := outbox.NewCleanup(unitOfWork, meter, a.Logger)
	if cleanupErr != nil {
		return fmt.Errorf("app run: %s", cleanupErr.Error())
	}
	cleanup.SetRetentionDays(a.Config.OutboxRetentionDays)

	router, routerErr := api.New(api.RouterArgs{
		Logger:           a.Logger,
		SendMoneyService: services.SendMoneyService,
	})
	if routerErr != nil {
		return fmt.Errorf("app run: %s", routerErr.Error())
	}

	srv := &http.Server{
		Addr:              a.Config.RunAddress,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gCtx := errgroup.WithContext(notifyCtx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		relay.Run(gCtx)
		return nil
	})

	g.Go(func() error {
		return cleanup.Run(gCtx, a.Config.OutboxCleanupCron)
	})

	if err := g.Wait(); err != nil {
		return err //nolint:wrapcheck
	}
	return notifyCtx.Err() //nolint:wrapcheck
}

func initUOW(conn *pgxpool.Pool) (*uow.UnitOfWork, error) {
	unitOfWork := uow.NewUnitOfWork(conn)

	factories := map[repoargs.RepositoryName]uow.RepositoryFactory{
		repoargs.AccountRepoName: func(dbtx uow.DBTX) uow.Repository {
			return pgrepo.NewAccountRepository(dbtx)
		},
		repoargs.TransactionRepoName: func(dbtx uow.DBTX) uow.Repository {
			return pgrepo.NewTransactionRepository(dbtx)
		},
		repoargs.LedgerRepoName: func(dbtx uow.DBTX) uow.Repository {
			return pgrepo.NewLedgerRepository(dbtx)
		},
		repoargs.OutboxRepoName: func(dbtx uow.DBTX) uow.Repository {
			return pgrepo.NewOutboxRepository(dbtx)
		},
		repoargs.AuditRepoName: func(dbtx uow.DBTX) uow.Repository {
			return pgrepo.NewAuditRepository(dbtx)
		},
	}

	for name, factory := range factories {
		if regErr := unitOfWork.Register(uow.RepositoryName(name), factory); regErr != nil {
			return nil, fmt.Errorf("init UOW: %s", regErr.Error())
		}
	}

	return unitOfWork, nil
}
