package main

import (
	"context"
	"github.com/mufasadev/transaction-webhooks/internal/app"
	"github.com/mufasadev/transaction-webhooks/internal/config"
	"github.com/mufasadev/transaction-webhooks/internal/di"
	"github.com/mufasadev/transaction-webhooks/internal/domain/events"
	"github.com/mufasadev/transaction-webhooks/internal/domain/repositories"
	"github.com/mufasadev/transaction-webhooks/internal/errors"
	"github.com/mufasadev/transaction-webhooks/internal/infrastructure/api/routers"
	"github.com/mufasadev/transaction-webhooks/internal/infrastructure/database/db_client"
	dbrepositories "github.com/mufasadev/transaction-webhooks/internal/infrastructure/database/repositories"
	"github.com/mufasadev/transaction-webhooks/internal/infrastructure/events/kafka"
	"github.com/mufasadev/transaction-webhooks/internal/usecases/interactor"
	"github.com/mufasadev/transaction-webhooks/pkg/log"
)

const (
	appName = "transaction-webhooks"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()

	logOpts := []log.LoggerOption{log.WithLevel(cfg.Log.Level)}
	if cfg.Log.ConsoleEnabled() {
		logOpts = append(logOpts, log.WithConsoleLogger())
	}
	if cfg.Log.File != "" {
		logOpts = append(logOpts, log.WithFileLogger(cfg.Log.File))
	}
	log.Init(appName, logOpts...)
	logger := log.GetLogger()

	service := app.NewService(cfg)

	driver, err := cfg.Store.DriverName()
	if err != nil {
		logger.Fatal().Err(err).Msg(errors.ErrorUnknownStoreDriver)
	}

	var repo repositories.TransactionRepository
	switch driver {
	case config.StoreDriverPostgres:
		pgClient := db_client.NewPGClient(cfg.PostgreSQL)
		db, err := pgClient.Connect(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg(errors.ErrorFailedToConnectToTheDatabase)
		}
		defer db.Close()
		if err = pgClient.Migrate(); err != nil {
			logger.Fatal().Err(err).Msg(errors.ErrorFailedToMigrateTheDatabase)
		}
		repo = dbrepositories.NewTransactionRepositoryImpl(db)
	case config.StoreDriverMemory:
		repo = dbrepositories.NewTransactionMemoryRepository()
	case config.StoreDriverSQLite:
		db, err := db_client.NewSQLiteClient(cfg.Store.SQLitePath).Connect()
		if err != nil {
			logger.Fatal().Err(err).Msg(errors.ErrorFailedToConnectToTheDatabase)
		}
		defer db.Close()
		repo = dbrepositories.NewTransactionSQLiteRepository(db)
	}
	logger.Info().Str("driver", driver).Msg("transaction store ready")

	var publisher events.Publisher = events.NopPublisher{}
	var kafkaPublisher *kafka.Publisher
	if brokers := cfg.Kafka.BrokerList(); len(brokers) > 0 {
		kafkaPublisher = kafka.NewPublisher(brokers, cfg.Kafka.Topic)
		publisher = kafkaPublisher
	}

	container := di.NewContainer(repo, publisher, di.Settings{
		Processor:     interactor.NewSimulatedProcessor(cfg.Processing.DelayDuration()),
		MaxConcurrent: cfg.Processing.MaxConcurrentInt(),
		StaleAfter:    cfg.Process.StaleAfterDuration(),
	})

	// Completions stop before the publisher and the store close under them.
	service.OnShutdown(app.ShutdownHook{Name: "completion tasks", Fn: container.Pool.Shutdown})
	if kafkaPublisher != nil {
		service.OnShutdown(app.ShutdownHook{
			Name: "kafka publisher",
			Fn:   func(context.Context) error { return kafkaPublisher.Close() },
		})
	}

	stalePending := app.NewStalePendingProcess(container.StalePendingInteractor, cfg.Process.IntervalDuration())
	go stalePending.Run(ctx)

	router := routers.NewRouter(container)
	service.Run(ctx, router)
}
