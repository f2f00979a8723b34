package di

import (
	"github.com/mufasadev/transaction-webhooks/internal/domain/events"
	"github.com/mufasadev/transaction-webhooks/internal/domain/repositories"
	"github.com/mufasadev/transaction-webhooks/internal/infrastructure/api/handlers"
	"github.com/mufasadev/transaction-webhooks/internal/usecases/interactor"
	"github.com/mufasadev/transaction-webhooks/pkg/keylock"
	"github.com/mufasadev/transaction-webhooks/pkg/log"
	"github.com/mufasadev/transaction-webhooks/pkg/workerpool"
	"time"
)

// Settings are the tunables the container needs beyond its collaborators.
type Settings struct {
	Processor     interactor.Processor
	MaxConcurrent int
	StaleAfter    time.Duration
}

type Container struct {
	TransactionHandler     *handlers.TransactionHandler
	HealthHandler          *handlers.HealthHandler
	TransactionInteractor  *interactor.TransactionInteractor
	CompletionInteractor   *interactor.CompletionInteractor
	StalePendingInteractor *interactor.StalePendingInteractor
	Pool                   *workerpool.Pool
	Locks                  *keylock.Table
}

// NewContainer creates a new Container instance.
func NewContainer(transactionRepository repositories.TransactionRepository, publisher events.Publisher, settings Settings) *Container {
	pool := workerpool.New(log.GetLogger())
	locks := keylock.New()

	completionInteractor := interactor.NewCompletionInteractor(
		transactionRepository,
		locks,
		settings.Processor,
		publisher,
		pool,
		settings.MaxConcurrent,
	)

	transactionInteractor := interactor.NewTransactionInteractor(transactionRepository, completionInteractor)
	transactionHandler := handlers.NewTransactionHandler(transactionInteractor)

	stalePendingInteractor := interactor.NewStalePendingInteractor(transactionRepository, settings.StaleAfter)

	return &Container{
		TransactionHandler:     transactionHandler,
		HealthHandler:          handlers.NewHealthHandler(),
		TransactionInteractor:  transactionInteractor,
		CompletionInteractor:   completionInteractor,
		StalePendingInteractor: stalePendingInteractor,
		Pool:                   pool,
		Locks:                  locks,
	}
}
