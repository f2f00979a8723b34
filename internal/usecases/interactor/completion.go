package interactor

import (
	"context"
	"github.com/mufasadev/transaction-webhooks/internal/domain/events"
	"github.com/mufasadev/transaction-webhooks/internal/domain/models"
	"github.com/mufasadev/transaction-webhooks/internal/domain/repositories"
	apperrors "github.com/mufasadev/transaction-webhooks/internal/errors"
	"github.com/mufasadev/transaction-webhooks/pkg/log"
	"github.com/mufasadev/transaction-webhooks/pkg/workerpool"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"time"
)

const failureWriteTimeout = 5 * time.Second

// KeyLocker hands out mutual exclusion per transaction id.
type KeyLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// TaskRunner runs background work detached from the caller.
type TaskRunner interface {
	Submit(name string, task workerpool.Task) error
}

// CompletionResult is how a single completion run ended.
type CompletionResult int

const (
	// CompletionProcessed means this run moved the transaction to PROCESSED.
	CompletionProcessed CompletionResult = iota + 1
	// CompletionAlreadyProcessed means an earlier run got there first.
	CompletionAlreadyProcessed
	CompletionNotFound
	// CompletionFailed means the failure was recorded on the row.
	CompletionFailed
	// CompletionAbandoned means the run was cancelled by shutdown.
	CompletionAbandoned
)

func (r CompletionResult) String() string {
	switch r {
	case CompletionProcessed:
		return "processed"
	case CompletionAlreadyProcessed:
		return "already_processed"
	case CompletionNotFound:
		return "not_found"
	case CompletionFailed:
		return "failed"
	case CompletionAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

type CompletionInteractor struct {
	transactionRepository repositories.TransactionRepository
	locks                 KeyLocker
	slots                 *semaphore.Weighted
	processor             Processor
	publisher             events.Publisher
	runner                TaskRunner
	now                   func() time.Time
	logger                *zerolog.Logger
}

// NewCompletionInteractor creates a CompletionInteractor. At most
// maxConcurrent transactions are inside the processing step at once.
func NewCompletionInteractor(
	transactionRepository repositories.TransactionRepository,
	locks KeyLocker,
	processor Processor,
	publisher events.Publisher,
	runner TaskRunner,
	maxConcurrent int,
) *CompletionInteractor {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	l := log.GetLogger()
	return &CompletionInteractor{
		transactionRepository: transactionRepository,
		locks:                 locks,
		slots:                 semaphore.NewWeighted(int64(maxConcurrent)),
		processor:             processor,
		publisher:             publisher,
		runner:                runner,
		now:                   time.Now,
		logger:                &l,
	}
}

// Schedule submits a completion run for transactionID to the task runner.
func (c *CompletionInteractor) Schedule(transactionID string) error {
	return c.runner.Submit("complete_transaction", func(ctx context.Context) error {
		c.Complete(ctx, transactionID)
		return nil
	})
}

// Complete runs the completion protocol for one transaction while holding
// its per-id lock. Failures are written to the row, never returned.
func (c *CompletionInteractor) Complete(ctx context.Context, transactionID string) CompletionResult {
	logger := c.logger.With().Str("transaction_id", transactionID).Logger()

	unlock, err := c.locks.Lock(ctx, transactionID)
	if err != nil {
		logger.Warn().Err(err).Msg("completion abandoned while waiting for lock")
		return CompletionAbandoned
	}
	defer unlock()

	if err = c.slots.Acquire(ctx, 1); err != nil {
		logger.Warn().Err(err).Msg("completion abandoned while waiting for a processing slot")
		return CompletionAbandoned
	}
	defer c.slots.Release(1)

	tx, err := c.transactionRepository.Get(ctx, transactionID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			logger.Warn().Msg("transaction vanished before completion")
			return CompletionNotFound
		}
		return c.fail(ctx, &logger, transactionID, err)
	}

	// Another run may have finished while this one waited for the lock.
	if tx.IsProcessed() {
		logger.Debug().Msg("transaction already processed")
		return CompletionAlreadyProcessed
	}

	logger.Info().Msg("processing started")
	if err = c.processor.Process(ctx, *tx); err != nil {
		return c.fail(ctx, &logger, transactionID, apperrors.NewProcessingError(err))
	}

	processedAt := c.now().UTC().Truncate(time.Microsecond)
	updated, err := c.transactionRepository.MarkProcessed(ctx, transactionID, processedAt)
	if err != nil {
		if apperrors.IsNotFound(err) {
			logger.Warn().Msg("transaction vanished before it could be marked processed")
			return CompletionNotFound
		}
		return c.fail(ctx, &logger, transactionID, err)
	}
	if !updated {
		return CompletionAlreadyProcessed
	}

	logger.Info().Time("processed_at", processedAt).Msg("transaction processed")

	event := models.TransactionProcessed{
		TransactionID:      tx.TransactionID,
		SourceAccount:      tx.SourceAccount,
		DestinationAccount: tx.DestinationAccount,
		Amount:             tx.Amount,
		Currency:           tx.Currency,
		ProcessedAt:        processedAt,
	}
	if err = c.publisher.PublishTransactionProcessed(ctx, event); err != nil {
		logger.Error().Err(err).Msg("failed to publish transaction processed event")
	}

	return CompletionProcessed
}

// fail records err on the row. A cancelled ctx means shutdown: the row is
// left pending for the next delivery instead.
func (c *CompletionInteractor) fail(ctx context.Context, logger *zerolog.Logger, transactionID string, err error) CompletionResult {
	if ctx.Err() != nil {
		logger.Warn().Err(err).Msg("completion abandoned by shutdown")
		return CompletionAbandoned
	}

	logger.Error().Err(err).Msg("completion failed")

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureWriteTimeout)
	defer cancel()
	if recErr := c.transactionRepository.RecordFailure(writeCtx, transactionID, err.Error()); recErr != nil {
		logger.Error().Err(recErr).Msg("failed to record completion failure")
	}
	return CompletionFailed
}
