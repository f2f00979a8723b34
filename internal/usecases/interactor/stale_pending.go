package interactor

import (
	"context"
	"github.com/mufasadev/transaction-webhooks/internal/domain/repositories"
	"github.com/mufasadev/transaction-webhooks/internal/errors"
	"github.com/mufasadev/transaction-webhooks/pkg/log"
	"github.com/rs/zerolog"
	"time"
)

// StalePendingInteractor reports transactions stuck in PROCESSING. It does
// not reschedule them: only a redelivery retries a transaction.
type StalePendingInteractor struct {
	transactionRepository repositories.TransactionRepository
	staleAfter            time.Duration
	now                   func() time.Time
	logger                *zerolog.Logger
}

// NewStalePendingInteractor creates a new StalePendingInteractor
func NewStalePendingInteractor(transactionRepository repositories.TransactionRepository, staleAfter time.Duration) *StalePendingInteractor {
	l := log.GetLogger()
	return &StalePendingInteractor{
		transactionRepository: transactionRepository,
		staleAfter:            staleAfter,
		now:                   time.Now,
		logger:                &l,
	}
}

// Check counts pending transactions created more than staleAfter ago.
func (s *StalePendingInteractor) Check(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.staleAfter)
	n, err := s.transactionRepository.CountPendingOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error().Err(err).Msg(errors.ErrFailedCountStalePending)
		return 0, err
	}

	if n > 0 {
		s.logger.Warn().
			Int("count", n).
			Dur("stale_after", s.staleAfter).
			Msg("transactions pending without completion; they are retried only on redelivery")
	}
	return n, nil
}

// Execute runs Check, discarding the count.
func (s *StalePendingInteractor) Execute(ctx context.Context) error {
	_, err := s.Check(ctx)
	return err
}
