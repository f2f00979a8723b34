package interactor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mufasadev/transaction-webhooks/internal/domain/models"
	"github.com/mufasadev/transaction-webhooks/internal/domain/repositories"
	dbrepositories "github.com/mufasadev/transaction-webhooks/internal/infrastructure/database/repositories"
	"github.com/mufasadev/transaction-webhooks/internal/usecases/dtos"
	"github.com/mufasadev/transaction-webhooks/pkg/keylock"
)

var errStoreDown = errors.New("store down")

func strPtr(s string) *string { return &s }

func webhook(id string) *dtos.WebhookDTO {
	return &dtos.WebhookDTO{
		TransactionID:      strPtr(id),
		SourceAccount:      strPtr("A"),
		DestinationAccount: strPtr("B"),
		RawAmount:          []byte("10.5"),
		Currency:           strPtr("USD"),
	}
}

// countingLocker records how many callers hold a lock at once.
type countingLocker struct {
	table   *keylock.Table
	holders int32
	max     int32
}

func newCountingLocker() *countingLocker {
	return &countingLocker{table: keylock.New()}
}

func (l *countingLocker) Lock(ctx context.Context, key string) (func(), error) {
	unlock, err := l.table.Lock(ctx, key)
	if err != nil {
		return nil, err
	}

	cur := atomic.AddInt32(&l.holders, 1)
	for {
		prev := atomic.LoadInt32(&l.max)
		if cur <= prev || atomic.CompareAndSwapInt32(&l.max, prev, cur) {
			break
		}
	}

	return func() {
		atomic.AddInt32(&l.holders, -1)
		unlock()
	}, nil
}

func (l *countingLocker) maxHolders() int32 {
	return atomic.LoadInt32(&l.max)
}

// fakeProcessor counts calls and can be slowed down or made to fail.
type fakeProcessor struct {
	delay time.Duration
	err   error
	calls int32
}

func (p *fakeProcessor) Process(ctx context.Context, _ models.Transaction) error {
	atomic.AddInt32(&p.calls, 1)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return p.err
}

func (p *fakeProcessor) callCount() int32 {
	return atomic.LoadInt32(&p.calls)
}

// recordingScheduler remembers every id it was asked to schedule.
type recordingScheduler struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (s *recordingScheduler) Schedule(transactionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.ids = append(s.ids, transactionID)
	return nil
}

func (s *recordingScheduler) scheduled() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ids...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.TransactionProcessed
	err    error
}

func (p *recordingPublisher) PublishTransactionProcessed(_ context.Context, event models.TransactionProcessed) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

// faultyRepository fails the operations whose flag is set and delegates
// the rest to an in-memory store.
type faultyRepository struct {
	*dbrepositories.TransactionMemoryRepository
	failCreate        bool
	failGet           bool
	failMarkProcessed bool
	failRecord        bool
}

func (r *faultyRepository) CreateIfAbsent(ctx context.Context, tx *models.Transaction) (models.Transaction, repositories.CreateOutcome, error) {
	if r.failCreate {
		return models.Transaction{}, 0, errStoreDown
	}
	return r.TransactionMemoryRepository.CreateIfAbsent(ctx, tx)
}

func (r *faultyRepository) Get(ctx context.Context, id string) (*models.Transaction, error) {
	if r.failGet {
		return nil, errStoreDown
	}
	return r.TransactionMemoryRepository.Get(ctx, id)
}

func (r *faultyRepository) MarkProcessed(ctx context.Context, id string, at time.Time) (bool, error) {
	if r.failMarkProcessed {
		return false, errStoreDown
	}
	return r.TransactionMemoryRepository.MarkProcessed(ctx, id, at)
}

func (r *faultyRepository) RecordFailure(ctx context.Context, id string, errText string) error {
	if r.failRecord {
		return errStoreDown
	}
	return r.TransactionMemoryRepository.RecordFailure(ctx, id, errText)
}
