package repositories

import (
	"context"
	"github.com/mufasadev/transaction-webhooks/internal/domain/models"
	"time"
)

const (
	UniqueViolationError = "23505"
)

// CreateOutcome tells CreateIfAbsent callers whether their record was stored.
type CreateOutcome int

const (
	Created CreateOutcome = iota + 1
	AlreadyExists
)

func (o CreateOutcome) String() string {
	switch o {
	case Created:
		return "created"
	case AlreadyExists:
		return "already_exists"
	default:
		return "unknown"
	}
}

// TransactionRepository stores transactions keyed by TransactionID.
// Every method is atomic on its own. Missing rows are reported with
// *errors.NotFoundError, storage failures with *errors.StoreError.
type TransactionRepository interface {
	// CreateIfAbsent inserts tx as PROCESSING unless the id is taken, in
	// which case the stored row is returned untouched.
	CreateIfAbsent(ctx context.Context, tx *models.Transaction) (models.Transaction, CreateOutcome, error)
	Get(ctx context.Context, transactionID string) (*models.Transaction, error)
	// MarkProcessed moves the row to PROCESSED and counts the attempt. It
	// returns false without writing when the row is already PROCESSED.
	MarkProcessed(ctx context.Context, transactionID string, processedAt time.Time) (bool, error)
	// RecordFailure counts the attempt and stores errText as last_error.
	RecordFailure(ctx context.Context, transactionID string, errText string) error
	CountPendingOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}
