package repositories

import (
	"context"
	"errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mufasadev/transaction-webhooks/internal/domain/models"
	"github.com/mufasadev/transaction-webhooks/internal/domain/repositories"
	apperrors "github.com/mufasadev/transaction-webhooks/internal/errors"
	"github.com/mufasadev/transaction-webhooks/pkg/log"
	"github.com/mufasadev/transaction-webhooks/pkg/postgresql"
	"github.com/rs/zerolog"
	"time"
)

type TransactionRepositoryImpl struct {
	db     postgresql.Client
	logger *zerolog.Logger
}

// NewTransactionRepositoryImpl creates new instance of TransactionRepositoryImpl.
func NewTransactionRepositoryImpl(db postgresql.Client) repositories.TransactionRepository {
	l := log.GetLogger()
	return &TransactionRepositoryImpl{
		db:     db,
		logger: &l,
	}
}

const insertTransaction = `
INSERT INTO transactions (transaction_id, source_account, destination_account, amount, currency, status, created_at, attempts)
VALUES ($1, $2, $3, $4, $5, $6, $7, 0)`

const selectTransaction = `
SELECT transaction_id, source_account, destination_account, amount, currency, status, created_at, processed_at, attempts, last_error
FROM transactions
WHERE transaction_id = $1`

// CreateIfAbsent relies on the primary key: a unique violation means another
// delivery got there first, and its row is returned instead.
func (r *TransactionRepositoryImpl) CreateIfAbsent(ctx context.Context, tx *models.Transaction) (models.Transaction, repositories.CreateOutcome, error) {
	row := newRow(tx)

	_, err := r.db.Exec(ctx, insertTransaction,
		row.TransactionID,
		row.SourceAccount,
		row.DestinationAccount,
		row.Amount,
		row.Currency,
		string(row.Status),
		row.CreatedAt,
	)
	if err == nil {
		return row, repositories.Created, nil
	}

	if !isUniqueViolation(err) {
		return models.Transaction{}, 0, apperrors.NewStoreError("create", err)
	}

	r.logger.Debug().Str("transaction_id", tx.TransactionID).Msg("duplicate transaction id")
	existing, err := r.Get(ctx, tx.TransactionID)
	if err != nil {
		return models.Transaction{}, 0, err
	}
	return *existing, repositories.AlreadyExists, nil
}

// Get returns transaction by transaction id.
func (r *TransactionRepositoryImpl) Get(ctx context.Context, transactionID string) (*models.Transaction, error) {
	tx := &models.Transaction{}
	var status string
	err := r.db.QueryRow(ctx, selectTransaction, transactionID).Scan(
		&tx.TransactionID,
		&tx.SourceAccount,
		&tx.DestinationAccount,
		&tx.Amount,
		&tx.Currency,
		&status,
		&tx.CreatedAt,
		&tx.ProcessedAt,
		&tx.Attempts,
		&tx.LastError,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(transactionID)
		}
		return nil, apperrors.NewStoreError("get", err)
	}

	tx.Status = models.Status(status)
	tx.CreatedAt = tx.CreatedAt.UTC()
	if tx.ProcessedAt != nil {
		p := tx.ProcessedAt.UTC()
		tx.ProcessedAt = &p
	}
	return tx, nil
}

const markProcessed = `
UPDATE transactions
SET status = 'PROCESSED', processed_at = $2, attempts = attempts + 1
WHERE transaction_id = $1 AND status <> 'PROCESSED'`

// MarkProcessed updates the row only while it is still pending.
func (r *TransactionRepositoryImpl) MarkProcessed(ctx context.Context, transactionID string, processedAt time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, markProcessed, transactionID, processedAt.UTC())
	if err != nil {
		return false, apperrors.NewStoreError("mark processed", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	exists, err := r.exists(ctx, transactionID)
	if err != nil {
		return false, apperrors.NewStoreError("mark processed", err)
	}
	if !exists {
		return false, apperrors.NewNotFoundError(transactionID)
	}
	return false, nil
}

const recordFailure = `
UPDATE transactions
SET attempts = attempts + 1, last_error = $2
WHERE transaction_id = $1`

// RecordFailure counts a failed attempt; status is left alone.
func (r *TransactionRepositoryImpl) RecordFailure(ctx context.Context, transactionID string, errText string) error {
	tag, err := r.db.Exec(ctx, recordFailure, transactionID, errText)
	if err != nil {
		return apperrors.NewStoreError("record failure", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError(transactionID)
	}
	return nil
}

const countPendingOlderThan = `
SELECT COUNT(*) FROM transactions WHERE status = 'PROCESSING' AND created_at < $1`

func (r *TransactionRepositoryImpl) CountPendingOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, countPendingOlderThan, cutoff.UTC()).Scan(&n); err != nil {
		return 0, apperrors.NewStoreError("count pending", err)
	}
	return n, nil
}

func (r *TransactionRepositoryImpl) exists(ctx context.Context, transactionID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM transactions WHERE transaction_id = $1)", transactionID).Scan(&exists)
	return exists, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.SQLState() == repositories.UniqueViolationError
}
