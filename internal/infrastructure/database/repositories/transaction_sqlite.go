package repositories

import (
	"context"
	"database/sql"
	"errors"
	"github.com/mattn/go-sqlite3"
	"github.com/mufasadev/transaction-webhooks/internal/domain/models"
	"github.com/mufasadev/transaction-webhooks/internal/domain/repositories"
	apperrors "github.com/mufasadev/transaction-webhooks/internal/errors"
	"github.com/mufasadev/transaction-webhooks/pkg/log"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"time"
)

type TransactionSQLiteRepository struct {
	db     *sql.DB
	logger *zerolog.Logger
}

// NewTransactionSQLiteRepository creates a store over an already migrated
// SQLite handle.
func NewTransactionSQLiteRepository(db *sql.DB) repositories.TransactionRepository {
	l := log.GetLogger()
	return &TransactionSQLiteRepository{
		db:     db,
		logger: &l,
	}
}

func (r *TransactionSQLiteRepository) CreateIfAbsent(ctx context.Context, tx *models.Transaction) (models.Transaction, repositories.CreateOutcome, error) {
	row := newRow(tx)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (transaction_id, source_account, destination_account, amount, currency, status, created_at, attempts)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
		row.TransactionID,
		row.SourceAccount,
		row.DestinationAccount,
		row.Amount.String(),
		row.Currency,
		string(row.Status),
		row.CreatedAt,
	)
	if err == nil {
		return row, repositories.Created, nil
	}

	if !isSQLiteConstraintViolation(err) {
		return models.Transaction{}, 0, apperrors.NewStoreError("create", err)
	}

	r.logger.Debug().Str("transaction_id", tx.TransactionID).Msg("duplicate transaction id")
	existing, err := r.Get(ctx, tx.TransactionID)
	if err != nil {
		return models.Transaction{}, 0, err
	}
	return *existing, repositories.AlreadyExists, nil
}

func (r *TransactionSQLiteRepository) Get(ctx context.Context, transactionID string) (*models.Transaction, error) {
	var (
		tx          models.Transaction
		amount      string
		status      string
		processedAt sql.NullTime
		lastError   sql.NullString
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT transaction_id, source_account, destination_account, amount, currency, status, created_at, processed_at, attempts, last_error
		FROM transactions
		WHERE transaction_id = ?`, transactionID).Scan(
		&tx.TransactionID,
		&tx.SourceAccount,
		&tx.DestinationAccount,
		&amount,
		&tx.Currency,
		&status,
		&tx.CreatedAt,
		&processedAt,
		&tx.Attempts,
		&lastError,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(transactionID)
		}
		return nil, apperrors.NewStoreError("get", err)
	}

	tx.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, apperrors.NewStoreError("get", err)
	}
	tx.Status = models.Status(status)
	tx.CreatedAt = tx.CreatedAt.UTC()
	if processedAt.Valid {
		p := processedAt.Time.UTC()
		tx.ProcessedAt = &p
	}
	if lastError.Valid {
		e := lastError.String
		tx.LastError = &e
	}
	return &tx, nil
}

func (r *TransactionSQLiteRepository) MarkProcessed(ctx context.Context, transactionID string, processedAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET status = 'PROCESSED', processed_at = ?, attempts = attempts + 1
		WHERE transaction_id = ? AND status <> 'PROCESSED'`,
		processedAt.UTC(), transactionID)
	if err != nil {
		return false, apperrors.NewStoreError("mark processed", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, apperrors.NewStoreError("mark processed", err)
	}
	if affected == 1 {
		return true, nil
	}

	var exists bool
	err = r.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM transactions WHERE transaction_id = ?)", transactionID).Scan(&exists)
	if err != nil {
		return false, apperrors.NewStoreError("mark processed", err)
	}
	if !exists {
		return false, apperrors.NewNotFoundError(transactionID)
	}
	return false, nil
}

func (r *TransactionSQLiteRepository) RecordFailure(ctx context.Context, transactionID string, errText string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET attempts = attempts + 1, last_error = ?
		WHERE transaction_id = ?`,
		errText, transactionID)
	if err != nil {
		return apperrors.NewStoreError("record failure", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewStoreError("record failure", err)
	}
	if affected == 0 {
		return apperrors.NewNotFoundError(transactionID)
	}
	return nil
}

func (r *TransactionSQLiteRepository) CountPendingOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions WHERE status = 'PROCESSING' AND created_at < ?",
		cutoff.UTC()).Scan(&n)
	if err != nil {
		return 0, apperrors.NewStoreError("count pending", err)
	}
	return n, nil
}

func isSQLiteConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
