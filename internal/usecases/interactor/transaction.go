package interactor

import (
	"bytes"
	"context"
	"encoding/json"
	"github.com/mufasadev/transaction-webhooks/internal/domain/models"
	"github.com/mufasadev/transaction-webhooks/internal/domain/repositories"
	apperrors "github.com/mufasadev/transaction-webhooks/internal/errors"
	"github.com/mufasadev/transaction-webhooks/internal/usecases/dtos"
	"github.com/mufasadev/transaction-webhooks/pkg/log"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"math"
	"strconv"
	"strings"
	"time"
)

// CompletionScheduler queues the completion task for a transaction id
// without waiting for it.
type CompletionScheduler interface {
	Schedule(transactionID string) error
}

type TransactionInteractor struct {
	transactionRepository repositories.TransactionRepository
	scheduler             CompletionScheduler
	now                   func() time.Time
	logger                *zerolog.Logger
}

func NewTransactionInteractor(transactionRepository repositories.TransactionRepository, scheduler CompletionScheduler) *TransactionInteractor {
	l := log.GetLogger()
	return &TransactionInteractor{
		transactionRepository: transactionRepository,
		scheduler:             scheduler,
		now:                   time.Now,
		logger:                &l,
	}
}

// Ingest stores a webhook delivery at most once per transaction id and makes
// sure a completion task is queued while the transaction is still pending.
// It never waits for completion.
func (i *TransactionInteractor) Ingest(ctx context.Context, dto *dtos.WebhookDTO) error {
	transaction, err := toTransaction(dto)
	if err != nil {
		return err
	}
	transaction.CreatedAt = i.now()

	stored, outcome, err := i.transactionRepository.CreateIfAbsent(ctx, transaction)
	if err != nil {
		return err
	}

	logger := i.logger.With().
		Str("transaction_id", stored.TransactionID).
		Str("outcome", outcome.String()).
		Str("status", string(stored.Status)).
		Logger()

	if outcome == repositories.AlreadyExists && stored.IsProcessed() {
		logger.Info().Msg("duplicate delivery of processed transaction ignored")
		return nil
	}

	if err = i.scheduler.Schedule(stored.TransactionID); err != nil {
		// The row is stored; the next delivery schedules it again.
		logger.Warn().Err(err).Msg("completion not scheduled")
		return nil
	}

	logger.Info().Msg("completion scheduled")
	return nil
}

// GetTransaction reads the current state of a transaction.
func (i *TransactionInteractor) GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	return i.transactionRepository.Get(ctx, transactionID)
}

// Amounts must fit a float64 and keep their scale small enough that
// formatting them stays cheap.
const (
	minAmountExponent = -64
	maxAmountExponent = 308
)

// toTransaction checks every required field and reports all problems at once.
// Only an absent field is missing; string values are carried as sent.
func toTransaction(dto *dtos.WebhookDTO) (*models.Transaction, error) {
	var fields []apperrors.FieldError

	requireString := func(name string, v *string) string {
		if v == nil {
			fields = append(fields, apperrors.MissingField(name))
			return ""
		}
		return *v
	}

	tx := &models.Transaction{
		TransactionID:      requireString("transaction_id", dto.TransactionID),
		SourceAccount:      requireString("source_account", dto.SourceAccount),
		DestinationAccount: requireString("destination_account", dto.DestinationAccount),
	}
	// An empty id can never be read back through the GET route.
	if dto.TransactionID != nil && *dto.TransactionID == "" {
		fields = append(fields, apperrors.InvalidField("transaction_id",
			"ensure this value has at least 1 characters", "value_error.any_str.min_length"))
	}

	raw := bytes.TrimSpace(dto.RawAmount)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		fields = append(fields, apperrors.MissingField("amount"))
	} else if amount, ok := parseAmount(raw); ok {
		tx.Amount = amount
	} else {
		fields = append(fields, apperrors.InvalidField("amount",
			"value is not a valid float", "type_error.float"))
	}

	tx.Currency = requireString("currency", dto.Currency)

	if len(fields) > 0 {
		return nil, apperrors.NewValidationError(fields...)
	}
	return tx, nil
}

// parseAmount accepts a JSON number or a numeric string.
func parseAmount(raw json.RawMessage) (decimal.Decimal, bool) {
	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Decimal{}, false
		}
		s = strings.TrimSpace(s)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return decimal.Decimal{}, false
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	if exp := amount.Exponent(); exp < minAmountExponent || exp > maxAmountExponent {
		return decimal.Decimal{}, false
	}
	return amount, true
}
