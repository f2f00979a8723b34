package interactor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mufasadev/transaction-webhooks/internal/domain/models"
	apperr "github.com/mufasadev/transaction-webhooks/internal/errors"
	dbrepositories "github.com/mufasadev/transaction-webhooks/internal/infrastructure/database/repositories"
	"github.com/mufasadev/transaction-webhooks/internal/usecases/dtos"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionInteractor_Ingest(t *testing.T) {
	ctx := context.Background()

	t.Run("new transaction is stored pending and scheduled", func(t *testing.T) {
		repo := dbrepositories.NewTransactionMemoryRepository()
		scheduler := &recordingScheduler{}
		i := NewTransactionInteractor(repo, scheduler)

		require.NoError(t, i.Ingest(ctx, webhook("txn_1")))
		assert.Equal(t, []string{"txn_1"}, scheduler.scheduled())

		tx, err := i.GetTransaction(ctx, "txn_1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusProcessing, tx.Status)
		assert.Nil(t, tx.ProcessedAt)
		assert.True(t, tx.Amount.Equal(decimal.RequireFromString("10.5")))
	})

	t.Run("string amount is accepted", func(t *testing.T) {
		repo := dbrepositories.NewTransactionMemoryRepository()
		i := NewTransactionInteractor(repo, &recordingScheduler{})

		dto := webhook("txn_1")
		dto.RawAmount = []byte(`"7.25"`)
		require.NoError(t, i.Ingest(ctx, dto))

		tx, err := repo.Get(ctx, "txn_1")
		require.NoError(t, err)
		assert.True(t, tx.Amount.Equal(decimal.RequireFromString("7.25")))
	})

	t.Run("duplicate of pending transaction is scheduled again", func(t *testing.T) {
		repo := dbrepositories.NewTransactionMemoryRepository()
		scheduler := &recordingScheduler{}
		i := NewTransactionInteractor(repo, scheduler)

		require.NoError(t, i.Ingest(ctx, webhook("txn_1")))
		require.NoError(t, i.Ingest(ctx, webhook("txn_1")))

		assert.Equal(t, []string{"txn_1", "txn_1"}, scheduler.scheduled())
	})

	t.Run("duplicate of processed transaction is a no-op", func(t *testing.T) {
		repo := dbrepositories.NewTransactionMemoryRepository()
		scheduler := &recordingScheduler{}
		i := NewTransactionInteractor(repo, scheduler)

		require.NoError(t, i.Ingest(ctx, webhook("txn_1")))
		processedAt := time.Now().UTC().Truncate(time.Microsecond)
		_, err := repo.MarkProcessed(ctx, "txn_1", processedAt)
		require.NoError(t, err)

		require.NoError(t, i.Ingest(ctx, webhook("txn_1")))
		assert.Equal(t, []string{"txn_1"}, scheduler.scheduled())

		tx, err := repo.Get(ctx, "txn_1")
		require.NoError(t, err)
		require.NotNil(t, tx.ProcessedAt)
		assert.True(t, processedAt.Equal(*tx.ProcessedAt))
	})

	t.Run("concurrent deliveries create one row", func(t *testing.T) {
		repo := dbrepositories.NewTransactionMemoryRepository()
		scheduler := &recordingScheduler{}
		i := NewTransactionInteractor(repo, scheduler)

		n := 50
		errs := make(chan error, n)
		var wg sync.WaitGroup
		wg.Add(n)
		for k := 0; k < n; k++ {
			go func() {
				defer wg.Done()
				errs <- i.Ingest(ctx, webhook("txn_1"))
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			assert.NoError(t, err)
		}
		n2, err := repo.CountPendingOlderThan(ctx, time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1, n2)
		assert.Len(t, scheduler.scheduled(), n)
	})

	t.Run("missing fields are all reported and nothing is stored", func(t *testing.T) {
		repo := dbrepositories.NewTransactionMemoryRepository()
		scheduler := &recordingScheduler{}
		i := NewTransactionInteractor(repo, scheduler)

		err := i.Ingest(ctx, &dtos.WebhookDTO{TransactionID: strPtr("txn_1")})

		var validationErr *apperr.ValidationError
		require.True(t, errors.As(err, &validationErr))
		fields := make([]string, 0, len(validationErr.Fields))
		for _, f := range validationErr.Fields {
			fields = append(fields, f.Field)
		}
		assert.Equal(t, []string{"source_account", "destination_account", "amount", "currency"}, fields)

		_, err = repo.Get(ctx, "txn_1")
		assert.True(t, apperr.IsNotFound(err))
		assert.Empty(t, scheduler.scheduled())
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		i := NewTransactionInteractor(dbrepositories.NewTransactionMemoryRepository(), &recordingScheduler{})

		dto := webhook("")
		dto.RawAmount = []byte(`"ten"`)
		err := i.Ingest(ctx, dto)

		var validationErr *apperr.ValidationError
		require.True(t, errors.As(err, &validationErr))
		require.Len(t, validationErr.Fields, 2)
		assert.Equal(t, "transaction_id", validationErr.Fields[0].Field)
		assert.Equal(t, "amount", validationErr.Fields[1].Field)
		assert.Equal(t, "type_error.float", validationErr.Fields[1].Type)
	})

	t.Run("empty strings are carried as sent", func(t *testing.T) {
		repo := dbrepositories.NewTransactionMemoryRepository()
		scheduler := &recordingScheduler{}
		i := NewTransactionInteractor(repo, scheduler)

		dto := webhook(" txn_1 ")
		dto.SourceAccount = strPtr("")
		dto.DestinationAccount = strPtr("  ")
		dto.Currency = strPtr("")
		require.NoError(t, i.Ingest(ctx, dto))

		tx, err := repo.Get(ctx, " txn_1 ")
		require.NoError(t, err)
		assert.Equal(t, "", tx.SourceAccount)
		assert.Equal(t, "  ", tx.DestinationAccount)
		assert.Equal(t, "", tx.Currency)
		assert.Equal(t, []string{" txn_1 "}, scheduler.scheduled())
	})

	t.Run("out of range amounts are rejected", func(t *testing.T) {
		for _, raw := range []string{
			`1e100000000`,
			`"1e100000000"`,
			`-1e400`,
			`0e100000000`,
			`1e-100000000`,
			`"NaN"`,
			`"Infinity"`,
			`"0x1p3"`,
			`true`,
		} {
			raw := raw
			t.Run(raw, func(t *testing.T) {
				repo := dbrepositories.NewTransactionMemoryRepository()
				i := NewTransactionInteractor(repo, &recordingScheduler{})

				dto := webhook("txn_1")
				dto.RawAmount = []byte(raw)

				done := make(chan error, 1)
				go func() { done <- i.Ingest(ctx, dto) }()

				var err error
				select {
				case err = <-done:
				case <-time.After(time.Second):
					t.Fatalf("amount %s was not rejected in time", raw)
				}

				var validationErr *apperr.ValidationError
				require.True(t, errors.As(err, &validationErr))
				require.Len(t, validationErr.Fields, 1)
				assert.Equal(t, "amount", validationErr.Fields[0].Field)
				assert.Equal(t, "type_error.float", validationErr.Fields[0].Type)

				_, err = repo.Get(ctx, "txn_1")
				assert.True(t, apperr.IsNotFound(err))
			})
		}
	})

	t.Run("large but valid amounts keep their digits", func(t *testing.T) {
		repo := dbrepositories.NewTransactionMemoryRepository()
		i := NewTransactionInteractor(repo, &recordingScheduler{})

		dto := webhook("txn_1")
		dto.RawAmount = []byte(`123456789012345678901234567890.0123456789`)
		require.NoError(t, i.Ingest(ctx, dto))

		tx, err := repo.Get(ctx, "txn_1")
		require.NoError(t, err)
		assert.Equal(t, "123456789012345678901234567890.0123456789", tx.Amount.String())
	})

	t.Run("null amount counts as missing", func(t *testing.T) {
		i := NewTransactionInteractor(dbrepositories.NewTransactionMemoryRepository(), &recordingScheduler{})

		dto := webhook("txn_1")
		dto.RawAmount = []byte("null")
		err := i.Ingest(ctx, dto)

		var validationErr *apperr.ValidationError
		require.True(t, errors.As(err, &validationErr))
		assert.Equal(t, "value_error.missing", validationErr.Fields[0].Type)
	})

	t.Run("store failure is returned", func(t *testing.T) {
		repo := &faultyRepository{
			TransactionMemoryRepository: dbrepositories.NewTransactionMemoryRepository(),
			failCreate:                  true,
		}
		scheduler := &recordingScheduler{}
		i := NewTransactionInteractor(repo, scheduler)

		err := i.Ingest(ctx, webhook("txn_1"))
		assert.ErrorIs(t, err, errStoreDown)
		assert.Empty(t, scheduler.scheduled())
	})

	t.Run("scheduling failure still accepts the delivery", func(t *testing.T) {
		repo := dbrepositories.NewTransactionMemoryRepository()
		i := NewTransactionInteractor(repo, &recordingScheduler{err: errors.New("pool closed")})

		require.NoError(t, i.Ingest(ctx, webhook("txn_1")))
		_, err := repo.Get(ctx, "txn_1")
		assert.NoError(t, err)
	})
}
