package repositories

import (
	"github.com/mufasadev/transaction-webhooks/internal/domain/models"
	"time"
)

// newRow is the record every store writes on creation: pending, no
// attempts, created_at in UTC at microsecond precision so every backend
// reads back the same instant.
func newRow(tx *models.Transaction) models.Transaction {
	row := *tx
	row.Status = models.StatusProcessing
	row.ProcessedAt = nil
	row.Attempts = 0
	row.LastError = nil
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	row.CreatedAt = row.CreatedAt.UTC().Truncate(time.Microsecond)
	return row
}

// clone copies tx so callers never share pointer fields with a store.
func clone(tx models.Transaction) models.Transaction {
	if tx.ProcessedAt != nil {
		p := *tx.ProcessedAt
		tx.ProcessedAt = &p
	}
	if tx.LastError != nil {
		e := *tx.LastError
		tx.LastError = &e
	}
	return tx
}
