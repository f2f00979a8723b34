package models

import (
	"github.com/shopspring/decimal"
	"time"
)

type Status string

const (
	// StatusProcessing is the pending state every transaction starts in.
	StatusProcessing Status = "PROCESSING"
	StatusProcessed  Status = "PROCESSED"
)

type Transaction struct {
	TransactionID      string          `db:"transaction_id"`
	SourceAccount      string          `db:"source_account"`
	DestinationAccount string          `db:"destination_account"`
	Amount             decimal.Decimal `db:"amount"`
	Currency           string          `db:"currency"`
	Status             Status          `db:"status"`
	CreatedAt          time.Time       `db:"created_at"`
	ProcessedAt        *time.Time      `db:"processed_at"`
	Attempts           int             `db:"attempts"`
	LastError          *string         `db:"last_error"`
}

// IsProcessed reports whether the completion step already finished.
func (t *Transaction) IsProcessed() bool {
	return t.Status == StatusProcessed
}
