package models

import (
	"github.com/shopspring/decimal"
	"time"
)

// TransactionProcessed is emitted after a transaction is marked PROCESSED.
type TransactionProcessed struct {
	TransactionID      string          `json:"transaction_id"`
	SourceAccount      string          `json:"source_account"`
	DestinationAccount string          `json:"destination_account"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	ProcessedAt        time.Time       `json:"processed_at"`
}
