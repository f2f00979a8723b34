package dtos

import (
	"encoding/json"
	"github.com/mufasadev/transaction-webhooks/internal/domain/models"
	"time"
)

// TimestampFormat renders UTC instants with microseconds and a Z suffix.
const TimestampFormat = "2006-01-02T15:04:05.000000Z"

// WebhookDTO is the inbound transaction webhook. Pointers tell a missing
// field apart from an empty one; the amount stays raw until validated.
type WebhookDTO struct {
	TransactionID      *string         `json:"transaction_id"`
	SourceAccount      *string         `json:"source_account"`
	DestinationAccount *string         `json:"destination_account"`
	RawAmount          json.RawMessage `json:"amount"`
	Currency           *string         `json:"currency"`
}

type TransactionResponse struct {
	TransactionID      string      `json:"transaction_id"`
	SourceAccount      string      `json:"source_account"`
	DestinationAccount string      `json:"destination_account"`
	Amount             json.Number `json:"amount"`
	Currency           string      `json:"currency"`
	Status             string      `json:"status"`
	CreatedAt          *string     `json:"created_at"`
	ProcessedAt        *string     `json:"processed_at"`
	Attempts           int         `json:"attempts"`
	LastError          *string     `json:"last_error"`
}

func NewTransactionResponse(tx *models.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionID:      tx.TransactionID,
		SourceAccount:      tx.SourceAccount,
		DestinationAccount: tx.DestinationAccount,
		Amount:             json.Number(tx.Amount.String()),
		Currency:           tx.Currency,
		Status:             string(tx.Status),
		CreatedAt:          FormatTimestamp(&tx.CreatedAt),
		ProcessedAt:        FormatTimestamp(tx.ProcessedAt),
		Attempts:           tx.Attempts,
		LastError:          tx.LastError,
	}
}

type HealthResponse struct {
	Status      string `json:"status"`
	CurrentTime string `json:"current_time"`
}

// FormatTimestamp returns nil for a nil or zero time.
func FormatTimestamp(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := t.UTC().Format(TimestampFormat)
	return &s
}
