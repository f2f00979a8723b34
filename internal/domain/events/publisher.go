package events

import (
	"context"
	"github.com/mufasadev/transaction-webhooks/internal/domain/models"
)

type Publisher interface {
	PublishTransactionProcessed(ctx context.Context, event models.TransactionProcessed) error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishTransactionProcessed(context.Context, models.TransactionProcessed) error {
	return nil
}
