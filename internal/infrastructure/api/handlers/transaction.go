package handlers

import (
	"context"
	"encoding/json"
	"github.com/go-chi/chi/v5"
	"github.com/mufasadev/transaction-webhooks/internal/domain/models"
	"github.com/mufasadev/transaction-webhooks/internal/errors"
	http2 "github.com/mufasadev/transaction-webhooks/internal/infrastructure/api/http"
	"github.com/mufasadev/transaction-webhooks/internal/usecases/dtos"
	"github.com/mufasadev/transaction-webhooks/pkg/log"
	"github.com/rs/zerolog"
	"net/http"
	"time"
)

const requestTimeout = 5 * time.Second

// TransactionService is what the handler needs from the controller.
type TransactionService interface {
	Ingest(ctx context.Context, dto *dtos.WebhookDTO) error
	GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error)
}

type TransactionHandler struct {
	interactor TransactionService
	logger     *zerolog.Logger
}

func NewTransactionHandler(interactor TransactionService) *TransactionHandler {
	logger := log.GetLogger()
	return &TransactionHandler{interactor: interactor, logger: &logger}
}

// ReceiveWebhook answers 202 with an empty object for new and repeated
// deliveries alike; completion happens in the background.
func (h *TransactionHandler) ReceiveWebhook(w http.ResponseWriter, r *http.Request) {
	var dto dtos.WebhookDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.logger.Error().Err(err).Msg(errors.ErrFailedDecodeRequestBody)
		errors.HandleHTTPError(w, errors.NewValidationError(
			errors.InvalidField("", "invalid JSON body", "value_error.jsondecode")))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.interactor.Ingest(ctx, &dto); err != nil {
		h.logger.Error().Err(err).Msg(errors.ErrFailedIngestTransaction)
		errors.HandleHTTPError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, struct{}{})
}

func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, http2.TransactionIDParam)

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	tx, err := h.interactor.GetTransaction(ctx, transactionID)
	if err != nil {
		if !errors.IsNotFound(err) {
			h.logger.Error().Err(err).Str("transaction_id", transactionID).Msg(errors.ErrFailedGetTransaction)
		}
		errors.HandleHTTPError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dtos.NewTransactionResponse(tx))
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
