package handlers

import (
	"github.com/mufasadev/transaction-webhooks/internal/usecases/dtos"
	"net/http"
	"time"
)

type HealthHandler struct {
	now func() time.Time
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{now: time.Now}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	writeJSON(w, http.StatusOK, dtos.HealthResponse{
		Status:      "HEALTHY",
		CurrentTime: *dtos.FormatTimestamp(&now),
	})
}
