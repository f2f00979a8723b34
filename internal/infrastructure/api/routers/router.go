package routers

import (
	"fmt"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mufasadev/transaction-webhooks/internal/di"
	http2 "github.com/mufasadev/transaction-webhooks/internal/infrastructure/api/http"
	"github.com/mufasadev/transaction-webhooks/internal/infrastructure/api/middlewares"
)

func NewRouter(container *di.Container) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewares.RequestLogger)
	router.Use(middleware.Recoverer)

	router.Get("/", container.HealthHandler.Health)

	// Set up v1 routes with a path prefix
	router.Route("/v1", func(r chi.Router) {
		th := container.TransactionHandler
		r.Post("/webhooks/transactions", th.ReceiveWebhook)
		r.Get(fmt.Sprintf("/transactions/{%s}", http2.TransactionIDParam), th.GetTransaction)
	})

	return router
}
