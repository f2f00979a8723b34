package app

import (
	"context"
	"fmt"
	"github.com/mufasadev/transaction-webhooks/internal/config"
	"github.com/mufasadev/transaction-webhooks/internal/errors"
	"github.com/mufasadev/transaction-webhooks/pkg/log"
	"github.com/rs/zerolog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// ShutdownHook releases a resource once the server stopped taking requests.
type ShutdownHook struct {
	Name string
	Fn   func(ctx context.Context) error
}

type Service struct {
	config *config.Config
	logger *zerolog.Logger
	hooks  []ShutdownHook
}

// NewService creates a new instance of the service
func NewService(cfg *config.Config) *Service {
	l := log.GetLogger()
	return &Service{config: cfg, logger: &l}
}

// OnShutdown registers hooks that run, in order, after the HTTP server
// has drained.
func (s *Service) OnShutdown(hooks ...ShutdownHook) {
	s.hooks = append(s.hooks, hooks...)
}

// Run starts the server and listens for incoming requests
func (s *Service) Run(ctx context.Context, handler http.Handler) {
	server := &http.Server{
		Addr:              s.config.Server.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal().Err(err).Msg(errors.ErrorFailedToRunTheServer)
		}
	}()

	s.logger.Info().Msg(fmt.Sprintf("Server is listening on %s", s.config.Server.Addr()))
	done := make(chan struct{})
	go s.shutdown(ctx, server, done)
	<-done
}

// shutdown gracefully shuts down the server without interrupting any active
// connections, then runs the shutdown hooks within the same deadline.
func (s *Service) shutdown(ctx context.Context, server *http.Server, done chan struct{}) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		s.logger.Info().Msg("Server is shutting down due to context cancellation...")
	case <-quit:
		s.logger.Info().Msg("Server is shutting down...")
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeoutDuration())
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		s.logger.Error().Err(err).Msg(errors.ErrorFailedToShutdownTheServer)
	}

	for _, hook := range s.hooks {
		if err := hook.Fn(ctxShutdown); err != nil {
			s.logger.Error().Err(err).Str("hook", hook.Name).Msg(errors.ErrorFailedToRunShutdownHook)
		}
	}

	s.logger.Info().Msg("Server stopped")
	close(done)
}
