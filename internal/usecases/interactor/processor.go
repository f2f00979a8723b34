package interactor

import (
	"context"
	"github.com/mufasadev/transaction-webhooks/internal/domain/models"
	"time"
)

// Processor is the external processing step a transaction goes through
// before it can be marked PROCESSED.
type Processor interface {
	Process(ctx context.Context, transaction models.Transaction) error
}

// SimulatedProcessor stands in for the external system: it only waits.
type SimulatedProcessor struct {
	Delay time.Duration
}

func NewSimulatedProcessor(delay time.Duration) *SimulatedProcessor {
	return &SimulatedProcessor{Delay: delay}
}

// Process waits Delay, or returns ctx.Err() if ctx ends first.
func (p *SimulatedProcessor) Process(ctx context.Context, _ models.Transaction) error {
	timer := time.NewTimer(p.Delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
