package app

import (
	"context"
	"time"
)

const stalePendingCheckTimeout = 5 * time.Second

type StalePendingHandler interface {
	Execute(ctx context.Context) error
}

type StalePendingProcess struct {
	handler  StalePendingHandler
	interval time.Duration
}

func NewStalePendingProcess(h StalePendingHandler, interval time.Duration) *StalePendingProcess {
	return &StalePendingProcess{handler: h, interval: interval}
}

// Run calls the handler every interval until ctx is cancelled.
func (p *StalePendingProcess) Run(ctx context.Context) {
	if p.interval <= 0 {
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, stalePendingCheckTimeout)
			// the handler logs its own failures
			_ = p.handler.Execute(runCtx)
			cancel()
		}
	}
}
