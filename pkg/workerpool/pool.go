// Package workerpool runs fire-and-forget tasks in their own goroutines
// with a recover boundary and a shared cancellation context.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"github.com/rs/zerolog"
	"runtime/debug"
	"sync"
)

var ErrPoolClosed = errors.New("worker pool is closed")

// Task is a unit of background work. Its ctx is cancelled on Shutdown.
type Task func(ctx context.Context) error

type Pool struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func New(logger zerolog.Logger) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{ctx: ctx, cancel: cancel, logger: &logger}
}

// Submit starts task in the background and returns without waiting.
// Errors and panics from the task are logged, never propagated.
func (p *Pool) Submit(name string, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	p.wg.Add(1)
	go p.run(name, task)
	return nil
}

func (p *Pool) run(name string, task Task) {
	defer p.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().
				Str("task", name).
				Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).
				Msg("background task panicked")
		}
	}()

	if err := task(p.ctx); err != nil {
		p.logger.Error().Err(err).Str("task", name).Msg("background task failed")
	}
}

// Shutdown stops accepting tasks, cancels the running ones and waits for
// them until ctx expires.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for background tasks: %w", ctx.Err())
	}
}
