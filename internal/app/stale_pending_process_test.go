package app

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingHandler struct {
	calls    int32
	deadline int32
}

func (h *countingHandler) Execute(ctx context.Context) error {
	atomic.AddInt32(&h.calls, 1)
	if _, ok := ctx.Deadline(); ok {
		atomic.AddInt32(&h.deadline, 1)
	}
	return nil
}

func TestStalePendingProcess_Run(t *testing.T) {
	t.Run("runs every interval until cancelled", func(t *testing.T) {
		h := &countingHandler{}
		p := NewStalePendingProcess(h, 10*time.Millisecond)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			p.Run(ctx)
			close(done)
		}()

		assert.Eventually(t, func() bool { return atomic.LoadInt32(&h.calls) >= 3 }, time.Second, 5*time.Millisecond)
		cancel()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Run did not stop after cancel")
		}
		assert.Equal(t, atomic.LoadInt32(&h.calls), atomic.LoadInt32(&h.deadline))
	})

	t.Run("disabled interval returns at once", func(t *testing.T) {
		h := &countingHandler{}
		p := NewStalePendingProcess(h, 0)

		p.Run(context.Background())
		assert.Zero(t, atomic.LoadInt32(&h.calls))
	})
}
