package repeat

import (
	"context"
	"time"
)

// Repeat calls f until it succeeds or attempts run out, sleeping delay
// between tries. The last error is returned.
func Repeat(f func() error, attempts int, delay time.Duration) error {
	return RepeatContext(context.Background(), func(context.Context) error { return f() }, attempts, delay)
}

// RepeatContext is Repeat that stops early once ctx is done.
func RepeatContext(ctx context.Context, f func(ctx context.Context) error, attempts int, delay time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = f(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return err
}
