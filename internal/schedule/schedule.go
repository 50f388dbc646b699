package schedule

import (
	"context"
	"time"
)

// RunAt executes fn on its own goroutine at runAt. fn receives a context
// that is cancelled when ctx is done or the returned function is called.
// A time in the past runs fn immediately.
func RunAt(ctx context.Context, runAt time.Time, execute func(ctx context.Context)) context.CancelFunc {
	return RunAfter(ctx, time.Until(runAt), execute)
}

// RunAfter executes fn on its own goroutine once delay has elapsed.
func RunAfter(ctx context.Context, delay time.Duration, execute func(ctx context.Context)) context.CancelFunc {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		if delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
		}
		if ctx.Err() != nil {
			return
		}
		execute(ctx)
	}()
	return cancel
}
