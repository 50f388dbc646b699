package voice

import (
	"log/slog"
	"sync"

	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
)

// workers runs the blocking work triggered from websocket and gateway
// callbacks so those callbacks return immediately.
type workers struct {
	mu     sync.Mutex
	pool   *pool.Pool
	closed bool
}

func newWorkers() *workers {
	return &workers{pool: pool.New()}
}

// Go runs task on the pool. It reports false once the pool is closed.
func (w *workers) Go(name string, task func()) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		slog.Debug("voice workers closed, dropping task", "task", name)
		return false
	}
	w.pool.Go(func() {
		if recovered := panics.Try(task); recovered != nil {
			slog.Error("voice task panicked", "task", name, "error", recovered.AsError())
		}
	})
	return true
}

// Close rejects new tasks and waits for the running ones.
func (w *workers) Close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.pool.Wait()
}
