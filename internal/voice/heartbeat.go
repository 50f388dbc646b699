package voice

import (
	"sync"
	"time"
)

// heartbeater runs at most one periodic heartbeat loop. Starting it again
// replaces the running loop; the old loop has exited before Start returns.
// The loop also ends on its own once beat returns false.
type heartbeater struct {
	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func (h *heartbeater) Start(interval time.Duration, beat func() bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.stopLocked()

	stop := make(chan struct{})
	done := make(chan struct{})
	h.stop, h.done = stop, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if !beat() {
					return
				}
			}
		}
	}()
}

// Stop ends the loop and waits for it. It is a no-op when nothing runs.
func (h *heartbeater) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopLocked()
}

func (h *heartbeater) stopLocked() {
	if h.stop == nil {
		return
	}
	close(h.stop)
	<-h.done
	h.stop, h.done = nil, nil
}

func (h *heartbeater) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done == nil {
		return false
	}
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}
