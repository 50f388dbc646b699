package voice

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// correlator turns the merged stream of connection states into a single
// readiness signal. Consecutive equal states are dropped; a ready state
// arms a settle timer that a newer ready state restarts and a non-ready
// state cancels. onReady runs on the correlator's goroutine.
type correlator struct {
	settle  time.Duration
	onReady func(ConnectionState)

	in        chan correlatorInput
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

type correlatorInput struct {
	state ConnectionState
	reset bool
}

const correlatorBuffer = 16

func newCorrelator(settle time.Duration, onReady func(ConnectionState)) *correlator {
	c := &correlator{
		settle:  settle,
		onReady: onReady,
		in:      make(chan correlatorInput, correlatorBuffer),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go c.run()
	return c
}

// Post hands a new state to the correlator. It blocks while the buffer is
// full.
func (c *correlator) Post(ctx context.Context, state ConnectionState) error {
	return c.send(ctx, correlatorInput{state: state})
}

// Reset forgets the last seen state and any pending readiness, so the next
// state is never treated as a duplicate.
func (c *correlator) Reset(ctx context.Context) error {
	return c.send(ctx, correlatorInput{reset: true})
}

func (c *correlator) send(ctx context.Context, in correlatorInput) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}
	select {
	case c.in <- in:
		return nil
	case <-c.done:
		return ErrClientClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the correlator and waits for its goroutine to exit.
// A pending readiness signal is discarded.
func (c *correlator) Close() {
	c.closeOnce.Do(func() { close(c.done) })
	<-c.stopped
}

func (c *correlator) run() {
	defer close(c.stopped)

	var (
		last    *ConnectionState
		pending ConnectionState
		timer   *time.Timer
		fire    <-chan time.Time
	)
	disarm := func() {
		if timer != nil {
			timer.Stop()
		}
		fire = nil
	}
	defer disarm()

	for {
		select {
		case <-c.done:
			return

		case in := <-c.in:
			if in.reset {
				last = nil
				disarm()
				continue
			}
			if last != nil && last.Equal(in.state) {
				continue
			}
			state := in.state
			last = &state

			if !state.IsReadyToConnect() {
				if fire != nil {
					slog.Debug("connection state no longer ready, cancelling pending connect", "state", state)
				}
				disarm()
				continue
			}

			pending = state
			disarm()
			timer = time.NewTimer(c.settle)
			fire = timer.C

		case <-fire:
			fire = nil
			slog.Debug("connection state settled", "state", pending)
			c.onReady(pending)
		}
	}
}
