package element

import (
	"sync"
	"time"
)

// Waiter is a one-shot future for the next emission of a signal. Deliver and
// Cancel may race from any goroutine; the first one to run settles the
// waiter and the rest are no-ops.
type Waiter struct {
	done   chan struct{}
	once   sync.Once
	result *Callback
}

// NewWaiter creates an unsettled waiter
func NewWaiter() *Waiter {
	return &Waiter{done: make(chan struct{})}
}

// Deliver settles the waiter with cb. It reports whether this call won.
func (w *Waiter) Deliver(cb *Callback) bool {
	won := false
	w.once.Do(func() {
		w.result = cb
		won = true
		close(w.done)
	})
	return won
}

// Cancel settles the waiter with no result. It reports whether this call won.
func (w *Waiter) Cancel() bool {
	won := false
	w.once.Do(func() {
		won = true
		close(w.done)
	})
	return won
}

// Done is closed once the waiter is settled
func (w *Waiter) Done() <-chan struct{} { return w.done }

// Wait blocks until the waiter settles or timeout elapses. A negative
// timeout waits forever and zero only checks for a pending result. It
// returns nil when the wait timed out or was cancelled.
func (w *Waiter) Wait(timeout time.Duration) *Callback {
	switch {
	case timeout < 0:
		<-w.done
	case timeout == 0:
		select {
		case <-w.done:
		default:
			return nil
		}
	default:
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-w.done:
		case <-timer.C:
			return nil
		}
	}
	return w.result
}
