package local

import (
	"sync"
	"time"

	"gstd/pkg/engine"
)

// maxQueued bounds the bus backlog; the oldest message is dropped first
const maxQueued = 4096

// Bus is the message queue of one pipeline.
type Bus struct {
	mu         sync.Mutex
	queue      []*engine.Message
	wake       chan struct{}
	flushUntil time.Time
	flushing   bool
	closed     bool
	done       chan struct{}
}

func newBus() *Bus {
	return &Bus{wake: make(chan struct{}), done: make(chan struct{})}
}

// Post queues msg and wakes every waiting reader
func (b *Bus) Post(msg *engine.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	if b.flushing && time.Now().Before(b.flushUntil) {
		return
	}
	b.flushing = false
	if len(b.queue) >= maxQueued {
		b.queue = b.queue[1:]
	}
	b.queue = append(b.queue, msg)
	close(b.wake)
	b.wake = make(chan struct{})
}

// TimedPopFiltered returns the first queued message matching types, waiting
// up to timeout for one to arrive. Messages that do not match are dropped.
// A negative timeout waits forever and a zero timeout never blocks. A
// closed bus returns nil.
func (b *Bus) TimedPopFiltered(timeout time.Duration, types engine.MessageType) *engine.Message {
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}
	for {
		b.mu.Lock()
		if b.closed {
			b.mu.Unlock()
			return nil
		}
		for len(b.queue) > 0 {
			msg := b.queue[0]
			b.queue = b.queue[1:]
			if msg.Type&types != 0 {
				b.mu.Unlock()
				return msg
			}
		}
		wake := b.wake
		b.mu.Unlock()

		if timeout == 0 {
			return nil
		}
		select {
		case <-wake:
		case <-b.done:
			return nil
		case <-deadline:
			return nil
		}
	}
}

// Flush drops the backlog and discards messages posted during d
func (b *Bus) Flush(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue = nil
	if d > 0 {
		b.flushing = true
		b.flushUntil = time.Now().Add(d)
	}
}

// Close drops the backlog and wakes every waiting reader
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.queue = nil
	close(b.done)
}

// Len returns the number of queued messages
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}
