package element

import (
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"gstd/pkg/core"
	"gstd/pkg/engine"
	"gstd/pkg/property"
)

// Signal exposes one signal of an element. Reading "callback" blocks until
// the next emission, reading "disconnect" wakes every pending reader.
type Signal struct {
	core.Base

	emitter engine.Emitter
	spec    *engine.SignalSpec
	timeout atomic.Int64 // microseconds

	mu      sync.Mutex
	waiters map[*Waiter]struct{}
}

// NewSignal creates the node for spec. timeout is the initial wait bound in
// microseconds, -1 meaning forever.
func NewSignal(emitter engine.Emitter, spec *engine.SignalSpec, timeout int64) *Signal {
	s := &Signal{emitter: emitter, spec: spec, waiters: make(map[*Waiter]struct{})}
	s.timeout.Store(timeout)

	attrs := core.NewAttrSet(spec.Name)
	attrs.Add(core.ObjectSpec("callback", "Wait for the next emission of the signal", "GstdCallback"),
		func() any { return nil }, nil)
	attrs.Add(core.Int64Spec("timeout", "Microseconds to wait for the signal, -1 waits forever", -1, math.MaxInt64, engine.ParamReadWrite),
		func() any { return s.timeout.Load() },
		func(v any) error {
			s.timeout.Store(v.(int64))
			return nil
		})
	attrs.Add(core.BoolSpec("disconnect", "Wake every pending callback read", engine.ParamReadable),
		func() any { return false }, nil)
	s.Base = core.NewBase(spec.Name, attrs, property.DefaultReader)
	return s
}

// Read waits for the signal on "callback" and disconnects on "disconnect".
// Other names resolve the node attributes.
func (s *Signal) Read(name string) (core.Node, core.Code) {
	switch name {
	case "callback":
		cb, code := s.Wait()
		if code != core.EOK {
			return nil, s.Result(code)
		}
		return cb, s.Result(core.EOK)
	case "disconnect":
		s.Disconnect()
		spec := core.BoolSpec("disconnect", "Wake every pending callback read", engine.ParamReadable)
		return core.NewValueNode(spec, true), s.Result(core.EOK)
	}
	return s.Base.Read(name)
}

// Wait connects to the signal and blocks for at most the configured
// timeout. It returns Timeout when nothing arrived in time or the wait was
// disconnected.
func (s *Signal) Wait() (*Callback, core.Code) {
	w := NewWaiter()
	s.track(w)
	defer s.untrack(w)

	id, err := s.emitter.Connect(s.spec.Name, func(args []engine.Arg) {
		w.Deliver(NewCallback(s.spec.Name, args))
	})
	if err != nil {
		slog.Debug("Failed to connect signal", "signal", s.spec.Name, "err", err)
		return nil, core.NoConnection
	}
	defer s.emitter.Disconnect(id)

	cb := w.Wait(microseconds(s.timeout.Load()))
	if cb == nil {
		return nil, core.Timeout
	}
	return cb, core.EOK
}

// maxMicroseconds is the largest timeout that fits in a time.Duration
const maxMicroseconds = math.MaxInt64 / int64(time.Microsecond)

// microseconds converts a timeout attribute into a wait duration. Negative
// means forever; values past the Duration range are clamped.
func microseconds(us int64) time.Duration {
	switch {
	case us < 0:
		return -1
	case us > maxMicroseconds:
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(us) * time.Microsecond
}

// Disconnect cancels every pending wait on this signal
func (s *Signal) Disconnect() {
	s.mu.Lock()
	waiters := make([]*Waiter, 0, len(s.waiters))
	for w := range s.waiters {
		waiters = append(waiters, w)
	}
	s.mu.Unlock()
	for _, w := range waiters {
		w.Cancel()
	}
}

// Pending returns the number of blocked callback reads
func (s *Signal) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.waiters)
}

func (s *Signal) track(w *Waiter) {
	s.mu.Lock()
	s.waiters[w] = struct{}{}
	s.mu.Unlock()
}

func (s *Signal) untrack(w *Waiter) {
	s.mu.Lock()
	delete(s.waiters, w)
	s.mu.Unlock()
}
