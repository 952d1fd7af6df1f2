// Package local is an in-process media engine. Pipelines are built from
// launch descriptions such as
//
//	identity-source num-buffers=100 ! identity silent=false ! identity-sink
//
// and stream simulated buffers on their own goroutines while PLAYING.
package local

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"gstd/pkg/engine"
)

// Option configures an Engine.
type Option func(*Engine)

// WithDefaultThreshold sets the debug level used for categories without
// an explicit rule
func WithDefaultThreshold(level int) Option {
	return func(e *Engine) { e.debug.defaultLevel = level }
}

// WithLogger routes debug output to logger instead of the default logger
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.debug.logger = logger }
}

// Engine implements engine.Engine in process.
type Engine struct {
	mu       sync.Mutex
	counters map[string]int

	debug  *Debug
	hook   atomic.Pointer[engine.BufferHook]
	seqnum atomic.Uint32
}

// New creates an engine
func New(opts ...Option) *Engine {
	e := &Engine{
		counters: make(map[string]int),
		debug:    newDebug(LevelError, nil),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) uniqueName(prefix string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := e.counters[prefix]
	e.counters[prefix] = n + 1
	return prefix + strconv.Itoa(n)
}

// ParseLaunch builds the elements of description. A single element or
// bin is returned as is; anything else is placed in a new pipeline.
func (e *Engine) ParseLaunch(description string) (engine.Element, error) {
	tokens, err := tokenize(description)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: empty description", engine.ErrBadDescription)
	}
	p := &launchParser{eng: e, tokens: tokens}
	items, err := p.parseChains(false)
	if err != nil {
		return nil, err
	}
	if len(items) == 1 {
		return items[0], nil
	}
	pipe := newPipeline(e, e.uniqueName("pipeline"))
	for _, item := range items {
		if err := pipe.add(item); err != nil {
			return nil, err
		}
	}
	e.debug.log("pipeline", LevelDebug, "Parsed description", "pipeline", pipe.Name(), "description", description)
	return pipe, nil
}

// NewPipeline creates an empty pipeline
func (e *Engine) NewPipeline(name string) engine.Pipeline {
	return newPipeline(e, name)
}

// Wrap returns a pipeline called name holding element. A pipeline is
// renamed and returned unchanged.
func (e *Engine) Wrap(name string, element engine.Element) (engine.Pipeline, error) {
	if p, ok := element.(*Pipeline); ok {
		p.rename(name)
		return p, nil
	}
	if elementOf(element) == nil {
		return nil, fmt.Errorf("%w: %T was not built by this engine", engine.ErrBadDescription, element)
	}
	pipe := newPipeline(e, name)
	if err := pipe.add(element); err != nil {
		return nil, err
	}
	return pipe, nil
}

// Debug returns the category logger
func (e *Engine) Debug() engine.Debug { return e.debug }

// SetBufferHook installs hook for every element of every pipeline. A nil
// hook disables observation.
func (e *Engine) SetBufferHook(hook engine.BufferHook) {
	if hook == nil {
		e.hook.Store(nil)
		return
	}
	e.hook.Store(&hook)
}

func (e *Engine) bufferHook() engine.BufferHook {
	if h := e.hook.Load(); h != nil {
		return *h
	}
	return nil
}
