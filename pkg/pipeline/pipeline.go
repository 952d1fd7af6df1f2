// Package pipeline exposes engine pipelines as resource nodes: the
// pipeline itself, its elements, state, event handler and bus, and the
// strategies the pipelines list uses to build and tear them down.
package pipeline

import (
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"gstd/pkg/core"
	"gstd/pkg/element"
	"gstd/pkg/engine"
	"gstd/pkg/property"
)

// Options configure the nodes of a new pipeline.
type Options struct {
	// SignalTimeout is the initial callback timeout of every signal, in
	// microseconds. -1 waits forever.
	SignalTimeout int64
	// BusTimeout is the initial bus read timeout. Negative waits forever.
	BusTimeout time.Duration
	Hooks      Hooks
}

// DefaultOptions returns options that wait forever on signals and the bus
func DefaultOptions() Options {
	return Options{SignalTimeout: -1, BusTimeout: -1}
}

// Hooks observe pipeline activity. Any field may be nil.
type Hooks struct {
	// Deleted runs after the pipelines list tore a pipeline down.
	Deleted func(name string)
	// Message sees every bus message handed to a client.
	Message func(pipeline string, msg *engine.Message)
}

// Pipeline is the node of one engine pipeline. Its creation refcount guards
// deletion: the pipelines list only tears it down on the last release.
type Pipeline struct {
	core.Base
	core.Refcount

	description string
	engine      engine.Pipeline
	elements    *core.List
	state       *State
	event       *Event
	bus         *Bus
	hooks       Hooks
	closed      atomic.Bool
}

// New builds the node tree of an engine pipeline called name. The node holds
// one creation reference.
func New(name, description string, p engine.Pipeline, opts Options) *Pipeline {
	pl := &Pipeline{
		description: description,
		engine:      p,
		elements:    core.NewList("elements", core.AccessRead, core.NoCreator{}, core.NoDeleter{}),
		hooks:       opts.Hooks,
	}
	pl.Ref()
	fillElements(pl.elements, "", p.Elements(), opts.SignalTimeout)

	pl.state = NewState(p)
	pl.event = NewEvent(p)
	pl.bus = NewBus(name, p.Bus(), opts.BusTimeout, opts.Hooks.Message)

	attrs := core.NewAttrSet(name)
	attrs.Add(core.StringSpec("name", "The name of the pipeline", engine.ParamReadable),
		func() any { return name }, nil)
	attrs.Add(core.StringSpec("description", "The gst-launch like pipeline description", engine.ParamReadable),
		func() any { return description }, nil)
	attrs.Add(core.ObjectSpec("elements", "The elements in the pipeline", "GstdList"),
		func() any { return pl.elements }, nil)
	attrs.Add(core.ObjectSpec("bus", "The pipeline bus", "GstdPipelineBus"),
		func() any { return pl.bus }, nil)
	attrs.Add(core.ObjectSpec("state", "The state of the pipeline", "GstdState"),
		func() any { return pl.state }, nil)
	attrs.Add(core.ObjectSpec("event", "The event handler of the pipeline", "GstdEventHandler"),
		func() any { return pl.event }, nil)
	attrs.Add(core.Int64Spec("position", "The current position of the pipeline in nanoseconds", -1, math.MaxInt64, engine.ParamReadable),
		func() any { return query(p.QueryPosition) }, nil)
	attrs.Add(core.Int64Spec("duration", "The duration of the media stream in nanoseconds", -1, math.MaxInt64, engine.ParamReadable),
		func() any { return query(p.QueryDuration) }, nil)
	attrs.Add(core.StringSpec("graph", "The pipeline graph in DOT format", engine.ParamReadable),
		func() any { return p.Graph() }, nil)
	attrs.Add(core.BoolSpec("verbose", "Post a message for every property change", engine.ParamReadWrite),
		func() any { return p.Verbose() },
		func(v any) error {
			p.SetVerbose(v.(bool))
			return nil
		})
	attrs.Add(core.IntSpec("refcount", "The number of holders keeping the pipeline alive", 0, math.MaxInt32, engine.ParamReadable),
		func() any { return int64(pl.Count()) }, nil)
	pl.Base = core.NewBase(name, attrs, property.DefaultReader)
	return pl
}

func query(fn func() (int64, bool)) int64 {
	if v, ok := fn(); ok {
		return v
	}
	return engine.ClockTimeNone
}

// fillElements appends a node for every element, descending into bins.
// Nested elements are named "bin::element".
func fillElements(list *core.List, prefix string, elements []engine.Element, signalTimeout int64) {
	for _, el := range elements {
		name := prefix + el.Name()
		if code := list.Append(element.NewNamed(name, el, signalTimeout)); code != core.EOK {
			slog.Warn("Skipping element", "element", name, "code", code)
			continue
		}
		if bin, ok := el.(engine.Bin); ok {
			fillElements(list, name+property.ChildSeparator, bin.Elements(), signalTimeout)
		}
	}
}

// Description returns the launch description the pipeline was built from
func (p *Pipeline) Description() string { return p.description }

// Engine returns the engine pipeline
func (p *Pipeline) Engine() engine.Pipeline { return p.engine }

// Elements returns the element list
func (p *Pipeline) Elements() *core.List { return p.elements }

// State returns the state node
func (p *Pipeline) State() *State { return p.state }

// Event returns the event node
func (p *Pipeline) Event() *Event { return p.event }

// Bus returns the bus node
func (p *Pipeline) Bus() *Bus { return p.bus }

// Close forces the pipeline to NULL, wakes every pending signal and bus
// wait and releases the engine pipeline. Only the first call has an effect.
func (p *Pipeline) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := p.engine.SetState(engine.StateNull); err != nil {
		slog.Warn("Failed to stop pipeline", "pipeline", p.Name(), "err", err)
	}
	for _, n := range p.elements.Children() {
		if e, ok := n.(*element.Element); ok {
			_ = e.Close()
		}
	}
	p.engine.Bus().Close()
	return p.engine.Close()
}
