package local

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gstd/pkg/engine"
)

// Pipeline is a top-level bin owning a bus and a play state.
type Pipeline struct {
	*Bin

	bus  *Bus
	base time.Time

	stateMu sync.Mutex
	state   engine.State
	closed  bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	verbose  atomic.Bool
	position atomic.Int64
	active   atomic.Int32
}

func newPipeline(eng *Engine, name string) *Pipeline {
	p := &Pipeline{
		Bin:   newBin(eng, name),
		bus:   newBus(),
		base:  time.Now(),
		state: engine.StateNull,
	}
	p.factory = "pipeline"
	return p
}

func (p *Pipeline) add(child engine.Element) error {
	if err := p.Bin.add(child); err != nil {
		return err
	}
	p.attach(child, "")
	return nil
}

// attach routes property changes below el to the bus
func (p *Pipeline) attach(el engine.Element, prefix string) {
	e := elementOf(el)
	path := prefix + "/" + e.Name()
	e.properties.setNotify(func(owner string, spec *engine.ParamSpec, value any) {
		p.notifyProperty(prefix+"/"+owner, spec, value)
	})
	for _, o := range e.ChildObjects() {
		if pd, ok := o.(*pad); ok {
			pd.setNotify(func(owner string, spec *engine.ParamSpec, value any) {
				p.notifyProperty(path+"/"+owner, spec, value)
			})
		}
	}
	if b, ok := el.(*Bin); ok {
		for _, c := range b.Elements() {
			p.attach(c, path)
		}
	}
}

func (p *Pipeline) notifyProperty(object string, spec *engine.ParamSpec, value any) {
	p.eng.debug.log(p.factory, LevelDebug, "Property changed", "object", object, "property", spec.Name)
	if !p.verbose.Load() {
		return
	}
	object = "/" + p.Name() + object
	p.post(engine.MessagePropertyNotify, object,
		engine.Field{Name: "object-name", Value: object},
		engine.Field{Name: "property-name", Value: spec.Name},
		engine.Field{Name: "message", Value: fmt.Sprintf("%s: %s = %v", object, spec.Name, value)},
	)
}

func (p *Pipeline) post(t engine.MessageType, source string, fields ...engine.Field) {
	p.bus.Post(&engine.Message{
		Type:      t,
		Source:    source,
		Timestamp: time.Since(p.base),
		Seqnum:    p.eng.seqnum.Add(1),
		Fields:    fields,
	})
}

func (p *Pipeline) postElement(source, structure string, fields ...engine.Field) {
	p.bus.Post(&engine.Message{
		Type:      engine.MessageElement,
		Source:    source,
		Timestamp: time.Since(p.base),
		Seqnum:    p.eng.seqnum.Add(1),
		Structure: structure,
		Fields:    fields,
	})
}

func (p *Pipeline) postStateChanged(source string, from, to, target engine.State) {
	pending := engine.StateVoidPending
	if to != target {
		pending = target
	}
	p.post(engine.MessageStateChanged, source,
		engine.Field{Name: "old-state", Value: from},
		engine.Field{Name: "new-state", Value: to},
		engine.Field{Name: "pending-state", Value: pending},
	)
}

// Bus returns the pipeline bus
func (p *Pipeline) Bus() engine.Bus { return p.bus }

// GetState returns the current state
func (p *Pipeline) GetState() engine.State {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	return p.state
}

// SetState steps the pipeline through every intermediate state up to
// target. On failure the pipeline stays in the last state reached.
func (p *Pipeline) SetState(target engine.State) error {
	if target < engine.StateNull || target > engine.StatePlaying {
		return fmt.Errorf("%w: invalid target state %d", engine.ErrBadValue, target)
	}
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	if p.closed {
		return engine.ErrClosed
	}
	return p.setStateLocked(target)
}

func (p *Pipeline) setStateLocked(target engine.State) error {
	for p.state != target {
		from := p.state
		to := from.Next(target)
		if from == engine.StatePlaying {
			p.stopStreaming()
		}

		leaves := p.leaves()
		for i, el := range leaves {
			if err := el.changeState(from, to); err != nil {
				for _, done := range leaves[:i] {
					_ = done.changeState(to, from)
				}
				p.post(engine.MessageError, el.Name(),
					engine.Field{Name: "message", Value: err.Error()},
					engine.Field{Name: "debug", Value: fmt.Sprintf("state change %s -> %s failed", from, to)},
				)
				if !errors.Is(err, engine.ErrStateChange) {
					err = fmt.Errorf("%w: %w", engine.ErrStateChange, err)
				}
				return err
			}
			p.postStateChanged(el.Name(), from, to, target)
		}

		p.state = to
		p.postStateChanged(p.Name(), from, to, target)

		switch {
		case from == engine.StatePaused && to == engine.StateReady:
			p.rewind(0)
		case to == engine.StatePlaying:
			p.startStreaming()
		}
	}
	return nil
}

func (p *Pipeline) sources() []*Element {
	var out []*Element
	for _, el := range p.leaves() {
		if el.role == roleSource {
			out = append(out, el)
		}
	}
	return out
}

func (p *Pipeline) startStreaming() {
	var pending []*Element
	for _, src := range p.sources() {
		src.mu.Lock()
		if !src.finished {
			pending = append(pending, src)
		}
		src.mu.Unlock()
	}
	if len(pending) == 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.active.Store(int32(len(pending)))
	for _, src := range pending {
		p.wg.Add(1)
		go p.stream(ctx, src)
	}
}

func (p *Pipeline) stopStreaming() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	p.cancel = nil
	p.wg.Wait()
}

func interval(src *Element) time.Duration {
	if d := time.Duration(src.uint(intervalSpec.Name)); d > 0 {
		return d
	}
	return defaultBufferInterval
}

func (p *Pipeline) stream(ctx context.Context, src *Element) {
	defer p.wg.Done()
	step := interval(src)
	ticker := time.NewTicker(step)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		src.mu.Lock()
		n := src.produced
		if limit := src.int(numBuffersSpec.Name); limit >= 0 && n >= limit {
			src.finished = true
			src.mu.Unlock()
			if p.active.Add(-1) == 0 {
				p.post(engine.MessageEOS, p.Name())
			}
			return
		}
		src.produced++
		src.mu.Unlock()

		buf := &buffer{seq: n, pts: time.Duration(n) * step, size: int(src.uint(blocksizeSpec.Name))}
		p.position.Store(int64(time.Duration(n+1) * step))
		if err := p.push(src, buf); err != nil {
			var fe *flowError
			source := src.Name()
			if errors.As(err, &fe) {
				source = fe.element
			}
			p.post(engine.MessageError, source,
				engine.Field{Name: "message", Value: err.Error()},
				engine.Field{Name: "debug", Value: fmt.Sprintf("streaming stopped, reason error (%s)", src.Name())},
			)
			return
		}
	}
}

type flowError struct {
	element string
	err     error
}

func (e *flowError) Error() string { return e.element + ": " + e.err.Error() }
func (e *flowError) Unwrap() error { return e.err }

func (p *Pipeline) push(el *Element, buf *buffer) error {
	if hook := p.eng.bufferHook(); hook != nil {
		hook(p.Name(), el.Name(), buf.size)
	}
	p.eng.debug.log(el.factory, LevelTrace, "Buffer", "element", el.Name(), "size", buf.size, "pts", buf.pts)

	if el.chain != nil {
		forward, err := el.chain(buf)
		if err != nil {
			return &flowError{element: el.Name(), err: err}
		}
		if !forward {
			return nil
		}
	}
	for _, peer := range el.downstream() {
		if err := p.push(peer, buf); err != nil {
			return err
		}
	}
	return nil
}

// rewind moves every source back to position pos
func (p *Pipeline) rewind(pos time.Duration) {
	for _, src := range p.sources() {
		src.mu.Lock()
		src.produced = int64(pos / interval(src))
		src.finished = false
		src.mu.Unlock()
	}
	p.position.Store(int64(pos))
}

// SendEvent injects event. Events are only accepted while PAUSED or PLAYING.
func (p *Pipeline) SendEvent(event engine.Event) error {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	if p.closed {
		return engine.ErrClosed
	}
	if p.state < engine.StatePaused {
		return errNotRunning
	}

	switch event.Type {
	case engine.EventEOS:
		p.stopStreaming()
		for _, src := range p.sources() {
			src.mu.Lock()
			src.finished = true
			src.mu.Unlock()
		}
		p.post(engine.MessageEOS, p.Name())
	case engine.EventSeek:
		if event.Format != engine.FormatTime {
			return fmt.Errorf("%w: only time seeks are supported", engine.ErrEventRejected)
		}
		target, ok := p.seekTarget(event)
		if !ok {
			return fmt.Errorf("%w: seek position unknown", engine.ErrEventRejected)
		}
		playing := p.state == engine.StatePlaying
		p.stopStreaming()
		p.rewind(target)
		if event.Flags&engine.SeekFlagFlush != 0 {
			p.postElement(p.Name(), "flush-start")
			p.postElement(p.Name(), "flush-stop", engine.Field{Name: "reset-time", Value: true})
		}
		p.post(engine.MessageAsyncDone, p.Name(), engine.Field{Name: "running-time", Value: target})
		if playing {
			p.startStreaming()
		}
	case engine.EventFlushStart:
		p.postElement(p.Name(), "flush-start")
	case engine.EventFlushStop:
		if event.ResetTime {
			p.position.Store(0)
		}
		p.postElement(p.Name(), "flush-stop", engine.Field{Name: "reset-time", Value: event.ResetTime})
	default:
		return fmt.Errorf("%w: %s", engine.ErrEventRejected, event.Type)
	}
	return nil
}

func (p *Pipeline) seekTarget(event engine.Event) (time.Duration, bool) {
	switch event.StartType {
	case engine.SeekTypeNone:
		return time.Duration(p.position.Load()), true
	case engine.SeekTypeSet:
		if event.Start < 0 {
			return 0, false
		}
		return time.Duration(event.Start), true
	case engine.SeekTypeEnd:
		d, ok := p.duration()
		if !ok {
			return 0, false
		}
		pos := d + time.Duration(event.Start)
		if pos < 0 {
			pos = 0
		}
		return pos, true
	}
	return 0, false
}

// QueryPosition returns the stream time reached, in nanoseconds
func (p *Pipeline) QueryPosition() (int64, bool) {
	if p.GetState() < engine.StatePaused {
		return engine.ClockTimeNone, false
	}
	return p.position.Load(), true
}

// QueryDuration returns the total stream time when every source is finite
func (p *Pipeline) QueryDuration() (int64, bool) {
	d, ok := p.duration()
	if !ok {
		return engine.ClockTimeNone, false
	}
	return int64(d), true
}

func (p *Pipeline) duration() (time.Duration, bool) {
	var longest time.Duration
	srcs := p.sources()
	if len(srcs) == 0 {
		return 0, false
	}
	for _, src := range srcs {
		n := src.int(numBuffersSpec.Name)
		if n < 0 {
			return 0, false
		}
		if d := time.Duration(n) * interval(src); d > longest {
			longest = d
		}
	}
	return longest, true
}

// SetVerbose turns property-notify messages on or off
func (p *Pipeline) SetVerbose(verbose bool) { p.verbose.Store(verbose) }

// Verbose reports whether property changes are posted
func (p *Pipeline) Verbose() bool { return p.verbose.Load() }

// Graph renders the topology in DOT
func (p *Pipeline) Graph() string {
	var b strings.Builder
	fmt.Fprintf(&b, "digraph pipeline {\n  rankdir=LR;\n  label=%q;\n", p.Name()+" ("+p.GetState().String()+")")
	writeBin(&b, p.Bin, "  ")
	for _, el := range p.leaves() {
		for _, peer := range el.downstream() {
			fmt.Fprintf(&b, "  %q -> %q;\n", el.Name(), peer.Name())
		}
	}
	b.WriteString("}\n")
	return b.String()
}

func writeBin(b *strings.Builder, bin *Bin, indent string) {
	for _, c := range bin.Elements() {
		switch v := c.(type) {
		case *Bin:
			fmt.Fprintf(b, "%ssubgraph %q {\n%s  label=%q;\n", indent, "cluster_"+v.Name(), indent, v.Name())
			writeBin(b, v, indent+"  ")
			fmt.Fprintf(b, "%s}\n", indent)
		default:
			fmt.Fprintf(b, "%s%q [label=%q];\n", indent, c.Name(), c.Name()+"\n("+c.FactoryName()+")")
		}
	}
}

// Close stops streaming and brings the pipeline to NULL. Further calls,
// state changes and events fail with engine.ErrClosed.
func (p *Pipeline) Close() error {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	if p.closed {
		return nil
	}
	err := p.setStateLocked(engine.StateNull)
	p.stopStreaming()
	p.bus.Close()
	p.closed = true
	return err
}
