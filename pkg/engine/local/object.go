package local

import (
	"fmt"
	"sync"

	"gstd/pkg/engine"
)

var nameSpec = &engine.ParamSpec{
	Name:     "name",
	Blurb:    "The name of the object",
	TypeName: "gchararray",
	Kind:     engine.KindString,
	Flags:    engine.ParamReadable | engine.ParamWritable | engine.ParamConstructOnly,
}

// properties holds the attribute table of an element or a child object.
type properties struct {
	mu     sync.RWMutex
	name   string
	specs  []*engine.ParamSpec
	values map[string]any

	// notify runs after a successful write, outside the lock
	notify func(owner string, spec *engine.ParamSpec, value any)
}

func newProperties(name string) *properties {
	p := &properties{name: name, values: make(map[string]any)}
	p.specs = append(p.specs, nameSpec)
	return p
}

func (p *properties) install(specs ...*engine.ParamSpec) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, spec := range specs {
		p.specs = append(p.specs, spec)
		p.values[spec.Name] = spec.Default
	}
}

func (p *properties) Name() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.name
}

func (p *properties) rename(name string) {
	p.mu.Lock()
	p.name = name
	p.mu.Unlock()
}

func (p *properties) setNotify(fn func(owner string, spec *engine.ParamSpec, value any)) {
	p.mu.Lock()
	p.notify = fn
	p.mu.Unlock()
}

func (p *properties) ListAttributes() []*engine.ParamSpec {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]*engine.ParamSpec(nil), p.specs...)
}

func (p *properties) FindAttribute(name string) *engine.ParamSpec {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, s := range p.specs {
		if s.Name == name {
			return s
		}
	}
	return nil
}

func (p *properties) GetAttribute(spec *engine.ParamSpec) (any, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if spec.Name == nameSpec.Name {
		return p.name, nil
	}
	v, ok := p.values[spec.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no attribute %q", engine.ErrNoSuchAttribute, p.name, spec.Name)
	}
	if !spec.Flags.Readable() {
		return nil, fmt.Errorf("%w: %s", engine.ErrNotReadable, spec.Name)
	}
	if arr, ok := v.([]float64); ok {
		return append([]float64(nil), arr...), nil
	}
	return v, nil
}

func (p *properties) SetAttribute(spec *engine.ParamSpec, value any) error {
	known := p.FindAttribute(spec.Name)
	if known == nil {
		return fmt.Errorf("%w: %s has no attribute %q", engine.ErrNoSuchAttribute, p.Name(), spec.Name)
	}
	if !known.Flags.Writable() {
		return fmt.Errorf("%w: %s", engine.ErrNotWritable, spec.Name)
	}
	v, err := engine.Coerce(known, value)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.values[known.Name] = v
	name, notify := p.name, p.notify
	p.mu.Unlock()
	if notify != nil {
		notify(name, known, v)
	}
	return nil
}

// set stores a value without access checks, for read-only status attributes
func (p *properties) set(name string, value any) {
	p.mu.Lock()
	p.values[name] = value
	p.mu.Unlock()
}

func (p *properties) get(name string) any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.values[name]
}

func (p *properties) int(name string) int64 {
	n, _ := p.get(name).(int64)
	return n
}

func (p *properties) uint(name string) uint64 {
	n, _ := p.get(name).(uint64)
	return n
}

func (p *properties) float(name string) float64 {
	f, _ := p.get(name).(float64)
	return f
}

func (p *properties) bool(name string) bool {
	b, _ := p.get(name).(bool)
	return b
}

// signals is the signal table of an element.
type signals struct {
	mu       sync.Mutex
	specs    []*engine.SignalSpec
	nextID   uint64
	handlers map[uint64]handler
	actions  map[string]func(args []any) (any, error)
}

type handler struct {
	signal string
	fn     engine.SignalHandler
}

func (s *signals) declare(spec *engine.SignalSpec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.specs = append(s.specs, spec)
}

func (s *signals) action(spec *engine.SignalSpec, fn func(args []any) (any, error)) {
	spec.Action = true
	s.declare(spec)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.actions == nil {
		s.actions = make(map[string]func(args []any) (any, error))
	}
	s.actions[spec.Name] = fn
}

func (s *signals) ListSignals() []*engine.SignalSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*engine.SignalSpec(nil), s.specs...)
}

func (s *signals) FindSignal(name string) *engine.SignalSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(name)
}

func (s *signals) findLocked(name string) *engine.SignalSpec {
	for _, spec := range s.specs {
		if spec.Name == name {
			return spec
		}
	}
	return nil
}

func (s *signals) Connect(signal string, fn engine.SignalHandler) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	spec := s.findLocked(signal)
	if spec == nil || spec.Action {
		return 0, fmt.Errorf("%w: %s", engine.ErrNoSuchSignal, signal)
	}
	if s.handlers == nil {
		s.handlers = make(map[uint64]handler)
	}
	s.nextID++
	s.handlers[s.nextID] = handler{signal: signal, fn: fn}
	return s.nextID, nil
}

func (s *signals) Disconnect(id uint64) {
	s.mu.Lock()
	delete(s.handlers, id)
	s.mu.Unlock()
}

// Emit invokes an action, or delivers a regular signal to its handlers
func (s *signals) Emit(signal string, args ...any) (any, error) {
	s.mu.Lock()
	spec := s.findLocked(signal)
	if spec == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", engine.ErrNoSuchSignal, signal)
	}
	if len(args) != len(spec.ParamTypes) {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s takes %d arguments, got %d", engine.ErrBadValue, signal, len(spec.ParamTypes), len(args))
	}
	if spec.Action {
		fn := s.actions[signal]
		s.mu.Unlock()
		return fn(args)
	}
	var fns []engine.SignalHandler
	for _, h := range s.handlers {
		if h.signal == signal {
			fns = append(fns, h.fn)
		}
	}
	s.mu.Unlock()

	captured := make([]engine.Arg, len(args))
	for i, a := range args {
		captured[i] = engine.Arg{TypeName: spec.ParamTypes[i], Value: a}
	}
	for _, fn := range fns {
		fn(captured)
	}
	return nil, nil
}

func (s *signals) hasHandlers(signal string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.handlers {
		if h.signal == signal {
			return true
		}
	}
	return false
}
