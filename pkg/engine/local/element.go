package local

import (
	"fmt"
	"sync"
	"time"

	"gstd/pkg/engine"
)

type role int

const (
	roleFilter role = iota
	roleSource
	roleSink
)

type buffer struct {
	seq  int64
	pts  time.Duration
	size int
}

// Element is a simulated processing element.
type Element struct {
	*properties
	signals

	factory string
	role    role
	eng     *Engine

	// chain handles one buffer and reports whether it goes downstream
	chain func(buf *buffer) (bool, error)
	// change validates and applies one state step
	change func(from, to engine.State) error

	mu       sync.Mutex
	parent   engine.Element
	peers    []*Element
	state    engine.State
	pads     []engine.Object
	produced int64
	finished bool
}

func newElement(eng *Engine, factory, name string, r role) *Element {
	e := &Element{
		properties: newProperties(name),
		factory:    factory,
		role:       r,
		eng:        eng,
		state:      engine.StateNull,
	}
	return e
}

// FactoryName returns the factory that created the element
func (e *Element) FactoryName() string { return e.factory }

// ChildObjects returns the request pads of elements that expose them
func (e *Element) ChildObjects() []engine.Object {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]engine.Object(nil), e.pads...)
}

func (e *Element) link(peer *Element) {
	e.mu.Lock()
	e.peers = append(e.peers, peer)
	e.mu.Unlock()
}

func (e *Element) downstream() []*Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Element(nil), e.peers...)
}

func (e *Element) setParent(parent engine.Element) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.parent != nil {
		return fmt.Errorf("%w: %s already has a parent", engine.ErrBadDescription, e.Name())
	}
	e.parent = parent
	return nil
}

func (e *Element) changeState(from, to engine.State) error {
	if e.change != nil {
		if err := e.change(from, to); err != nil {
			return err
		}
	}
	e.mu.Lock()
	e.state = to
	e.mu.Unlock()
	e.eng.debug.log(e.factory, LevelInfo, "State changed", "element", e.Name(), "from", from.String(), "to", to.String())
	return nil
}

// pad is a request pad exposed through the child proxy of a mixer.
type pad struct {
	*properties
}

// Bin is a container of elements.
type Bin struct {
	*Element

	children []engine.Element
}

func newBin(eng *Engine, name string) *Bin {
	return &Bin{Element: newElement(eng, "bin", name, roleFilter)}
}

// Elements returns the direct children in description order
func (b *Bin) Elements() []engine.Element {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]engine.Element(nil), b.children...)
}

// ChildObjects exposes the children of the bin
func (b *Bin) ChildObjects() []engine.Object {
	var out []engine.Object
	for _, c := range b.Elements() {
		out = append(out, c)
	}
	return out
}

func (b *Bin) add(child engine.Element) error {
	for _, c := range b.Elements() {
		if c.Name() == child.Name() {
			return fmt.Errorf("%w: name %q is already in use in %s", engine.ErrBadDescription, child.Name(), b.Name())
		}
	}
	if err := elementOf(child).setParent(b); err != nil {
		return err
	}
	b.mu.Lock()
	b.children = append(b.children, child)
	b.mu.Unlock()
	return nil
}

// leaves returns every non-bin element below b, depth first
func (b *Bin) leaves() []*Element {
	var out []*Element
	for _, c := range b.Elements() {
		switch v := c.(type) {
		case *Bin:
			out = append(out, v.leaves()...)
		case *Element:
			out = append(out, v)
		}
	}
	return out
}

// head and tail are the link points of an element or a bin
func head(el engine.Element) *Element {
	if b, ok := el.(*Bin); ok {
		children := b.Elements()
		if len(children) == 0 {
			return nil
		}
		return head(children[0])
	}
	return elementOf(el)
}

func tail(el engine.Element) *Element {
	if b, ok := el.(*Bin); ok {
		children := b.Elements()
		if len(children) == 0 {
			return nil
		}
		return tail(children[len(children)-1])
	}
	return elementOf(el)
}

func elementOf(el engine.Element) *Element {
	switch v := el.(type) {
	case *Element:
		return v
	case *Bin:
		return v.Element
	case *Pipeline:
		return v.Element
	}
	return nil
}
