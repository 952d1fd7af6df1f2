// Package element exposes engine elements as resource nodes: the element
// itself with its properties, signals and actions lists, the signal wait
// future and action invocation.
package element

import (
	"gstd/pkg/core"
	"gstd/pkg/engine"
	"gstd/pkg/property"
)

// Element is the node of one engine element. The property, signal and
// action lists are filled once when the node is created.
type Element struct {
	core.Base

	el         engine.Element
	properties *core.List
	signals    *core.List
	actions    *core.List
}

// New creates the node for el. signalTimeout is the initial callback
// timeout of every signal, in microseconds.
func New(el engine.Element, signalTimeout int64) *Element {
	return NewNamed(el.Name(), el, signalTimeout)
}

// NewNamed creates the node for el under a different node name, as used for
// elements nested in bins.
func NewNamed(name string, el engine.Element, signalTimeout int64) *Element {
	e := &Element{
		el:         el,
		properties: core.NewList("properties", core.AccessRead, core.NoCreator{}, core.NoDeleter{}),
		signals:    core.NewList("signals", core.AccessRead, core.NoCreator{}, core.NoDeleter{}),
		actions:    core.NewList("actions", core.AccessRead, core.NoCreator{}, core.NoDeleter{}),
	}

	property.Walk(el, func(name string, target engine.Object, spec *engine.ParamSpec) {
		e.properties.Append(property.New(target, spec, name))
	})
	for _, spec := range el.ListSignals() {
		if spec.Action {
			e.actions.Append(NewAction(el, spec))
		} else {
			e.signals.Append(NewSignal(el, spec, signalTimeout))
		}
	}

	attrs := core.NewAttrSet(name)
	attrs.Add(core.StringSpec("name", "The name of the element", engine.ParamReadable),
		func() any { return el.Name() }, nil)
	attrs.Add(core.StringSpec("factory", "The factory that built the element", engine.ParamReadable),
		func() any { return el.FactoryName() }, nil)
	attrs.Add(core.ObjectSpec("properties", "The properties of the element", "GstdList"),
		func() any { return e.properties }, nil)
	attrs.Add(core.ObjectSpec("signals", "The signals of the element", "GstdList"),
		func() any { return e.signals }, nil)
	attrs.Add(core.ObjectSpec("actions", "The actions of the element", "GstdList"),
		func() any { return e.actions }, nil)
	e.Base = core.NewBase(name, attrs, property.DefaultReader)
	return e
}

// Engine returns the wrapped engine element
func (e *Element) Engine() engine.Element { return e.el }

// Properties returns the cached property list
func (e *Element) Properties() *core.List { return e.properties }

// Signals returns the cached signal list
func (e *Element) Signals() *core.List { return e.signals }

// Actions returns the cached action list
func (e *Element) Actions() *core.List { return e.actions }

// Close wakes every pending signal wait on the element
func (e *Element) Close() error {
	for _, n := range e.signals.Children() {
		if s, ok := n.(*Signal); ok {
			s.Disconnect()
		}
	}
	return nil
}
