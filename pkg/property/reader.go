// Package property turns the attributes of engine objects into typed
// resource nodes.
package property

import (
	"strings"

	"gstd/pkg/core"
	"gstd/pkg/engine"
)

// ChildSeparator joins a child object name and one of its attributes, as
// in "sink_0::xpos".
const ChildSeparator = "::"

// Reader resolves attributes of an engine object into nodes. It is the
// default core.Reader of every node in the tree.
type Reader struct{}

// DefaultReader is shared by every node; Reader holds no state.
var DefaultReader core.Reader = Reader{}

// Read returns the node for the attribute called name on owner. Attributes
// whose value is itself a node are returned directly.
func (Reader) Read(owner engine.Object, name string) (core.Node, core.Code) {
	if owner == nil {
		return nil, core.NullArgument
	}
	target, spec := Lookup(owner, name)
	if spec == nil {
		return nil, core.NoResource
	}
	if !spec.Flags.Readable() {
		return nil, core.NoRead
	}
	if spec.Kind == engine.KindObject {
		v, err := target.GetAttribute(spec)
		if err != nil {
			return nil, core.NoRead
		}
		if node, ok := v.(core.Node); ok {
			return node, core.EOK
		}
	}
	return New(target, spec, name), core.EOK
}

// Lookup finds the object and descriptor addressed by name, descending into
// child objects for every "::" separated prefix.
func Lookup(owner engine.Object, name string) (engine.Object, *engine.ParamSpec) {
	target := owner
	parts := strings.Split(name, ChildSeparator)
	for _, child := range parts[:len(parts)-1] {
		proxy, ok := target.(engine.ChildProxy)
		if !ok {
			return nil, nil
		}
		var next engine.Object
		for _, o := range proxy.ChildObjects() {
			if o.Name() == child {
				next = o
				break
			}
		}
		if next == nil {
			return nil, nil
		}
		target = next
	}
	spec := target.FindAttribute(parts[len(parts)-1])
	if spec == nil {
		return nil, nil
	}
	return target, spec
}

// Walk calls fn for every attribute of owner and, recursively, of its child
// objects. Nested names carry their "child::" prefixes.
func Walk(owner engine.Object, fn func(name string, target engine.Object, spec *engine.ParamSpec)) {
	walk(owner, "", fn)
}

func walk(owner engine.Object, prefix string, fn func(string, engine.Object, *engine.ParamSpec)) {
	for _, spec := range owner.ListAttributes() {
		fn(prefix+spec.Name, owner, spec)
	}
	if proxy, ok := owner.(engine.ChildProxy); ok {
		for _, child := range proxy.ChildObjects() {
			walk(child, prefix+child.Name()+ChildSeparator, fn)
		}
	}
}
