// Package core implements the resource tree: addressable nodes with
// create/read/update/delete/serialize operations, ordered lists of nodes
// with pluggable creation and teardown, and URI resolution.
package core

import (
	"fmt"
	"sync"

	"gstd/pkg/engine"
)

// Node is an addressable entity of the resource tree.
type Node interface {
	Name() string
	Create(name, description string) Code
	Read(name string) (Node, Code)
	Update(value string) Code
	Delete(name string) Code
	Serialize() (*Document, Code)
	// LastCode returns the result of the most recent operation.
	LastCode() Code
}

// Reader resolves a named attribute of owner into a node.
type Reader interface {
	Read(owner engine.Object, name string) (Node, Code)
}

// Releaser is implemented by nodes whose removal is guarded by a
// reference count. Release reports whether the caller held the last
// reference and the node must be torn down.
type Releaser interface {
	Release() bool
}

// Base carries the behavior shared by every node. Create, Update and Delete
// fail; Read resolves one of the node's own attributes through the reader;
// Serialize lists every readable attribute.
type Base struct {
	name   string
	attrs  engine.Object
	reader Reader

	mu   sync.Mutex
	code Code
}

// NewBase creates a base for a node named name whose attributes are attrs
func NewBase(name string, attrs engine.Object, reader Reader) Base {
	return Base{name: name, attrs: attrs, reader: reader}
}

// Name returns the node name
func (b *Base) Name() string { return b.name }

// Attributes returns the attribute surface of the node
func (b *Base) Attributes() engine.Object { return b.attrs }

// LastCode returns the code of the last operation
func (b *Base) LastCode() Code {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.code
}

// Result records code as the last operation result and returns it
func (b *Base) Result(code Code) Code {
	b.mu.Lock()
	b.code = code
	b.mu.Unlock()
	return code
}

// Create is not supported by default
func (b *Base) Create(name, description string) Code {
	return b.Result(NoCreate)
}

// Update is not supported by default
func (b *Base) Update(value string) Code {
	return b.Result(NoUpdate)
}

// Delete is not supported by default
func (b *Base) Delete(name string) Code {
	return b.Result(NoDelete)
}

// Read resolves one of the node's own attributes
func (b *Base) Read(name string) (Node, Code) {
	if b.attrs == nil || b.reader == nil {
		return nil, b.Result(NoRead)
	}
	node, code := b.reader.Read(b.attrs, name)
	return node, b.Result(code)
}

// Serialize renders {"properties": [...]} with one entry per readable attribute
func (b *Base) Serialize() (*Document, Code) {
	doc := NewDocument()
	props, code := b.SerializeAttributes()
	if code != EOK {
		return nil, b.Result(code)
	}
	doc.Set("properties", props)
	return doc, b.Result(EOK)
}

// SerializeAttributes renders every readable attribute as a property
// document. Attributes holding nodes render as a reference to the node
// rather than inline.
func (b *Base) SerializeAttributes() ([]*Document, Code) {
	props := []*Document{}
	if b.attrs == nil || b.reader == nil {
		return props, EOK
	}
	for _, spec := range b.attrs.ListAttributes() {
		if !spec.Flags.Readable() {
			continue
		}
		if spec.Kind == engine.KindObject {
			props = append(props, PropertyDocument(spec, objectContents(b.attrs, spec)))
			continue
		}
		node, code := b.reader.Read(b.attrs, spec.Name)
		if code != EOK {
			return nil, code
		}
		doc, code := node.Serialize()
		if code != EOK {
			return nil, code
		}
		props = append(props, doc)
	}
	return props, EOK
}

func objectContents(attrs engine.Object, spec *engine.ParamSpec) any {
	v, err := attrs.GetAttribute(spec)
	if err != nil {
		return nil
	}
	if node, ok := v.(Node); ok && node != nil {
		return fmt.Sprintf("((%s*) %s)", spec.TypeName, node.Name())
	}
	return nil
}

// Refcount is a lock-guarded reference count that never drops below zero.
type Refcount struct {
	mu sync.Mutex
	n  int
}

// Ref increments the count and returns the new value
func (r *Refcount) Ref() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.n++
	return r.n
}

// Unref decrements the count and reports whether this call brought it to
// zero. Calls on a zero count are no-ops.
func (r *Refcount) Unref() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.n == 0 {
		return 0, false
	}
	r.n--
	return r.n, r.n == 0
}

// Release drops one reference. It reports true when no other holder
// remains, including when the count was already zero.
func (r *Refcount) Release() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.n > 1 {
		r.n--
		return false
	}
	r.n = 0
	return true
}

// Count returns the current value
func (r *Refcount) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

// Locked runs fn with the count held, passing a pointer to the counter so
// that read-then-act sequences are atomic.
func (r *Refcount) Locked(fn func(n *int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.n)
}
