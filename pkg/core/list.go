package core

import (
	"io"
	"log/slog"
	"math"
	"sync"

	"gstd/pkg/engine"
)

// Access is the set of operations a list allows on its children.
type Access uint

const (
	AccessCreate Access = 1 << iota
	AccessRead
	AccessUpdate
	AccessDelete
)

// Has reports whether all bits of other are set
func (a Access) Has(other Access) bool { return a&other == other }

// AccessClass is the flags class used to serialize Access values.
var AccessClass = &engine.EnumClass{
	TypeName: "GstdParamFlags",
	Values: []engine.EnumValue{
		{Value: int64(AccessCreate), Name: "CREATE", Nick: "create"},
		{Value: int64(AccessRead), Name: "READ", Nick: "read"},
		{Value: int64(AccessUpdate), Name: "UPDATE", Nick: "update"},
		{Value: int64(AccessDelete), Name: "DELETE", Nick: "delete"},
	},
}

// CountName is the reserved child name that reads the list size.
const CountName = "count"

var countSpec = &engine.ParamSpec{
	Name:     CountName,
	Blurb:    "The amount of nodes in the list",
	TypeName: "guint",
	Kind:     engine.KindUint,
	Flags:    engine.ParamReadable,
	Max:      math.MaxInt32,
}

// List is a node owning an ordered, name-unique collection of children.
type List struct {
	Base

	mu       sync.RWMutex
	children []Node
	creator  Creator
	deleter  Deleter
	access   Access
}

// NewList creates an empty list
func NewList(name string, access Access, creator Creator, deleter Deleter) *List {
	l := &List{creator: creator, deleter: deleter, access: access}
	attrs := NewAttrSet(name)
	attrs.Add(countSpec, func() any { return uint64(l.Count()) }, nil)
	attrs.Add(&engine.ParamSpec{
		Name:     "flags",
		Blurb:    "The resource access flags",
		TypeName: "GstdParamFlags",
		Kind:     engine.KindFlags,
		Flags:    engine.ParamReadable,
		Class:    AccessClass,
	}, func() any { return uint64(l.access) }, nil)
	l.Base = NewBase(name, attrs, nil)
	return l
}

// SetCreator replaces the creation strategy
func (l *List) SetCreator(c Creator) {
	l.mu.Lock()
	l.creator = c
	l.mu.Unlock()
}

// SetDeleter replaces the teardown strategy
func (l *List) SetDeleter(d Deleter) {
	l.mu.Lock()
	l.deleter = d
	l.mu.Unlock()
}

// Access returns the list access flags
func (l *List) Access() Access { return l.access }

// Count returns the number of live children
func (l *List) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.children)
}

// Children returns a snapshot of the children in insertion order
func (l *List) Children() []Node {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Node(nil), l.children...)
}

// Find returns the child called name, or nil
func (l *List) Find(name string) Node {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i := l.indexLocked(name); i >= 0 {
		return l.children[i]
	}
	return nil
}

func (l *List) indexLocked(name string) int {
	for i, n := range l.children {
		if n.Name() == name {
			return i
		}
	}
	return -1
}

// With runs fn on the child called name while holding the list lock, so
// the child cannot be deleted meanwhile. It reports whether the child exists.
func (l *List) With(name string, fn func(node Node)) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexLocked(name)
	if i < 0 {
		return false
	}
	fn(l.children[i])
	return true
}

// Append links node as the last child. It fails with ExistingResource when
// the name is already taken and ExistingName for the reserved name "count".
func (l *List) Append(node Node) Code {
	if node == nil {
		return NullArgument
	}
	if node.Name() == CountName {
		return ExistingName
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.indexLocked(node.Name()) >= 0 {
		return ExistingResource
	}
	l.children = append(l.children, node)
	return EOK
}

// Create builds a child through the creator outside the list lock, then
// links it.
func (l *List) Create(name, description string) Code {
	if !l.access.Has(AccessCreate) {
		return l.Result(NoCreate)
	}
	l.mu.RLock()
	creator := l.creator
	l.mu.RUnlock()
	if creator == nil {
		return l.Result(MissingInitialization)
	}
	if name == CountName {
		return l.Result(ExistingName)
	}

	node, code := creator.Create(name, description)
	if code != EOK {
		slog.Debug("Could not create resource", "resource", name, "list", l.Name(), "code", code)
		return l.Result(code)
	}
	if node == nil {
		return l.Result(BadCommand)
	}

	if code := l.Append(node); code != EOK {
		discard(node)
		return l.Result(code)
	}
	return l.Result(EOK)
}

// Read returns the child called name. "count" is reserved and yields the
// number of children.
func (l *List) Read(name string) (Node, Code) {
	if name == CountName {
		return NewValueNode(countSpec, uint64(l.Count())), l.Result(EOK)
	}
	if node := l.Find(name); node != nil {
		return node, l.Result(EOK)
	}
	return nil, l.Result(NoResource)
}

// Delete tears the child called name down through the deleter and unlinks
// it. The list lock is held throughout so readers never observe a half
// deleted child. Children implementing Releaser are kept while other
// references remain.
func (l *List) Delete(name string) Code {
	if name == "" {
		return l.Result(MissingName)
	}
	if !l.access.Has(AccessDelete) {
		return l.Result(NoDelete)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.deleter == nil {
		return l.Result(MissingInitialization)
	}
	i := l.indexLocked(name)
	if i < 0 {
		return l.Result(NoResource)
	}
	node := l.children[i]

	if r, ok := node.(Releaser); ok && !r.Release() {
		slog.Debug("Resource still referenced, keeping it", "resource", name, "list", l.Name())
		return l.Result(EOK)
	}

	if code := l.deleter.Delete(node); code != EOK {
		return l.Result(code)
	}
	l.children = append(l.children[:i:i], l.children[i+1:]...)
	return l.Result(EOK)
}

// Serialize renders the list attributes plus {"nodes": [{"name": ...}]}
func (l *List) Serialize() (*Document, Code) {
	props := []*Document{
		PropertyDocument(countSpec, uint64(l.Count())),
	}
	nodes := []*Document{}
	for _, child := range l.Children() {
		nodes = append(nodes, NewDocument().Set("name", child.Name()))
	}
	doc := NewDocument().
		Set("properties", props).
		Set("nodes", nodes)
	return doc, l.Result(EOK)
}

// Clear unlinks every child without running the deleter, closing those that
// hold resources.
func (l *List) Clear() {
	l.mu.Lock()
	children := l.children
	l.children = nil
	l.mu.Unlock()
	for _, c := range children {
		discard(c)
	}
}

func discard(node Node) {
	if c, ok := node.(io.Closer); ok {
		if err := c.Close(); err != nil {
			slog.Warn("Error discarding resource", "resource", node.Name(), "err", err)
		}
	}
}
