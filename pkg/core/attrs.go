package core

import (
	"fmt"
	"sync"

	"gstd/pkg/engine"
)

// Getter produces the current value of an attribute.
type Getter func() any

// Setter stores a new, already type-checked value.
type Setter func(value any) error

type attr struct {
	spec *engine.ParamSpec
	get  Getter
	set  Setter
}

// AttrSet is an engine.Object backed by closures, used by nodes to declare
// their own attributes.
type AttrSet struct {
	name string

	mu    sync.RWMutex
	attrs []attr
}

// NewAttrSet creates an empty attribute set for the object called name
func NewAttrSet(name string) *AttrSet {
	return &AttrSet{name: name}
}

// Add declares an attribute. set may be nil for read-only attributes.
func (s *AttrSet) Add(spec *engine.ParamSpec, get Getter, set Setter) *AttrSet {
	if set == nil {
		spec.Flags &^= engine.ParamWritable
	}
	if get == nil {
		spec.Flags &^= engine.ParamReadable
	}
	s.mu.Lock()
	s.attrs = append(s.attrs, attr{spec: spec, get: get, set: set})
	s.mu.Unlock()
	return s
}

// Name returns the owner name
func (s *AttrSet) Name() string { return s.name }

// ListAttributes returns every declared attribute in declaration order
func (s *AttrSet) ListAttributes() []*engine.ParamSpec {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*engine.ParamSpec, 0, len(s.attrs))
	for _, a := range s.attrs {
		out = append(out, a.spec)
	}
	return out
}

// FindAttribute returns the descriptor called name, or nil
func (s *AttrSet) FindAttribute(name string) *engine.ParamSpec {
	if a, ok := s.find(name); ok {
		return a.spec
	}
	return nil
}

// GetAttribute reads the current value
func (s *AttrSet) GetAttribute(spec *engine.ParamSpec) (any, error) {
	a, ok := s.find(spec.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", engine.ErrNoSuchAttribute, spec.Name)
	}
	if a.get == nil {
		return nil, fmt.Errorf("%w: %s", engine.ErrNotReadable, spec.Name)
	}
	return a.get(), nil
}

// SetAttribute type-checks and stores a new value
func (s *AttrSet) SetAttribute(spec *engine.ParamSpec, value any) error {
	a, ok := s.find(spec.Name)
	if !ok {
		return fmt.Errorf("%w: %s", engine.ErrNoSuchAttribute, spec.Name)
	}
	if a.set == nil || !a.spec.Flags.Writable() {
		return fmt.Errorf("%w: %s", engine.ErrNotWritable, spec.Name)
	}
	v, err := engine.Coerce(a.spec, value)
	if err != nil {
		return err
	}
	return a.set(v)
}

func (s *AttrSet) find(name string) (attr, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.attrs {
		if a.spec.Name == name {
			return a, true
		}
	}
	return attr{}, false
}

// StringSpec builds a string attribute descriptor
func StringSpec(name, blurb string, flags engine.ParamFlags) *engine.ParamSpec {
	return &engine.ParamSpec{Name: name, Blurb: blurb, TypeName: "gchararray", Kind: engine.KindString, Flags: flags}
}

// BoolSpec builds a boolean attribute descriptor
func BoolSpec(name, blurb string, flags engine.ParamFlags) *engine.ParamSpec {
	return &engine.ParamSpec{Name: name, Blurb: blurb, TypeName: "gboolean", Kind: engine.KindBool, Flags: flags}
}

// IntSpec builds a 32-bit integer attribute descriptor
func IntSpec(name, blurb string, min, max int64, flags engine.ParamFlags) *engine.ParamSpec {
	return &engine.ParamSpec{Name: name, Blurb: blurb, TypeName: "gint", Kind: engine.KindInt, Flags: flags, Min: float64(min), Max: float64(max)}
}

// Int64Spec builds a 64-bit integer attribute descriptor
func Int64Spec(name, blurb string, min, max int64, flags engine.ParamFlags) *engine.ParamSpec {
	return &engine.ParamSpec{Name: name, Blurb: blurb, TypeName: "gint64", Kind: engine.KindInt64, Flags: flags, Min: float64(min), Max: float64(max)}
}

// ObjectSpec builds a descriptor whose value is itself a node
func ObjectSpec(name, blurb, typeName string) *engine.ParamSpec {
	return &engine.ParamSpec{Name: name, Blurb: blurb, TypeName: typeName, Kind: engine.KindObject, Flags: engine.ParamReadable}
}
