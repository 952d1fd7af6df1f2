package core

import (
	"strings"

	"gstd/pkg/engine"
)

// AccessString renders attribute flags the way clients expect them, for
// example "((GstdParamFlags) READ | UPDATE)".
func AccessString(flags engine.ParamFlags) string {
	var parts []string
	if flags.Readable() {
		parts = append(parts, "READ")
	}
	if flags.Writable() {
		parts = append(parts, "UPDATE")
	}
	if len(parts) == 0 {
		return "((GstdParamFlags) 0)"
	}
	return "((GstdParamFlags) " + strings.Join(parts, " | ") + ")"
}

// PropertyDocument renders {name, value, param{description, type, access}}
func PropertyDocument(spec *engine.ParamSpec, value any) *Document {
	param := NewDocument().
		Set("description", spec.Blurb).
		Set("type", spec.TypeName).
		Set("access", AccessString(spec.Flags))
	return NewDocument().
		Set("name", spec.Name).
		Set("value", value).
		Set("param", param)
}

// ValueNode is a read-only synthetic node holding a fixed value, such as
// the "count" of a list.
type ValueNode struct {
	Base
	spec  *engine.ParamSpec
	value any
}

// NewValueNode creates a synthetic node for value described by spec
func NewValueNode(spec *engine.ParamSpec, value any) *ValueNode {
	return &ValueNode{Base: NewBase(spec.Name, nil, nil), spec: spec, value: value}
}

// Value returns the held value
func (v *ValueNode) Value() any { return v.value }

// Read has no children
func (v *ValueNode) Read(name string) (Node, Code) {
	return nil, v.Result(NoResource)
}

// Serialize renders the value as a property document
func (v *ValueNode) Serialize() (*Document, Code) {
	return PropertyDocument(v.spec, v.value), v.Result(EOK)
}
