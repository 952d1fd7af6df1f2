// Package engine defines the narrow contract between the resource tree and
// the media engine that actually runs pipelines.
//
// Attribute values cross the contract as plain Go values:
//
//	KindBool            bool
//	KindInt, KindInt64  int64
//	KindUint, KindUint64 uint64
//	KindFloat, KindDouble float64
//	KindString          string
//	KindEnum            int64
//	KindFlags           uint64
//	KindArray           []float64
//	KindObject          any
//	KindOpaque          string
package engine

import "time"

// Object is anything with introspectable, named attributes.
type Object interface {
	Name() string
	ListAttributes() []*ParamSpec
	FindAttribute(name string) *ParamSpec
	GetAttribute(spec *ParamSpec) (any, error)
	SetAttribute(spec *ParamSpec, value any) error
}

// SignalSpec describes a signal an Emitter can raise.
type SignalSpec struct {
	Name       string
	ParamTypes []string
	ParamKinds []Kind
	ReturnType string
	ReturnKind Kind
	// Action signals are invoked by clients rather than observed.
	Action bool
}

// Arg is one captured signal argument.
type Arg struct {
	TypeName string
	Value    any
}

// SignalHandler receives the arguments of one signal emission.
type SignalHandler func(args []Arg)

// Emitter raises and accepts signals.
type Emitter interface {
	ListSignals() []*SignalSpec
	FindSignal(name string) *SignalSpec
	Connect(signal string, handler SignalHandler) (uint64, error)
	Disconnect(id uint64)
	Emit(signal string, args ...any) (any, error)
}

// Element is a single processing node of a pipeline.
type Element interface {
	Object
	Emitter
	FactoryName() string
}

// ChildProxy exposes nested objects whose attributes are addressed with a
// "child::attribute" prefix.
type ChildProxy interface {
	ChildObjects() []Object
}

// Bin is an element that contains other elements.
type Bin interface {
	Element
	Elements() []Element
}

// Pipeline is a top-level bin with a clock, a bus and a state.
type Pipeline interface {
	Bin
	SetState(state State) error
	GetState() State
	Bus() Bus
	SendEvent(event Event) error
	QueryPosition() (int64, bool)
	QueryDuration() (int64, bool)
	Graph() string
	SetVerbose(verbose bool)
	Verbose() bool
	Close() error
}

// Bus carries asynchronous messages from a pipeline.
type Bus interface {
	Post(msg *Message)
	// TimedPopFiltered waits up to timeout for a message matching types.
	// A negative timeout waits forever.
	TimedPopFiltered(timeout time.Duration, types MessageType) *Message
	Flush(d time.Duration)
	// Close wakes every pending TimedPopFiltered with nil and makes later
	// calls return nil at once. Posts after Close are dropped.
	Close()
}

// BufferHook observes every buffer an element handles.
type BufferHook func(pipeline, element string, size int)

// Engine builds pipelines.
type Engine interface {
	ParseLaunch(description string) (Element, error)
	NewPipeline(name string) Pipeline
	// Wrap returns a pipeline called name around element. A pipeline is
	// renamed and returned as is.
	Wrap(name string, element Element) (Pipeline, error)
	Debug() Debug
	SetBufferHook(hook BufferHook)
}

// Debug controls the engine's own diagnostic output.
type Debug interface {
	IsActive() bool
	SetActive(active bool)
	IsColored() bool
	SetColored(colored bool)
	DefaultThreshold() int
	// SetThresholdFromString applies "category:level,..." rules. When reset is
	// true, previously applied rules are cleared first.
	SetThresholdFromString(list string, reset bool)
}
