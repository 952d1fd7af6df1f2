package pipeline

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"gstd/pkg/core"
	"gstd/pkg/engine"
	"gstd/pkg/property"
)

// Bus reads messages from a pipeline bus. "types" filters what a read
// accepts and "timeout" bounds how long it waits.
type Bus struct {
	core.Base

	pipeline string
	bus      engine.Bus
	types    atomic.Uint64
	timeout  atomic.Int64 // nanoseconds
	observe  func(pipeline string, msg *engine.Message)
}

// NewBus creates the bus node of the pipeline called pipeline. observe, if
// set, sees every message handed to a client.
func NewBus(pipeline string, bus engine.Bus, timeout time.Duration, observe func(string, *engine.Message)) *Bus {
	b := &Bus{pipeline: pipeline, bus: bus, observe: observe}
	b.types.Store(uint64(engine.MessageAny))
	b.timeout.Store(int64(timeout))

	attrs := core.NewAttrSet("bus")
	attrs.Add(core.ObjectSpec("message", "Wait for the next message matching types", "GstdBusMsg"),
		func() any { return nil }, nil)
	attrs.Add(core.StringSpec("types", "The message types to wait for, as in \"eos+error\"", engine.ParamReadWrite),
		func() any { return b.Types().String() },
		func(v any) error {
			t, err := engine.ParseMessageTypes(v.(string))
			if err != nil {
				return err
			}
			b.types.Store(uint64(t))
			return nil
		})
	attrs.Add(core.Int64Spec("timeout", "Nanoseconds to wait for a message, -1 waits forever", -1, math.MaxInt64, engine.ParamReadWrite),
		func() any { return b.timeout.Load() },
		func(v any) error {
			b.timeout.Store(v.(int64))
			return nil
		})
	b.Base = core.NewBase("bus", attrs, property.DefaultReader)
	return b
}

// Types returns the message filter
func (b *Bus) Types() engine.MessageType { return engine.MessageType(b.types.Load()) }

// Timeout returns the read timeout
func (b *Bus) Timeout() time.Duration { return time.Duration(b.timeout.Load()) }

// Read pops a message on "message"; other names resolve attributes. An
// empty filter flushes the bus for the timeout and yields no message.
func (b *Bus) Read(name string) (core.Node, core.Code) {
	if name != "message" {
		return b.Base.Read(name)
	}
	types, timeout := b.Types(), b.Timeout()
	if types == engine.MessageUnknown {
		b.bus.Flush(timeout)
		return nil, b.Result(core.EOK)
	}
	msg := b.bus.TimedPopFiltered(timeout, types)
	if msg == nil {
		return nil, b.Result(core.Timeout)
	}
	if b.observe != nil {
		b.observe(b.pipeline, msg)
	}
	return NewMessage(msg), b.Result(core.EOK)
}

// Message is one bus message handed to a client.
type Message struct {
	core.Base
	msg *engine.Message
}

// NewMessage wraps msg
func NewMessage(msg *engine.Message) *Message {
	return &Message{Base: core.NewBase(msg.Type.String(), nil, nil), msg: msg}
}

// Message returns the engine message
func (m *Message) Message() *engine.Message { return m.msg }

// Serialize renders {type, source, timestamp, seqnum} plus the fields of
// the message. Element messages nest their fields under the structure name.
func (m *Message) Serialize() (*core.Document, core.Code) {
	msg := m.msg
	doc := core.NewDocument().
		Set("type", msg.Type.String()).
		Set("source", msg.Source).
		Set("timestamp", engine.FormatClockTime(msg.Timestamp)).
		Set("seqnum", int64(msg.Seqnum))

	fields := doc
	if msg.Type == engine.MessageElement && msg.Structure != "" {
		fields = core.NewDocument()
		doc.Set(msg.Structure, fields)
	}
	for _, f := range msg.Fields {
		fields.Set(f.Name, fieldValue(f.Value))
	}
	return doc, m.Result(core.EOK)
}

func fieldValue(v any) any {
	switch x := v.(type) {
	case nil, bool, string, int, int32, int64, uint, uint32, uint64, float32, float64:
		return x
	case time.Duration:
		return int64(x)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprintf("%v", v)
}
