package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MessageType is a bit set of bus message kinds.
type MessageType uint64

const (
	MessageUnknown          MessageType = 0
	MessageEOS              MessageType = 1 << 0
	MessageError            MessageType = 1 << 1
	MessageWarning          MessageType = 1 << 2
	MessageInfo             MessageType = 1 << 3
	MessageTag              MessageType = 1 << 4
	MessageBuffering        MessageType = 1 << 5
	MessageStateChanged     MessageType = 1 << 6
	MessageStateDirty       MessageType = 1 << 7
	MessageStepDone         MessageType = 1 << 8
	MessageClockProvide     MessageType = 1 << 9
	MessageClockLost        MessageType = 1 << 10
	MessageNewClock         MessageType = 1 << 11
	MessageStructureChange  MessageType = 1 << 12
	MessageStreamStatus     MessageType = 1 << 13
	MessageApplication      MessageType = 1 << 14
	MessageElement          MessageType = 1 << 15
	MessageSegmentStart     MessageType = 1 << 16
	MessageSegmentDone      MessageType = 1 << 17
	MessageDurationChanged  MessageType = 1 << 18
	MessageLatency          MessageType = 1 << 19
	MessageAsyncStart       MessageType = 1 << 20
	MessageAsyncDone        MessageType = 1 << 21
	MessageRequestState     MessageType = 1 << 22
	MessageStepStart        MessageType = 1 << 23
	MessageQoS              MessageType = 1 << 24
	MessageProgress         MessageType = 1 << 25
	MessageTOC              MessageType = 1 << 26
	MessageResetTime        MessageType = 1 << 27
	MessageStreamStart      MessageType = 1 << 28
	MessageNeedContext      MessageType = 1 << 29
	MessageHaveContext      MessageType = 1 << 30
	MessageExtended         MessageType = 1 << 31
	MessagePropertyNotify   MessageType = 1 << 32
	MessageAny              MessageType = ^MessageType(0)
)

// MessageTypeClass maps message types to their names. Nicks use hyphens;
// ParseMessageTypes also accepts the underscore spelling.
var MessageTypeClass = &EnumClass{
	TypeName: "GstMessageType",
	Values: []EnumValue{
		{Value: int64(MessageUnknown), Name: "GST_MESSAGE_UNKNOWN", Nick: "unknown"},
		{Value: int64(MessageEOS), Name: "GST_MESSAGE_EOS", Nick: "eos"},
		{Value: int64(MessageError), Name: "GST_MESSAGE_ERROR", Nick: "error"},
		{Value: int64(MessageWarning), Name: "GST_MESSAGE_WARNING", Nick: "warning"},
		{Value: int64(MessageInfo), Name: "GST_MESSAGE_INFO", Nick: "info"},
		{Value: int64(MessageTag), Name: "GST_MESSAGE_TAG", Nick: "tag"},
		{Value: int64(MessageBuffering), Name: "GST_MESSAGE_BUFFERING", Nick: "buffering"},
		{Value: int64(MessageStateChanged), Name: "GST_MESSAGE_STATE_CHANGED", Nick: "state-changed"},
		{Value: int64(MessageStateDirty), Name: "GST_MESSAGE_STATE_DIRTY", Nick: "state-dirty"},
		{Value: int64(MessageStepDone), Name: "GST_MESSAGE_STEP_DONE", Nick: "step-done"},
		{Value: int64(MessageClockProvide), Name: "GST_MESSAGE_CLOCK_PROVIDE", Nick: "clock-provide"},
		{Value: int64(MessageClockLost), Name: "GST_MESSAGE_CLOCK_LOST", Nick: "clock-lost"},
		{Value: int64(MessageNewClock), Name: "GST_MESSAGE_NEW_CLOCK", Nick: "new-clock"},
		{Value: int64(MessageStructureChange), Name: "GST_MESSAGE_STRUCTURE_CHANGE", Nick: "structure-change"},
		{Value: int64(MessageStreamStatus), Name: "GST_MESSAGE_STREAM_STATUS", Nick: "stream-status"},
		{Value: int64(MessageApplication), Name: "GST_MESSAGE_APPLICATION", Nick: "application"},
		{Value: int64(MessageElement), Name: "GST_MESSAGE_ELEMENT", Nick: "element"},
		{Value: int64(MessageSegmentStart), Name: "GST_MESSAGE_SEGMENT_START", Nick: "segment-start"},
		{Value: int64(MessageSegmentDone), Name: "GST_MESSAGE_SEGMENT_DONE", Nick: "segment-done"},
		{Value: int64(MessageDurationChanged), Name: "GST_MESSAGE_DURATION_CHANGED", Nick: "duration-changed"},
		{Value: int64(MessageLatency), Name: "GST_MESSAGE_LATENCY", Nick: "latency"},
		{Value: int64(MessageAsyncStart), Name: "GST_MESSAGE_ASYNC_START", Nick: "async-start"},
		{Value: int64(MessageAsyncDone), Name: "GST_MESSAGE_ASYNC_DONE", Nick: "async-done"},
		{Value: int64(MessageRequestState), Name: "GST_MESSAGE_REQUEST_STATE", Nick: "request-state"},
		{Value: int64(MessageStepStart), Name: "GST_MESSAGE_STEP_START", Nick: "step-start"},
		{Value: int64(MessageQoS), Name: "GST_MESSAGE_QOS", Nick: "qos"},
		{Value: int64(MessageProgress), Name: "GST_MESSAGE_PROGRESS", Nick: "progress"},
		{Value: int64(MessageTOC), Name: "GST_MESSAGE_TOC", Nick: "toc"},
		{Value: int64(MessageResetTime), Name: "GST_MESSAGE_RESET_TIME", Nick: "reset-time"},
		{Value: int64(MessageStreamStart), Name: "GST_MESSAGE_STREAM_START", Nick: "stream-start"},
		{Value: int64(MessageNeedContext), Name: "GST_MESSAGE_NEED_CONTEXT", Nick: "need-context"},
		{Value: int64(MessageHaveContext), Name: "GST_MESSAGE_HAVE_CONTEXT", Nick: "have-context"},
		{Value: int64(MessagePropertyNotify), Name: "GST_MESSAGE_PROPERTY_NOTIFY", Nick: "property-notify"},
	},
}

// String returns the nick of a single message type
func (t MessageType) String() string {
	if t == MessageAny {
		return "any"
	}
	if v, ok := MessageTypeClass.ByValue(int64(t)); ok {
		return v.Nick
	}
	return MessageTypeClass.FlagsString(uint64(t))
}

// ParseMessageTypes parses "eos+error", "state_changed|qos", "any" or a
// number into a MessageType set. "none" is an alias of "unknown".
func ParseMessageTypes(text string) (MessageType, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return MessageUnknown, fmt.Errorf("%w: empty message type", ErrBadValue)
	}
	var out MessageType
	for _, tok := range strings.FieldsFunc(text, func(r rune) bool { return r == '+' || r == '|' || r == ' ' }) {
		t, err := parseMessageType(tok)
		if err != nil {
			return MessageUnknown, err
		}
		out |= t
	}
	return out, nil
}

func parseMessageType(tok string) (MessageType, error) {
	lower := strings.ToLower(tok)
	switch lower {
	case "any", "all":
		return MessageAny, nil
	case "none":
		return MessageUnknown, nil
	}
	nick := strings.ReplaceAll(lower, "_", "-")
	if v, ok := MessageTypeClass.ByNick(nick); ok {
		return MessageType(v.Value), nil
	}
	if v, ok := MessageTypeClass.ByName(tok); ok {
		return MessageType(v.Value), nil
	}
	if n, err := strconv.ParseUint(tok, 0, 64); err == nil {
		return MessageType(n), nil
	}
	return MessageUnknown, fmt.Errorf("%w: unknown message type %q", ErrBadValue, tok)
}

// Field is one named value carried by a message.
type Field struct {
	Name  string
	Value any
}

// Message is a single bus message.
type Message struct {
	Type      MessageType
	Source    string
	Timestamp time.Duration
	Seqnum    uint32
	// Structure names the payload of element and application messages.
	Structure string
	Fields    []Field
}

// Field returns the value of a named field
func (m *Message) Field(name string) (any, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// FormatClockTime renders a duration as H:MM:SS.nnnnnnnnn, or
// 99:99:99.999999999 for an unknown time.
func FormatClockTime(d time.Duration) string {
	if d < 0 {
		return "99:99:99.999999999"
	}
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	return fmt.Sprintf("%d:%02d:%02d.%09d", h, m, s, d)
}
