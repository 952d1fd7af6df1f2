package engine

import "fmt"

// EventType identifies an event sent into a pipeline.
type EventType int

const (
	EventUnknown EventType = iota
	EventEOS
	EventSeek
	EventFlushStart
	EventFlushStop
)

// String returns the event name as used on the wire
func (t EventType) String() string {
	switch t {
	case EventEOS:
		return "eos"
	case EventSeek:
		return "seek"
	case EventFlushStart:
		return "flush_start"
	case EventFlushStop:
		return "flush_stop"
	default:
		return "unknown"
	}
}

// Format units for seek positions
const (
	FormatUndefined int64 = 0
	FormatDefault   int64 = 1
	FormatBytes     int64 = 2
	FormatTime      int64 = 3
	FormatBuffers   int64 = 4
	FormatPercent   int64 = 5
)

// Seek flags
const (
	SeekFlagNone     int64 = 0
	SeekFlagFlush    int64 = 1 << 0
	SeekFlagAccurate int64 = 1 << 1
	SeekFlagKeyUnit  int64 = 1 << 2
	SeekFlagSegment  int64 = 1 << 3
)

// Seek types
const (
	SeekTypeNone int64 = 0
	SeekTypeSet  int64 = 1
	SeekTypeEnd  int64 = 2
)

// ClockTimeNone marks an unset position
const ClockTimeNone int64 = -1

// Event is a control event injected into a pipeline.
type Event struct {
	Type EventType

	// Seek parameters
	Rate      float64
	Format    int64
	Flags     int64
	StartType int64
	Start     int64
	StopType  int64
	Stop      int64

	// FlushStop parameter
	ResetTime bool
}

// NewEOSEvent creates an end-of-stream event
func NewEOSEvent() Event {
	return Event{Type: EventEOS}
}

// NewFlushStartEvent creates a flush-start event
func NewFlushStartEvent() Event {
	return Event{Type: EventFlushStart}
}

// NewFlushStopEvent creates a flush-stop event
func NewFlushStopEvent(resetTime bool) Event {
	return Event{Type: EventFlushStop, ResetTime: resetTime}
}

// NewSeekEvent creates a seek event, validating its parameters
func NewSeekEvent(rate float64, format, flags, startType, start, stopType, stop int64) (Event, error) {
	if rate == 0 {
		return Event{}, fmt.Errorf("%w: seek rate must be non-zero", ErrBadValue)
	}
	if format < FormatUndefined || format > FormatPercent {
		return Event{}, fmt.Errorf("%w: seek format %d", ErrBadValue, format)
	}
	if startType < SeekTypeNone || startType > SeekTypeEnd || stopType < SeekTypeNone || stopType > SeekTypeEnd {
		return Event{}, fmt.Errorf("%w: seek type out of range", ErrBadValue)
	}
	return Event{
		Type:      EventSeek,
		Rate:      rate,
		Format:    format,
		Flags:     flags,
		StartType: startType,
		Start:     start,
		StopType:  stopType,
		Stop:      stop,
	}, nil
}
