package pipeline

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"gstd/pkg/core"
	"gstd/pkg/engine"
)

// Seek defaults for omitted trailing arguments
const (
	defaultSeekRate      = 1.0
	defaultSeekFormat    = engine.FormatTime
	defaultSeekFlags     = engine.SeekFlagFlush
	defaultSeekStartType = engine.SeekTypeSet
	defaultSeekStart     = 0
	defaultSeekStopType  = engine.SeekTypeSet
	defaultSeekStop      = engine.ClockTimeNone
)

// Event injects events into a pipeline. It only supports create, where the
// name is the event type and the description its arguments.
type Event struct {
	core.Base
	pipeline engine.Pipeline
}

// NewEvent creates the event node of p
func NewEvent(p engine.Pipeline) *Event {
	return &Event{Base: core.NewBase("event", nil, nil), pipeline: p}
}

// Create builds the event named name and sends it
func (e *Event) Create(name, description string) core.Code {
	event, err := ParseEvent(name, description)
	if err != nil {
		slog.Debug("Invalid event", "event", name, "args", description, "err", err)
		return e.Result(core.BadValue)
	}
	if err := e.pipeline.SendEvent(event); err != nil {
		slog.Debug("Event rejected", "pipeline", e.pipeline.Name(), "event", name, "err", err)
		return e.Result(core.EventError)
	}
	return e.Result(core.EOK)
}

// ParseEvent builds an event from its wire name and space separated
// arguments. Missing seek arguments take their defaults.
func ParseEvent(name, description string) (engine.Event, error) {
	args := strings.Fields(description)
	switch name {
	case "eos":
		return engine.NewEOSEvent(), nil
	case "flush_start":
		return engine.NewFlushStartEvent(), nil
	case "flush_stop":
		reset := true
		if len(args) > 0 {
			switch strings.ToLower(args[0]) {
			case "true":
			case "false":
				reset = false
			default:
				return engine.Event{}, fmt.Errorf("%w: flush_stop reset %q", engine.ErrBadValue, args[0])
			}
		}
		return engine.NewFlushStopEvent(reset), nil
	case "seek":
		return parseSeek(args)
	}
	return engine.Event{}, fmt.Errorf("%w: unknown event %q", engine.ErrBadValue, name)
}

func parseSeek(args []string) (engine.Event, error) {
	rate := defaultSeekRate
	ints := []int64{defaultSeekFormat, defaultSeekFlags, defaultSeekStartType, defaultSeekStart, defaultSeekStopType, defaultSeekStop}

	if len(args) > 1+len(ints) {
		return engine.Event{}, fmt.Errorf("%w: seek takes at most %d arguments", engine.ErrBadValue, 1+len(ints))
	}
	if len(args) > 0 {
		f, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return engine.Event{}, fmt.Errorf("%w: seek rate %q", engine.ErrBadValue, args[0])
		}
		rate = f
	}
	for i, tok := range args[min(len(args), 1):] {
		n, err := strconv.ParseInt(tok, 0, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(tok, 64)
			if ferr != nil {
				return engine.Event{}, fmt.Errorf("%w: seek argument %q", engine.ErrBadValue, tok)
			}
			n = int64(f)
		}
		ints[i] = n
	}
	return engine.NewSeekEvent(rate, ints[0], ints[1], ints[2], ints[3], ints[4], ints[5])
}
