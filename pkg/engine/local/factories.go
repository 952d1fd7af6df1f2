package local

import (
	"fmt"
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"gstd/pkg/engine"
)

type factory func(eng *Engine, name string) *Element

var factories = map[string]factory{
	"identity-source": newIdentitySource,
	"identity":        newIdentity,
	"identity-sink":   newIdentitySink,
	"queue":           newQueue,
	"valve":           newValve,
	"capsfilter":      newCapsFilter,
	"mixer":           newMixer,
	"error-sink":      newErrorSink,
}

// Factories returns the names of every registered element factory
func Factories() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	return names
}

const defaultBufferInterval = 10 * time.Millisecond

var (
	patternClass = &engine.EnumClass{
		TypeName: "GstIdentitySourcePattern",
		Values: []engine.EnumValue{
			{Value: 0, Name: "GST_IDENTITY_SOURCE_PATTERN_SMPTE", Nick: "smpte"},
			{Value: 1, Name: "GST_IDENTITY_SOURCE_PATTERN_SNOW", Nick: "snow"},
			{Value: 2, Name: "GST_IDENTITY_SOURCE_PATTERN_BLACK", Nick: "black"},
			{Value: 3, Name: "GST_IDENTITY_SOURCE_PATTERN_BALL", Nick: "ball"},
		},
	}
	modeClass = &engine.EnumClass{
		TypeName: "GstIdentitySourceMode",
		Values: []engine.EnumValue{
			{Value: 0, Name: "GST_IDENTITY_SOURCE_MODE_NONE", Nick: "none"},
			{Value: 1, Name: "GST_IDENTITY_SOURCE_MODE_TIMESTAMP", Nick: "timestamp"},
			{Value: 2, Name: "GST_IDENTITY_SOURCE_MODE_SEQUENCE", Nick: "sequence"},
			{Value: 4, Name: "GST_IDENTITY_SOURCE_MODE_MARKER", Nick: "marker"},
		},
	}
	leakyClass = &engine.EnumClass{
		TypeName: "GstQueueLeaky",
		Values: []engine.EnumValue{
			{Value: 0, Name: "GST_QUEUE_NO_LEAK", Nick: "no"},
			{Value: 1, Name: "GST_QUEUE_LEAK_UPSTREAM", Nick: "upstream"},
			{Value: 2, Name: "GST_QUEUE_LEAK_DOWNSTREAM", Nick: "downstream"},
		},
	}
)

var (
	numBuffersSpec = &engine.ParamSpec{Name: "num-buffers", Blurb: "Number of buffers to output before sending EOS (-1 = unlimited)",
		TypeName: "gint", Kind: engine.KindInt, Flags: engine.ParamReadWrite, Min: -1, Max: math.MaxInt32, Default: int64(-1)}
	isLiveSpec = &engine.ParamSpec{Name: "is-live", Blurb: "Whether to act as a live source",
		TypeName: "gboolean", Kind: engine.KindBool, Flags: engine.ParamReadWrite, Default: false}
	patternSpec = &engine.ParamSpec{Name: "pattern", Blurb: "Type of test pattern to generate",
		TypeName: "GstIdentitySourcePattern", Kind: engine.KindEnum, Flags: engine.ParamReadWrite, Class: patternClass, Default: int64(0)}
	intervalSpec = &engine.ParamSpec{Name: "buffer-interval", Blurb: "Time between buffers in nanoseconds",
		TypeName: "guint64", Kind: engine.KindUint64, Flags: engine.ParamReadWrite, Min: 1, Max: math.MaxInt64, Default: uint64(defaultBufferInterval)}
	blocksizeSpec = &engine.ParamSpec{Name: "blocksize", Blurb: "Size in bytes to read per buffer",
		TypeName: "guint", Kind: engine.KindUint, Flags: engine.ParamReadWrite, Min: 1, Max: 1 << 24, Default: uint64(4096)}
	modeSpec = &engine.ParamSpec{Name: "mode", Blurb: "Metadata to attach to every buffer",
		TypeName: "GstIdentitySourceMode", Kind: engine.KindFlags, Flags: engine.ParamReadWrite, Class: modeClass, Default: uint64(1)}

	silentSpec = &engine.ParamSpec{Name: "silent", Blurb: "Don't produce last-message events",
		TypeName: "gboolean", Kind: engine.KindBool, Flags: engine.ParamReadWrite, Default: true}
	lastMessageSpec = &engine.ParamSpec{Name: "last-message", Blurb: "The message describing current status",
		TypeName: "gchararray", Kind: engine.KindString, Flags: engine.ParamReadable, Default: ""}
	dropProbabilitySpec = &engine.ParamSpec{Name: "drop-probability", Blurb: "The Probability a buffer is dropped",
		TypeName: "gfloat", Kind: engine.KindFloat, Flags: engine.ParamReadWrite, Min: 0, Max: 1, Default: 0.0}
	errorAfterSpec = &engine.ParamSpec{Name: "error-after", Blurb: "Error after N buffers",
		TypeName: "gint", Kind: engine.KindInt, Flags: engine.ParamReadWrite, Min: -1, Max: math.MaxInt32, Default: int64(-1)}
	levelsSpec = &engine.ParamSpec{Name: "levels", Blurb: "Gain levels applied to every channel",
		TypeName: "GstValueArray", Kind: engine.KindArray, ElementKind: engine.KindDouble, Flags: engine.ParamReadWrite, Default: []float64{}}

	syncSpec = &engine.ParamSpec{Name: "sync", Blurb: "Sync on the clock",
		TypeName: "gboolean", Kind: engine.KindBool, Flags: engine.ParamReadWrite, Default: true}
	emitSignalsSpec = &engine.ParamSpec{Name: "emit-signals", Blurb: "Emit handoff signals for every buffer",
		TypeName: "gboolean", Kind: engine.KindBool, Flags: engine.ParamReadWrite, Default: false}
	receivedSpec = &engine.ParamSpec{Name: "buffers-received", Blurb: "Number of buffers received since the last reset",
		TypeName: "guint64", Kind: engine.KindUint64, Flags: engine.ParamReadable, Default: uint64(0)}

	maxSizeBuffersSpec = &engine.ParamSpec{Name: "max-size-buffers", Blurb: "Max. number of buffers in the queue (0=disable)",
		TypeName: "guint", Kind: engine.KindUint, Flags: engine.ParamReadWrite, Max: math.MaxUint32, Default: uint64(200)}
	leakySpec = &engine.ParamSpec{Name: "leaky", Blurb: "Where the queue leaks, if at all",
		TypeName: "GstQueueLeaky", Kind: engine.KindEnum, Flags: engine.ParamReadWrite, Class: leakyClass, Default: int64(0)}
	currentLevelSpec = &engine.ParamSpec{Name: "current-level-buffers", Blurb: "Current number of buffers in the queue",
		TypeName: "guint", Kind: engine.KindUint, Flags: engine.ParamReadable, Default: uint64(0)}

	dropSpec = &engine.ParamSpec{Name: "drop", Blurb: "Whether to drop buffers and events or let them through",
		TypeName: "gboolean", Kind: engine.KindBool, Flags: engine.ParamReadWrite, Default: false}

	capsSpec = &engine.ParamSpec{Name: "caps", Blurb: "Restrict the possible allowed capabilities",
		TypeName: "GstCaps", Kind: engine.KindOpaque, Flags: engine.ParamReadWrite, Default: "ANY"}

	xposSpec = &engine.ParamSpec{Name: "xpos", Blurb: "X Position of the picture",
		TypeName: "gint", Kind: engine.KindInt, Flags: engine.ParamReadWrite, Min: math.MinInt32, Max: math.MaxInt32, Default: int64(0)}
	yposSpec = &engine.ParamSpec{Name: "ypos", Blurb: "Y Position of the picture",
		TypeName: "gint", Kind: engine.KindInt, Flags: engine.ParamReadWrite, Min: math.MinInt32, Max: math.MaxInt32, Default: int64(0)}
	alphaSpec = &engine.ParamSpec{Name: "alpha", Blurb: "Alpha of the picture",
		TypeName: "gdouble", Kind: engine.KindDouble, Flags: engine.ParamReadWrite, Min: 0, Max: 1, Default: 1.0}

	handoffSignal = &engine.SignalSpec{Name: "handoff", ParamTypes: []string{"GstBuffer", "GstPad"},
		ParamKinds: []engine.Kind{engine.KindOpaque, engine.KindOpaque}, ReturnType: "void", ReturnKind: engine.KindOpaque}
)

func newIdentitySource(eng *Engine, name string) *Element {
	e := newElement(eng, "identity-source", name, roleSource)
	e.install(numBuffersSpec, isLiveSpec, patternSpec, intervalSpec, blocksizeSpec, modeSpec)
	return e
}

func newIdentity(eng *Engine, name string) *Element {
	e := newElement(eng, "identity", name, roleFilter)
	e.install(silentSpec, lastMessageSpec, dropProbabilitySpec, errorAfterSpec, levelsSpec)

	var seen, dropNext atomic.Int64
	e.declare(handoffSignal)
	e.action(&engine.SignalSpec{Name: "drop-next", ParamTypes: []string{"guint"}, ParamKinds: []engine.Kind{engine.KindUint},
		ReturnType: "gint", ReturnKind: engine.KindInt}, func(args []any) (any, error) {
		n, ok := args[0].(uint64)
		if !ok {
			return nil, fmt.Errorf("%w: drop-next expects guint, got %T", engine.ErrBadValue, args[0])
		}
		dropNext.Store(int64(n))
		return int64(0), nil
	})

	e.chain = func(buf *buffer) (bool, error) {
		n := seen.Add(1)
		if after := e.int("error-after"); after >= 0 && n > after {
			return false, fmt.Errorf("%w: buffer %d", errInducedError, n)
		}
		if dropNext.Load() > 0 {
			dropNext.Add(-1)
			return false, nil
		}
		if p := e.float("drop-probability"); p > 0 && rand.Float64() < p {
			return false, nil
		}
		if !e.bool("silent") {
			e.set("last-message", describeBuffer("chain", e.Name(), buf))
		}
		if e.hasHandlers("handoff") {
			_, _ = e.Emit("handoff", describeBuffer("buffer", e.Name(), buf), "sink")
		}
		return true, nil
	}
	e.change = func(from, to engine.State) error {
		if to == engine.StateReady && from == engine.StatePaused {
			seen.Store(0)
		}
		return nil
	}
	return e
}

func newIdentitySink(eng *Engine, name string) *Element {
	e := newElement(eng, "identity-sink", name, roleSink)
	e.install(syncSpec, silentSpec, lastMessageSpec, emitSignalsSpec, receivedSpec)

	var pending atomic.Bool
	e.declare(handoffSignal)
	e.action(&engine.SignalSpec{Name: "reset", ReturnType: "gint", ReturnKind: engine.KindInt}, func(args []any) (any, error) {
		e.set("buffers-received", uint64(0))
		e.set("last-message", "")
		pending.Store(false)
		return int64(0), nil
	})
	e.action(&engine.SignalSpec{Name: "pull-sample", ReturnType: "gint", ReturnKind: engine.KindInt}, func(args []any) (any, error) {
		if pending.Swap(false) {
			return int64(0), nil
		}
		return int64(1), nil
	})

	e.chain = func(buf *buffer) (bool, error) {
		e.set("buffers-received", e.uint("buffers-received")+1)
		pending.Store(true)
		if !e.bool("silent") {
			e.set("last-message", describeBuffer("render", e.Name(), buf))
		}
		if e.bool("emit-signals") {
			_, _ = e.Emit("handoff", describeBuffer("buffer", e.Name(), buf), "sink")
		}
		return false, nil
	}
	return e
}

func newQueue(eng *Engine, name string) *Element {
	e := newElement(eng, "queue", name, roleFilter)
	e.install(maxSizeBuffersSpec, leakySpec, currentLevelSpec)
	return e
}

func newValve(eng *Engine, name string) *Element {
	e := newElement(eng, "valve", name, roleFilter)
	e.install(dropSpec)
	e.chain = func(buf *buffer) (bool, error) {
		return !e.bool("drop"), nil
	}
	return e
}

func newCapsFilter(eng *Engine, name string) *Element {
	e := newElement(eng, "capsfilter", name, roleFilter)
	e.install(capsSpec)
	return e
}

func newMixer(eng *Engine, name string) *Element {
	e := newElement(eng, "mixer", name, roleFilter)
	for i := 0; i < 2; i++ {
		p := &pad{properties: newProperties(fmt.Sprintf("sink_%d", i))}
		p.install(xposSpec, yposSpec, alphaSpec)
		e.pads = append(e.pads, p)
	}
	return e
}

func newErrorSink(eng *Engine, name string) *Element {
	e := newElement(eng, "error-sink", name, roleSink)
	e.change = func(from, to engine.State) error {
		if to > engine.StateNull && to > from {
			return fmt.Errorf("%w: %s refuses to leave NULL", engine.ErrStateChange, e.Name())
		}
		return nil
	}
	return e
}

func describeBuffer(what, element string, buf *buffer) string {
	return fmt.Sprintf("%s   ******* (%s:sink) (%d bytes, pts: %s, offset: %d)",
		what, element, buf.size, engine.FormatClockTime(buf.pts), buf.seq)
}
