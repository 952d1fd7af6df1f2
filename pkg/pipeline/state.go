package pipeline

import (
	"log/slog"
	"math"
	"strings"

	"gstd/pkg/core"
	"gstd/pkg/engine"
)

var stateSpec = &engine.ParamSpec{
	Name:     "state",
	Blurb:    "The state of the pipeline",
	TypeName: "GstState",
	Kind:     engine.KindEnum,
	Flags:    engine.ParamReadWrite,
	Class:    engine.StateClass,
}

var playRefSpec = core.IntSpec("refcount", "The number of holders keeping the pipeline playing", 0, math.MaxInt32, engine.ParamReadable)

// State is the play state of a pipeline. It is always read from the engine,
// so transitions the pipeline makes on its own are visible.
type State struct {
	core.Base

	pipeline engine.Pipeline
	plays    core.Refcount
}

// NewState creates the state node of p
func NewState(p engine.Pipeline) *State {
	return &State{Base: core.NewBase("state", nil, nil), pipeline: p}
}

// Current returns the live engine state
func (s *State) Current() engine.State { return s.pipeline.GetState() }

// Update parses a state name and applies it
func (s *State) Update(text string) core.Code {
	target, ok := engine.ParseState(strings.TrimSpace(text))
	if !ok {
		return s.Result(core.BadValue)
	}
	return s.Result(s.set(target))
}

func (s *State) set(target engine.State) core.Code {
	if err := s.pipeline.SetState(target); err != nil {
		slog.Debug("State change failed", "pipeline", s.pipeline.Name(), "state", target, "err", err)
		return core.StateError
	}
	return core.EOK
}

// Read exposes the play refcount
func (s *State) Read(name string) (core.Node, core.Code) {
	if name == playRefSpec.Name {
		return core.NewValueNode(playRefSpec, int64(s.plays.Count())), s.Result(core.EOK)
	}
	return nil, s.Result(core.NoResource)
}

// Serialize renders {name, value, param} with the live state
func (s *State) Serialize() (*core.Document, core.Code) {
	return core.PropertyDocument(stateSpec, s.Current().String()), s.Result(core.EOK)
}

// PlayRef takes a play reference. Only the first holder changes the state
// to PLAYING; if that fails no reference is taken.
func (s *State) PlayRef() core.Code {
	code := core.EOK
	s.plays.Locked(func(n *int) {
		if *n == 0 {
			if code = s.set(engine.StatePlaying); code != core.EOK {
				return
			}
		}
		*n++
	})
	return s.Result(code)
}

// StopRef drops a play reference. Only the last holder changes the state
// to NULL. Dropping a reference nobody holds is a no-op.
func (s *State) StopRef() core.Code {
	code := core.EOK
	s.plays.Locked(func(n *int) {
		if *n == 0 {
			return
		}
		if *n == 1 {
			if code = s.set(engine.StateNull); code != core.EOK {
				return
			}
		}
		*n--
	})
	return s.Result(code)
}

// Plays returns the play refcount
func (s *State) Plays() int { return s.plays.Count() }
