// Package session builds the root of the resource tree. A Session is
// constructed explicitly and owns every pipeline created through it.
package session

import (
	"errors"
	"log/slog"
	"math"
	"os"

	"gstd/pkg/core"
	"gstd/pkg/engine"
	"gstd/pkg/pipeline"
	"gstd/pkg/property"
)

// ErrNoEngine is returned when a session is built without an engine
var ErrNoEngine = errors.New("session needs an engine")

// Config holds what a session is built from. Engine is required.
type Config struct {
	Engine   engine.Engine
	Pipeline pipeline.Options
	Stats    StatsProvider
	// LogLevel, when set, is lowered to debug while engine debug is enabled
	LogLevel       *slog.LevelVar
	DebugThreshold string
	DebugColor     bool
	DebugEnable    bool
}

// Session is the root node: "/".
type Session struct {
	core.Base

	engine    engine.Engine
	pipelines *core.List
	debug     *Debug
	stats     *Stats
}

// New builds a session around cfg.Engine
func New(cfg Config) (*Session, error) {
	if cfg.Engine == nil {
		return nil, ErrNoEngine
	}
	s := &Session{
		engine:    cfg.Engine,
		pipelines: pipeline.NewList(cfg.Engine, cfg.Pipeline),
		debug:     NewDebug(cfg.Engine.Debug(), cfg.LogLevel, cfg.DebugThreshold, cfg.DebugColor, cfg.DebugEnable),
		stats:     NewStats(cfg.Engine, cfg.Stats),
	}

	attrs := core.NewAttrSet("")
	attrs.Add(core.ObjectSpec("pipelines", "The list of pipelines", "GstdList"),
		func() any { return s.pipelines }, nil)
	attrs.Add(core.ObjectSpec("debug", "The debug configuration", "GstdDebug"),
		func() any { return s.debug }, nil)
	attrs.Add(core.ObjectSpec("stats", "The element statistics", "GstdStats"),
		func() any { return s.stats }, nil)
	attrs.Add(core.IntSpec("pid", "The process id of the daemon", 0, math.MaxInt32, engine.ParamReadable),
		func() any { return int64(os.Getpid()) }, nil)
	s.Base = core.NewBase("", attrs, property.DefaultReader)

	slog.Info("Session created", "pid", os.Getpid())
	return s, nil
}

// Pipelines returns the pipelines list
func (s *Session) Pipelines() *core.List { return s.pipelines }

// Debug returns the debug node
func (s *Session) Debug() *Debug { return s.debug }

// Stats returns the stats node
func (s *Session) Stats() *Stats { return s.stats }

// Resolve walks path from the root
func (s *Session) Resolve(path string) (core.Node, core.Code) {
	return core.Resolve(s, path)
}

// Close tears every pipeline down
func (s *Session) Close() error {
	for _, n := range s.pipelines.Children() {
		if code := s.pipelines.Delete(n.Name()); code != core.EOK {
			slog.Warn("Failed to delete pipeline", "pipeline", n.Name(), "code", code)
		}
	}
	s.pipelines.Clear()
	s.engine.SetBufferHook(nil)
	slog.Info("Session closed")
	return nil
}
