package session

import (
	"log/slog"
	"sync/atomic"

	"gstd/pkg/core"
	"gstd/pkg/engine"
	"gstd/pkg/property"
)

// StatsProvider collects per-element buffer statistics.
type StatsProvider interface {
	// CountBuffer records one buffer handled by an element
	CountBuffer(pipeline, element string, size int)
	// Snapshot renders the collected statistics as JSON
	Snapshot() (string, error)
	// Reset clears the collected statistics
	Reset()
}

// Stats exposes buffer statistics through "enable", "stats" and "reset".
// Counting runs only while enabled.
type Stats struct {
	core.Base

	engine   engine.Engine
	provider StatsProvider
	enabled  atomic.Bool
}

// NewStats creates the stats node. provider may be nil, in which case the
// node reports empty statistics.
func NewStats(eng engine.Engine, provider StatsProvider) *Stats {
	s := &Stats{engine: eng, provider: provider}

	attrs := core.NewAttrSet("stats")
	attrs.Add(core.BoolSpec("enable", "Count the buffers of every element", engine.ParamReadWrite),
		func() any { return s.Enabled() },
		func(v any) error {
			s.SetEnabled(v.(bool))
			return nil
		})
	attrs.Add(core.StringSpec("stats", "The collected statistics", engine.ParamReadable),
		func() any { return s.Snapshot() }, nil)
	attrs.Add(core.BoolSpec("reset", "Write true to clear the statistics", engine.ParamReadWrite),
		func() any { return false },
		func(v any) error {
			if v.(bool) && s.provider != nil {
				s.provider.Reset()
			}
			return nil
		})
	s.Base = core.NewBase("stats", attrs, property.DefaultReader)
	return s
}

// Enabled reports whether buffers are being counted
func (s *Stats) Enabled() bool {
	return s.enabled.Load()
}

// SetEnabled installs or removes the engine buffer hook
func (s *Stats) SetEnabled(enable bool) {
	enable = enable && s.provider != nil
	s.enabled.Store(enable)
	if enable {
		s.engine.SetBufferHook(s.provider.CountBuffer)
	} else {
		s.engine.SetBufferHook(nil)
	}
}

// Snapshot returns the statistics document, "{}" when none are collected
func (s *Stats) Snapshot() string {
	if s.provider == nil {
		return "{}"
	}
	out, err := s.provider.Snapshot()
	if err != nil {
		slog.Warn("Failed to collect statistics", "err", err)
		return "{}"
	}
	return out
}
