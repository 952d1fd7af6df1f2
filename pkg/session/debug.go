package session

import (
	"log/slog"
	"sync"

	"gstd/pkg/core"
	"gstd/pkg/engine"
	"gstd/pkg/property"
)

// Debug controls the engine debug output through "enable", "color",
// "threshold" and "reset".
type Debug struct {
	core.Base

	debug    engine.Debug
	logLevel *slog.LevelVar
	base     slog.Level

	mu        sync.Mutex
	threshold string
	reset     bool
}

// NewDebug creates the debug node. logLevel may be nil.
func NewDebug(debug engine.Debug, logLevel *slog.LevelVar, threshold string, color, enable bool) *Debug {
	d := &Debug{debug: debug, logLevel: logLevel, threshold: threshold}
	if logLevel != nil {
		d.base = logLevel.Level()
	}
	debug.SetColored(color)

	attrs := core.NewAttrSet("debug")
	attrs.Add(core.BoolSpec("enable", "Enable the debug output", engine.ParamReadWrite),
		func() any { return debug.IsActive() },
		func(v any) error {
			d.SetEnabled(v.(bool))
			return nil
		})
	attrs.Add(core.BoolSpec("color", "Color the debug output", engine.ParamReadWrite),
		func() any { return debug.IsColored() },
		func(v any) error {
			debug.SetColored(v.(bool))
			return nil
		})
	attrs.Add(core.StringSpec("threshold", "The debug threshold, as in \"*:3,identity:5\"", engine.ParamReadWrite),
		func() any { return d.Threshold() },
		func(v any) error {
			d.SetThreshold(v.(string))
			return nil
		})
	attrs.Add(core.BoolSpec("reset", "Clear previous thresholds on the next threshold update", engine.ParamReadWrite),
		func() any {
			d.mu.Lock()
			defer d.mu.Unlock()
			return d.reset
		},
		func(v any) error {
			d.mu.Lock()
			d.reset = v.(bool)
			d.mu.Unlock()
			return nil
		})
	d.Base = core.NewBase("debug", attrs, property.DefaultReader)

	if enable {
		d.SetEnabled(true)
	}
	return d
}

// Threshold returns the last threshold set
func (d *Debug) Threshold() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.threshold
}

// SetEnabled turns engine debug on or off. Enabling applies the threshold
// and drops the daemon log level to debug.
func (d *Debug) SetEnabled(enable bool) {
	d.debug.SetActive(enable)
	if enable {
		d.apply()
	}
	if d.logLevel != nil {
		if enable {
			d.logLevel.Set(slog.LevelDebug)
		} else {
			d.logLevel.Set(d.base)
		}
	}
	slog.Info("Debug output changed", "enabled", enable)
}

// SetThreshold stores threshold and applies it when debug is enabled
func (d *Debug) SetThreshold(threshold string) {
	d.mu.Lock()
	d.threshold = threshold
	d.mu.Unlock()
	if d.debug.IsActive() {
		d.apply()
	}
}

func (d *Debug) apply() {
	d.mu.Lock()
	threshold, reset := d.threshold, d.reset
	d.mu.Unlock()
	if threshold != "" {
		d.debug.SetThresholdFromString(threshold, reset)
	}
}
