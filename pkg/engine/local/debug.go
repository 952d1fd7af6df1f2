package local

import (
	"context"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"sync"
)

// Debug levels, in increasing verbosity
const (
	LevelNone    = 0
	LevelError   = 1
	LevelWarning = 2
	LevelFixme   = 3
	LevelInfo    = 4
	LevelDebug   = 5
	LevelLog     = 6
	LevelTrace   = 7
	LevelMemdump = 9
)

var levelNames = map[string]int{
	"none":    LevelNone,
	"error":   LevelError,
	"warning": LevelWarning,
	"fixme":   LevelFixme,
	"info":    LevelInfo,
	"debug":   LevelDebug,
	"log":     LevelLog,
	"trace":   LevelTrace,
	"memdump": LevelMemdump,
}

// ANSI colors per level, used when colored output is on
var levelColors = map[int]string{
	LevelError:   "\x1b[31;01m",
	LevelWarning: "\x1b[33;01m",
	LevelFixme:   "\x1b[33m",
	LevelInfo:    "\x1b[32;01m",
	LevelDebug:   "\x1b[36m",
}

type rule struct {
	pattern string
	level   int
}

// Debug is the category logger of the engine.
type Debug struct {
	mu           sync.RWMutex
	active       bool
	colored      bool
	defaultLevel int
	rules        []rule
	logger       *slog.Logger
}

func newDebug(defaultLevel int, logger *slog.Logger) *Debug {
	return &Debug{defaultLevel: defaultLevel, logger: logger}
}

func (d *Debug) IsActive() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.active
}

func (d *Debug) SetActive(active bool) {
	d.mu.Lock()
	d.active = active
	d.mu.Unlock()
}

func (d *Debug) IsColored() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.colored
}

func (d *Debug) SetColored(colored bool) {
	d.mu.Lock()
	d.colored = colored
	d.mu.Unlock()
}

func (d *Debug) DefaultThreshold() int { return d.defaultLevel }

// SetThresholdFromString applies a "category:level,..." list. Categories
// accept shell globs; a bare level applies to every category. Malformed
// entries are skipped.
func (d *Debug) SetThresholdFromString(list string, reset bool) {
	var parsed []rule
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		pattern, levelText, found := strings.Cut(entry, ":")
		if !found {
			pattern, levelText = "*", entry
		}
		level, ok := parseLevel(levelText)
		if !ok || pattern == "" {
			slog.Warn("Ignoring malformed debug threshold", "entry", entry)
			continue
		}
		parsed = append(parsed, rule{pattern: pattern, level: level})
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if reset {
		d.rules = nil
	}
	d.rules = append(d.rules, parsed...)
}

// Threshold returns the level in effect for category. The last matching
// rule wins.
func (d *Debug) Threshold(category string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	level := d.defaultLevel
	for _, r := range d.rules {
		if ok, _ := path.Match(r.pattern, category); ok {
			level = r.level
		}
	}
	return level
}

func parseLevel(text string) (int, bool) {
	text = strings.ToLower(strings.TrimSpace(text))
	if n, err := strconv.Atoi(text); err == nil {
		if n < LevelNone || n > LevelMemdump {
			return 0, false
		}
		return n, true
	}
	n, ok := levelNames[text]
	return n, ok
}

func (d *Debug) log(category string, level int, msg string, args ...any) {
	if !d.IsActive() || level > d.Threshold(category) {
		return
	}
	cat := category
	if d.IsColored() {
		if color, ok := levelColors[level]; ok {
			cat = color + category + "\x1b[00m"
		}
	}
	logger := d.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Log(context.Background(), slogLevel(level), msg, append([]any{"category", cat}, args...)...)
}

func slogLevel(level int) slog.Level {
	switch {
	case level <= LevelError:
		return slog.LevelError
	case level == LevelWarning:
		return slog.LevelWarn
	case level <= LevelInfo:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
