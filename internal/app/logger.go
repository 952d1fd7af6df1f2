package app

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// InitLogger installs the process-wide slog handler described by config
// and returns the level variable backing it
func InitLogger(config *Config) *slog.LevelVar {
	level := new(slog.LevelVar)
	level.Set(config.GetSlogLevel())
	slog.SetDefault(slog.New(newHandler(os.Stderr, config.Logging.Format, level)))
	return level
}

func newHandler(w io.Writer, format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(format) == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
