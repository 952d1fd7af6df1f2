package pipeline

import (
	"log/slog"
	"strconv"
	"strings"

	"gstd/pkg/core"
	"gstd/pkg/engine"
)

// DefaultNamePrefix prefixes generated pipeline names
const DefaultNamePrefix = "pipeline"

// Creator builds pipelines for the pipelines list.
type Creator struct {
	engine engine.Engine
	list   *core.List
	opts   Options
}

// NewCreator returns a creator building into list with eng
func NewCreator(eng engine.Engine, list *core.List, opts Options) *Creator {
	return &Creator{engine: eng, list: list, opts: opts}
}

// Create parses description and wraps the result. An empty name picks the
// next free "pipelineN".
func (c *Creator) Create(name, description string) (core.Node, core.Code) {
	if name == "" {
		name = c.nextName()
	}
	if c.list.Find(name) != nil {
		return nil, core.ExistingName
	}

	el, err := c.engine.ParseLaunch(description)
	if err != nil {
		slog.Debug("Failed to parse pipeline", "pipeline", name, "description", description, "err", err)
		return nil, core.BadDescription
	}
	p, err := c.engine.Wrap(name, el)
	if err != nil {
		slog.Debug("Failed to wrap element", "pipeline", name, "err", err)
		if closer, ok := el.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
		return nil, core.BadDescription
	}

	node := New(name, description, p, c.opts)
	slog.Info("Pipeline created", "pipeline", name, "elements", node.Elements().Count())
	return node, core.EOK
}

// nextName returns DefaultNamePrefix followed by one more than the highest
// index in use
func (c *Creator) nextName() string {
	next := 0
	for _, n := range c.list.Children() {
		suffix, ok := strings.CutPrefix(n.Name(), DefaultNamePrefix)
		if !ok {
			continue
		}
		if i, err := strconv.Atoi(suffix); err == nil && i >= next {
			next = i + 1
		}
	}
	return DefaultNamePrefix + strconv.Itoa(next)
}

// Deleter tears pipelines down before the list unlinks them.
type Deleter struct{}

// Delete forces the pipeline to NULL and releases it
func (Deleter) Delete(node core.Node) core.Code {
	p, ok := node.(*Pipeline)
	if !ok {
		return core.NoResource
	}
	if err := p.Close(); err != nil {
		slog.Warn("Error closing pipeline", "pipeline", p.Name(), "err", err)
	}
	if p.hooks.Deleted != nil {
		p.hooks.Deleted(p.Name())
	}
	slog.Info("Pipeline deleted", "pipeline", p.Name())
	return core.EOK
}

// NewList creates the pipelines list wired to a Creator and a Deleter
func NewList(eng engine.Engine, opts Options) *core.List {
	list := core.NewList("pipelines", core.AccessCreate|core.AccessRead|core.AccessDelete, nil, Deleter{})
	list.SetCreator(NewCreator(eng, list, opts))
	return list
}
