package element

import (
	"fmt"
	"log/slog"
	"strings"

	"gstd/pkg/core"
	"gstd/pkg/engine"
	"gstd/pkg/property"
)

// Action exposes one action signal of an element. Creating it emits the
// action with the arguments given in the description.
type Action struct {
	core.Base

	emitter engine.Emitter
	spec    *engine.SignalSpec
}

// NewAction creates the node for spec
func NewAction(emitter engine.Emitter, spec *engine.SignalSpec) *Action {
	return &Action{
		Base:    core.NewBase(spec.Name, nil, nil),
		emitter: emitter,
		spec:    spec,
	}
}

// Create emits the action. name must be the action name and description
// carries the space separated arguments.
func (a *Action) Create(name, description string) core.Code {
	if name != "" && name != a.spec.Name {
		return a.Result(core.NoResource)
	}
	fields := strings.Fields(description)
	if len(fields) != len(a.spec.ParamTypes) {
		slog.Debug("Wrong number of action arguments", "action", a.spec.Name,
			"want", len(a.spec.ParamTypes), "got", len(fields))
		return a.Result(core.BadValue)
	}

	args := make([]any, len(fields))
	for i, text := range fields {
		spec := &engine.ParamSpec{
			Name:     fmt.Sprintf("arg%d", i),
			TypeName: a.spec.ParamTypes[i],
			Kind:     a.kind(i),
			Flags:    engine.ParamReadWrite,
		}
		v, err := property.Parse(spec, text)
		if err != nil {
			slog.Debug("Invalid action argument", "action", a.spec.Name, "arg", text, "err", err)
			return a.Result(core.BadValue)
		}
		args[i] = v
	}

	ret, err := a.emitter.Emit(a.spec.Name, args...)
	if err != nil {
		slog.Debug("Action failed", "action", a.spec.Name, "err", err)
		return a.Result(core.BadValue)
	}
	if a.spec.ReturnKind.IsInteger() {
		if n, ok := ret.(int64); ok && n != 0 {
			return a.Result(core.BadValue)
		}
		if n, ok := ret.(uint64); ok && n != 0 {
			return a.Result(core.BadValue)
		}
	}
	return a.Result(core.EOK)
}

func (a *Action) kind(i int) engine.Kind {
	if i < len(a.spec.ParamKinds) {
		return a.spec.ParamKinds[i]
	}
	return engine.KindString
}

// Serialize renders {name, arguments: [type names], return}
func (a *Action) Serialize() (*core.Document, core.Code) {
	args := append([]string{}, a.spec.ParamTypes...)
	doc := core.NewDocument().
		Set("name", a.spec.Name).
		Set("arguments", args).
		Set("return", a.spec.ReturnType)
	return doc, a.Result(core.EOK)
}
