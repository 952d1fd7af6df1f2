package element

import (
	"fmt"

	"gstd/pkg/core"
	"gstd/pkg/engine"
)

// Callback is the captured emission of a signal: its name and the ordered
// argument values.
type Callback struct {
	core.Base
	args []engine.Arg
}

// NewCallback captures one emission of signal
func NewCallback(signal string, args []engine.Arg) *Callback {
	return &Callback{
		Base: core.NewBase(signal, nil, nil),
		args: append([]engine.Arg(nil), args...),
	}
}

// Arguments returns the captured arguments
func (c *Callback) Arguments() []engine.Arg { return c.args }

// Serialize renders {name, arguments: [{type, value}]}
func (c *Callback) Serialize() (*core.Document, core.Code) {
	args := make([]*core.Document, 0, len(c.args))
	for _, a := range c.args {
		args = append(args, core.NewDocument().
			Set("type", a.TypeName).
			Set("value", argValue(a.Value)))
	}
	doc := core.NewDocument().
		Set("name", c.Name()).
		Set("arguments", args)
	return doc, c.Result(core.EOK)
}

func argValue(v any) any {
	switch x := v.(type) {
	case nil, bool, string, int, int32, int64, uint, uint32, uint64, float32, float64:
		return x
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprintf("%v", v)
}
