package property

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"gstd/pkg/core"
	"gstd/pkg/engine"
)

// codec converts between attribute values and their text forms.
type codec interface {
	// parse turns an update argument into a value accepted by SetAttribute
	parse(spec *engine.ParamSpec, text string) (any, error)
	// format turns a value into its serialized form
	format(spec *engine.ParamSpec, value any) any
}

// Property is a typed node bound to one attribute of an engine object.
// Reads and writes pass straight through to the object.
type Property struct {
	core.Base

	owner engine.Object
	spec  *engine.ParamSpec
	codec codec
}

// New creates the property node matching the kind of spec. name is the
// address of the attribute, including any child prefix.
func New(owner engine.Object, spec *engine.ParamSpec, name string) *Property {
	return &Property{
		Base:  core.NewBase(name, nil, nil),
		owner: owner,
		spec:  spec,
		codec: codecFor(spec.Kind),
	}
}

func codecFor(kind engine.Kind) codec {
	switch kind {
	case engine.KindBool:
		return boolCodec{}
	case engine.KindInt, engine.KindInt64, engine.KindUint, engine.KindUint64:
		return intCodec{}
	case engine.KindFloat, engine.KindDouble:
		return floatCodec{}
	case engine.KindString:
		return stringCodec{}
	case engine.KindEnum:
		return enumCodec{}
	case engine.KindFlags:
		return flagsCodec{}
	case engine.KindArray:
		return arrayCodec{}
	default:
		return opaqueCodec{}
	}
}

// Parse converts text into a value of the kind described by spec, as
// property updates do
func Parse(spec *engine.ParamSpec, text string) (any, error) {
	return codecFor(spec.Kind).parse(spec, strings.TrimSpace(text))
}

// Format renders value the way property nodes serialize it
func Format(spec *engine.ParamSpec, value any) any {
	return codecFor(spec.Kind).format(spec, value)
}

// Spec returns the attribute descriptor
func (p *Property) Spec() *engine.ParamSpec { return p.spec }

// Value reads the live value from the owner
func (p *Property) Value() (any, core.Code) {
	if !p.spec.Flags.Readable() {
		return nil, core.NoRead
	}
	v, err := p.owner.GetAttribute(p.spec)
	if err != nil {
		slog.Debug("Failed to read property", "property", p.Name(), "err", err)
		return nil, core.NoRead
	}
	return v, core.EOK
}

// Update parses text and writes it to the owner
func (p *Property) Update(text string) core.Code {
	if !p.spec.Flags.Writable() {
		return p.Result(core.NoUpdate)
	}
	v, err := p.codec.parse(p.spec, strings.TrimSpace(text))
	if err != nil {
		slog.Debug("Invalid property value", "property", p.Name(), "value", text, "err", err)
		return p.Result(core.BadValue)
	}
	if err := p.owner.SetAttribute(p.spec, v); err != nil {
		slog.Debug("Failed to set property", "property", p.Name(), "err", err)
		if errors.Is(err, engine.ErrNotWritable) {
			return p.Result(core.NoUpdate)
		}
		return p.Result(core.BadValue)
	}
	return p.Result(core.EOK)
}

// Serialize renders {name, value, param{description, type, access}}. The
// value is null for attributes that cannot be read.
func (p *Property) Serialize() (*core.Document, core.Code) {
	var value any
	if p.spec.Flags.Readable() {
		v, code := p.Value()
		if code != core.EOK {
			return nil, p.Result(code)
		}
		value = p.codec.format(p.spec, v)
	}
	doc := core.PropertyDocument(p.spec, value)
	doc.Set("name", p.Name())
	return doc, p.Result(core.EOK)
}

type boolCodec struct{}

func (boolCodec) parse(spec *engine.ParamSpec, text string) (any, error) {
	switch strings.ToLower(text) {
	case "true", "yes", "1":
		return true, nil
	case "false", "no", "0":
		return false, nil
	}
	return nil, fmt.Errorf("%w: %q is not a boolean", engine.ErrBadValue, text)
}

func (boolCodec) format(spec *engine.ParamSpec, value any) any { return value }

type intCodec struct{}

func (intCodec) parse(spec *engine.ParamSpec, text string) (any, error) {
	lo, hi := limits(spec)
	switch spec.Kind {
	case engine.KindUint, engine.KindUint64:
		n, err := strconv.ParseUint(text, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", engine.ErrBadValue, text, err)
		}
		if float64(n) < lo || float64(n) > hi {
			return nil, fmt.Errorf("%w: %d out of range", engine.ErrBadValue, n)
		}
		return n, nil
	default:
		n, err := strconv.ParseInt(text, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", engine.ErrBadValue, text, err)
		}
		if float64(n) < lo || float64(n) > hi {
			return nil, fmt.Errorf("%w: %d out of range", engine.ErrBadValue, n)
		}
		return n, nil
	}
}

func (intCodec) format(spec *engine.ParamSpec, value any) any { return value }

// limits returns the declared range of spec, or the natural range of its kind
func limits(spec *engine.ParamSpec) (float64, float64) {
	if spec.Min == 0 && spec.Max == 0 {
		return engine.IntRange(spec.Kind)
	}
	return spec.Min, spec.Max
}

type floatCodec struct{}

func (floatCodec) parse(spec *engine.ParamSpec, text string) (any, error) {
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) {
		return nil, fmt.Errorf("%w: %q is not a number", engine.ErrBadValue, text)
	}
	if lo, hi := limits(spec); f < lo || f > hi {
		return nil, fmt.Errorf("%w: %v out of range", engine.ErrBadValue, f)
	}
	return f, nil
}

func (floatCodec) format(spec *engine.ParamSpec, value any) any { return value }

type stringCodec struct{}

func (stringCodec) parse(spec *engine.ParamSpec, text string) (any, error) { return text, nil }

func (stringCodec) format(spec *engine.ParamSpec, value any) any { return value }

// enumCodec accepts a member name, then a nick, then a number.
type enumCodec struct{}

func (enumCodec) parse(spec *engine.ParamSpec, text string) (any, error) {
	if spec.Class != nil {
		if v, ok := spec.Class.ByName(text); ok {
			return v.Value, nil
		}
		if v, ok := spec.Class.ByNick(text); ok {
			return v.Value, nil
		}
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a member of %s", engine.ErrBadValue, text, spec.TypeName)
	}
	return n, nil
}

func (enumCodec) format(spec *engine.ParamSpec, value any) any {
	n, _ := value.(int64)
	if spec.Class != nil {
		if v, ok := spec.Class.ByValue(n); ok {
			return fmt.Sprintf("((%s) %s)", spec.TypeName, v.Name)
		}
	}
	return fmt.Sprintf("((%s) %d)", spec.TypeName, n)
}

// flagsCodec accepts "a+b", "a|b" or a number.
type flagsCodec struct{}

func (flagsCodec) parse(spec *engine.ParamSpec, text string) (any, error) {
	if n, err := strconv.ParseUint(text, 0, 64); err == nil {
		return n, nil
	}
	var out uint64
	tokens := strings.FieldsFunc(text, func(r rune) bool { return r == '+' || r == '|' })
	if len(tokens) == 0 || spec.Class == nil {
		return nil, fmt.Errorf("%w: %q is not a %s value", engine.ErrBadValue, text, spec.TypeName)
	}
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		v, ok := spec.Class.ByNick(tok)
		if !ok {
			v, ok = spec.Class.ByName(tok)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %q is not a member of %s", engine.ErrBadValue, tok, spec.TypeName)
		}
		out |= uint64(v.Value)
	}
	return out, nil
}

func (flagsCodec) format(spec *engine.ParamSpec, value any) any {
	n, _ := value.(uint64)
	var names []string
	if spec.Class != nil {
		for _, v := range spec.Class.Values {
			if v.Value != 0 && n&uint64(v.Value) == uint64(v.Value) {
				names = append(names, v.Name)
			}
		}
	}
	if len(names) == 0 {
		return fmt.Sprintf("((%s) %d)", spec.TypeName, n)
	}
	return fmt.Sprintf("((%s) %s)", spec.TypeName, strings.Join(names, " | "))
}

// arrayCodec reads space or comma separated numbers, optionally in <>.
type arrayCodec struct{}

func (arrayCodec) parse(spec *engine.ParamSpec, text string) (any, error) {
	text = strings.TrimSuffix(strings.TrimPrefix(text, "<"), ">")
	out := []float64{}
	for _, tok := range strings.FieldsFunc(text, func(r rune) bool { return r == ' ' || r == ',' }) {
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", engine.ErrBadValue, tok)
		}
		out = append(out, f)
	}
	return out, nil
}

func (arrayCodec) format(spec *engine.ParamSpec, value any) any {
	arr, _ := value.([]float64)
	if arr == nil {
		return []float64{}
	}
	return arr
}

// opaqueCodec passes text through and renders values with %v.
type opaqueCodec struct{}

func (opaqueCodec) parse(spec *engine.ParamSpec, text string) (any, error) { return text, nil }

func (opaqueCodec) format(spec *engine.ParamSpec, value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprintf("%v", value)
}
