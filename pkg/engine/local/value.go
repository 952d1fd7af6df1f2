package local

import (
	"fmt"
	"strconv"
	"strings"

	"gstd/pkg/engine"
)

// deserialize converts launch-line text into a value for spec
func deserialize(spec *engine.ParamSpec, text string) (any, error) {
	bad := func() error {
		return fmt.Errorf("%w: cannot convert %q to %s for %s", engine.ErrBadValue, text, spec.TypeName, spec.Name)
	}
	switch spec.Kind {
	case engine.KindBool:
		switch strings.ToLower(text) {
		case "true", "yes", "1", "t":
			return true, nil
		case "false", "no", "0", "f":
			return false, nil
		}
		return nil, bad()
	case engine.KindInt, engine.KindInt64:
		n, err := strconv.ParseInt(text, 0, 64)
		if err != nil {
			return nil, bad()
		}
		return n, nil
	case engine.KindUint, engine.KindUint64:
		n, err := strconv.ParseUint(text, 0, 64)
		if err != nil {
			return nil, bad()
		}
		return n, nil
	case engine.KindFloat, engine.KindDouble:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, bad()
		}
		return f, nil
	case engine.KindEnum:
		if v, ok := spec.Class.ByName(text); ok {
			return v.Value, nil
		}
		if v, ok := spec.Class.ByNick(text); ok {
			return v.Value, nil
		}
		if n, err := strconv.ParseInt(text, 0, 64); err == nil {
			return n, nil
		}
		return nil, bad()
	case engine.KindFlags:
		var out uint64
		for _, tok := range strings.FieldsFunc(text, func(r rune) bool { return r == '+' || r == '|' }) {
			tok = strings.TrimSpace(tok)
			if v, ok := spec.Class.ByNick(tok); ok {
				out |= uint64(v.Value)
			} else if v, ok := spec.Class.ByName(tok); ok {
				out |= uint64(v.Value)
			} else if n, err := strconv.ParseUint(tok, 0, 64); err == nil {
				out |= n
			} else {
				return nil, bad()
			}
		}
		return out, nil
	case engine.KindArray:
		var out []float64
		for _, tok := range strings.FieldsFunc(text, func(r rune) bool { return r == ' ' || r == ',' || r == '<' || r == '>' }) {
			f, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, bad()
			}
			out = append(out, f)
		}
		return out, nil
	case engine.KindString, engine.KindOpaque:
		return text, nil
	}
	return nil, fmt.Errorf("%w: %s cannot be set from a description", engine.ErrBadValue, spec.Name)
}
