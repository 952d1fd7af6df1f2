package engine

import (
	"fmt"
	"math"
)

// Coerce checks that value matches the kind of spec, converting between
// Go integer widths where needed, and enforces the descriptor range.
func Coerce(spec *ParamSpec, value any) (any, error) {
	switch spec.Kind {
	case KindBool:
		b, ok := value.(bool)
		if !ok {
			return nil, typeError(spec, value)
		}
		return b, nil
	case KindInt, KindInt64:
		n, ok := toInt64(value)
		if !ok {
			return nil, typeError(spec, value)
		}
		if !inRange(spec, float64(n)) {
			return nil, rangeError(spec, n)
		}
		return n, nil
	case KindUint, KindUint64:
		n, ok := toUint64(value)
		if !ok {
			return nil, typeError(spec, value)
		}
		if !inRange(spec, float64(n)) {
			return nil, rangeError(spec, n)
		}
		return n, nil
	case KindFloat, KindDouble:
		f, ok := toFloat64(value)
		if !ok {
			return nil, typeError(spec, value)
		}
		if !inRange(spec, f) {
			return nil, rangeError(spec, f)
		}
		return f, nil
	case KindString, KindOpaque:
		s, ok := value.(string)
		if !ok {
			return nil, typeError(spec, value)
		}
		return s, nil
	case KindEnum:
		n, ok := toInt64(value)
		if !ok {
			return nil, typeError(spec, value)
		}
		if spec.Class != nil {
			if _, found := spec.Class.ByValue(n); !found {
				return nil, fmt.Errorf("%w: %d is not a member of %s", ErrBadValue, n, spec.Class.TypeName)
			}
		}
		return n, nil
	case KindFlags:
		n, ok := toUint64(value)
		if !ok {
			return nil, typeError(spec, value)
		}
		return n, nil
	case KindArray:
		arr, ok := value.([]float64)
		if !ok {
			return nil, typeError(spec, value)
		}
		return append([]float64(nil), arr...), nil
	default:
		return value, nil
	}
}

func inRange(spec *ParamSpec, v float64) bool {
	if spec.Min == 0 && spec.Max == 0 {
		return true
	}
	return v >= spec.Min && v <= spec.Max
}

func typeError(spec *ParamSpec, value any) error {
	return fmt.Errorf("%w: %s expects %s, got %T", ErrBadValue, spec.Name, spec.Kind, value)
}

func rangeError(spec *ParamSpec, value any) error {
	return fmt.Errorf("%w: %s value %v out of range [%v, %v]", ErrBadValue, spec.Name, value, spec.Min, spec.Max)
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}

func toUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case uint64:
		return n, true
	case int:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case int64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// IntRange returns the natural range for an integer kind
func IntRange(kind Kind) (float64, float64) {
	switch kind {
	case KindInt:
		return math.MinInt32, math.MaxInt32
	case KindUint:
		return 0, math.MaxUint32
	case KindInt64:
		return math.MinInt64, math.MaxInt64
	case KindUint64:
		return 0, math.MaxUint64
	case KindFloat:
		return -math.MaxFloat32, math.MaxFloat32
	default:
		return -math.MaxFloat64, math.MaxFloat64
	}
}
