package engine

import "strings"

// Kind classifies the value type of an attribute.
type Kind int

const (
	KindOpaque Kind = iota
	KindBool
	KindInt
	KindUint
	KindInt64
	KindUint64
	KindFloat
	KindDouble
	KindString
	KindEnum
	KindFlags
	KindArray
	KindObject
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindInt64:
		return "int64"
	case KindUint64:
		return "uint64"
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	case KindEnum:
		return "enum"
	case KindFlags:
		return "flags"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "opaque"
	}
}

// IsInteger reports whether the kind belongs to the integer family
func (k Kind) IsInteger() bool {
	return k == KindInt || k == KindUint || k == KindInt64 || k == KindUint64
}

// ParamFlags describes how an attribute may be accessed.
type ParamFlags uint

const (
	ParamReadable ParamFlags = 1 << iota
	ParamWritable
	ParamConstructOnly
)

// Readable reports whether the attribute can be read
func (f ParamFlags) Readable() bool { return f&ParamReadable != 0 }

// Writable reports whether the attribute can be written
func (f ParamFlags) Writable() bool { return f&ParamWritable != 0 && f&ParamConstructOnly == 0 }

// ParamReadWrite is the common readable + writable combination
const ParamReadWrite = ParamReadable | ParamWritable

// EnumValue is one member of an enum or flags class.
type EnumValue struct {
	Value int64
	Name  string
	Nick  string
}

// EnumClass describes the members of an enum or flags type.
type EnumClass struct {
	TypeName string
	Values   []EnumValue
}

// ByName finds a member by its full name
func (c *EnumClass) ByName(name string) (EnumValue, bool) {
	for _, v := range c.Values {
		if v.Name == name {
			return v, true
		}
	}
	return EnumValue{}, false
}

// ByNick finds a member by its short alias
func (c *EnumClass) ByNick(nick string) (EnumValue, bool) {
	for _, v := range c.Values {
		if v.Nick == nick {
			return v, true
		}
	}
	return EnumValue{}, false
}

// ByValue finds a member by its numeric value
func (c *EnumClass) ByValue(value int64) (EnumValue, bool) {
	for _, v := range c.Values {
		if v.Value == value {
			return v, true
		}
	}
	return EnumValue{}, false
}

// FlagsString renders a flags value as "nick+nick". Zero renders as the
// member whose value is 0, if any, else as an empty string.
func (c *EnumClass) FlagsString(value uint64) string {
	if value == 0 {
		if v, ok := c.ByValue(0); ok {
			return v.Nick
		}
		return ""
	}
	var parts []string
	for _, v := range c.Values {
		if v.Value != 0 && value&uint64(v.Value) == uint64(v.Value) {
			parts = append(parts, v.Nick)
		}
	}
	return strings.Join(parts, "+")
}

// ParamSpec describes one attribute of an Object.
type ParamSpec struct {
	Name     string
	Blurb    string
	TypeName string
	Kind     Kind
	Flags    ParamFlags

	// Range limits for the integer and float families.
	Min float64
	Max float64

	Default any

	// Class is set for KindEnum and KindFlags.
	Class *EnumClass

	// ElementKind is set for KindArray.
	ElementKind Kind
}
