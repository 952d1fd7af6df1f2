package core

import (
	"bytes"
	"encoding/json"
)

type field struct {
	key   string
	value any
}

// Document is the structured rendering of a node. Keys keep insertion
// order when marshaled.
type Document struct {
	fields []field
}

// NewDocument creates an empty document
func NewDocument() *Document {
	return &Document{}
}

// Set adds or replaces a key and returns the document for chaining
func (d *Document) Set(key string, value any) *Document {
	for i := range d.fields {
		if d.fields[i].key == key {
			d.fields[i].value = value
			return d
		}
	}
	d.fields = append(d.fields, field{key: key, value: value})
	return d
}

// Get returns the value stored under key
func (d *Document) Get(key string) (any, bool) {
	if d == nil {
		return nil, false
	}
	for _, f := range d.fields {
		if f.key == key {
			return f.value, true
		}
	}
	return nil, false
}

// GetString returns the value under key when it is a string
func (d *Document) GetString(key string) string {
	v, _ := d.Get(key)
	s, _ := v.(string)
	return s
}

// GetDocument returns the nested document under key
func (d *Document) GetDocument(key string) *Document {
	v, _ := d.Get(key)
	doc, _ := v.(*Document)
	return doc
}

// Keys returns the keys in insertion order
func (d *Document) Keys() []string {
	keys := make([]string, 0, len(d.fields))
	for _, f := range d.fields {
		keys = append(keys, f.key)
	}
	return keys
}

// MarshalJSON implements json.Marshaler
func (d *Document) MarshalJSON() ([]byte, error) {
	if d == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range d.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(f.value)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// String renders the document as indented JSON
func (d *Document) String() string {
	raw, err := json.Marshal(d)
	if err != nil {
		return "null"
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return string(raw)
	}
	return out.String()
}
