package core

import (
	"testing"

	"gstd/pkg/engine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentKeepsOrder(t *testing.T) {
	doc := NewDocument().
		Set("zeta", 1).
		Set("alpha", "a").
		Set("mid", nil)
	doc.Set("zeta", 2)

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, doc.Keys())

	raw, err := doc.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":2,"alpha":"a","mid":null}`, string(raw))
	assert.Equal(t, "{\n  \"zeta\": 2,\n  \"alpha\": \"a\",\n  \"mid\": null\n}", doc.String())
}

func TestDocumentNested(t *testing.T) {
	inner := NewDocument().Set("name", "x")
	doc := NewDocument().Set("inner", inner)

	assert.Same(t, inner, doc.GetDocument("inner"))
	assert.Equal(t, "x", doc.GetDocument("inner").GetString("name"))
	assert.Nil(t, doc.GetDocument("missing"))

	var nilDoc *Document
	_, ok := nilDoc.Get("any")
	assert.False(t, ok)
}

func TestAccessString(t *testing.T) {
	tests := []struct {
		flags engine.ParamFlags
		want  string
	}{
		{engine.ParamReadable, "((GstdParamFlags) READ)"},
		{engine.ParamReadWrite, "((GstdParamFlags) READ | UPDATE)"},
		{engine.ParamWritable, "((GstdParamFlags) UPDATE)"},
		{engine.ParamReadWrite | engine.ParamConstructOnly, "((GstdParamFlags) READ)"},
		{0, "((GstdParamFlags) 0)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AccessString(tt.flags))
	}
}

func TestAttrSet(t *testing.T) {
	value := "initial"
	attrs := NewAttrSet("owner")
	attrs.Add(StringSpec("label", "A label", engine.ParamReadWrite),
		func() any { return value },
		func(v any) error { value = v.(string); return nil })
	attrs.Add(StringSpec("fixed", "Read only", engine.ParamReadWrite), func() any { return "f" }, nil)

	spec := attrs.FindAttribute("label")
	require.NotNil(t, spec)
	require.NoError(t, attrs.SetAttribute(spec, "changed"))
	got, err := attrs.GetAttribute(spec)
	require.NoError(t, err)
	assert.Equal(t, "changed", got)

	assert.ErrorIs(t, attrs.SetAttribute(spec, 42), engine.ErrBadValue)

	fixed := attrs.FindAttribute("fixed")
	require.NotNil(t, fixed)
	assert.False(t, fixed.Flags.Writable())
	assert.ErrorIs(t, attrs.SetAttribute(fixed, "x"), engine.ErrNotWritable)

	assert.Nil(t, attrs.FindAttribute("none"))
}
