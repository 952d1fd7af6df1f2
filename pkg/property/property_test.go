package property

import (
	"testing"

	"gstd/pkg/core"
	"gstd/pkg/engine"
	"gstd/pkg/engine/local"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func element(t *testing.T, description string) engine.Element {
	t.Helper()
	el, err := local.New().ParseLaunch(description)
	require.NoError(t, err)
	return el
}

func read(t *testing.T, owner engine.Object, name string) *Property {
	t.Helper()
	node, code := DefaultReader.Read(owner, name)
	require.Equal(t, core.EOK, code)
	p, ok := node.(*Property)
	require.True(t, ok, "got %T", node)
	return p
}

func value(t *testing.T, p *Property) any {
	t.Helper()
	doc, code := p.Serialize()
	require.Equal(t, core.EOK, code)
	v, _ := doc.Get("value")
	return v
}

func TestUpdateByKind(t *testing.T) {
	source := element(t, "identity-source")
	identity := element(t, "identity")
	sink := element(t, "identity-sink")

	tests := []struct {
		name  string
		owner engine.Object
		attr  string
		input string
		code  core.Code
		want  any
	}{
		{"bool yes", sink, "silent", "yes", core.EOK, true},
		{"bool zero", sink, "silent", "0", core.EOK, false},
		{"bool upper", sink, "silent", "TRUE", core.EOK, true},
		{"bool junk", sink, "silent", "maybe", core.BadValue, true},
		{"int", source, "num-buffers", "42", core.EOK, int64(42)},
		{"int hex", source, "num-buffers", "0x10", core.EOK, int64(16)},
		{"int overflow", source, "num-buffers", "99999999999", core.BadValue, int64(16)},
		{"int below min", source, "num-buffers", "-2", core.BadValue, int64(16)},
		{"int junk", source, "num-buffers", "ten", core.BadValue, int64(16)},
		{"uint negative", source, "blocksize", "-1", core.BadValue, uint64(4096)},
		{"float", identity, "drop-probability", "0.25", core.EOK, 0.25},
		{"float range", identity, "drop-probability", "1.5", core.BadValue, 0.25},
		{"string", identity, "name", "renamed", core.NoUpdate, "identity0"},
		{"enum by name", source, "pattern", "GST_IDENTITY_SOURCE_PATTERN_BLACK", core.EOK,
			"((GstIdentitySourcePattern) GST_IDENTITY_SOURCE_PATTERN_BLACK)"},
		{"enum by nick", source, "pattern", "snow", core.EOK,
			"((GstIdentitySourcePattern) GST_IDENTITY_SOURCE_PATTERN_SNOW)"},
		{"enum by number", source, "pattern", "3", core.EOK,
			"((GstIdentitySourcePattern) GST_IDENTITY_SOURCE_PATTERN_BALL)"},
		{"enum not a member", source, "pattern", "9", core.BadValue,
			"((GstIdentitySourcePattern) GST_IDENTITY_SOURCE_PATTERN_BALL)"},
		{"enum junk", source, "pattern", "plaid", core.BadValue,
			"((GstIdentitySourcePattern) GST_IDENTITY_SOURCE_PATTERN_BALL)"},
		{"flags", source, "mode", "timestamp+sequence", core.EOK,
			"((GstIdentitySourceMode) GST_IDENTITY_SOURCE_MODE_TIMESTAMP | GST_IDENTITY_SOURCE_MODE_SEQUENCE)"},
		{"flags none", source, "mode", "0", core.EOK, "((GstIdentitySourceMode) 0)"},
		{"flags junk", source, "mode", "timestamp+bogus", core.BadValue, "((GstIdentitySourceMode) 0)"},
		{"array", identity, "levels", "1 2.5, 3", core.EOK, []float64{1, 2.5, 3}},
		{"array bracketed", identity, "levels", "<0.5>", core.EOK, []float64{0.5}},
		{"array junk", identity, "levels", "1 x", core.BadValue, []float64{0.5}},
		{"status string", identity, "last-message", "x", core.NoUpdate, ""},
		{"read only", sink, "buffers-received", "3", core.NoUpdate, uint64(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := read(t, tt.owner, tt.attr)
			assert.Equal(t, tt.code, p.Update(tt.input))
			assert.Equal(t, tt.code, p.LastCode())
			assert.Equal(t, tt.want, value(t, p))
		})
	}
}

func TestSerializeDocument(t *testing.T) {
	p := read(t, element(t, "identity-sink"), "silent")
	doc, code := p.Serialize()
	require.Equal(t, core.EOK, code)

	raw, err := doc.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"name": "silent",
		"value": true,
		"param": {
			"description": "Don't produce last-message events",
			"type": "gboolean",
			"access": "((GstdParamFlags) READ | UPDATE)"
		}
	}`, string(raw))
}

func TestReaderFailures(t *testing.T) {
	el := element(t, "identity")

	_, code := DefaultReader.Read(el, "missing")
	assert.Equal(t, core.NoResource, code)

	_, code = DefaultReader.Read(nil, "name")
	assert.Equal(t, core.NullArgument, code)

	attrs := core.NewAttrSet("writeonly")
	attrs.Add(core.StringSpec("secret", "Write only", engine.ParamReadWrite), nil, func(any) error { return nil })
	_, code = DefaultReader.Read(attrs, "secret")
	assert.Equal(t, core.NoRead, code)
}

func TestReaderReturnsNodesDirectly(t *testing.T) {
	child := core.NewList("children", core.AccessRead, core.NoCreator{}, core.NoDeleter{})
	attrs := core.NewAttrSet("owner")
	attrs.Add(core.ObjectSpec("children", "Nested list", "GstdList"), func() any { return child }, nil)

	node, code := DefaultReader.Read(attrs, "children")
	require.Equal(t, core.EOK, code)
	assert.Same(t, child, node)
}

func TestChildPrefixes(t *testing.T) {
	mixer := element(t, "mixer")

	p := read(t, mixer, "sink_0::xpos")
	assert.Equal(t, "sink_0::xpos", p.Name())
	require.Equal(t, core.EOK, p.Update("120"))
	assert.Equal(t, int64(120), value(t, p))
	assert.Equal(t, int64(0), value(t, read(t, mixer, "sink_1::xpos")))

	_, code := DefaultReader.Read(mixer, "sink_9::xpos")
	assert.Equal(t, core.NoResource, code)
	_, code = DefaultReader.Read(element(t, "queue"), "a::b")
	assert.Equal(t, core.NoResource, code)

	var walked []string
	Walk(mixer, func(name string, target engine.Object, spec *engine.ParamSpec) {
		walked = append(walked, name)
	})
	assert.Contains(t, walked, "name")
	assert.Contains(t, walked, "sink_0::xpos")
	assert.Contains(t, walked, "sink_1::alpha")
}
