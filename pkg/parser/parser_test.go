package parser

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"gstd/pkg/core"
	"gstd/pkg/engine/local"
	"gstd/pkg/pipeline"
	"gstd/pkg/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const simple = "identity-source ! identity-sink"

func newParser(t *testing.T, opts ...Option) *Parser {
	t.Helper()
	s, err := session.New(session.Config{
		Engine:   local.New(),
		Pipeline: pipeline.DefaultOptions(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return New(s, opts...)
}

func run(t *testing.T, p *Parser, line string) *core.Document {
	t.Helper()
	code, doc := p.Parse(line)
	require.Equal(t, core.EOK, code, line)
	return doc
}

// property finds the value of the named entry in a node's "properties"
func property(t *testing.T, doc *core.Document, name string) any {
	t.Helper()
	require.NotNil(t, doc)
	v, ok := doc.Get("properties")
	require.True(t, ok, "document has no properties")
	for _, p := range v.([]*core.Document) {
		if p.GetString("name") == name {
			value, _ := p.Get("value")
			return value
		}
	}
	t.Fatalf("no property %q", name)
	return nil
}

func nodeNames(t *testing.T, doc *core.Document) []string {
	t.Helper()
	require.NotNil(t, doc)
	v, ok := doc.Get("nodes")
	require.True(t, ok, "document has no nodes")
	var names []string
	for _, n := range v.([]*core.Document) {
		names = append(names, n.GetString("name"))
	}
	return names
}

func value(t *testing.T, doc *core.Document) any {
	t.Helper()
	require.NotNil(t, doc)
	v, _ := doc.Get("value")
	return v
}

func TestRawVerbs(t *testing.T) {
	p := newParser(t)

	doc := run(t, p, "create /pipelines p0 "+simple)
	assert.Equal(t, "p0", property(t, doc, "name"))
	assert.Equal(t, simple, property(t, doc, "description"))

	doc = run(t, p, "read /pipelines/p0/elements")
	assert.Equal(t, []string{"identity-source0", "identity-sink0"}, nodeNames(t, doc))

	doc = run(t, p, "update /pipelines/p0/state PLAYING")
	assert.Equal(t, "PLAYING", value(t, doc))
	doc = run(t, p, "read //pipelines//p0/state/")
	assert.Equal(t, "PLAYING", value(t, doc))

	code, doc := p.Parse("delete /pipelines p0")
	assert.Equal(t, core.EOK, code)
	assert.Nil(t, doc)

	code, doc = p.Parse("read /pipelines/p0")
	assert.Equal(t, core.NoResource, code)
	assert.Nil(t, doc)
}

func TestReadRoot(t *testing.T) {
	p := newParser(t)
	for _, line := range []string{"read /", "read"} {
		doc := run(t, p, line)
		assert.Equal(t, "((GstdList*) pipelines)", property(t, doc, "pipelines"))
	}
}

func TestCommandErrors(t *testing.T) {
	p := newParser(t)
	run(t, p, "pipeline_create p0 "+simple)

	tests := []struct {
		line string
		code core.Code
	}{
		{"", core.BadCommand},
		{"   ", core.BadCommand},
		{"frobnicate /pipelines", core.BadCommand},
		{"Pipeline_create p1 " + simple, core.BadCommand},
		{"pipeline_create p1", core.BadCommand},
		{"pipeline_create", core.BadCommand},
		{"element_get p0 identity-sink0", core.BadCommand},
		{"element_set p0 identity-sink0 silent", core.BadCommand},
		{"bus_filter p0", core.BadCommand},
		{"pipeline_create p0 " + simple, core.ExistingName},
		{"pipeline_create p1 identity-source ! no-such-factory", core.BadDescription},
		{"pipeline_play missing", core.NoResource},
		{"read /nothing", core.NoResource},
		{"update /pipelines/p0/state", core.BadValue},
		{"update /pipelines/p0/state FLYING", core.BadValue},
		{"update /pipelines/p0/description other", core.NoUpdate},
		{"create /pipelines/p0/state x", core.NoCreate},
		{"delete /pipelines/p0 state", core.NoDelete},
		{"delete /pipelines missing", core.NoResource},
		{"element_set p0 identity-source0 num-buffers ten", core.BadValue},
		{"event_seek p0 1.0 3 1 1 0 1 -1 extra", core.BadValue},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			code, doc := p.Parse(tt.line)
			assert.Equal(t, tt.code, code)
			assert.Nil(t, doc)
		})
	}

	doc := run(t, p, "list_pipelines")
	assert.Equal(t, []string{"p0"}, nodeNames(t, doc), "failed creates leave nothing behind")
}

func TestPipelineShorthands(t *testing.T) {
	p := newParser(t)

	doc := run(t, p, "pipeline_create p0 "+simple)
	assert.Equal(t, "p0", property(t, doc, "name"))

	tests := []struct {
		line  string
		state string
	}{
		{"pipeline_pause p0", "PAUSED"},
		{"pipeline_play p0", "PLAYING"},
		{"pipeline_stop p0", "NULL"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.state, value(t, run(t, p, tt.line)))
			assert.Equal(t, tt.state, value(t, run(t, p, "read /pipelines/p0/state")))
		})
	}

	graph := value(t, run(t, p, "pipeline_get_graph p0"))
	assert.Contains(t, graph, `"identity-source0" -> "identity-sink0"`)

	assert.Equal(t, true, value(t, run(t, p, "pipeline_verbose p0 true")))
	assert.Equal(t, int64(-1), value(t, run(t, p, "pipeline_get_position p0")))
	run(t, p, "pipeline_get_duration p0")

	run(t, p, "pipeline_delete p0")
	assert.Empty(t, nodeNames(t, run(t, p, "list_pipelines")))
}

func TestElementShorthands(t *testing.T) {
	p := newParser(t)
	run(t, p, "pipeline_create p0 "+simple)

	assert.Equal(t, int64(7), value(t, run(t, p, "element_set p0 identity-source0 num-buffers 7")))
	assert.Equal(t, int64(7), value(t, run(t, p, "element_get p0 identity-source0 num-buffers")))

	props := nodeNames(t, run(t, p, "list_properties p0 identity-source0"))
	assert.Contains(t, props, "num-buffers")
	assert.Contains(t, nodeNames(t, run(t, p, "list_elements p0")), "identity-sink0")
	assert.Contains(t, nodeNames(t, run(t, p, "list_signals p0 identity-sink0")), "handoff")
	assert.Contains(t, nodeNames(t, run(t, p, "list_actions p0 identity-sink0")), "reset")

	run(t, p, "action_emit p0 identity-sink0 reset")
	code, _ := p.Parse("action_emit p0 identity-sink0 reset extra")
	assert.Equal(t, core.BadValue, code)
	code, _ = p.Parse("action_emit p0 identity-sink0 missing")
	assert.Equal(t, core.NoResource, code)
}

func TestSignalShorthands(t *testing.T) {
	p := newParser(t)
	run(t, p, "pipeline_create p0 "+simple)

	assert.Equal(t, int64(0), value(t, run(t, p, "signal_timeout p0 identity-sink0 handoff 0")))

	code, doc := p.Parse("signal_connect p0 identity-sink0 handoff")
	assert.Equal(t, core.Timeout, code)
	assert.Nil(t, doc)

	assert.Equal(t, true, value(t, run(t, p, "signal_disconnect p0 identity-sink0 handoff")))
}

func TestSignalConnectDelivers(t *testing.T) {
	p := newParser(t)
	run(t, p, "pipeline_create p0 "+simple)
	run(t, p, "element_set p0 identity-sink0 emit-signals true")
	run(t, p, "signal_timeout p0 identity-sink0 handoff 5000000")
	run(t, p, "pipeline_play p0")

	doc := run(t, p, "signal_connect p0 identity-sink0 handoff")
	assert.Equal(t, "handoff", doc.GetString("name"))
	args, ok := doc.Get("arguments")
	require.True(t, ok)
	assert.Len(t, args, 2)
}

func TestBusShorthands(t *testing.T) {
	p := newParser(t)
	run(t, p, "pipeline_create p0 "+simple)

	assert.Equal(t, int64(0), value(t, run(t, p, "bus_timeout p0 0")))
	code, doc := p.Parse("bus_read p0")
	assert.Equal(t, core.Timeout, code)
	assert.Nil(t, doc)

	assert.Equal(t, "unknown", value(t, run(t, p, "bus_filter p0 none")))
	code, doc = p.Parse("bus_read p0")
	assert.Equal(t, core.EOK, code)
	assert.Nil(t, doc)
}

func TestEosReachesBus(t *testing.T) {
	p := newParser(t)
	run(t, p, "pipeline_create p0 "+simple)
	run(t, p, "pipeline_play p0")
	run(t, p, "bus_filter p0 eos")
	run(t, p, "bus_timeout p0 5000000000")

	code, doc := p.Parse("event_eos p0")
	require.Equal(t, core.EOK, code)
	assert.Nil(t, doc)

	doc = run(t, p, "bus_read p0")
	assert.Equal(t, "eos", doc.GetString("type"))
}

func TestEventShorthands(t *testing.T) {
	p := newParser(t)
	run(t, p, "pipeline_create p0 "+simple)

	code, _ := p.Parse("event_eos p0")
	assert.Equal(t, core.EventError, code, "events need a running pipeline")

	run(t, p, "pipeline_pause p0")
	for _, line := range []string{
		"event_seek p0",
		"event_seek p0 2.0 3 1 1 0 1 -1",
		"event_flush_start p0",
		"event_flush_stop p0",
		"event_flush_stop p0 false",
		"create /pipelines/p0/event eos",
	} {
		t.Run(line, func(t *testing.T) {
			code, _ := p.Parse(line)
			assert.Equal(t, core.EOK, code)
		})
	}

	code, _ = p.Parse("create /pipelines/p0/event rewind")
	assert.Equal(t, core.BadValue, code)
}

func TestRefCommands(t *testing.T) {
	p := newParser(t)

	doc := run(t, p, "pipeline_create_ref p0 "+simple)
	assert.Equal(t, int64(1), property(t, doc, "refcount"))
	doc = run(t, p, "pipeline_create_ref p0 "+simple)
	assert.Equal(t, int64(2), property(t, doc, "refcount"))

	run(t, p, "pipeline_play_ref p0")
	run(t, p, "pipeline_play_ref p0")
	run(t, p, "pipeline_stop_ref p0")
	assert.Equal(t, "PLAYING", value(t, run(t, p, "read /pipelines/p0/state")))
	run(t, p, "pipeline_stop_ref p0")
	assert.Equal(t, "NULL", value(t, run(t, p, "read /pipelines/p0/state")))

	run(t, p, "pipeline_delete_ref p0")
	run(t, p, "read /pipelines/p0")
	run(t, p, "pipeline_delete_ref p0")
	code, _ := p.Parse("read /pipelines/p0")
	assert.Equal(t, core.NoResource, code)

	code, _ = p.Parse("pipeline_delete_ref p0")
	assert.Equal(t, core.NoResource, code)
	code, _ = p.Parse("pipeline_play_ref p0")
	assert.Equal(t, core.NoResource, code)
}

func TestConcurrentRefCommands(t *testing.T) {
	p := newParser(t)
	const n = 16

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			code, _ := p.Parse("pipeline_create_ref shared " + simple)
			assert.Equal(t, core.EOK, code)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(n), property(t, run(t, p, "read /pipelines/shared"), "refcount"))

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			code, _ := p.Parse("pipeline_delete_ref shared")
			assert.Equal(t, core.EOK, code)
		}()
	}
	wg.Wait()
	assert.Empty(t, nodeNames(t, run(t, p, "list_pipelines")))
}

func TestPlainDeleteHonorsReferences(t *testing.T) {
	p := newParser(t)

	run(t, p, "pipeline_create pipe0 "+simple)
	assert.Len(t, nodeNames(t, run(t, p, "list_elements pipe0")), 2)
	run(t, p, "pipeline_create_ref pipe0 "+simple)
	run(t, p, "pipeline_play pipe0")
	assert.Equal(t, "PLAYING", value(t, run(t, p, "read /pipelines/pipe0/state")))

	run(t, p, "pipeline_delete pipe0")
	run(t, p, "read /pipelines/pipe0")

	run(t, p, "pipeline_delete pipe0")
	code, _ := p.Parse("read /pipelines/pipe0")
	assert.Equal(t, core.NoResource, code)
}

func TestDebugShorthands(t *testing.T) {
	p := newParser(t)

	assert.Equal(t, "*:3", value(t, run(t, p, "debug_threshold *:3")))
	assert.Equal(t, true, value(t, run(t, p, "debug_enable true")))
	assert.Equal(t, true, value(t, run(t, p, "debug_color true")))
	assert.Equal(t, true, value(t, run(t, p, "debug_reset true")))
	assert.Equal(t, false, value(t, run(t, p, "debug_enable false")))

	code, _ := p.Parse("debug_enable perhaps")
	assert.Equal(t, core.BadValue, code)
}

func TestStatsShorthands(t *testing.T) {
	p := newParser(t)

	assert.Equal(t, "{}", value(t, run(t, p, "stats_get")))
	run(t, p, "stats_reset true")
}

func TestObserver(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]core.Code{}
	p := newParser(t, WithObserver(func(verb string, code core.Code, elapsed time.Duration) {
		mu.Lock()
		seen[verb] = code
		mu.Unlock()
	}))

	p.Parse("list_pipelines")
	p.Parse("read /missing")
	p.Parse("bogus")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[string]core.Code{
		"list_pipelines": core.EOK,
		VerbRead:         core.NoResource,
		"bogus":          core.BadCommand,
	}, seen)
}

func TestEnvelope(t *testing.T) {
	out := Envelope(core.NoResource, nil)
	assert.JSONEq(t, `{"code": 6, "description": "Resource requested doesn't exist", "response": null}`, out)
	assert.True(t, strings.HasPrefix(out, "{\n  \"code\": 6,\n"), out)

	doc := core.NewDocument().Set("name", "p0")
	assert.JSONEq(t, `{"code": 0, "description": "Success", "response": {"name": "p0"}}`,
		Envelope(core.EOK, doc))
}

func TestHandle(t *testing.T) {
	p := newParser(t)

	var reply struct {
		Code        int             `json:"code"`
		Description string          `json:"description"`
		Response    json.RawMessage `json:"response"`
	}
	require.NoError(t, json.Unmarshal([]byte(p.Handle("pipeline_create p0 "+simple+"\x00")), &reply))
	assert.Equal(t, 0, reply.Code)
	assert.Equal(t, "Success", reply.Description)
	assert.Contains(t, string(reply.Response), `"p0"`)
}

func TestUsage(t *testing.T) {
	usage := Usage()
	names := Commands()
	assert.Len(t, usage, len(names))
	assert.Equal(t, []string{VerbCreate, VerbRead, VerbUpdate, VerbDelete}, names[:4])
	for _, line := range usage[4:] {
		verb, _ := cut(line)
		assert.Contains(t, names, verb)
	}
}
