package parser

import (
	"fmt"
	"sort"
	"strings"

	"gstd/pkg/core"
	"gstd/pkg/pipeline"
)

type tail int

const (
	noTail tail = iota
	optionalTail
	requiredTail
)

// command is a shorthand. It takes args whitespace separated words and,
// depending on tail, the rest of the line as one more argument.
type command struct {
	args  int
	tail  tail
	usage string
	run   func(p *Parser, a []string, rest string) (core.Code, *core.Document)
}

func (c command) call(p *Parser, line string) (core.Code, *core.Document) {
	a := make([]string, 0, c.args)
	rest := line
	for i := 0; i < c.args; i++ {
		var word string
		word, rest = cut(rest)
		if word == "" {
			return core.BadCommand, nil
		}
		a = append(a, word)
	}
	if c.tail == requiredTail && rest == "" {
		return core.BadCommand, nil
	}
	return c.run(p, a, rest)
}

// raw expands into verb against the URI built from format and the
// positional arguments
func raw(verb, format string, args int, t tail, usage string) command {
	return command{
		args:  args,
		tail:  t,
		usage: usage,
		run: func(p *Parser, a []string, rest string) (core.Code, *core.Document) {
			return p.Execute(verb, uri(format, a), rest)
		},
	}
}

// withArg expands into verb with a fixed argument, prefixed to the rest of
// the line when one is given
func withArg(verb, format, arg string, args int, t tail, usage string) command {
	return command{
		args:  args,
		tail:  t,
		usage: usage,
		run: func(p *Parser, a []string, rest string) (core.Code, *core.Document) {
			if t == noTail {
				rest = ""
			}
			return p.Execute(verb, uri(format, a), strings.TrimSpace(arg+" "+rest))
		},
	}
}

func uri(format string, a []string) string {
	values := make([]any, len(a))
	for i, s := range a {
		values[i] = s
	}
	return fmt.Sprintf(format, values...)
}

const (
	pipelinePath = "/pipelines/%s"
	elementPath  = "/pipelines/%s/elements/%s"
	signalPath   = "/pipelines/%s/elements/%s/signals/%s"
)

var commands = map[string]command{
	"pipeline_create": {args: 1, tail: requiredTail, usage: "pipeline_create <name> <description>",
		run: func(p *Parser, a []string, rest string) (core.Code, *core.Document) {
			return p.Execute(VerbCreate, "/pipelines", a[0]+" "+rest)
		}},
	"pipeline_create_ref": {args: 1, tail: requiredTail, usage: "pipeline_create_ref <name> <description>",
		run: func(p *Parser, a []string, rest string) (core.Code, *core.Document) {
			if code := pipeline.CreateRef(p.session.Pipelines(), a[0], rest); code != core.EOK {
				return code, nil
			}
			return p.Execute(VerbRead, fmt.Sprintf(pipelinePath, a[0]), "")
		}},
	"pipeline_delete": {args: 1, usage: "pipeline_delete <name>",
		run: func(p *Parser, a []string, rest string) (core.Code, *core.Document) {
			return p.Execute(VerbDelete, "/pipelines", a[0])
		}},
	"pipeline_delete_ref": {args: 1, usage: "pipeline_delete_ref <name>",
		run: func(p *Parser, a []string, rest string) (core.Code, *core.Document) {
			return pipeline.DeleteRef(p.session.Pipelines(), a[0]), nil
		}},
	"pipeline_play":  withArg(VerbUpdate, pipelinePath+"/state", "playing", 1, noTail, "pipeline_play <name>"),
	"pipeline_pause": withArg(VerbUpdate, pipelinePath+"/state", "paused", 1, noTail, "pipeline_pause <name>"),
	"pipeline_stop":  withArg(VerbUpdate, pipelinePath+"/state", "null", 1, noTail, "pipeline_stop <name>"),
	"pipeline_play_ref": {args: 1, usage: "pipeline_play_ref <name>",
		run: func(p *Parser, a []string, rest string) (core.Code, *core.Document) {
			return pipeline.PlayRef(p.session.Pipelines(), a[0]), nil
		}},
	"pipeline_stop_ref": {args: 1, usage: "pipeline_stop_ref <name>",
		run: func(p *Parser, a []string, rest string) (core.Code, *core.Document) {
			return pipeline.StopRef(p.session.Pipelines(), a[0]), nil
		}},
	"pipeline_get_graph":    raw(VerbRead, pipelinePath+"/graph", 1, noTail, "pipeline_get_graph <name>"),
	"pipeline_verbose":      raw(VerbUpdate, pipelinePath+"/verbose", 1, requiredTail, "pipeline_verbose <name> <true|false>"),
	"pipeline_get_position": raw(VerbRead, pipelinePath+"/position", 1, noTail, "pipeline_get_position <name>"),
	"pipeline_get_duration": raw(VerbRead, pipelinePath+"/duration", 1, noTail, "pipeline_get_duration <name>"),

	"element_set":     raw(VerbUpdate, elementPath+"/properties/%s", 3, requiredTail, "element_set <pipeline> <element> <property> <value>"),
	"element_get":     raw(VerbRead, elementPath+"/properties/%s", 3, noTail, "element_get <pipeline> <element> <property>"),
	"list_pipelines":  raw(VerbRead, "/pipelines", 0, noTail, "list_pipelines"),
	"list_elements":   raw(VerbRead, pipelinePath+"/elements", 1, noTail, "list_elements <pipeline>"),
	"list_properties": raw(VerbRead, elementPath+"/properties", 2, noTail, "list_properties <pipeline> <element>"),
	"list_signals":    raw(VerbRead, elementPath+"/signals", 2, noTail, "list_signals <pipeline> <element>"),
	"list_actions":    raw(VerbRead, elementPath+"/actions", 2, noTail, "list_actions <pipeline> <element>"),
	"action_emit": {args: 3, tail: optionalTail, usage: "action_emit <pipeline> <element> <action> [args...]",
		run: func(p *Parser, a []string, rest string) (core.Code, *core.Document) {
			return p.Execute(VerbCreate, uri(elementPath+"/actions/%s", a), strings.TrimSpace(a[2]+" "+rest))
		}},

	"bus_read":    raw(VerbRead, pipelinePath+"/bus/message", 1, noTail, "bus_read <pipeline>"),
	"bus_filter":  raw(VerbUpdate, pipelinePath+"/bus/types", 1, requiredTail, "bus_filter <pipeline> <types>"),
	"bus_timeout": raw(VerbUpdate, pipelinePath+"/bus/timeout", 1, requiredTail, "bus_timeout <pipeline> <nanoseconds>"),

	"event_eos":         withArg(VerbCreate, pipelinePath+"/event", "eos", 1, noTail, "event_eos <pipeline>"),
	"event_seek":        withArg(VerbCreate, pipelinePath+"/event", "seek", 1, optionalTail, "event_seek <pipeline> [rate format flags start_type start stop_type stop]"),
	"event_flush_start": withArg(VerbCreate, pipelinePath+"/event", "flush_start", 1, noTail, "event_flush_start <pipeline>"),
	"event_flush_stop":  withArg(VerbCreate, pipelinePath+"/event", "flush_stop", 1, optionalTail, "event_flush_stop <pipeline> [reset]"),

	"signal_connect":    raw(VerbRead, signalPath+"/callback", 3, noTail, "signal_connect <pipeline> <element> <signal>"),
	"signal_timeout":    raw(VerbUpdate, signalPath+"/timeout", 3, requiredTail, "signal_timeout <pipeline> <element> <signal> <microseconds>"),
	"signal_disconnect": raw(VerbRead, signalPath+"/disconnect", 3, noTail, "signal_disconnect <pipeline> <element> <signal>"),

	"debug_enable":    raw(VerbUpdate, "/debug/enable", 0, requiredTail, "debug_enable <true|false>"),
	"debug_threshold": raw(VerbUpdate, "/debug/threshold", 0, requiredTail, "debug_threshold <threshold>"),
	"debug_color":     raw(VerbUpdate, "/debug/color", 0, requiredTail, "debug_color <true|false>"),
	"debug_reset":     raw(VerbUpdate, "/debug/reset", 0, requiredTail, "debug_reset <true|false>"),

	"stats_enable": raw(VerbUpdate, "/stats/enable", 0, requiredTail, "stats_enable <true|false>"),
	"stats_get":    raw(VerbRead, "/stats/stats", 0, noTail, "stats_get"),
	"stats_reset":  raw(VerbUpdate, "/stats/reset", 0, requiredTail, "stats_reset <true|false>"),
}

// Usage returns one usage line per command, raw verbs first
func Usage() []string {
	lines := []string{
		"create <uri> [name description]",
		"read <uri>",
		"update <uri> <value>",
		"delete <uri> <name>",
	}
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		lines = append(lines, commands[name].usage)
	}
	return lines
}

// Commands returns the names of every verb the parser accepts
func Commands() []string {
	names := []string{VerbCreate, VerbRead, VerbUpdate, VerbDelete}
	rest := make([]string, 0, len(commands))
	for name := range commands {
		rest = append(rest, name)
	}
	sort.Strings(rest)
	return append(names, rest...)
}
