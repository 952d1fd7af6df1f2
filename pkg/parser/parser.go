// Package parser turns command lines into operations on the resource tree
// of a session. A line starts with a verb: one of the four raw verbs
// (create, read, update, delete) followed by a URI, or a shorthand that
// expands to a raw verb against a built URI.
package parser

import (
	"log/slog"
	"strings"
	"time"

	"gstd/pkg/core"
	"gstd/pkg/session"
)

// Raw verbs
const (
	VerbCreate = "create"
	VerbRead   = "read"
	VerbUpdate = "update"
	VerbDelete = "delete"
)

// Observer is told about every executed command
type Observer func(verb string, code core.Code, elapsed time.Duration)

// Option configures a Parser
type Option func(*Parser)

// WithObserver installs fn as the command observer
func WithObserver(fn Observer) Option {
	return func(p *Parser) { p.observe = fn }
}

// Parser executes commands against one session. It is safe for concurrent
// use; all state lives in the tree.
type Parser struct {
	session *session.Session
	observe Observer
}

// New creates a parser bound to s
func New(s *session.Session, opts ...Option) *Parser {
	p := &Parser{session: s}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Session returns the session commands run against
func (p *Parser) Session() *session.Session { return p.session }

// Parse runs one command line and returns its code and response document
func (p *Parser) Parse(line string) (core.Code, *core.Document) {
	start := time.Now()
	line = strings.TrimSpace(strings.TrimRight(line, "\x00"))
	verb, args := cut(line)

	code, doc := p.dispatch(verb, args)

	slog.Debug("Command executed", "command", verb, "code", code, "elapsed", time.Since(start))
	if p.observe != nil {
		p.observe(verb, code, time.Since(start))
	}
	return code, doc
}

// Handle runs one command line and renders the response envelope
func (p *Parser) Handle(line string) string {
	return Envelope(p.Parse(line))
}

func (p *Parser) dispatch(verb, args string) (core.Code, *core.Document) {
	switch verb {
	case "":
		return core.BadCommand, nil
	case VerbCreate, VerbRead, VerbUpdate, VerbDelete:
		uri, rest := cut(args)
		return p.Execute(verb, uri, rest)
	}
	cmd, ok := commands[verb]
	if !ok {
		slog.Debug("Unknown command", "command", verb)
		return core.BadCommand, nil
	}
	return cmd.call(p, args)
}

// Execute runs a raw verb against uri. args is the verb specific trailing
// argument: "name description" for create, the new value for update and
// the child name for delete.
func (p *Parser) Execute(verb, uri, args string) (core.Code, *core.Document) {
	if p.session == nil {
		return core.MissingInitialization, nil
	}
	if uri == "" {
		uri = "/"
	}
	node, code := p.session.Resolve(uri)
	if code != core.EOK {
		return code, nil
	}

	switch verb {
	case VerbCreate:
		return create(node, args)
	case VerbRead:
		return read(node)
	case VerbUpdate:
		return update(node, args)
	case VerbDelete:
		if node == nil {
			return core.NoResource, nil
		}
		return node.Delete(strings.TrimSpace(args)), nil
	}
	return core.BadCommand, nil
}

// create builds a child and answers with it when it can be read back
func create(node core.Node, args string) (core.Code, *core.Document) {
	if node == nil {
		return core.NoResource, nil
	}
	name, description := cut(args)
	if code := node.Create(name, description); code != core.EOK {
		return code, nil
	}
	if name == "" {
		return core.EOK, nil
	}
	child, code := node.Read(name)
	if code != core.EOK || child == nil {
		return core.EOK, nil
	}
	doc, code := child.Serialize()
	if code != core.EOK {
		return core.EOK, nil
	}
	return core.EOK, doc
}

func read(node core.Node) (core.Code, *core.Document) {
	if node == nil {
		return core.EOK, nil
	}
	doc, code := node.Serialize()
	if code != core.EOK {
		return code, nil
	}
	return core.EOK, doc
}

func update(node core.Node, args string) (core.Code, *core.Document) {
	if node == nil {
		return core.NoResource, nil
	}
	if strings.TrimSpace(args) == "" {
		return core.BadValue, nil
	}
	if code := node.Update(args); code != core.EOK {
		return code, nil
	}
	return read(node)
}

// cut splits s at its first run of whitespace
func cut(s string) (string, string) {
	s = strings.TrimSpace(s)
	i := strings.IndexAny(s, " \t\r\n")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i+1:])
}
